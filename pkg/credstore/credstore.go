// Package credstore defines the credential storage contract used by the
// provider lifecycle core.
//
// A credential store holds named secret strings: OAuth client registrations,
// user session tokens, API keys, and the persisted onboarding blob. The core
// never interprets values beyond presence and format checks; encryption and
// platform integration are the store's concern.
//
// Two implementations ship with mailsweep:
//   - KeyringStore: the OS keyring (macOS Keychain, Linux Secret Service,
//     Windows Credential Manager) via zalando/go-keyring.
//   - MemoryStore: process-local storage with values held in memguard
//     enclaves, for tests and ephemeral runs.
//
// Implementations must be safe for concurrent reads; writes are infrequent
// and not contended in this core.
package credstore

import "errors"

// ErrNotFound is returned by Retrieve when no value exists for a key.
// Callers that only care about presence should use errors.Is.
var ErrNotFound = errors.New("credential not found")

// Store is the minimal contract the lifecycle core consumes.
//
// Retrieve reports absence via the found return rather than an error so that
// "not configured yet" stays distinct from "storage is broken". A non-nil
// error always means the store itself failed.
type Store interface {
	// Store persists a named credential string, replacing any previous value.
	Store(key, value string) error

	// Retrieve returns the credential for key. found is false when the key
	// has never been stored or has been removed.
	Retrieve(key string) (value string, found bool, err error)

	// Remove deletes a credential. Removing an absent key is not an error.
	Remove(key string) error
}

// Well-known credential keys. Provider axis derivation and onboarding
// persistence read and write exactly these names.
const (
	// Gmail client registration (app-level OAuth client).
	KeyGmailClientID     = "gmail.client_id"
	KeyGmailClientSecret = "gmail.client_secret"

	// Gmail user session.
	KeyGmailRefreshToken = "gmail.refresh_token"
	KeyGmailTokenExpiry  = "gmail.token_expiry"

	// OpenAI client registration (key-only provider, no session axis).
	KeyOpenAIAPIKey = "openai.api_key"

	// Serialized onboarding state blob.
	KeyOnboardingState = "onboarding.state"
)
