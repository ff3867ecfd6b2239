// Package providers derives a normalized status for each external dependency
// of the email-cleanup core: the Gmail mailbox, the OpenAI classifier, and the
// local datastore.
//
// Every provider is described along three independent axes:
//
//  1. Client registration — app-level OAuth client or API key, created by
//     setup and removed on reset.
//  2. Session token — user-specific token created by authentication.
//  3. Live connectivity — never persisted, computed per check by a probe.
//
// The bridge folds the three axes into one ProviderStatus. Failures never
// escape as errors: anything that goes wrong during derivation becomes an
// error-status entry for that provider alone.
package providers

import "time"

// Kind identifies a provider. Axis derivation is selected by Kind through a
// per-kind spec table, never by inspecting concrete probe types.
type Kind string

const (
	KindGmail      Kind = "gmail"
	KindOpenAI     Kind = "openai"
	KindLocalStore Kind = "localstore"
)

// Status labels surfaced to the dashboard. Tests assert on exact values.
const (
	StatusSetupRequired    = "Setup Required"
	StatusAuthRequired     = "Authentication Required"
	StatusConnected        = "Connected"
	StatusConnectionFailed = "Connection Failed"
	StatusError            = "Error"
)

// Detail keys with defined meaning. Other keys are free-form.
const (
	DetailAccountEmail = "account_email"
	DetailErrorKind    = "error_kind"
)

// ProviderStatus is the normalized health snapshot for one provider.
// Statuses are produced fresh on every derivation and never mutated in
// place; the status service replaces the cached value wholesale.
type ProviderStatus struct {
	Name          string
	IsHealthy     bool
	IsInitialized bool
	RequiresSetup bool
	Status        string
	ErrorMessage  string
	LastCheck     time.Time
	Details       *Details
}

// IdentityEmail returns the authenticated account email resolved by the last
// probe, or "" if none was recorded.
func (s ProviderStatus) IdentityEmail() string {
	if s.Details == nil {
		return ""
	}
	email, _ := s.Details.Get(DetailAccountEmail)
	return email
}

// Same reports field-wise equality for change detection. LastCheck and
// non-identity details are deliberately excluded: a refresh that observes no
// real difference must not fire a change notification.
func (s ProviderStatus) Same(other ProviderStatus) bool {
	return s.IsHealthy == other.IsHealthy &&
		s.IsInitialized == other.IsInitialized &&
		s.RequiresSetup == other.RequiresSetup &&
		s.Status == other.Status &&
		s.ErrorMessage == other.ErrorMessage &&
		s.IdentityEmail() == other.IdentityEmail()
}

// Details is an insertion-ordered key→value map attached to a status.
// Ordering matters for display: the dashboard renders details in the order
// the derivation recorded them.
type Details struct {
	keys   []string
	values map[string]string
}

// NewDetails creates an empty detail map.
func NewDetails() *Details {
	return &Details{values: make(map[string]string)}
}

// Set records a detail, preserving first-insertion order on overwrite.
func (d *Details) Set(key, value string) {
	if _, exists := d.values[key]; !exists {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

// Get returns the value for key.
func (d *Details) Get(key string) (string, bool) {
	value, ok := d.values[key]
	return value, ok
}

// Keys returns the detail keys in insertion order.
func (d *Details) Keys() []string {
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// Len returns the number of recorded details.
func (d *Details) Len() int {
	return len(d.keys)
}
