package credstore

import (
	"errors"

	"github.com/zalando/go-keyring"

	mserrors "github.com/mailsweep/mailsweep/internal/errors"
)

// DefaultService is the keyring service name under which mailsweep
// credentials are stored.
const DefaultService = "com.mailsweep.desktop"

// KeyringStore stores credentials in the OS keyring.
type KeyringStore struct {
	service string
}

// NewKeyringStore creates a keyring-backed store. An empty service falls
// back to DefaultService.
func NewKeyringStore(service string) *KeyringStore {
	if service == "" {
		service = DefaultService
	}
	return &KeyringStore{service: service}
}

// Store persists a credential in the keyring.
func (s *KeyringStore) Store(key, value string) error {
	if err := keyring.Set(s.service, key, value); err != nil {
		return mserrors.StorageError{Op: "store", Key: key, Err: err}
	}
	return nil
}

// Retrieve reads a credential from the keyring.
func (s *KeyringStore) Retrieve(key string) (string, bool, error) {
	value, err := keyring.Get(s.service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", false, nil
		}
		return "", false, mserrors.StorageError{Op: "retrieve", Key: key, Err: err}
	}
	return value, true, nil
}

// Remove deletes a credential from the keyring. Absent keys are a no-op.
func (s *KeyringStore) Remove(key string) error {
	if err := keyring.Delete(s.service, key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return mserrors.StorageError{Op: "remove", Key: key, Err: err}
	}
	return nil
}
