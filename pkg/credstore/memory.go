package credstore

import (
	"sync"

	"github.com/awnumar/memguard"

	mserrors "github.com/mailsweep/mailsweep/internal/errors"
)

// MemoryStore keeps credentials in process memory. Each value lives inside a
// memguard enclave, so plaintext only exists transiently while a caller holds
// the decrypted buffer. Used for tests and for ephemeral runs where the user
// declines keyring access.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]*memguard.Enclave
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string]*memguard.Enclave),
	}
}

// Store seals the value into an enclave, replacing any previous entry.
func (s *MemoryStore) Store(key, value string) error {
	enclave := memguard.NewEnclave([]byte(value))

	s.mu.Lock()
	s.values[key] = enclave
	s.mu.Unlock()
	return nil
}

// Retrieve opens the enclave for key and returns a copy of the plaintext.
func (s *MemoryStore) Retrieve(key string) (string, bool, error) {
	s.mu.RLock()
	enclave, ok := s.values[key]
	s.mu.RUnlock()
	if !ok {
		return "", false, nil
	}

	locked, err := enclave.Open()
	if err != nil {
		return "", false, mserrors.StorageError{Op: "retrieve", Key: key, Message: "enclave open failed", Err: err}
	}
	defer locked.Destroy()

	return string(locked.Bytes()), true, nil
}

// Remove drops the entry for key. The sealed ciphertext is left to the
// garbage collector; it is useless without the enclave key.
func (s *MemoryStore) Remove(key string) error {
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
	return nil
}

// Keys returns the stored key names, primarily for diagnostics.
func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.values))
	for key := range s.values {
		keys = append(keys, key)
	}
	return keys
}
