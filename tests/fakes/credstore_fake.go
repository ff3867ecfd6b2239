// Package fakes provides shared test doubles for the lifecycle core.
package fakes

import (
	"sync"

	mserrors "github.com/mailsweep/mailsweep/internal/errors"
)

// CredStore is an in-memory credential store with error injection.
// The zero value is not usable; create with NewCredStore.
type CredStore struct {
	mu     sync.RWMutex
	values map[string]string

	// FailKeys lists keys whose operations return a StorageError.
	failKeys map[string]bool

	// FailAll makes every operation return a StorageError.
	FailAll bool
}

// NewCredStore creates an empty fake store.
func NewCredStore() *CredStore {
	return &CredStore{
		values:   make(map[string]string),
		failKeys: make(map[string]bool),
	}
}

// Seed sets a value without the error-injection path, for test setup.
func (s *CredStore) Seed(key, value string) {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
}

// FailKey makes operations on key return a StorageError.
func (s *CredStore) FailKey(key string) {
	s.mu.Lock()
	s.failKeys[key] = true
	s.mu.Unlock()
}

func (s *CredStore) shouldFail(key string) bool {
	return s.FailAll || s.failKeys[key]
}

// Store implements credstore.Store.
func (s *CredStore) Store(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shouldFail(key) {
		return mserrors.StorageError{Op: "store", Key: key, Message: "injected failure"}
	}
	s.values[key] = value
	return nil
}

// Retrieve implements credstore.Store.
func (s *CredStore) Retrieve(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.shouldFail(key) {
		return "", false, mserrors.StorageError{Op: "retrieve", Key: key, Message: "injected failure"}
	}
	value, ok := s.values[key]
	return value, ok, nil
}

// Remove implements credstore.Store.
func (s *CredStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shouldFail(key) {
		return mserrors.StorageError{Op: "remove", Key: key, Message: "injected failure"}
	}
	delete(s.values, key)
	return nil
}

// Has reports whether a key is currently stored.
func (s *CredStore) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.values[key]
	return ok
}
