package errors_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	mserrors "github.com/mailsweep/mailsweep/internal/errors"
)

func TestClassifyTypedErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected mserrors.Category
	}{
		{
			name:     "configuration error",
			err:      mserrors.ConfigurationError{Provider: "gmail", Message: "client registration missing"},
			expected: mserrors.CategoryConfiguration,
		},
		{
			name:     "authentication error",
			err:      mserrors.AuthenticationError{Provider: "gmail", Message: "token rejected"},
			expected: mserrors.CategoryAuthentication,
		},
		{
			name:     "network error",
			err:      mserrors.NetworkError{Provider: "openai", Err: fmt.Errorf("dial tcp: timeout")},
			expected: mserrors.CategoryNetwork,
		},
		{
			name:     "validation error",
			err:      mserrors.ValidationError{Field: "api_key", Message: "bad format"},
			expected: mserrors.CategoryValidation,
		},
		{
			name:     "storage error",
			err:      mserrors.StorageError{Op: "retrieve", Key: "gmail.client_id", Err: fmt.Errorf("keyring unavailable")},
			expected: mserrors.CategoryStorage,
		},
		{
			name:     "wrapped typed error",
			err:      fmt.Errorf("probe: %w", mserrors.AuthenticationError{Provider: "openai"}),
			expected: mserrors.CategoryAuthentication,
		},
		{
			name:     "plain error",
			err:      fmt.Errorf("something odd"),
			expected: mserrors.CategoryUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, mserrors.Classify(tt.err))
		})
	}
}

func TestClassifyHeuristics(t *testing.T) {
	assert.Equal(t, mserrors.CategoryAuthentication, mserrors.Classify(fmt.Errorf("oauth2: invalid_grant")))
	assert.Equal(t, mserrors.CategoryNetwork, mserrors.Classify(fmt.Errorf("dial tcp: connection refused")))
	assert.Equal(t, mserrors.CategoryNetwork, mserrors.Classify(context.DeadlineExceeded))
	assert.Equal(t, mserrors.CategoryStorage, mserrors.Classify(fmt.Errorf("database is locked")))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, mserrors.IsRetryable(fmt.Errorf("429 too many requests")))
	assert.True(t, mserrors.IsRetryable(fmt.Errorf("i/o timeout")))
	assert.True(t, mserrors.IsRetryable(mserrors.NetworkError{Provider: "gmail"}))
	assert.False(t, mserrors.IsRetryable(mserrors.ValidationError{Field: "api_key", Message: "bad prefix"}))
	assert.False(t, mserrors.IsRetryable(nil))
}

func TestProviderErrorSuggestions(t *testing.T) {
	err := mserrors.ProviderError("openai", "probe", fmt.Errorf("incorrect api key provided"))
	assert.Contains(t, err.Error(), "authentication failed")

	err = mserrors.ProviderError("gmail", "probe", fmt.Errorf("weird failure"))
	assert.Contains(t, err.Error(), "probe failed")

	err = mserrors.ProviderError("localstore", "open", fmt.Errorf("database is locked"))
	assert.Equal(t, mserrors.CategoryStorage, mserrors.Classify(fmt.Errorf("database is locked")))
	assert.NotNil(t, err)
}

func TestErrorMessagesCarrySuggestion(t *testing.T) {
	err := mserrors.ConfigurationError{
		Provider:   "gmail",
		Message:    "client registration missing",
		Suggestion: "Run setup to register the OAuth client",
	}
	assert.Contains(t, err.Error(), "💡")
	assert.Contains(t, err.Error(), "Run setup")
}

func TestUnwrap(t *testing.T) {
	inner := fmt.Errorf("root cause")
	err := mserrors.StorageError{Op: "store", Err: inner}
	assert.ErrorIs(t, err, inner)
}
