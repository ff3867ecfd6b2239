package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Category classifies a failure for status reporting. Every error that crosses
// the provider bridge boundary is folded into exactly one category.
type Category string

const (
	CategoryConfiguration  Category = "configuration"
	CategoryAuthentication Category = "authentication"
	CategoryNetwork        Category = "network"
	CategoryValidation     Category = "validation"
	CategoryStorage        Category = "storage"
	CategoryUnknown        Category = "unknown"
)

// ConfigurationError indicates missing or incomplete provider setup,
// such as an absent OAuth client registration or API key.
type ConfigurationError struct {
	Provider   string
	Message    string
	Suggestion string
}

func (e ConfigurationError) Error() string {
	msg := e.Message
	if e.Provider != "" {
		msg = e.Provider + ": " + msg
	}
	if e.Suggestion != "" {
		msg += "\n  💡 Try: " + e.Suggestion
	}
	return msg
}

// AuthenticationError indicates an expired or invalid user session.
type AuthenticationError struct {
	Provider string
	Message  string
	Err      error
}

func (e AuthenticationError) Error() string {
	msg := "authentication failed"
	if e.Provider != "" {
		msg += " for " + e.Provider
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil && e.Message == "" {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e AuthenticationError) Unwrap() error { return e.Err }

// NetworkError indicates a probe or API call failed to reach the provider.
// Potentially transient.
type NetworkError struct {
	Provider string
	Message  string
	Err      error
}

func (e NetworkError) Error() string {
	msg := "network error"
	if e.Provider != "" {
		msg += " for " + e.Provider
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e NetworkError) Unwrap() error { return e.Err }

// ValidationError indicates malformed input or configuration,
// such as an API key that fails the provider's format rules.
type ValidationError struct {
	Field      string
	Message    string
	Suggestion string
}

func (e ValidationError) Error() string {
	msg := "validation failed"
	if e.Field != "" {
		msg += fmt.Sprintf(" for '%s'", e.Field)
	}
	msg += ": " + e.Message
	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}
	return msg
}

// StorageError indicates the credential store or persisted state failed.
type StorageError struct {
	Op      string
	Key     string
	Message string
	Err     error
}

func (e StorageError) Error() string {
	msg := "storage error"
	if e.Op != "" {
		msg += " during " + e.Op
	}
	if e.Key != "" {
		msg += fmt.Sprintf(" (key: %s)", e.Key)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e StorageError) Unwrap() error { return e.Err }

// Classify maps an arbitrary error to its category. Typed errors from this
// package map directly; everything else is matched on message heuristics,
// falling back to CategoryUnknown.
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}

	var configErr ConfigurationError
	var authErr AuthenticationError
	var netErr NetworkError
	var valErr ValidationError
	var storErr StorageError
	switch {
	case errors.As(err, &configErr):
		return CategoryConfiguration
	case errors.As(err, &authErr):
		return CategoryAuthentication
	case errors.As(err, &valErr):
		return CategoryValidation
	case errors.As(err, &storErr):
		return CategoryStorage
	case errors.As(err, &netErr):
		return CategoryNetwork
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryNetwork
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case containsAny(errStr, "unauthorized", "invalid_grant", "invalid api key", "incorrect api key", "401", "403", "token expired"):
		return CategoryAuthentication
	case containsAny(errStr, "timeout", "connection refused", "no such host", "network is unreachable", "tls", "connection reset", "eof"):
		return CategoryNetwork
	case containsAny(errStr, "permission denied", "read-only", "disk", "database is locked"):
		return CategoryStorage
	}

	return CategoryUnknown
}

// IsRetryable reports whether an error looks transient enough to retry
// on the next monitor tick without user intervention.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if Classify(err) == CategoryNetwork {
		return true
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"temporary failure",
		"rate limit",
		"throttling",
		"too many requests",
		"try again",
		"503",
		"429",
	}
	return containsAny(errStr, retryablePatterns...)
}

// ProviderError wraps a provider failure with a user-facing suggestion.
func ProviderError(provider string, operation string, err error) error {
	suggestion := getProviderSuggestion(provider, err)

	switch Classify(err) {
	case CategoryAuthentication:
		return AuthenticationError{Provider: provider, Message: fmt.Sprintf("%s failed", operation), Err: err}
	case CategoryNetwork:
		return NetworkError{Provider: provider, Message: fmt.Sprintf("%s failed", operation), Err: err}
	default:
		return ConfigurationError{
			Provider:   provider,
			Message:    fmt.Sprintf("%s failed: %v", operation, err),
			Suggestion: suggestion,
		}
	}
}

// getProviderSuggestion returns helpful suggestions based on provider and error
func getProviderSuggestion(provider string, err error) string {
	if err == nil {
		return ""
	}
	errStr := strings.ToLower(err.Error())

	switch provider {
	case "gmail":
		if strings.Contains(errStr, "invalid_grant") || strings.Contains(errStr, "token expired") {
			return "Your Google session has expired. Sign in again from the setup screen"
		}
		if strings.Contains(errStr, "invalid_client") {
			return "Check the OAuth client ID and secret in your Google Cloud project"
		}
		if strings.Contains(errStr, "access_denied") {
			return "Grant the requested Gmail scopes when prompted during sign-in"
		}

	case "openai":
		if strings.Contains(errStr, "incorrect api key") || strings.Contains(errStr, "invalid api key") {
			return "Verify the API key at https://platform.openai.com/api-keys"
		}
		if strings.Contains(errStr, "insufficient_quota") || strings.Contains(errStr, "429") {
			return "Your OpenAI quota is exhausted. Check billing at https://platform.openai.com/usage"
		}

	case "localstore":
		if strings.Contains(errStr, "database is locked") {
			return "Another mailsweep instance may be running. Close it and retry"
		}
		if strings.Contains(errStr, "permission denied") {
			return "Check file permissions on the local data directory"
		}
	}

	if strings.Contains(errStr, "timeout") {
		return "The operation timed out. Check your network connection and try again"
	}
	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "no such host") {
		return "Unable to connect. Check your network and proxy settings"
	}

	return ""
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
