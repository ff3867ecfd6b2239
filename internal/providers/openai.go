package providers

import (
	"context"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	mserrors "github.com/mailsweep/mailsweep/internal/errors"
	"github.com/mailsweep/mailsweep/pkg/credstore"
)

// ValidateOpenAIKeyFormat checks an API key's shape without any network
// traffic. The bridge calls this before probing so a mistyped key reports
// Setup Required instead of burning a network round-trip.
func ValidateOpenAIKeyFormat(key string) error {
	trimmed := strings.TrimSpace(key)
	if trimmed != key {
		return mserrors.ValidationError{
			Field:      "api_key",
			Message:    "key has leading or trailing whitespace",
			Suggestion: "Re-copy the key from https://platform.openai.com/api-keys",
		}
	}
	if !strings.HasPrefix(key, "sk-") {
		return mserrors.ValidationError{
			Field:      "api_key",
			Message:    "key must start with 'sk-'",
			Suggestion: "Re-copy the key from https://platform.openai.com/api-keys",
		}
	}
	if len(key) < 20 {
		return mserrors.ValidationError{
			Field:   "api_key",
			Message: "key is too short to be valid",
		}
	}
	return nil
}

// OpenAIProbe validates the stored API key with a lightweight model listing.
// ListModels is cheap, read-only, and exercises the same auth path as real
// classification calls.
type OpenAIProbe struct {
	store credstore.Store

	// baseURL overrides the API endpoint in tests.
	baseURL string
}

// NewOpenAIProbe creates an OpenAI connectivity probe.
func NewOpenAIProbe(store credstore.Store) *OpenAIProbe {
	return &OpenAIProbe{store: store}
}

// TestConnectivity lists models with the stored key. OpenAI resolves no
// account identity, so the identity return is always "".
func (p *OpenAIProbe) TestConnectivity(ctx context.Context) (string, error) {
	key, found, err := p.store.Retrieve(credstore.KeyOpenAIAPIKey)
	if err != nil {
		return "", err
	}
	if !found {
		return "", mserrors.ConfigurationError{
			Provider: string(KindOpenAI),
			Message:  "API key missing",
		}
	}

	cfg := openai.DefaultConfig(key)
	if p.baseURL != "" {
		cfg.BaseURL = p.baseURL
	}
	client := openai.NewClientWithConfig(cfg)

	if _, err := client.ListModels(ctx); err != nil {
		return "", mserrors.ProviderError(string(KindOpenAI), "probe", err)
	}
	return "", nil
}
