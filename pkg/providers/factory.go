package providers

import (
	"context"
	"fmt"

	"github.com/tinyland-inc/teammate/pkg/config"
	anthropicprovider "github.com/tinyland-inc/teammate/pkg/providers/anthropic"
	openaiprovider "github.com/tinyland-inc/teammate/pkg/providers/openai"
	"github.com/tinyland-inc/teammate/pkg/providers/protocoltypes"
)

type (
	Message     = protocoltypes.Message
	LLMResponse = protocoltypes.LLMResponse
)

// LLMProvider is a single-shot chat completion backend.
type LLMProvider interface {
	Chat(ctx context.Context, messages []Message, model string, options map[string]any) (*LLMResponse, error)
	GetDefaultModel() string
}

var (
	_ LLMProvider = (*openaiprovider.Provider)(nil)
	_ LLMProvider = (*anthropicprovider.Provider)(nil)
)

// CreateProvider builds the backend selected by cfg.LLM.Provider and returns
// it together with the resolved model id (configured MODEL, or the backend's
// default).
func CreateProvider(cfg *config.Config) (LLMProvider, string, error) {
	apiKey := cfg.APIKey()
	if apiKey == "" {
		return nil, "", fmt.Errorf("no API key configured for provider %q", cfg.LLM.Provider)
	}

	var provider LLMProvider
	switch cfg.LLM.Provider {
	case "openai", "":
		provider = openaiprovider.NewProviderWithBaseURL(apiKey, cfg.APIBase())
	case "anthropic":
		provider = anthropicprovider.NewProviderWithBaseURL(apiKey, cfg.APIBase())
	default:
		return nil, "", fmt.Errorf("unknown provider %q", cfg.LLM.Provider)
	}

	modelID := cfg.LLM.Model
	if modelID == "" {
		modelID = provider.GetDefaultModel()
	}
	return provider, modelID, nil
}
