package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/teammate/pkg/config"
	anthropicprovider "github.com/tinyland-inc/teammate/pkg/providers/anthropic"
	openaiprovider "github.com/tinyland-inc/teammate/pkg/providers/openai"
)

func TestCreateProvider(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*config.Config)
		wantType  any
		wantModel string
		wantErr   bool
	}{
		{
			name:      "openai default model",
			mutate:    func(c *config.Config) { c.LLM.OpenAIKey = "sk" },
			wantType:  &openaiprovider.Provider{},
			wantModel: "gpt-4o",
		},
		{
			name: "openai explicit model",
			mutate: func(c *config.Config) {
				c.LLM.OpenAIKey = "sk"
				c.LLM.Model = "gpt-4.1-mini"
			},
			wantType:  &openaiprovider.Provider{},
			wantModel: "gpt-4.1-mini",
		},
		{
			name: "anthropic",
			mutate: func(c *config.Config) {
				c.LLM.Provider = "anthropic"
				c.LLM.AnthropicKey = "sk-ant"
			},
			wantType:  &anthropicprovider.Provider{},
			wantModel: "claude-sonnet-4-5",
		},
		{
			name:    "missing key",
			mutate:  func(c *config.Config) {},
			wantErr: true,
		},
		{
			name: "unknown provider",
			mutate: func(c *config.Config) {
				c.LLM.Provider = "mystery"
				c.LLM.OpenAIKey = "sk"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.mutate(cfg)

			provider, model, err := CreateProvider(cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, provider)
			assert.Equal(t, tt.wantModel, model)
		})
	}
}
