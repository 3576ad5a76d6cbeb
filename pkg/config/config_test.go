package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "software developer", cfg.Persona)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 20, cfg.History.Limit)
	assert.Equal(t, 15, cfg.Reply.MinDelaySec)
	assert.Equal(t, 300, cfg.Reply.MaxDelaySec)
	assert.True(t, cfg.Outreach.Enabled)
	assert.Equal(t, "1h", cfg.Outreach.ChannelSchedule)
	assert.Equal(t, "3h", cfg.Outreach.DirectSchedule)
	assert.Equal(t, 3000, cfg.Gateway.Port)
	assert.NoError(t, cfg.Validate())
}

func TestParse_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("ROLE", "product manager")
	t.Setenv("SLACK_ALLOW_FROM", "U1, U2 U3")
	t.Setenv("REPLY_DELAY_MIN_SEC", "1")
	t.Setenv("REPLY_DELAY_MAX_SEC", "2")
	t.Setenv("TEMPERATURE", "0.4")
	t.Setenv("OUTREACH_DM_SCHEDULE", "0 */3 * * *")
	t.Setenv("PORT", "8080")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "product manager", cfg.Persona)
	assert.Equal(t, FlexibleStringSlice{"U1", "U2", "U3"}, cfg.Slack.AllowFrom)
	assert.Equal(t, 1, cfg.Reply.MinDelaySec)
	assert.Equal(t, 2, cfg.Reply.MaxDelaySec)
	require.NotNil(t, cfg.LLM.Temperature)
	assert.InDelta(t, 0.4, *cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, "0 */3 * * *", cfg.Outreach.DirectSchedule)
	assert.Equal(t, "1h", cfg.Outreach.ChannelSchedule)
	assert.Equal(t, 8080, cfg.Gateway.Port)
}

func TestParse_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"empty role", "ROLE", " "},
		{"unknown provider", "LLM_PROVIDER", "mystery"},
		{"non-positive history", "HISTORY_LIMIT", "0"},
		{"inverted delay", "REPLY_DELAY_MIN_SEC", "500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Parse()
			assert.Error(t, err)
		})
	}
}

func TestEnvFile(t *testing.T) {
	assert.Equal(t, ".env", EnvFile(""))
	assert.Equal(t, ".env.alice", EnvFile("alice"))
}

func TestLoadConfig_ReadsProfileFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.qa"),
		[]byte("ROLE=qa engineer\nOPENAI_API_KEY=sk-test\n"), 0o600))
	t.Chdir(dir)

	// Register for cleanup; godotenv.Load writes straight into the process env.
	t.Setenv("ROLE", "")
	t.Setenv("OPENAI_API_KEY", "")
	os.Unsetenv("ROLE")
	os.Unsetenv("OPENAI_API_KEY")

	cfg, err := LoadConfig("qa")
	require.NoError(t, err)
	assert.Equal(t, "qa engineer", cfg.Persona)
	assert.Equal(t, "sk-test", cfg.APIKey())
}

func TestLoadConfig_MissingFileFallsBackToEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ROLE", "designer")

	cfg, err := LoadConfig("nope")
	require.NoError(t, err)
	assert.Equal(t, "designer", cfg.Persona)
}

func TestValidateSlack(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.ValidateSlack())

	cfg.Slack.UserToken = "xoxp-1"
	cfg.Slack.AppToken = "bad"
	assert.Error(t, cfg.ValidateSlack())

	cfg.Slack.AppToken = "xapp-1"
	assert.NoError(t, cfg.ValidateSlack())
}

func TestParse_SocketModeNeedsOnlyTokens(t *testing.T) {
	t.Setenv("SLACK_USER_TOKEN", "xoxp-1")
	t.Setenv("SLACK_APP_TOKEN", "xapp-1")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.NoError(t, cfg.ValidateSlack())
	assert.Equal(t, SlackConfig{UserToken: "xoxp-1", AppToken: "xapp-1"}, cfg.Slack)
}

func TestAPIKeyFollowsProvider(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.OpenAIKey = "sk-openai"
	cfg.LLM.AnthropicKey = "sk-ant"
	cfg.LLM.AnthropicURL = "https://proxy.example"

	assert.Equal(t, "sk-openai", cfg.APIKey())
	assert.Empty(t, cfg.APIBase())

	cfg.LLM.Provider = "anthropic"
	assert.Equal(t, "sk-ant", cfg.APIKey())
	assert.Equal(t, "https://proxy.example", cfg.APIBase())
}
