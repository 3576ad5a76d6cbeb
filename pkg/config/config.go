package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// FlexibleStringSlice is a []string parsed from a comma or whitespace
// separated environment value, so SLACK_ALLOW_FROM can be "U1,U2" or "U1 U2".
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalText(text []byte) error {
	fields := strings.FieldsFunc(string(text), func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	*f = fields
	return nil
}

type Config struct {
	Persona  string `env:"ROLE"`
	Slack    SlackConfig
	LLM      LLMConfig
	History  HistoryConfig
	Reply    ReplyConfig
	Outreach OutreachConfig
	Gateway  GatewayConfig
}

type SlackConfig struct {
	UserToken string              `env:"SLACK_USER_TOKEN"`
	AppToken  string              `env:"SLACK_APP_TOKEN"`
	AllowFrom FlexibleStringSlice `env:"SLACK_ALLOW_FROM"`
	Debug     bool                `env:"SLACK_DEBUG"`
}

type LLMConfig struct {
	Provider     string   `env:"LLM_PROVIDER"`
	Model        string   `env:"MODEL"`
	MaxTokens    int      `env:"MAX_TOKENS"`
	Temperature  *float64 `env:"TEMPERATURE"`
	OpenAIKey    string   `env:"OPENAI_API_KEY"`
	OpenAIBase   string   `env:"OPENAI_BASE_URL"`
	AnthropicKey string   `env:"ANTHROPIC_API_KEY"`
	AnthropicURL string   `env:"ANTHROPIC_BASE_URL"`
}

type HistoryConfig struct {
	Limit int `env:"HISTORY_LIMIT"`
}

// ReplyConfig bounds the human-like pause before a reactive reply.
type ReplyConfig struct {
	MinDelaySec int `env:"REPLY_DELAY_MIN_SEC"`
	MaxDelaySec int `env:"REPLY_DELAY_MAX_SEC"`
}

// OutreachConfig schedules are either Go durations ("1h") or cron
// expressions ("0 */3 * * *", "@hourly").
type OutreachConfig struct {
	Enabled         bool   `env:"OUTREACH_ENABLED"`
	ChannelSchedule string `env:"OUTREACH_CHANNEL_SCHEDULE"`
	DirectSchedule  string `env:"OUTREACH_DM_SCHEDULE"`
}

type GatewayConfig struct {
	Host string `env:"HOST"`
	Port int    `env:"PORT"`
}

func DefaultConfig() *Config {
	return &Config{
		Persona: "software developer",
		LLM: LLMConfig{
			Provider:  "openai",
			MaxTokens: 1024,
		},
		History: HistoryConfig{Limit: 20},
		Reply: ReplyConfig{
			MinDelaySec: 15,
			MaxDelaySec: 300,
		},
		Outreach: OutreachConfig{
			Enabled:         true,
			ChannelSchedule: "1h",
			DirectSchedule:  "3h",
		},
		Gateway: GatewayConfig{
			Host: "0.0.0.0",
			Port: 3000,
		},
	}
}

// EnvFile returns the dotenv file for a profile: ".env" when profile is
// empty, ".env.<profile>" otherwise.
func EnvFile(profile string) string {
	if profile == "" {
		return ".env"
	}
	return ".env." + profile
}

// LoadConfig loads the profile's dotenv file (if present) into the process
// environment and layers the environment over DefaultConfig. Variables
// already set in the environment win over the file.
func LoadConfig(profile string) (*Config, error) {
	path := EnvFile(profile)
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return Parse()
}

// Parse builds a Config from DefaultConfig and the current environment.
func Parse() (*Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Persona) == "" {
		errs = append(errs, errors.New("ROLE must not be empty"))
	}
	if c.History.Limit <= 0 {
		errs = append(errs, fmt.Errorf("HISTORY_LIMIT must be positive, got %d", c.History.Limit))
	}
	if c.Reply.MinDelaySec < 0 || c.Reply.MaxDelaySec < c.Reply.MinDelaySec {
		errs = append(errs, fmt.Errorf("invalid reply delay bounds [%d, %d]",
			c.Reply.MinDelaySec, c.Reply.MaxDelaySec))
	}
	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", c.LLM.Provider))
	}
	if c.Outreach.Enabled && (c.Outreach.ChannelSchedule == "" || c.Outreach.DirectSchedule == "") {
		errs = append(errs, errors.New("outreach schedules must be set when outreach is enabled"))
	}
	return errors.Join(errs...)
}

// ValidateSlack checks the credentials needed to talk to Slack. It is kept
// apart from Validate so commands that never reach Slack can run without them.
func (c *Config) ValidateSlack() error {
	if c.Slack.UserToken == "" {
		return errors.New("SLACK_USER_TOKEN is required")
	}
	if c.Slack.AppToken == "" {
		return errors.New("SLACK_APP_TOKEN is required for socket mode")
	}
	if !strings.HasPrefix(c.Slack.AppToken, "xapp-") {
		return errors.New("SLACK_APP_TOKEN must start with xapp-")
	}
	return nil
}

// APIKey returns the key of the selected LLM provider.
func (c *Config) APIKey() string {
	if c.LLM.Provider == "anthropic" {
		return c.LLM.AnthropicKey
	}
	return c.LLM.OpenAIKey
}

// APIBase returns the base URL override of the selected LLM provider.
func (c *Config) APIBase() string {
	if c.LLM.Provider == "anthropic" {
		return c.LLM.AnthropicURL
	}
	return c.LLM.OpenAIBase
}
