package internal

import (
	"fmt"
	"runtime"

	"github.com/tinyland-inc/teammate/pkg/bus"
	"github.com/tinyland-inc/teammate/pkg/channels"
	"github.com/tinyland-inc/teammate/pkg/config"
	"github.com/tinyland-inc/teammate/pkg/providers"
	"github.com/tinyland-inc/teammate/pkg/responder"
)

const Logo = "💬"

var (
	version   = "dev"
	gitCommit string
	buildTime string
	goVersion string
)

// ProfileArg returns the optional environment profile passed as the first
// positional argument ("" selects the plain .env file).
func ProfileArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func LoadConfig(profile string) (*config.Config, error) {
	return config.LoadConfig(profile)
}

// NewGenerator builds the response generator for the configured provider and
// returns the model id it will use.
func NewGenerator(cfg *config.Config) (*responder.Generator, string, error) {
	provider, modelID, err := providers.CreateProvider(cfg)
	if err != nil {
		return nil, "", fmt.Errorf("error creating provider: %w", err)
	}
	gen := responder.New(provider, responder.Options{
		Persona:     cfg.Persona,
		Model:       modelID,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	})
	return gen, modelID, nil
}

// NewSlack validates the Slack credentials and builds the transport.
func NewSlack(cfg *config.Config, mb *bus.MessageBus) (*channels.SlackChannel, error) {
	if err := cfg.ValidateSlack(); err != nil {
		return nil, err
	}
	return channels.NewSlackChannel(cfg.Slack, mb), nil
}

// FormatVersion returns the version string with optional git commit
func FormatVersion() string {
	v := version
	if gitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", gitCommit)
	}
	return v
}

// FormatBuildInfo returns build time and go version info
func FormatBuildInfo() (string, string) {
	build := buildTime
	goVer := goVersion
	if goVer == "" {
		goVer = runtime.Version()
	}
	return build, goVer
}

func GetVersion() string {
	return version
}
