// Teammate - an LLM-backed colleague that lives in Slack
// License: MIT
//
// Copyright (c) 2026 Teammate contributors

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/teammate/cmd/teammate/internal"
	"github.com/tinyland-inc/teammate/cmd/teammate/internal/outreach"
	"github.com/tinyland-inc/teammate/cmd/teammate/internal/run"
	"github.com/tinyland-inc/teammate/cmd/teammate/internal/version"
	"github.com/tinyland-inc/teammate/cmd/teammate/internal/whoami"
)

func NewTeammateCommand() *cobra.Command {
	short := fmt.Sprintf("%s teammate - a Slack colleague backed by a language model v%s\n\n",
		internal.Logo, internal.GetVersion())

	cmd := &cobra.Command{
		Use:     "teammate",
		Short:   short,
		Example: "teammate run alice",
	}

	cmd.AddCommand(
		run.NewRunCommand(),
		whoami.NewWhoamiCommand(),
		outreach.NewOutreachCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	cmd := NewTeammateCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
