package run

import (
	"github.com/spf13/cobra"

	"github.com/tinyland-inc/teammate/cmd/teammate/internal"
)

func NewRunCommand() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:     "run [profile]",
		Aliases: []string{"r"},
		Short:   "Connect to Slack and start replying and reaching out",
		Args:    cobra.MaximumNArgs(1),
		Example: `  teammate run
  teammate run alice --debug`,
		RunE: func(_ *cobra.Command, args []string) error {
			return runCmd(debug, internal.ProfileArg(args))
		},
	}

	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	return cmd
}
