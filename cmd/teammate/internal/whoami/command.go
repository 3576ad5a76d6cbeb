package whoami

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/teammate/cmd/teammate/internal"
	"github.com/tinyland-inc/teammate/pkg/bus"
)

func NewWhoamiCommand() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "whoami [profile]",
		Short: "Resolve the Slack account behind the configured token",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := internal.LoadConfig(internal.ProfileArg(args))
			if err != nil {
				return fmt.Errorf("error loading config: %w", err)
			}
			slackChannel, err := internal.NewSlack(cfg, bus.NewMessageBus())
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			id, err := slackChannel.ResolveSelfIdentity(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (persona: %s)\n", id, cfg.Persona)
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "Slack API timeout")

	return cmd
}
