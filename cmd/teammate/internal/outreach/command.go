package outreach

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/teammate/cmd/teammate/internal"
	"github.com/tinyland-inc/teammate/pkg/bus"
	"github.com/tinyland-inc/teammate/pkg/outreach"
	"github.com/tinyland-inc/teammate/pkg/transcript"
)

const (
	targetChannel = "channel"
	targetDM      = "dm"
)

func NewOutreachCommand() *cobra.Command {
	var (
		target  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "outreach [profile]",
		Short: "Run a single outreach tick and exit",
		Args:  cobra.MaximumNArgs(1),
		Example: `  teammate outreach --target channel
  teammate outreach alice --target dm`,
		PreRunE: func(_ *cobra.Command, _ []string) error {
			return validateTarget(target)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			res, err := runOnce(ctx, internal.ProfileArg(args), target)
			if err != nil {
				return err
			}
			switch res.Status {
			case outreach.Posted:
				fmt.Fprintf(cmd.OutOrStdout(), "posted to %s (%s)\n", res.Target, res.Handle)
			case outreach.Silent:
				fmt.Fprintf(cmd.OutOrStdout(), "nothing to say to %s\n", res.Target)
			default:
				fmt.Fprintln(cmd.OutOrStdout(), "no eligible targets")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", targetChannel, "Where to reach out: channel or dm")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Overall timeout for the tick")

	return cmd
}

func validateTarget(target string) error {
	switch target {
	case targetChannel, targetDM:
		return nil
	default:
		return fmt.Errorf("invalid --target %q (want %s or %s)", target, targetChannel, targetDM)
	}
}

func runOnce(ctx context.Context, profile, target string) (outreach.Result, error) {
	cfg, err := internal.LoadConfig(profile)
	if err != nil {
		return outreach.Result{}, fmt.Errorf("error loading config: %w", err)
	}
	generator, _, err := internal.NewGenerator(cfg)
	if err != nil {
		return outreach.Result{}, err
	}
	slackChannel, err := internal.NewSlack(cfg, bus.NewMessageBus())
	if err != nil {
		return outreach.Result{}, err
	}
	selfID, err := slackChannel.ResolveSelfIdentity(ctx)
	if err != nil {
		return outreach.Result{}, err
	}

	assembler := transcript.NewAssembler(slackChannel, cfg.History.Limit)
	o := outreach.New(slackChannel, assembler, generator, slackChannel, outreach.Options{
		SelfID:    selfID,
		Transport: slackChannel.Name(),
	})
	if target == targetDM {
		return o.DirectTick(ctx)
	}
	return o.ChannelTick(ctx)
}
