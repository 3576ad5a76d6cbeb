package run

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tinyland-inc/teammate/cmd/teammate/internal"
	"github.com/tinyland-inc/teammate/pkg/bus"
	"github.com/tinyland-inc/teammate/pkg/channels"
	"github.com/tinyland-inc/teammate/pkg/config"
	"github.com/tinyland-inc/teammate/pkg/health"
	"github.com/tinyland-inc/teammate/pkg/logger"
	"github.com/tinyland-inc/teammate/pkg/outreach"
	"github.com/tinyland-inc/teammate/pkg/pacing"
	"github.com/tinyland-inc/teammate/pkg/transcript"
	"github.com/tinyland-inc/teammate/pkg/triage"
)

const shutdownTimeout = 10 * time.Second

func runCmd(debug bool, profile string) error {
	if debug {
		logger.SetLevel(logger.DEBUG)
		fmt.Println("🔍 Debug mode enabled")
	}
	defer logger.Sync()

	cfg, err := internal.LoadConfig(profile)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	generator, modelID, err := internal.NewGenerator(cfg)
	if err != nil {
		return err
	}

	msgBus := bus.NewMessageBus()
	slackChannel, err := internal.NewSlack(cfg, msgBus)
	if err != nil {
		return fmt.Errorf("error creating slack channel: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	selfID, err := slackChannel.ResolveSelfIdentity(ctx)
	if err != nil {
		return err
	}

	logger.InfoCF("teammate", "Starting", map[string]any{
		"persona":  cfg.Persona,
		"provider": cfg.LLM.Provider,
		"model":    modelID,
		"self_id":  selfID,
		"profile":  profile,
	})

	rng := pacing.NewRandomSource()
	assembler := transcript.NewAssembler(slackChannel, cfg.History.Limit)
	triageService := triage.New(assembler, generator, slackChannel, triage.Options{
		SelfID:      selfID,
		MinDelaySec: cfg.Reply.MinDelaySec,
		MaxDelaySec: cfg.Reply.MaxDelaySec,
		Rand:        rng,
	})

	var scheduler *outreach.Scheduler
	if cfg.Outreach.Enabled {
		scheduler, err = newScheduler(cfg, slackChannel, assembler, generator, selfID, rng)
		if err != nil {
			return err
		}
	}

	if err := slackChannel.Start(ctx); err != nil {
		return fmt.Errorf("error starting slack channel: %w", err)
	}
	fmt.Printf("✓ Connected to Slack as %s\n", selfID)

	go triageService.Run(ctx, msgBus)

	if scheduler != nil {
		if err := scheduler.Start(ctx); err != nil {
			return err
		}
		fmt.Printf("✓ Outreach scheduled (channels: %s, DMs: %s)\n",
			cfg.Outreach.ChannelSchedule, cfg.Outreach.DirectSchedule)
	}

	healthServer := newHealthServer(cfg, slackChannel)
	go func() {
		if err := healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorCF("health", "Health server error", map[string]any{"error": err})
		}
	}()
	fmt.Printf("✓ Health endpoints available at http://%s/health and /ready\n", healthServer.Addr())
	fmt.Println("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\nShutting down...")
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()

	if err := healthServer.Stop(stopCtx); err != nil {
		logger.WarnCF("health", "Health server shutdown", map[string]any{"error": err})
	}
	if scheduler != nil {
		scheduler.Stop()
	}
	if err := slackChannel.Stop(stopCtx); err != nil {
		logger.WarnCF("slack", "Slack channel shutdown", map[string]any{"error": err})
	}
	msgBus.Close()
	triageService.Wait()
	fmt.Println("✓ Stopped")

	return nil
}

func newScheduler(
	cfg *config.Config,
	slackChannel *channels.SlackChannel,
	assembler *transcript.Assembler,
	generator outreach.Generator,
	selfID string,
	rng pacing.Source,
) (*outreach.Scheduler, error) {
	channelSchedule, err := outreach.ParseSchedule(cfg.Outreach.ChannelSchedule)
	if err != nil {
		return nil, fmt.Errorf("OUTREACH_CHANNEL_SCHEDULE: %w", err)
	}
	directSchedule, err := outreach.ParseSchedule(cfg.Outreach.DirectSchedule)
	if err != nil {
		return nil, fmt.Errorf("OUTREACH_DM_SCHEDULE: %w", err)
	}

	o := outreach.New(slackChannel, assembler, generator, slackChannel, outreach.Options{
		SelfID:    selfID,
		Rand:      rng,
		Transport: slackChannel.Name(),
	})
	scheduler := outreach.NewScheduler()
	for _, job := range o.Jobs(channelSchedule, directSchedule) {
		scheduler.Add(job)
	}
	return scheduler, nil
}

func newHealthServer(cfg *config.Config, slackChannel *channels.SlackChannel) *health.Server {
	server := health.NewServer(cfg.Gateway.Host, cfg.Gateway.Port)
	server.AddCheck("slack", func() error {
		if !slackChannel.IsRunning() {
			return errors.New("slack channel not running")
		}
		return nil
	})
	server.AddCheck("identity", func() error {
		if slackChannel.SelfID() == "" {
			return errors.New("self identity not resolved")
		}
		return nil
	})
	return server
}
