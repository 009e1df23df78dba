package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ja2ui0/highball/internal/scheduler"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the conflict-aware backup scheduler",
		Long: `Serve starts the scheduler loop, fires configured jobs on their cron
schedules, and defers jobs whose destinations are claimed by a
running job. It runs until SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func serve() error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sched := scheduler.New(a.planner, a.engine,
		scheduler.WithRecordSink(a.recordSink()),
		scheduler.WithNotifier(a.notifier),
		scheduler.WithActiveRuns(a.engine.Registry()),
		scheduler.WithConfig(scheduler.Config{
			TickInterval:         a.cfg.Scheduler.TickInterval,
			PollInterval:         a.cfg.Scheduler.PollInterval,
			DelayNotifyThreshold: a.cfg.Scheduler.DelayNotifyThreshold,
		}),
		scheduler.WithLogger(a.logger),
	)

	jobs := a.cfg.DomainJobs()
	if err := sched.SetJobs(jobs); err != nil {
		return fmt.Errorf("failed to schedule jobs: %w", err)
	}
	a.logger.Info("jobs scheduled", "count", len(jobs))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
