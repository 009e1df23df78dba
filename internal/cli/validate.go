package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ja2ui0/highball/internal/domain"
	"github.com/ja2ui0/highball/internal/planner"
	"github.com/ja2ui0/highball/internal/transport"
)

// NewValidateCmd creates the validate command.
func NewValidateCmd() *cobra.Command {
	var checkCapabilities bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and job plans",
		Long: `Validate loads the configuration, resolves a transport route for every
enabled job, and builds its repository URI. With --check it also
probes the required binaries and hosts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return validate(checkCapabilities)
		},
	}

	cmd.Flags().BoolVar(&checkCapabilities, "check", false, "probe required binaries, hosts, and container runtimes")

	return cmd
}

func validate(checkCapabilities bool) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resolver := transport.NewResolver()
	failed := 0
	for _, job := range a.cfg.DomainJobs() {
		if err := validateJob(ctx, resolver, job, checkCapabilities); err != nil {
			fmt.Printf("job %-20s FAIL: %v\n", job.Name, err)
			failed++
			continue
		}
		fmt.Printf("job %-20s ok\n", job.Name)
	}

	if err := a.notifier.Validate(ctx); err != nil {
		return fmt.Errorf("notifier validation failed: %w", err)
	}
	if err := a.pusher.Validate(ctx); err != nil {
		return fmt.Errorf("metrics validation failed: %w", err)
	}

	if failed > 0 {
		return fmt.Errorf("%d job(s) failed validation", failed)
	}
	fmt.Println("configuration is valid")
	return nil
}

func validateJob(ctx context.Context, resolver *transport.Resolver, job domain.Job, checkCapabilities bool) error {
	route, err := resolver.Resolve(job, transport.ClassMutating)
	if err != nil {
		return err
	}

	if job.Provider == domain.ProviderRestic {
		if _, err := planner.BuildRepoURI(job.Restic.Repository); err != nil {
			return err
		}
		if job.Restic.Maintenance == domain.MaintenanceUser && job.Restic.MaintenanceSchedule == "" {
			return fmt.Errorf("maintenance mode %q requires a maintenance schedule", domain.MaintenanceUser)
		}
	}

	if checkCapabilities {
		binary := "rsync"
		if job.Provider == domain.ProviderRestic {
			binary = "restic"
		}
		if err := resolver.Check(ctx, route, binary); err != nil {
			return err
		}
	}
	return nil
}
