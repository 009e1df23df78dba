package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ja2ui0/highball/internal/domain"
	"github.com/ja2ui0/highball/internal/restore"
)

// NewRestoreCmd creates the restore command.
func NewRestoreCmd() *cobra.Command {
	var (
		mode        string
		stagingRoot string
		paths       []string
		dryRun      bool
		confirm     string
	)

	cmd := &cobra.Command{
		Use:   "restore <job> <snapshot-id>",
		Short: "Restore a snapshot to resolved targets",
		Long: `Restore maps the snapshot's recorded paths to restore targets. Source
mode writes each path back onto itself and refuses to overwrite
existing data unless confirmed; staging mode writes everything under
a staging root instead.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRestore(args[0], args[1], restore.Mode(mode), stagingRoot, paths, dryRun, confirm)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(restore.ModeStaging), "target mode: source or staging")
	cmd.Flags().StringVar(&stagingRoot, "staging-root", "", "override the configured staging root")
	cmd.Flags().StringSliceVar(&paths, "path", nil, "restore only the given snapshot paths (repeatable)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be restored without writing")
	cmd.Flags().StringVar(&confirm, "confirm", "", "confirmation token required to overwrite existing data")

	return cmd
}

func runRestore(jobName, snapshotID string, mode restore.Mode, stagingRoot string, paths []string, dryRun bool, confirm string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	job, err := a.jobByName(jobName)
	if err != nil {
		return err
	}
	if job.Provider != domain.ProviderRestic {
		return fmt.Errorf("job %q uses provider %q; restore requires restic", jobName, job.Provider)
	}
	if !mode.IsValid() {
		return fmt.Errorf("invalid mode %q: must be source or staging", mode)
	}

	root := a.cfg.Restore.StagingRoot
	if stagingRoot != "" {
		root = stagingRoot
	}
	resolver := restore.NewResolver(a.inspector(), restore.WithStagingRoot(root))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	targets, err := resolver.ResolveTargets(ctx, job, snapshotID, mode)
	if err != nil {
		return err
	}

	risk, riskTargets := resolver.CheckOverwriteRisk(targets, paths)
	if err := restore.Authorize(risk, riskTargets, dryRun, confirm); err != nil {
		var confirmErr *domain.ConfirmationRequiredError
		if errors.As(err, &confirmErr) {
			fmt.Fprintln(os.Stderr, "restore would overwrite existing data at:")
			for _, t := range confirmErr.Targets {
				fmt.Fprintf(os.Stderr, "  %s\n", t)
			}
			fmt.Fprintf(os.Stderr, "re-run with --confirm %s to proceed, or --dry-run to preview\n", restore.ConfirmToken)
		}
		return err
	}

	req := restore.BuildRequest(snapshotID, mode, targets, paths, dryRun, root)
	plan, err := a.planner.RestorePlan(ctx, job, req)
	if err != nil {
		return fmt.Errorf("failed to plan restore for job %q: %w", jobName, err)
	}

	record := a.engine.Run(ctx, plan)
	a.finishRun(ctx, record)
	printRecord(record)

	if record.Status != domain.RunSucceeded {
		return fmt.Errorf("restore of %s for job %q %s", snapshotID, jobName, record.Status)
	}
	return nil
}
