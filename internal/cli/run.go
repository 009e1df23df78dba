package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ja2ui0/highball/internal/domain"
	"github.com/ja2ui0/highball/internal/planner"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	var (
		forceMaintenance bool
		planOnly         bool
	)

	cmd := &cobra.Command{
		Use:   "run <job>",
		Short: "Run a configured backup job once",
		Long: `Run plans and executes a single backup job immediately, bypassing
the scheduler. Conflict claims are not taken; use serve for
conflict-aware scheduling.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(args[0], forceMaintenance, planOnly)
		},
	}

	cmd.Flags().BoolVar(&forceMaintenance, "maintenance", false, "force repository maintenance after the backup")
	cmd.Flags().BoolVar(&planOnly, "plan", false, "print the planned commands without executing")

	return cmd
}

func runOnce(jobName string, forceMaintenance, planOnly bool) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	job, err := a.jobByName(jobName)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	plan, err := a.planner.Plan(ctx, job, planner.PlanOptions{
		ForceMaintenance:    forceMaintenance,
		SkipCapabilityCheck: planOnly,
	})
	if err != nil {
		return fmt.Errorf("failed to plan job %q: %w", jobName, err)
	}

	if planOnly {
		printPlan(plan)
		return nil
	}

	record := a.engine.Run(ctx, plan)
	a.finishRun(ctx, record)
	printRecord(record)

	if record.Status != domain.RunSucceeded {
		return fmt.Errorf("job %q %s", jobName, record.Status)
	}
	return nil
}

// finishRun persists the record and pushes metrics. Neither failure
// aborts the command; the run itself already happened.
func (a *app) finishRun(ctx context.Context, record *domain.ExecutionRecord) {
	if err := a.sink.Write(ctx, record); err != nil {
		a.logger.Error("failed to write execution record", "job", record.JobName, "error", err)
	}
	if err := a.pusher.Push(ctx, record); err != nil {
		a.logger.Error("failed to push metrics", "job", record.JobName, "error", err)
	}
}

func printPlan(plan *domain.CommandPlan) {
	for _, op := range plan.Operations {
		fmt.Printf("%-12s %s", op.Kind, op.Binary)
		for _, arg := range op.Args {
			fmt.Printf(" %s", arg)
		}
		fmt.Println()
	}
}

func printRecord(record *domain.ExecutionRecord) {
	fmt.Printf("job:      %s\n", record.JobName)
	fmt.Printf("status:   %s\n", record.Status)
	fmt.Printf("duration: %s\n", record.Duration().Round(10*time.Millisecond))
	for _, res := range record.Results {
		mark := "ok"
		if res.Error != "" {
			mark = res.Error
			if res.BestEffort {
				mark += " (best effort)"
			}
		}
		fmt.Printf("  %-12s exit=%d %s\n", res.Kind, res.ExitCode, mark)
	}
}
