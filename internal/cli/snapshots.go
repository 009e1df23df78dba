package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ja2ui0/highball/internal/domain"
)

// NewSnapshotsCmd creates the snapshots command.
func NewSnapshotsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshots <job>",
		Short: "List repository snapshots for a restic job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return listSnapshots(args[0])
		},
	}
}

func listSnapshots(jobName string) error {
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
		return fmt.Errorf("job %q uses provider %q; snapshots requires restic", jobName, job.Provider)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	snapshots, err := a.inspector().Snapshots(ctx, job)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tHOST\tPATHS\tTAGS")
	for _, snap := range snapshots {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			snap.ShortID,
			snap.Time.Format("2006-01-02 15:04:05"),
			snap.Hostname,
			strings.Join(snap.Paths, ","),
			strings.Join(snap.Tags, ","),
		)
	}
	return w.Flush()
}
