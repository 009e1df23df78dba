// Package restore resolves snapshot restore targets and gates
// destructive restores behind an overwrite-risk check.
package restore

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ja2ui0/highball/internal/domain"
	"github.com/ja2ui0/highball/internal/engine"
	"github.com/ja2ui0/highball/internal/planner"
)

// SnapshotLister queries snapshot metadata for a job. The restore
// resolver never trusts current job configuration for original backup
// paths; everything comes from here.
type SnapshotLister interface {
	Snapshots(ctx context.Context, job domain.Job) ([]domain.Snapshot, error)
}

// Inspector lists snapshots through a local provider instance.
type Inspector struct {
	planner *planner.Planner
	prober  *engine.Prober
	logger  *slog.Logger
}

// NewInspector creates an Inspector.
func NewInspector(pl *planner.Planner, pr *engine.Prober, logger *slog.Logger) *Inspector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Inspector{planner: pl, prober: pr, logger: logger}
}

// Snapshots returns the job's snapshots, newest last. An empty or
// erroring listing fails closed with a *domain.IntrospectionError:
// "no snapshots" must never be mistaken for "restore everywhere".
func (i *Inspector) Snapshots(ctx context.Context, job domain.Job) ([]domain.Snapshot, error) {
	op, err := i.planner.SnapshotsOperation(job)
	if err != nil {
		return nil, err
	}

	out, err := i.prober.RunOutput(ctx, job.Name, op)
	if err != nil {
		return nil, err
	}

	var snaps []domain.Snapshot
	if err := json.Unmarshal(out, &snaps); err != nil {
		return nil, &domain.IntrospectionError{
			Reason: domain.ReasonIntrospection,
			Detail: "could not parse snapshot listing: " + err.Error(),
		}
	}
	if len(snaps) == 0 {
		return nil, &domain.IntrospectionError{
			Reason: domain.ReasonEmptySnapshot,
			Detail: "repository returned no snapshots for job " + job.Name,
		}
	}
	return snaps, nil
}

var _ SnapshotLister = (*Inspector)(nil)

// MockLister is a SnapshotLister for tests.
type MockLister struct {
	SnapshotsFunc func(ctx context.Context, job domain.Job) ([]domain.Snapshot, error)
}

// Snapshots calls the mock func.
func (m *MockLister) Snapshots(ctx context.Context, job domain.Job) ([]domain.Snapshot, error) {
	if m.SnapshotsFunc != nil {
		return m.SnapshotsFunc(ctx, job)
	}
	return nil, nil
}

var _ SnapshotLister = (*MockLister)(nil)
