package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/ja2ui0/highball/internal/domain"
)

func (p *Planner) planRestic(ctx context.Context, job domain.Job, route domain.Route, opts PlanOptions) (*domain.CommandPlan, error) {
	if len(job.Paths) == 0 {
		return nil, &domain.ConstructionError{
			Reason: domain.ReasonMissingField,
			Field:  "paths",
			Detail: "job has no paths",
		}
	}
	// restic backup has no include filter; rejecting here keeps a
	// configured pattern from being silently dropped.
	for _, spec := range job.Paths {
		if len(spec.Includes) > 0 {
			return nil, &domain.ConstructionError{
				Reason: domain.ReasonInvalidConfig,
				Field:  "includes",
				Detail: "restic backups do not support include patterns",
			}
		}
	}

	uri, err := BuildRepoURI(job.Restic.Repository)
	if err != nil {
		return nil, err
	}
	env := RequiredEnv(job.Restic.Repository.Kind)
	plan := &domain.CommandPlan{JobName: job.Name}

	if p.prober != nil {
		initialized, err := p.prober.Initialized(ctx, job, uri, env)
		if err != nil {
			return nil, err
		}
		if !initialized {
			plan.Operations = append(plan.Operations, domain.Operation{
				Kind:     domain.OpInit,
				Binary:   "restic",
				Args:     []string{"-r", uri, "init"},
				Route:    route,
				EnvNames: env,
			})
		}
	}

	// restic takes multiple path arguments, so one backup operation
	// covers the whole job.
	args := []string{"-r", uri, "backup", "--tag", job.Name}
	for _, spec := range job.Paths {
		for _, exc := range spec.Excludes {
			args = append(args, "--exclude="+exc)
		}
	}
	for _, spec := range job.Paths {
		args = append(args, spec.Path)
	}
	plan.Operations = append(plan.Operations, domain.Operation{
		Kind:     domain.OpBackup,
		Binary:   "restic",
		Args:     args,
		Route:    route,
		EnvNames: env,
	})

	if p.maintenanceDue(job, opts) {
		plan.Operations = append(plan.Operations,
			domain.Operation{
				Kind:       domain.OpMaintenance,
				Binary:     "restic",
				Args:       []string{"-r", uri, "forget", "--prune", "--keep-last", fmt.Sprint(p.cfg.KeepLast)},
				Route:      route,
				EnvNames:   env,
				BestEffort: true,
			},
			domain.Operation{
				Kind:       domain.OpCheck,
				Binary:     "restic",
				Args:       []string{"-r", uri, "check"},
				Route:      route,
				EnvNames:   env,
				BestEffort: true,
			},
		)
	}

	return plan, nil
}

// maintenanceDue applies the three-way maintenance policy. "user" jobs
// run maintenance only when their dedicated schedule fired (ForceMaintenance);
// "auto" jobs also run it when the time or run-count threshold since the
// last maintenance is exceeded.
func (p *Planner) maintenanceDue(job domain.Job, opts PlanOptions) bool {
	switch job.Restic.Maintenance {
	case domain.MaintenanceOff:
		return false
	case domain.MaintenanceUser:
		return opts.ForceMaintenance
	case domain.MaintenanceAuto:
		if opts.ForceMaintenance {
			return true
		}
		status, ok := p.sink.Status(job.Name)
		if !ok || status.LastMaintenance.IsZero() {
			return true
		}
		if time.Since(status.LastMaintenance) > p.cfg.MaintenanceMaxAge {
			return true
		}
		return status.RunsSinceMaintenance >= p.cfg.MaintenanceMaxRuns
	default:
		return false
	}
}

// SnapshotsOperation builds the read-only snapshot listing for a restic
// job. Introspection always runs a local restic instance regardless of
// where backups execute.
func (p *Planner) SnapshotsOperation(job domain.Job) (domain.Operation, error) {
	if job.Provider != domain.ProviderRestic {
		return domain.Operation{}, &domain.ConstructionError{
			Reason: domain.ReasonInvalidConfig,
			Field:  "provider",
			Detail: "snapshot listing requires the restic provider",
		}
	}
	uri, err := BuildRepoURI(job.Restic.Repository)
	if err != nil {
		return domain.Operation{}, err
	}
	return domain.Operation{
		Kind:     domain.OpCheck,
		Binary:   "restic",
		Args:     []string{"-r", uri, "snapshots", "--json", "--tag", job.Name},
		Route:    domain.Route{Kind: domain.RouteLocal},
		EnvNames: RequiredEnv(job.Restic.Repository.Kind),
	}, nil
}

// RestoreRequest describes one restore invocation.
type RestoreRequest struct {
	SnapshotID string
	// Target is the resolved restore root ("/" for in-place restores).
	Target string
	// Includes limits the restore to selected snapshot paths; empty
	// restores the full snapshot.
	Includes []string
	DryRun   bool
}

// RestorePlan builds the restore plan for an already-resolved target.
// Overwrite-risk gating happens in the restore resolver before this plan
// may execute without --dry-run.
func (p *Planner) RestorePlan(ctx context.Context, job domain.Job, req RestoreRequest) (*domain.CommandPlan, error) {
	if job.Provider != domain.ProviderRestic {
		return nil, &domain.ConstructionError{
			Reason: domain.ReasonInvalidConfig,
			Field:  "provider",
			Detail: "restore requires the restic provider",
		}
	}
	if req.SnapshotID == "" {
		return nil, &domain.ConstructionError{
			Reason: domain.ReasonMissingField,
			Field:  "snapshot_id",
			Detail: "restore needs a snapshot id",
		}
	}
	if req.Target == "" {
		return nil, &domain.ConstructionError{
			Reason: domain.ReasonMissingField,
			Field:  "target",
			Detail: "restore needs a resolved target",
		}
	}

	uri, err := BuildRepoURI(job.Restic.Repository)
	if err != nil {
		return nil, err
	}

	route, err := p.resolver.Resolve(job, transportClassForRestore(job))
	if err != nil {
		return nil, err
	}
	if err := p.resolver.Check(ctx, route, "restic"); err != nil {
		return nil, err
	}

	args := []string{"-r", uri, "restore", req.SnapshotID, "--target", req.Target}
	for _, inc := range req.Includes {
		args = append(args, "--include", inc)
	}
	if req.DryRun {
		args = append(args, "--dry-run")
	}

	return &domain.CommandPlan{
		JobName: job.Name,
		Operations: []domain.Operation{{
			Kind:     domain.OpRestore,
			Binary:   "restic",
			Args:     args,
			Route:    route,
			EnvNames: RequiredEnv(job.Restic.Repository.Kind),
		}},
	}, nil
}
