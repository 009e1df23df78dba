// Package planner builds per-run command plans for backup providers.
// Plans are pure data; nothing here spawns a process except capability
// probes delegated to the transport resolver.
package planner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ja2ui0/highball/internal/domain"
	"github.com/ja2ui0/highball/internal/transport"
)

// RepoProber answers whether a restic repository is already initialized.
// The engine implements it with a short-timeout `cat config` probe.
type RepoProber interface {
	Initialized(ctx context.Context, job domain.Job, repoURI string, envNames []string) (bool, error)
}

// Config holds planning policy knobs.
type Config struct {
	// MaintenanceMaxAge triggers auto maintenance when the last
	// maintenance is older than this.
	MaintenanceMaxAge time.Duration
	// MaintenanceMaxRuns triggers auto maintenance after this many
	// backup runs without one.
	MaintenanceMaxRuns int
	// KeepLast is the forget retention count.
	KeepLast int
}

// DefaultConfig returns the default planning policy.
func DefaultConfig() Config {
	return Config{
		MaintenanceMaxAge:  7 * 24 * time.Hour,
		MaintenanceMaxRuns: 30,
		KeepLast:           30,
	}
}

// PlanOptions modify one planning call.
type PlanOptions struct {
	// ForceMaintenance appends maintenance regardless of thresholds.
	// The scheduler sets it when a user-defined maintenance schedule
	// fires.
	ForceMaintenance bool
	// SkipCapabilityCheck builds the plan without probing binaries or
	// hosts. Used by dry planning paths.
	SkipCapabilityCheck bool
}

// Planner builds command plans.
type Planner struct {
	resolver *transport.Resolver
	prober   RepoProber
	sink     domain.RecordSink
	cfg      Config
	logger   *slog.Logger
}

// Option configures a Planner.
type Option func(*Planner)

// WithResolver sets the transport resolver.
func WithResolver(r *transport.Resolver) Option {
	return func(p *Planner) {
		p.resolver = r
	}
}

// WithProber sets the repository initialization prober.
func WithProber(pr RepoProber) Option {
	return func(p *Planner) {
		p.prober = pr
	}
}

// WithRecordSink sets the record sink consulted by the auto-maintenance
// policy.
func WithRecordSink(s domain.RecordSink) Option {
	return func(p *Planner) {
		p.sink = s
	}
}

// WithConfig sets the planning policy.
func WithConfig(cfg Config) Option {
	return func(p *Planner) {
		p.cfg = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Planner) {
		p.logger = l
	}
}

// New creates a Planner.
func New(opts ...Option) *Planner {
	p := &Planner{
		resolver: transport.NewResolver(),
		sink:     domain.NopRecordSink{},
		cfg:      DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Plan builds the backup chain for one job run. Capability and
// construction failures surface here, before any operation executes.
func (p *Planner) Plan(ctx context.Context, job domain.Job, opts PlanOptions) (*domain.CommandPlan, error) {
	route, err := p.resolver.Resolve(job, transport.ClassMutating)
	if err != nil {
		return nil, err
	}
	if !opts.SkipCapabilityCheck {
		if err := p.resolver.Check(ctx, route, job.Provider.String()); err != nil {
			return nil, err
		}
	}

	switch job.Provider {
	case domain.ProviderRsync:
		return p.planRsync(job, route)
	case domain.ProviderRestic:
		return p.planRestic(ctx, job, route, opts)
	default:
		return nil, &domain.ConstructionError{
			Reason: domain.ReasonInvalidConfig,
			Field:  "provider",
			Detail: fmt.Sprintf("unknown provider %q", job.Provider),
		}
	}
}

// transportClassForRestore picks the transport class for restore
// operations: restores mutate the job's source filesystem.
func transportClassForRestore(_ domain.Job) transport.OpClass {
	return transport.ClassMutating
}

// ResourceIDs computes the destination resource identities a job run
// would claim: the repository URI for restic jobs, one host+path pair
// per planned destination for rsync jobs. The scheduler checks the
// union; a job must not run while any one of them is claimed.
func ResourceIDs(job domain.Job) ([]string, error) {
	switch job.Provider {
	case domain.ProviderRestic:
		uri, err := BuildRepoURI(job.Restic.Repository)
		if err != nil {
			return nil, err
		}
		return []string{uri}, nil

	case domain.ProviderRsync:
		host := job.Dest.Host
		if !job.Dest.IsRemote() {
			host = "localhost"
		}
		ids := make([]string, 0, len(job.Paths))
		for _, spec := range job.Paths {
			ids = append(ids, host+":"+destPathFor(job, spec.Path))
		}
		return ids, nil

	default:
		return nil, &domain.ConstructionError{
			Reason: domain.ReasonInvalidConfig,
			Field:  "provider",
			Detail: fmt.Sprintf("unknown provider %q", job.Provider),
		}
	}
}
