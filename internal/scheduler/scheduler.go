// Package scheduler fires jobs on their schedules, defers them on
// resource conflict, and notifies once per delay episode.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ja2ui0/highball/internal/domain"
	"github.com/ja2ui0/highball/internal/planner"
)

// JobPlanner builds the command plan for a firing job.
type JobPlanner interface {
	Plan(ctx context.Context, job domain.Job, opts planner.PlanOptions) (*domain.CommandPlan, error)
}

// PlanRunner executes a plan and returns the finalized record.
type PlanRunner interface {
	Run(ctx context.Context, plan *domain.CommandPlan) *domain.ExecutionRecord
}

// ActiveRuns reports jobs currently executing, including runs started
// outside this scheduler (a one-shot invocation against the same engine).
type ActiveRuns interface {
	Running(jobName string) bool
}

// jobState tracks one job through the scheduling state machine:
// idle -> scheduled -> pending -> checking conflicts ->
// running | queued-delayed -> completed/failed -> idle.
type jobState struct {
	job             domain.Job
	schedule        cron.Schedule
	maintSchedule   cron.Schedule
	next            time.Time
	nextMaintenance time.Time
	running         bool

	// Delay episode: set at first deferral, cleared when the job runs.
	// notified prevents repeat notifications within one episode.
	delayedSince time.Time
	notified     bool
	retryAt      time.Time
	forceMaint   bool
}

// Config holds scheduler timing policy.
type Config struct {
	// TickInterval is how often fire times are evaluated.
	TickInterval time.Duration
	// PollInterval is how long a conflict-deferred job waits before
	// re-checking claims; deferral never busy-waits.
	PollInterval time.Duration
	// DelayNotifyThreshold is the cumulative deferred time after which
	// the single per-episode delay notification fires.
	DelayNotifyThreshold time.Duration
}

// DefaultConfig returns the default timing policy.
func DefaultConfig() Config {
	return Config{
		TickInterval:         15 * time.Second,
		PollInterval:         300 * time.Second,
		DelayNotifyThreshold: 1800 * time.Second,
	}
}

// Scheduler drives the job state machines. One timer loop evaluates
// fire times; each fired job runs on its own worker goroutine so a long
// transfer never blocks other jobs' fire-time evaluation.
type Scheduler struct {
	planner  JobPlanner
	runner   PlanRunner
	claims   *Claims
	runs     ActiveRuns
	sink     domain.RecordSink
	notifier domain.Notifier
	cfg      Config
	logger   *slog.Logger

	mu        sync.Mutex
	states    map[string]*jobState
	active    bool
	stopCh    chan struct{}
	stoppedCh chan struct{}
	wg        sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClaims sets a shared claim store.
func WithClaims(c *Claims) Option {
	return func(s *Scheduler) {
		s.claims = c
	}
}

// WithRecordSink sets the record sink.
func WithRecordSink(sink domain.RecordSink) Option {
	return func(s *Scheduler) {
		s.sink = sink
	}
}

// WithNotifier sets the notifier.
func WithNotifier(n domain.Notifier) Option {
	return func(s *Scheduler) {
		s.notifier = n
	}
}

// WithActiveRuns sets the engine's active-run registry, consulted during
// conflict checks so a fire never races a run already in flight.
func WithActiveRuns(r ActiveRuns) Option {
	return func(s *Scheduler) {
		s.runs = r
	}
}

// WithConfig sets the timing policy.
func WithConfig(cfg Config) Option {
	return func(s *Scheduler) {
		s.cfg = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// New creates a Scheduler over a planner and a runner.
func New(jp JobPlanner, pr PlanRunner, opts ...Option) *Scheduler {
	s := &Scheduler{
		planner:  jp,
		runner:   pr,
		claims:   NewClaims(),
		sink:     domain.NopRecordSink{},
		notifier: &domain.NopNotifier{},
		cfg:      DefaultConfig(),
		logger:   slog.Default(),
		states:   make(map[string]*jobState),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// SetJobs replaces the scheduled job set. Disabled jobs are dropped;
// running jobs keep their in-flight state.
func (s *Scheduler) SetJobs(jobs []domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	seen := make(map[string]bool, len(jobs))

	for _, job := range jobs {
		if !job.Enabled {
			continue
		}
		sched, err := cronParser.Parse(job.Schedule)
		if err != nil {
			return fmt.Errorf("job %q: invalid schedule %q: %w", job.Name, job.Schedule, err)
		}

		var maintSched cron.Schedule
		if job.Provider == domain.ProviderRestic &&
			job.Restic.Maintenance == domain.MaintenanceUser &&
			job.Restic.MaintenanceSchedule != "" {
			maintSched, err = cronParser.Parse(job.Restic.MaintenanceSchedule)
			if err != nil {
				return fmt.Errorf("job %q: invalid maintenance schedule: %w", job.Name, err)
			}
		}

		seen[job.Name] = true
		if st, ok := s.states[job.Name]; ok {
			st.job = job
			st.schedule = sched
			st.maintSchedule = maintSched
			continue
		}
		st := &jobState{
			job:      job,
			schedule: sched,
			next:     sched.Next(now),
		}
		if maintSched != nil {
			st.maintSchedule = maintSched
			st.nextMaintenance = maintSched.Next(now)
		}
		s.states[job.Name] = st
	}

	for name := range s.states {
		if !seen[name] {
			delete(s.states, name)
		}
	}
	return nil
}

// Start runs the scheduling loop until Stop is called or the context is
// cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return nil
	}
	s.active = true
	s.stopCh = make(chan struct{})
	s.stoppedCh = make(chan struct{})
	s.mu.Unlock()

	defer func() {
		s.wg.Wait()
		s.mu.Lock()
		s.active = false
		close(s.stoppedCh)
		s.mu.Unlock()
	}()

	s.logger.Info("scheduler started",
		"tick", s.cfg.TickInterval,
		"poll_interval", s.cfg.PollInterval,
	)

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping: context cancelled")
			return ctx.Err()
		case <-s.stopCh:
			s.logger.Info("scheduler stopping: stop requested")
			return nil
		case now := <-ticker.C:
			s.tick(ctx, now)
		}
	}
}

// Stop signals the loop to stop and waits for it and all workers.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	stopped := s.stoppedCh
	s.mu.Unlock()
	<-stopped
}

// tick advances every job's state machine once.
func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, st := range s.states {
		if st.running {
			continue
		}

		force := false
		if st.maintSchedule != nil && !st.nextMaintenance.IsZero() && !now.Before(st.nextMaintenance) {
			force = true
			st.nextMaintenance = st.maintSchedule.Next(now)
		}

		fire := false
		switch {
		case !st.delayedSince.IsZero():
			// Queued-delayed: re-check claims at the poll interval.
			if !now.Before(st.retryAt) {
				fire = true
			}
		case !now.Before(st.next):
			fire = true
			st.next = st.schedule.Next(now)
		}

		if force {
			st.forceMaint = true
		}
		if !fire {
			continue
		}
		s.fireLocked(ctx, st, now)
	}
}

// fireLocked attempts to start one job. Caller holds s.mu.
func (s *Scheduler) fireLocked(ctx context.Context, st *jobState, now time.Time) {
	job := st.job

	if s.runs != nil && s.runs.Running(job.Name) {
		s.deferLocked(ctx, st, now, fmt.Errorf("job %q is already running", job.Name))
		return
	}

	if job.AvoidConflicts {
		resources, err := planner.ResourceIDs(job)
		if err != nil {
			s.logger.Error("cannot compute job resources", "job", job.Name, "error", err)
			s.clearEpisodeLocked(st)
			return
		}
		if err := s.claims.Acquire(job.Name, resources); err != nil {
			if errors.Is(err, domain.ErrConflictDeferred) {
				s.deferLocked(ctx, st, now, err)
				return
			}
			s.logger.Error("claim acquisition failed", "job", job.Name, "error", err)
			return
		}
	}

	s.clearEpisodeLocked(st)
	st.running = true
	forceMaint := st.forceMaint
	st.forceMaint = false

	s.wg.Add(1)
	go s.runJob(ctx, job, forceMaint)
}

// deferLocked transitions a job to queued-delayed and emits at most one
// delay notification per episode. The notified marker is set under s.mu;
// delivery happens on its own goroutine so a slow notifier endpoint
// never stalls fire-time evaluation.
func (s *Scheduler) deferLocked(ctx context.Context, st *jobState, now time.Time, cause error) {
	if st.delayedSince.IsZero() {
		st.delayedSince = now
		st.notified = false
		s.logger.Info("job deferred on conflict", "job", st.job.Name, "cause", cause)
	}
	st.retryAt = now.Add(s.cfg.PollInterval)

	delayed := now.Sub(st.delayedSince)
	if !st.notified && delayed >= s.cfg.DelayNotifyThreshold {
		st.notified = true
		n := domain.WarningNotification(
			"Backup delayed",
			fmt.Sprintf("Job %s has been waiting %s for a destination resource.",
				st.job.Name, delayed.Round(time.Minute)),
		)
		n.JobName = st.job.Name
		jobName := st.job.Name
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.notifier.Notify(ctx, n); err != nil {
				s.logger.Warn("delay notification failed", "job", jobName, "error", err)
			}
		}()
	}
}

func (s *Scheduler) clearEpisodeLocked(st *jobState) {
	st.delayedSince = time.Time{}
	st.notified = false
	st.retryAt = time.Time{}
}

// runJob executes one job run on its own worker. Claims are released
// unconditionally on exit, whatever the run's outcome.
func (s *Scheduler) runJob(ctx context.Context, job domain.Job, forceMaint bool) {
	defer s.wg.Done()
	defer func() {
		s.claims.Release(job.Name)
		s.mu.Lock()
		if st, ok := s.states[job.Name]; ok {
			st.running = false
		}
		s.mu.Unlock()
	}()

	plan, err := s.planner.Plan(ctx, job, planner.PlanOptions{ForceMaintenance: forceMaint})
	if err != nil {
		s.logger.Error("planning failed", "job", job.Name, "error", err)
		s.notifyFailure(ctx, job.Name, err.Error())
		return
	}

	record := s.runner.Run(ctx, plan)

	if err := s.sink.Write(ctx, record); err != nil {
		s.logger.Error("record sink write failed", "job", job.Name, "error", err)
	}

	switch record.Status {
	case domain.RunSucceeded:
		s.logger.Info("job completed", "job", job.Name, "duration", record.Duration())
	case domain.RunCanceled:
		s.logger.Warn("job canceled", "job", job.Name)
	default:
		s.logger.Error("job failed", "job", job.Name)
		s.notifyFailure(ctx, job.Name, record.Output)
	}
}

func (s *Scheduler) notifyFailure(ctx context.Context, jobName, detail string) {
	n := domain.ErrorNotification("Backup failed", fmt.Sprintf("Job %s failed.\n%s", jobName, detail))
	n.JobName = jobName
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.Warn("failure notification failed", "job", jobName, "error", err)
	}
}

// Claims exposes the claim store, mainly for status inspection.
func (s *Scheduler) Claims() *Claims {
	return s.claims
}
