// Package engine executes command plans and records their outcomes.
package engine

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ja2ui0/highball/internal/domain"
)

// Engine runs command plans. Operations execute strictly in plan order;
// a required operation's failure aborts the tail of the plan.
type Engine struct {
	runner   commandRunner
	secrets  domain.SecretStore
	registry *Registry
	runtime  string
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithSecretStore sets the secrets collaborator.
func WithSecretStore(s domain.SecretStore) Option {
	return func(e *Engine) {
		e.secrets = s
	}
}

// WithRegistry sets the active-run registry.
func WithRegistry(r *Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// WithContainerRuntime sets the remote container runtime binary.
func WithContainerRuntime(rt string) Option {
	return func(e *Engine) {
		e.runtime = rt
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// withRunner swaps the process spawner; used by tests and the prober.
func withRunner(r commandRunner) Option {
	return func(e *Engine) {
		e.runner = r
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		secrets:  domain.NopSecretStore{},
		registry: NewRegistry(),
		runtime:  "docker",
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.runner == nil {
		e.runner = &execRunner{logger: e.logger}
	}
	return e
}

// Registry exposes the active-run registry for scheduler conflict
// checks.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Run executes a plan and returns the finalized, redacted record. The
// record reflects every operation that ran; output never leaves this
// method unredacted.
func (e *Engine) Run(ctx context.Context, plan *domain.CommandPlan) *domain.ExecutionRecord {
	record := domain.NewExecutionRecord(plan.JobName)

	if err := e.registry.Register(plan.JobName, record.ID); err != nil {
		record.Output = err.Error()
		record.Complete(domain.RunFailed)
		return record
	}
	defer e.registry.Unregister(plan.JobName)

	secrets, err := e.secrets.Resolve(plan.JobName)
	if err != nil {
		record.Output = "secret resolution failed: " + err.Error()
		record.Complete(domain.RunFailed)
		return record
	}
	redactor := NewRedactor(secretValues(secrets))

	var output strings.Builder
	status := domain.RunSucceeded

	for _, op := range plan.Operations {
		opStart := time.Now()
		res := domain.OpResult{Kind: op.Kind, BestEffort: op.BestEffort}

		inv, err := buildInvocation(op, secrets, e.runtime)
		if err != nil {
			res.ExitCode = -1
			res.Error = err.Error()
			record.AddResult(res)
			status = domain.RunFailed
			break
		}

		e.logger.Info("executing operation",
			"job", plan.JobName,
			"op", op.Kind,
			"route", op.Route.Kind,
		)

		exitCode, out, runErr := e.runner.Run(ctx, inv)
		res.ExitCode = exitCode
		res.Duration = time.Since(opStart)
		output.Write(out)

		if runErr != nil {
			res.Error = redactor.Redact(runErr.Error())
			record.AddResult(res)
			if ctx.Err() != nil {
				status = domain.RunCanceled
			} else {
				status = domain.RunFailed
			}
			break
		}

		if exitCode != 0 {
			execErr := &domain.ExecutionError{
				Op:       op.Kind,
				ExitCode: exitCode,
				Output:   redactor.Redact(string(out)),
			}
			res.Error = execErr.Error()
			record.AddResult(res)

			if op.BestEffort {
				e.logger.Warn("best-effort operation failed",
					"job", plan.JobName,
					"op", op.Kind,
					"exit_code", exitCode,
				)
				continue
			}
			status = domain.RunFailed
			break
		}

		record.AddResult(res)
	}

	record.Output = redactor.Redact(output.String())
	record.Complete(status)
	return record
}

func secretValues(secrets map[string]string) []string {
	values := make([]string, 0, len(secrets))
	for _, v := range secrets {
		values = append(values, v)
	}
	return values
}
