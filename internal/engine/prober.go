package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/ja2ui0/highball/internal/domain"
)

// introspectTimeout bounds read-only repository calls. Transfers run
// unbounded; introspection and validation do not.
const introspectTimeout = 60 * time.Second

// Prober runs short, read-only provider invocations: repository
// initialization probes and snapshot metadata queries. These always
// execute a local tool instance.
type Prober struct {
	runner  commandRunner
	secrets domain.SecretStore
	timeout time.Duration
	logger  *slog.Logger
}

// ProberOption configures a Prober.
type ProberOption func(*Prober)

// WithProberSecrets sets the secrets collaborator.
func WithProberSecrets(s domain.SecretStore) ProberOption {
	return func(p *Prober) {
		p.secrets = s
	}
}

// WithProberTimeout overrides the introspection timeout.
func WithProberTimeout(d time.Duration) ProberOption {
	return func(p *Prober) {
		p.timeout = d
	}
}

// WithProberLogger sets the logger.
func WithProberLogger(l *slog.Logger) ProberOption {
	return func(p *Prober) {
		p.logger = l
	}
}

// withProberRunner swaps the process spawner in tests.
func withProberRunner(r commandRunner) ProberOption {
	return func(p *Prober) {
		p.runner = r
	}
}

// NewProber creates a Prober.
func NewProber(opts ...ProberOption) *Prober {
	p := &Prober{
		secrets: domain.NopSecretStore{},
		timeout: introspectTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.runner == nil {
		p.runner = &execRunner{logger: p.logger}
	}
	return p
}

// RunOutput executes a read-only operation locally and returns its
// redacted output. Non-zero exit yields a *domain.IntrospectionError.
func (p *Prober) RunOutput(ctx context.Context, jobName string, op domain.Operation) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	secrets, err := p.secrets.Resolve(jobName)
	if err != nil {
		return nil, &domain.IntrospectionError{
			Reason: domain.ReasonIntrospection,
			Detail: "secret resolution failed: " + err.Error(),
		}
	}
	redactor := NewRedactor(secretValues(secrets))

	inv, err := buildInvocation(op, secrets, "")
	if err != nil {
		return nil, err
	}

	exitCode, out, err := p.runner.Run(ctx, inv)
	if err != nil {
		return nil, &domain.IntrospectionError{
			Reason: domain.ReasonIntrospection,
			Detail: redactor.Redact(err.Error()),
		}
	}
	if exitCode != 0 {
		return nil, &domain.IntrospectionError{
			Reason: domain.ReasonIntrospection,
			Detail: redactor.Redact(string(out)),
		}
	}
	return []byte(redactor.Redact(string(out))), nil
}

// Initialized reports whether a restic repository exists and is
// readable. A clean `cat config` means initialized; a non-zero exit
// means the repository needs init.
func (p *Prober) Initialized(ctx context.Context, job domain.Job, repoURI string, envNames []string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	secrets, err := p.secrets.Resolve(job.Name)
	if err != nil {
		return false, err
	}

	op := domain.Operation{
		Kind:     domain.OpCheck,
		Binary:   "restic",
		Args:     []string{"-r", repoURI, "cat", "config"},
		Route:    domain.Route{Kind: domain.RouteLocal},
		EnvNames: envNames,
	}
	inv, err := buildInvocation(op, secrets, "")
	if err != nil {
		return false, err
	}

	exitCode, _, err := p.runner.Run(ctx, inv)
	if err != nil {
		return false, err
	}
	return exitCode == 0, nil
}
