package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ja2ui0/highball/internal/config"
	"github.com/ja2ui0/highball/internal/domain"
	"github.com/ja2ui0/highball/internal/engine"
	"github.com/ja2ui0/highball/internal/http"
	"github.com/ja2ui0/highball/internal/metrics"
	"github.com/ja2ui0/highball/internal/notify"
	"github.com/ja2ui0/highball/internal/planner"
	"github.com/ja2ui0/highball/internal/recordsink"
	"github.com/ja2ui0/highball/internal/restore"
	"github.com/ja2ui0/highball/internal/transport"
)

// app bundles the wired collaborators every subcommand needs.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	secrets  domain.SecretStore
	planner  *planner.Planner
	engine   *engine.Engine
	prober   *engine.Prober
	sink     *recordsink.FileSink
	notifier domain.Notifier
	pusher   metrics.Pusher
}

// buildApp loads config, sets up logging, and wires the full
// collaborator graph used by the subcommands.
func buildApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := setupLogging(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	httpClient := http.NewClient(
		http.WithRetryConfig(http.RetryConfig{
			MaxAttempts:  cfg.Retry.MaxAttempts,
			InitialDelay: cfg.Retry.InitialDelay,
			MaxDelay:     cfg.Retry.MaxDelay,
		}),
		http.WithLogger(logger),
	)

	secrets := config.NewEnvSecretStore()

	sink, err := recordsink.NewFileSink(cfg.Records.Path,
		recordsink.WithMaxSizeMB(cfg.Records.MaxSizeMB),
		recordsink.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open record sink: %w", err)
	}

	prober := engine.NewProber(
		engine.WithProberSecrets(secrets),
		engine.WithProberLogger(logger),
	)

	pl := planner.New(
		planner.WithResolver(transport.NewResolver()),
		planner.WithProber(prober),
		planner.WithRecordSink(sink),
		planner.WithConfig(planner.Config{
			MaintenanceMaxAge:  cfg.Maintenance.MaxAge,
			MaintenanceMaxRuns: cfg.Maintenance.MaxRuns,
			KeepLast:           cfg.Maintenance.KeepLast,
		}),
		planner.WithLogger(logger),
	)

	eng := engine.New(
		engine.WithSecretStore(secrets),
		engine.WithContainerRuntime(cfg.ContainerRuntime),
		engine.WithLogger(logger),
	)

	return &app{
		cfg:      cfg,
		logger:   logger,
		secrets:  secrets,
		planner:  pl,
		engine:   eng,
		prober:   prober,
		sink:     sink,
		notifier: buildNotifier(cfg, httpClient, logger),
		pusher:   buildPusher(cfg, httpClient, logger),
	}, nil
}

// Close flushes and releases the app's resources.
func (a *app) Close() error {
	return a.sink.Close()
}

func buildNotifier(cfg *config.Config, client *http.Client, logger *slog.Logger) domain.Notifier {
	if !cfg.Apprise.Enabled {
		return &domain.NopNotifier{}
	}
	apprise := notify.NewAppriseClient(cfg.Apprise.URL, cfg.Apprise.Key,
		notify.WithHTTPClient(client),
		notify.WithLogger(logger),
	)
	return notify.NewFilterNotifier(apprise, levelPredicate(cfg.Apprise.Notify))
}

// levelPredicate maps the configured notify threshold to a level filter.
func levelPredicate(level config.NotifyLevel) func(domain.NotificationLevel) bool {
	switch level {
	case config.NotifyAlways:
		return func(domain.NotificationLevel) bool { return true }
	case config.NotifyWarning:
		return func(l domain.NotificationLevel) bool {
			return l == domain.NotificationLevelWarning || l == domain.NotificationLevelError
		}
	default:
		return func(l domain.NotificationLevel) bool {
			return l == domain.NotificationLevelError
		}
	}
}

func buildPusher(cfg *config.Config, client *http.Client, logger *slog.Logger) metrics.Pusher {
	if !cfg.Metrics.Enabled {
		return &metrics.NopPusher{}
	}
	return metrics.NewPushgatewayClient(cfg.Metrics.PushgatewayURL,
		metrics.WithHTTPClient(client),
		metrics.WithLogger(logger),
	)
}

// pushingSink forwards records to the file sink and exports metrics.
// A metrics failure never fails the write.
type pushingSink struct {
	sink   domain.RecordSink
	pusher metrics.Pusher
	logger *slog.Logger
}

var _ domain.RecordSink = (*pushingSink)(nil)

func (p *pushingSink) Write(ctx context.Context, record *domain.ExecutionRecord) error {
	if err := p.pusher.Push(ctx, record); err != nil {
		p.logger.Error("failed to push metrics", "job", record.JobName, "error", err)
	}
	return p.sink.Write(ctx, record)
}

func (p *pushingSink) Status(jobName string) (domain.JobStatus, bool) {
	return p.sink.Status(jobName)
}

// recordSink returns the sink scheduled runs should write through.
func (a *app) recordSink() domain.RecordSink {
	return &pushingSink{sink: a.sink, pusher: a.pusher, logger: a.logger}
}

// jobByName looks up a configured job by name.
func (a *app) jobByName(name string) (domain.Job, error) {
	for _, job := range a.cfg.DomainJobs() {
		if job.Name == name {
			return job, nil
		}
	}
	return domain.Job{}, fmt.Errorf("job %q is not configured", name)
}

// inspector builds the snapshot inspector for restore commands.
func (a *app) inspector() *restore.Inspector {
	return restore.NewInspector(a.planner, a.prober, a.logger)
}
