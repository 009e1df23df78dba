// Package metrics pushes per-run metrics to a Prometheus Pushgateway.
package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/ja2ui0/highball/internal/domain"
	"github.com/ja2ui0/highball/internal/http"
	"github.com/ja2ui0/highball/pkg/version"
)

const (
	metricsJobName = "highball"
	contentType    = "text/plain; charset=utf-8"
)

// Pusher sends run metrics to a remote endpoint.
type Pusher interface {
	// Push exports one finalized execution record.
	Push(ctx context.Context, record *domain.ExecutionRecord) error

	// Validate checks if the pusher is properly configured.
	Validate(ctx context.Context) error
}

// PushgatewayClient pushes metrics to a Prometheus Pushgateway.
type PushgatewayClient struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// PushgatewayOption configures a PushgatewayClient.
type PushgatewayOption func(*PushgatewayClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) PushgatewayOption {
	return func(p *PushgatewayClient) {
		p.httpClient = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) PushgatewayOption {
	return func(p *PushgatewayClient) {
		p.logger = logger
	}
}

// NewPushgatewayClient creates a new PushgatewayClient.
func NewPushgatewayClient(url string, opts ...PushgatewayOption) *PushgatewayClient {
	p := &PushgatewayClient{
		url:        strings.TrimSuffix(url, "/"),
		httpClient: http.NewClient(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Push exports one execution record, grouped by job name.
func (p *PushgatewayClient) Push(ctx context.Context, record *domain.ExecutionRecord) error {
	body := p.buildMetrics(record)
	pushURL := fmt.Sprintf("%s/metrics/job/%s/backup_job/%s", p.url, metricsJobName, record.JobName)

	p.logger.Debug("pushing metrics to pushgateway", "job", record.JobName)

	resp, err := p.httpClient.Post(ctx, pushURL, contentType, []byte(body))
	if err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("pushgateway returned status %d: %s", resp.StatusCode, string(resp.Body))
	}
	return nil
}

// Validate checks if the Pushgateway is reachable.
func (p *PushgatewayClient) Validate(ctx context.Context) error {
	readyURL := fmt.Sprintf("%s/-/ready", p.url)
	if err := p.httpClient.CheckConnectivity(ctx, readyURL); err != nil {
		if err2 := p.httpClient.CheckConnectivity(ctx, p.url); err2 != nil {
			return fmt.Errorf("pushgateway not reachable at %s: %w", p.url, err)
		}
	}
	return nil
}

// buildMetrics constructs the Prometheus text format payload.
func (p *PushgatewayClient) buildMetrics(record *domain.ExecutionRecord) string {
	var b strings.Builder

	b.WriteString("# HELP highball_run_success Whether the last run succeeded\n")
	b.WriteString("# TYPE highball_run_success gauge\n")
	if record.Status == domain.RunSucceeded {
		b.WriteString("highball_run_success 1\n")
	} else {
		b.WriteString("highball_run_success 0\n")
	}
	b.WriteString("\n")

	b.WriteString("# HELP highball_run_duration_seconds Duration of the last run\n")
	b.WriteString("# TYPE highball_run_duration_seconds gauge\n")
	fmt.Fprintf(&b, "highball_run_duration_seconds %f\n", record.Duration().Seconds())
	b.WriteString("\n")

	b.WriteString("# HELP highball_operation_exit_code Exit code per operation kind\n")
	b.WriteString("# TYPE highball_operation_exit_code gauge\n")
	for _, res := range record.Results {
		fmt.Fprintf(&b, "highball_operation_exit_code{op=%q} %d\n", res.Kind, res.ExitCode)
	}
	b.WriteString("\n")

	info := version.Get()
	b.WriteString("# HELP highball_info Build information\n")
	b.WriteString("# TYPE highball_info gauge\n")
	fmt.Fprintf(&b, "highball_info{version=%q,go_version=%q} 1\n", info.Version, runtime.Version())

	return b.String()
}

// Ensure PushgatewayClient implements Pusher.
var _ Pusher = (*PushgatewayClient)(nil)
