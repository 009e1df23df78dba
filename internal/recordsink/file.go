// Package recordsink stores execution records and serves back per-job
// status. Records arrive already redacted; this layer never sees raw
// process output.
package recordsink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ja2ui0/highball/internal/domain"
)

// FileSink appends one JSON line per execution record to a rotated file
// and keeps per-job status in a small sidecar state file.
type FileSink struct {
	mu     sync.Mutex
	out    *lumberjack.Logger
	state  map[string]domain.JobStatus
	path   string
	logger *slog.Logger
}

// Option configures a FileSink.
type Option func(*FileSink)

// WithMaxSizeMB sets the record file rotation size.
func WithMaxSizeMB(mb int) Option {
	return func(s *FileSink) {
		s.out.MaxSize = mb
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *FileSink) {
		s.logger = l
	}
}

// NewFileSink creates a sink writing records to path. Existing status
// is loaded from the sidecar state file next to it.
func NewFileSink(path string, opts ...Option) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create record directory: %w", err)
	}

	s := &FileSink{
		out: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     90, // days
			Compress:   true,
		},
		state:  make(map[string]domain.JobStatus),
		path:   path,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.loadState(); err != nil {
		s.logger.Warn("could not load record state, starting fresh", "error", err)
	}
	return s, nil
}

// Write appends a record and updates the job's status.
func (s *FileSink) Write(_ context.Context, record *domain.ExecutionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if _, err := s.out.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}

	status := s.state[record.JobName]
	status.JobName = record.JobName
	status.LastRun = record.EndTime
	status.LastStatus = record.Status
	if record.RanMaintenance() {
		status.LastMaintenance = record.EndTime
		status.RunsSinceMaintenance = 0
	} else if record.Status == domain.RunSucceeded {
		status.RunsSinceMaintenance++
	}
	s.state[record.JobName] = status

	if err := s.saveState(); err != nil {
		s.logger.Warn("could not persist record state", "error", err)
	}
	return nil
}

// Status returns the stored status for a job.
func (s *FileSink) Status(jobName string) (domain.JobStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.state[jobName]
	return status, ok
}

// Close flushes and closes the record file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.Close()
}

func (s *FileSink) statePath() string {
	return s.path + ".state"
}

func (s *FileSink) loadState() error {
	data, err := os.ReadFile(s.statePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, &s.state)
}

// saveState writes the status index atomically.
func (s *FileSink) saveState() error {
	data, err := json.Marshal(s.state)
	if err != nil {
		return err
	}
	tmp := s.statePath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, s.statePath())
}

// Ensure FileSink implements domain.RecordSink.
var _ domain.RecordSink = (*FileSink)(nil)
