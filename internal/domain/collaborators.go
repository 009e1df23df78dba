package domain

import (
	"context"
	"time"
)

// SecretStore resolves secret environment variables for a job. Values
// are resolved at execution time and never persisted by this core.
type SecretStore interface {
	// Resolve returns the secret environment for a job, keyed by
	// environment-variable name.
	Resolve(jobName string) (map[string]string, error)
}

// NopSecretStore resolves every job to an empty environment.
type NopSecretStore struct{}

// Resolve returns an empty map.
func (NopSecretStore) Resolve(_ string) (map[string]string, error) {
	return map[string]string{}, nil
}

// JobStatus is the last-run state written back to the configuration
// collaborator and consulted by the auto-maintenance policy.
type JobStatus struct {
	JobName         string    `json:"job"`
	LastRun         time.Time `json:"last_run"`
	LastStatus      RunStatus `json:"last_status"`
	LastMaintenance time.Time `json:"last_maintenance,omitempty"`
	// RunsSinceMaintenance counts backup runs since the last successful
	// maintenance operation.
	RunsSinceMaintenance int `json:"runs_since_maintenance"`
}

// RecordSink receives one redacted execution record per run and serves
// back per-job status for scheduling and maintenance decisions.
type RecordSink interface {
	// Write stores a finalized, already-redacted record.
	Write(ctx context.Context, record *ExecutionRecord) error

	// Status returns the stored status for a job. ok is false when the
	// job has never run.
	Status(jobName string) (status JobStatus, ok bool)
}

// NopRecordSink discards records and reports no history.
type NopRecordSink struct{}

// Write discards the record.
func (NopRecordSink) Write(_ context.Context, _ *ExecutionRecord) error {
	return nil
}

// Status reports no history.
func (NopRecordSink) Status(_ string) (JobStatus, bool) {
	return JobStatus{}, false
}
