package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the overall outcome of one job run.
type RunStatus string

const (
	// RunRunning marks a run still in progress.
	RunRunning RunStatus = "running"
	// RunSucceeded marks a run whose required operations all succeeded.
	RunSucceeded RunStatus = "succeeded"
	// RunFailed marks a run aborted by a required operation.
	RunFailed RunStatus = "failed"
	// RunCanceled marks a run terminated by cancellation.
	RunCanceled RunStatus = "canceled"
)

// OpResult is the outcome of one executed operation.
type OpResult struct {
	Kind       OperationKind `json:"kind"`
	ExitCode   int           `json:"exit_code"`
	BestEffort bool          `json:"best_effort"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// ExecutionRecord is the redacted account of one job run. It is created
// at run start, finalized at run end, and handed to the record sink.
type ExecutionRecord struct {
	ID        string     `json:"id"`
	JobName   string     `json:"job"`
	StartTime time.Time  `json:"start_time"`
	EndTime   time.Time  `json:"end_time"`
	Status    RunStatus  `json:"status"`
	Results   []OpResult `json:"results"`
	// Output is the combined process output with secret values already
	// replaced; raw output never leaves the execution engine.
	Output string `json:"output,omitempty"`
}

// NewExecutionRecord creates a record for a run starting now.
func NewExecutionRecord(jobName string) *ExecutionRecord {
	return &ExecutionRecord{
		ID:        uuid.NewString(),
		JobName:   jobName,
		StartTime: time.Now(),
		Status:    RunRunning,
	}
}

// AddResult appends one operation outcome.
func (r *ExecutionRecord) AddResult(res OpResult) {
	r.Results = append(r.Results, res)
}

// Complete finalizes the record with the given status.
func (r *ExecutionRecord) Complete(status RunStatus) {
	r.EndTime = time.Now()
	r.Status = status
}

// Duration returns the wall-clock duration of the run.
func (r *ExecutionRecord) Duration() time.Duration {
	if r.EndTime.IsZero() {
		return time.Since(r.StartTime)
	}
	return r.EndTime.Sub(r.StartTime)
}

// RanMaintenance returns true if the run executed a maintenance operation
// successfully. The planner's auto policy keys off this.
func (r *ExecutionRecord) RanMaintenance() bool {
	for _, res := range r.Results {
		if res.Kind == OpMaintenance && res.ExitCode == 0 {
			return true
		}
	}
	return false
}
