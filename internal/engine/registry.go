package engine

import (
	"fmt"
	"sync"
)

// Registry is the active-run registry: one owned, mutex-guarded store
// rather than ambient globals. The scheduler consults it during
// conflict checks; double registration of a job is an error.
type Registry struct {
	mu   sync.Mutex
	runs map[string]string // job name -> execution record id
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{runs: make(map[string]string)}
}

// Register marks a job as running under the given record id.
func (r *Registry) Register(jobName, recordID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.runs[jobName]; ok {
		return fmt.Errorf("job %q already running (record %s)", jobName, id)
	}
	r.runs[jobName] = recordID
	return nil
}

// Unregister clears a job's running state. Safe to call for jobs that
// are not registered.
func (r *Registry) Unregister(jobName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.runs, jobName)
}

// Running reports whether a job is currently executing.
func (r *Registry) Running(jobName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.runs[jobName]
	return ok
}

// Active returns the names of all currently running jobs.
func (r *Registry) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.runs))
	for name := range r.runs {
		names = append(names, name)
	}
	return names
}
