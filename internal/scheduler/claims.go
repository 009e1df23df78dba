package scheduler

import (
	"fmt"
	"sync"

	"github.com/ja2ui0/highball/internal/domain"
)

// Claims is the global resource-claim set: one owned, mutex-guarded
// store, never ambient package state. A claim exists only while a job
// with conflict avoidance enabled is actively running, and at most one
// job holds any resource identity at a time.
type Claims struct {
	mu     sync.Mutex
	owners map[string]string // resource id -> owning job name
}

// NewClaims creates an empty claim set.
func NewClaims() *Claims {
	return &Claims{owners: make(map[string]string)}
}

// Acquire atomically claims every resource identity for a job. If any
// one identity is already held by another job, nothing is claimed and
// domain.ErrConflictDeferred is returned wrapped with the blocking
// resource.
func (c *Claims) Acquire(jobName string, resources []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, res := range resources {
		if owner, held := c.owners[res]; held && owner != jobName {
			return fmt.Errorf("resource %q held by job %q: %w", res, owner, domain.ErrConflictDeferred)
		}
	}
	for _, res := range resources {
		c.owners[res] = jobName
	}
	return nil
}

// Release drops every claim held by a job. It is unconditional and safe
// to call repeatedly; workers defer it so claims never leak, even on
// abnormal exit.
func (c *Claims) Release(jobName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for res, owner := range c.owners {
		if owner == jobName {
			delete(c.owners, res)
		}
	}
}

// Holder returns the job currently holding a resource identity.
func (c *Claims) Holder(resource string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	owner, ok := c.owners[resource]
	return owner, ok
}

// Held reports how many resource identities are currently claimed.
func (c *Claims) Held() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.owners)
}
