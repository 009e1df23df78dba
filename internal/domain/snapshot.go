package domain

import "time"

// Snapshot is one immutable point-in-time unit recorded by the snapshot
// provider. Paths are the root paths as they existed when the snapshot
// was taken; restore resolution trusts these, never the current job
// configuration.
type Snapshot struct {
	ID       string    `json:"id"`
	ShortID  string    `json:"short_id"`
	Time     time.Time `json:"time"`
	Hostname string    `json:"hostname"`
	Username string    `json:"username"`
	Paths    []string  `json:"paths"`
	Tags     []string  `json:"tags,omitempty"`
}
