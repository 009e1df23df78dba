//go:build unix && !linux

package platform

import "golang.org/x/sys/unix"

// LowerPriority drops a spawned process to the lowest CPU priority.
// Idle I/O scheduling is Linux-only.
func LowerPriority(pid int) error {
	return unix.Setpriority(unix.PRIO_PROCESS, pid, 19)
}
