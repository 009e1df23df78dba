//go:build linux

package platform

import "golang.org/x/sys/unix"

const (
	// ioprio_set selector and class constants from linux/ioprio.h.
	ioprioWhoProcess  = 1
	ioprioClassIdle   = 3
	ioprioClassShift  = 13
)

// LowerPriority drops a spawned process to the lowest CPU priority and
// the idle I/O scheduling class so long-running transfers do not starve
// the host.
func LowerPriority(pid int) error {
	if err := unix.Setpriority(unix.PRIO_PROCESS, pid, 19); err != nil {
		return err
	}
	ioprio := ioprioClassIdle << ioprioClassShift
	_, _, errno := unix.Syscall(unix.SYS_IOPRIO_SET, ioprioWhoProcess, uintptr(pid), uintptr(ioprio))
	if errno != 0 {
		return errno
	}
	return nil
}
