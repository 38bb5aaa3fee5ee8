//go:build unix

package blender

import "golang.org/x/sys/unix"

// niceFor maps a priority class to a POSIX nice value; more negative is
// higher priority. Real-time (SCHED_FIFO) scheduling generally requires
// privileges this process may not hold, so this sticks to the
// best-effort nice-value lever available to an unprivileged process,
// exactly as spec 4.5 allows ("real-time scheduling if available,
// otherwise best effort").
func niceFor(class priorityClass) int {
	switch class {
	case priorityWriter:
		return -10
	case priorityReader:
		return -5
	default:
		return 0
	}
}

// elevatePriority raises the calling OS thread's scheduling priority.
// Callers must runtime.LockOSThread before calling, since nice values on
// Linux/BSD are per-thread.
func elevatePriority(class priorityClass) error {
	nice := niceFor(class)
	if nice == 0 {
		return nil
	}
	return unix.Setpriority(unix.PRIO_PROCESS, 0, nice)
}
