//go:build linux

package fiber

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// pinToCore locks the calling goroutine to its current OS thread and binds
// that thread to logical core id via sched_setaffinity. Only the worker's
// bootstrap goroutine calls this, before it activates the worker's first
// fiber. That fiber, and every fiber after it, is a different goroutine
// that Go's own scheduler is free to place on any thread; the pinned
// bootstrap goroutine itself runs no fiber or task, so the worker's tasks
// are not bound to this core. See DESIGN.md for the full trade-off.
func pinToCore(id int) error {
	runtime.LockOSThread()

	var set unix.CPUSet
	set.Zero()
	set.Set(id % runtime.NumCPU())
	return unix.SchedSetaffinity(0, &set)
}
