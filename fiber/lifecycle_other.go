//go:build !linux

package fiber

import "runtime"

// pinToCore locks the calling goroutine to its current OS thread. Outside
// Linux there is no portable sched_setaffinity equivalent wired into this
// scheduler, so core binding itself is a no-op here.
func pinToCore(id int) error {
	runtime.LockOSThread()
	return nil
}
