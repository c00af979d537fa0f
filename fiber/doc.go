// Package fiber implements a fiber-based task scheduler: a user-space
// cooperative multitasking substrate layered on top of a small pool of
// worker goroutines pinned one-per-core.
//
// Work is expressed as [Task] values consuming a [Scheduler] handle and an
// opaque argument. Groups of tasks join through a [Counter]: AddTask(s)
// returns a counter seeded at the group size, and WaitForCounter suspends
// the calling fiber until the counter reaches a target value.
//
// # Suspension
//
// There are exactly two places execution can suspend: a task function
// returning, and a call to WaitForCounter. Suspending a fiber safely —
// without another worker resuming it before the current one has left its
// stack — is the scheduler's central correctness problem; see fiber.go and
// DESIGN.md for the goroutine-and-rendezvous-channel protocol used here in
// place of a native OS fiber/ucontext primitive.
//
// # Lifecycle
//
// Initialize spawns one worker per configured thread, each optionally
// pinned to a logical CPU core, plus a fixed pool of reusable fibers and two
// private trampoline fibers per worker. Quit requests shutdown; callers must
// have drained all outstanding counters first.
package fiber
