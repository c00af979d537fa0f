package fiber

import "sync/atomic"

// fiber is an opaque execution context with an owned goroutine standing in
// for an owned stack. It is created once at Initialize, reused across many
// tasks, and never destroyed until Quit.
//
// At any instant a fiber is referenced by at most one of {pool, waiting
// list, currently active on some worker}. That invariant is enforced for
// free here: each fiber owns exactly one goroutine for its entire
// lifetime, and only that goroutine's own code ever advances past a
// suspension point inside it. Nothing a different worker does can execute
// on the same stack at the same time, because there is no shared stack —
// there's a private Go goroutine stack per fiber. See DESIGN.md for the
// full rationale.
//
// resume is the single rendezvous point of the fiber: a send on it
// switches execution to this fiber, and the fiber only ever advances past
// a receive on its own resume channel.
type fiber struct {
	id     uint64
	resume chan struct{}

	// curWorker names which worker this fiber is running under. It is
	// written by whoever hands off to the fiber (handoff) and read only by
	// the fiber's own goroutine after it wakes (park) — a plain field is
	// safe here because the channel send/receive pair that separates the
	// write from the read is itself a happens-before edge.
	curWorker *worker
}

var nextFiberID atomic.Uint64

func newFiber() *fiber {
	return &fiber{
		id:     nextFiberID.Add(1),
		resume: make(chan struct{}, 1),
	}
}

// handoff is "switch to this fiber": it publishes which worker is now
// driving next and wakes its goroutine. The caller is expected to park
// itself (or already be parked, for the very first activation) immediately
// after, the same way a real fiber switch never returns control to the
// caller until something later switches back into it.
func handoff(next *fiber, w *worker) {
	next.curWorker = w
	next.resume <- struct{}{}
}

// park blocks the calling fiber's goroutine until some future handoff
// resumes it. A fiber that is switched away and later reactivated may find
// itself running under a different worker than the one it suspended on —
// there is no fixed pairing between a fiber and a worker, only whichever
// one most recently handed off to it. Callers read self.curWorker after
// park returns to find out which one.
func park(self *fiber) {
	<-self.resume
}
