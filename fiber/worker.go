package fiber

import (
	"runtime"
	"time"

	"weave/internal/trace"
)

// switchIntent is the per-worker, single-writer/single-reader state that
// bridges a suspending fiber to its trampoline: the fiber about to leave
// its stack, how to publish it, and which fiber to run next. Only the worker's own
// currently active fiber writes it, immediately before handing off to one
// of that worker's two trampolines; only that trampoline ever reads it.
type switchIntent struct {
	fiber   *fiber
	publish func(*fiber)
	next    *fiber
}

// worker is a kernel-thread-pinned lane: it owns
// two dedicated trampoline fibers and, at any instant, drives exactly one
// active fiber. The active fiber changes continuously as work is picked up
// and suspended; the worker struct itself is the thing that persists.
type worker struct {
	id    int
	sched *Scheduler

	returnToPoolTramp *fiber
	addToWaitersTramp *fiber

	returnToPoolIntent switchIntent
	addToWaitersIntent switchIntent

	// done is closed exactly once, by whichever fiber's runFiberBody loop
	// observes step report quit — the signal runWorkerLane's bootstrap
	// goroutine is blocked waiting on so Scheduler.Quit knows this lane
	// has actually drained and exited, not merely booted.
	done chan struct{}
}

func newWorker(id int, s *Scheduler) *worker {
	w := &worker{
		id:                id,
		sched:             s,
		returnToPoolTramp: newFiber(),
		addToWaitersTramp: newFiber(),
		done:              make(chan struct{}),
	}
	go w.runTrampoline(w.returnToPoolTramp, func() switchIntent { return w.returnToPoolIntent })
	go w.runTrampoline(w.addToWaitersTramp, func() switchIntent { return w.addToWaitersIntent })
	return w
}

// runTrampoline is the body of one of this worker's two dedicated
// trampoline fibers: wait to be switched into, publish the
// fiber that just left its stack, then hand off to whichever fiber was
// chosen to run next. It loops for as long as the worker does; Quit ends
// it by handing off to it one last time with a nil worker (see
// Scheduler.Quit's shutdownTrampolines), which this loop recognizes as
// "there is no real switchIntent waiting — exit" rather than "publish and
// hand off again."
func (w *worker) runTrampoline(tr *fiber, intent func() switchIntent) {
	park(tr)
	for {
		if tr.curWorker == nil {
			return
		}
		span := trace.Begin(w.sched.tracer, trace.ScopeFiber, "trampoline-hop", 0)
		it := intent()
		it.publish(it.fiber)
		handoff(it.next, tr.curWorker)
		span.End("handed-off")
		park(tr)
	}
}

// parkToPool suspends self via the return-to-pool trampoline and switches
// execution to next. It blocks until self is later reactivated by whoever
// next pops it from the pool.
func (w *worker) parkToPool(self, next *fiber) {
	span := trace.Begin(w.sched.tracer, trace.ScopeFiber, "suspend-to-pool", 0)
	w.returnToPoolIntent = switchIntent{fiber: self, publish: w.sched.pool.put, next: next}
	handoff(w.returnToPoolTramp, w)
	span.End("parked")
	park(self)
}

// parkToWaiters suspends self via the add-to-waiters trampoline, publishing
// it into the waiting list as wt, and switches execution to next (a fresh
// fiber acquired from the pool). It blocks until self is later resumed by
// the worker that finds wt's counter has reached its target.
func (w *worker) parkToWaiters(self *fiber, wt waitingTask, next *fiber) {
	span := trace.Begin(w.sched.tracer, trace.ScopeFiber, "suspend-to-waiters", 0)
	wt.fiber = self
	w.addToWaitersIntent = switchIntent{
		fiber:   self,
		publish: func(f *fiber) { w.sched.waiters.insert(wt) },
		next:    next,
	}
	handoff(w.addToWaitersTramp, w)
	span.End("parked")
	park(self)
}

// runFiberBody is the permanent goroutine body of a pool fiber: wait for
// its first activation, then repeatedly run one step of the worker loop
// until told to quit.
//
// A fiber resting in the pool — never yet activated, or parked there by a
// previous parkToPool — is woken one final time at shutdown by
// Scheduler.Quit's shutdownPoolFibers with a nil worker, which this loop
// recognizes as "exit, don't call step" rather than mistaking a zero
// *worker for real work.
func runFiberBody(self *fiber) {
	park(self)
	for {
		w := self.curWorker
		if w == nil {
			return
		}
		if w.step(self) {
			close(w.done)
			return
		}
	}
}

// step runs one iteration of the worker loop on behalf of the fiber
// currently active under w:
//  1. poll the waiting list for a ready entry and, if found, hand this
//     worker's slot to it;
//  2. otherwise dequeue and run one task;
//  3. otherwise, if shutting down with no work left anywhere, report quit.
//
// step returns true only when the scheduler is quitting with no work left,
// telling self to stop looping. Handing off to a ready waiter returns
// false: self's own park inside parkToPool already blocks until it is
// reactivated, and the for loop above calls step again then.
func (w *worker) step(self *fiber) bool {
	s := w.sched

	if wt, ok := s.waiters.takeReady(); ok {
		w.parkToPool(self, wt.fiber)
		return false
	}

	if b, ok := s.queue.pop(); ok {
		s.runTask(self, b)
		return false
	}

	if s.quitting.Load() && s.queue.len() == 0 && s.waiters.len() == 0 {
		return true
	}

	idleBackoff()
	return false
}

// idleBackoff keeps an idle worker from pegging a core while it has
// nothing to poll or run. Real workloads keep workers busy almost all of
// the time; this only matters between bursts.
func idleBackoff() {
	runtime.Gosched()
	time.Sleep(50 * time.Microsecond)
}
