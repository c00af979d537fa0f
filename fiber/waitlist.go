package fiber

import "sync"

// waitingTask is one parked WaitForCounter call: the fiber to resume, the
// counter it is watching, and the value it is watching for. The entry
// holds the fiber pointer directly; there is exactly one owner of this
// entry for its lifetime and nothing else retains the pointer
// concurrently.
type waitingTask struct {
	fiber   *fiber
	counter *Counter
	target  uint32
}

type waitingList struct {
	mu      sync.Mutex
	entries []waitingTask
}

// insert publishes a parked fiber into the waiting list. Called only from
// inside a trampoline, after the parking fiber has already committed to
// handing off control — see worker.go's parkToWaiters.
func (l *waitingList) insert(w waitingTask) {
	l.mu.Lock()
	l.entries = append(l.entries, w)
	l.mu.Unlock()
}

// takeReady removes and returns the first entry whose counter has reached
// (or passed) its target, comparing with <= so a counter that races past
// the exact target value still wakes the waiter instead of stranding it.
//
// Only one entry is taken per call, even if several are ready: a worker
// that finds one hands its own active fiber's slot to it and stops being
// "the worker polling" for this iteration. The other P-1 workers are
// independently running the same poll, so a waiting list with several
// ready entries drains across the next few iterations of the whole pool
// rather than in one worker's single pass.
func (l *waitingList) takeReady() (waitingTask, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, e := range l.entries {
		if e.counter.Load() <= e.target {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return e, true
		}
	}
	return waitingTask{}, false
}

// len reports the number of parked waiters, used by Quit's drain check.
func (l *waitingList) len() int {
	l.mu.Lock()
	n := len(l.entries)
	l.mu.Unlock()
	return n
}
