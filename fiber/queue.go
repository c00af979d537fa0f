package fiber

import (
	"sync"
	"sync/atomic"

	"code.hybscloud.com/lfq"
)

// taskQueueCapacity bounds the ring lfq.NewMPMC allocates (rounded up to
// the next power of 2 internally). It is sized well above any task count
// this scheduler is expected to carry in flight at once — weave bench's
// default load of 400k tasks, all enqueued by one AddTasks call, fits
// with room to spare.
const taskQueueCapacity = 1 << 20

// taskQueue is the lock-free, wait-free-in-the-common-case MPMC FIFO
// spec.md §4.2 calls for. lfq.NewMPMC is exactly that primitive — an
// FAA-based SCQ algorithm with no mutex anywhere in Enqueue/Dequeue's hot
// path — so there is nothing to hand-roll here beyond wiring it in and
// picking a capacity.
//
// outstanding is auxiliary bookkeeping: lfq deliberately does not expose a
// length ("accurate counts in lock-free algorithms require expensive
// cross-core synchronization"), but the worker loop's quit-drain check
// (step, §4.6) needs an approximate outstanding count, so taskQueue tracks
// its own with a plain atomic counter alongside the lock-free ring.
type taskQueue struct {
	once sync.Once
	q    lfq.Queue[taskBundle]

	outstanding atomic.Int64
}

func (q *taskQueue) init() {
	q.once.Do(func() {
		q.q = lfq.NewMPMC[taskBundle](taskQueueCapacity)
	})
}

// push enqueues a bundle. Producers are any task calling AddTask(s) plus
// the external driver. A momentarily full ring returns ErrWouldBlock;
// under any realistic load for this scheduler that is not the common
// case, so push retries with a short backoff rather than surfacing it —
// the spec gives add_task(s) no error return.
func (q *taskQueue) push(b taskBundle) {
	q.init()
	for {
		if err := q.q.Enqueue(&b); err == nil {
			q.outstanding.Add(1)
			return
		}
		idleBackoff()
	}
}

// pop dequeues the next ready bundle, or reports ok=false if the queue is
// currently empty. It never blocks.
func (q *taskQueue) pop() (taskBundle, bool) {
	q.init()
	b, err := q.q.Dequeue()
	if err != nil {
		return taskBundle{}, false
	}
	q.outstanding.Add(-1)
	return b, true
}

// len reports an approximate count of queued-but-not-yet-popped bundles,
// used by Quit's drain check. It is a plain atomic read, not a
// linearization point of the queue itself.
func (q *taskQueue) len() int {
	n := q.outstanding.Load()
	if n < 0 {
		return 0
	}
	return int(n)
}

// drain tells the underlying ring that no further Enqueue calls are
// coming, skipping the FAA threshold check that otherwise exists to
// prevent livelock — lfq's own docs warn that check can make Dequeue
// report ErrWouldBlock even with items still queued once producers stop.
// Scheduler.Quit calls this before relying on len() reaching zero, since
// by Quit's contract no caller adds tasks after requesting shutdown.
func (q *taskQueue) drain() {
	q.init()
	if d, ok := q.q.(lfq.Drainer); ok {
		d.Drain()
	}
}
