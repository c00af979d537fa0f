package fiber

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"fortio.org/safecast"
	"golang.org/x/sync/errgroup"

	"weave/internal/observ"
	"weave/internal/trace"
)

// Scheduler is the public handle for a running fiber-tasking scheduler.
// Initialize constructs one; Quit tears it down. All other operations are
// safe to call both from task bodies running on the scheduler's own
// fibers and from the external driver goroutine that created it.
type Scheduler struct {
	queue   taskQueue
	pool    *fiberPool
	waiters waitingList
	execs   *execRegistry

	workers []*worker
	group   *errgroup.Group

	quitting atomic.Bool

	tracer   trace.Tracer
	heart    *trace.Heartbeat
	recorder *observ.Recorder

	// stackSize is cfg.FiberStackSize converted to the platform uintptr a
	// native fiber backend's create(entry, arg, stack_size) would take
	// (spec.md §9). Surfaced on worker-boot trace spans only — this
	// goroutine-backed implementation has no allocation call of its own
	// to feed it.
	stackSize uintptr

	cfg Config
}

// Initialize starts a scheduler per cfg: it spawns cfg.Workers worker
// lanes (each pinned to one logical core when cfg.Affinity is set),
// allocates cfg.FiberPoolSize reusable fibers plus 2*cfg.Workers dedicated
// trampolines, and returns once every worker has booted its first fiber.
func Initialize(cfg Config) (*Scheduler, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if cfg.FiberPoolSize <= 0 {
		cfg.FiberPoolSize = DefaultFiberPoolSize
	}
	if cfg.FiberStackSize <= 0 {
		cfg.FiberStackSize = DefaultFiberStackSize
	}
	if cfg.PanicPolicy == "" {
		cfg.PanicPolicy = PanicPolicyLog
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	stackSize, err := safecast.Conv[uintptr](cfg.FiberStackSize)
	if err != nil {
		return nil, fmt.Errorf("fiber: invalid config: fiber_stack_size: %w", err)
	}

	tracer, err := cfg.newTracer()
	if err != nil {
		return nil, err
	}
	var heart *trace.Heartbeat
	if cfg.Trace.HeartbeatMS > 0 {
		heart = trace.StartHeartbeat(tracer, time.Duration(cfg.Trace.HeartbeatMS)*time.Millisecond)
	}

	s := &Scheduler{
		pool:      newFiberPool(cfg.FiberPoolSize),
		execs:     newExecRegistry(),
		tracer:    tracer,
		heart:     heart,
		recorder:  observ.NewRecorder(),
		stackSize: stackSize,
		cfg:       cfg,
	}

	for i := 0; i < cfg.FiberPoolSize; i++ {
		f := newFiber()
		go runFiberBody(f)
		s.pool.put(f)
	}

	s.group = &errgroup.Group{}
	s.workers = make([]*worker, cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		w := newWorker(i, s)
		s.workers[i] = w
		booted := make(chan struct{})
		s.group.Go(func() error {
			return runWorkerLane(w, cfg.Affinity, stackSize, booted)
		})
		<-booted
	}

	return s, nil
}

// runWorkerLane is the body of one worker's bootstrap goroutine: bind
// affinity, claim the worker's first fiber from the pool, report readiness
// on booted, kick the fiber off, then block until w.done is closed —
// which happens once some fiber's runFiberBody loop observes quit+drained
// for this worker. From the moment f0 is activated, the worker's identity
// is carried by whichever fiber goroutine is currently running under it,
// per fiber.go's handoff; this goroutine's only remaining job is to give
// Scheduler.Quit something to wait on.
func runWorkerLane(w *worker, affinity bool, stackSize uintptr, booted chan struct{}) error {
	if affinity {
		if err := pinToCore(w.id); err != nil {
			// Affinity is a best-effort placement hint, not a correctness
			// requirement: a worker that can't be pinned still schedules
			// tasks correctly. Either way, tasks run on fiber goroutines,
			// not on this pinned bootstrap goroutine.
			_ = err
		}
	}

	span := trace.Begin(w.sched.tracer, trace.ScopeWorker, "worker", 0)
	span.WithExtra("stack_size_bytes", fmt.Sprint(stackSize))
	f0 := w.sched.pool.mustAcquire()
	close(booted)
	handoff(f0, w)
	<-w.done
	span.End("exited")
	return nil
}

// AddTask enqueues a single task and returns a handle to its counter. It
// is the n=1 case of AddTasks.
func (s *Scheduler) AddTask(t Task) *Counter {
	return s.AddTasks([]Task{t})
}

// AddTasks allocates a new counter initialized to len(tasks), enqueues one
// bundle per task each referencing that counter, and returns the counter.
// Calling it with an empty slice returns a counter already at zero.
func (s *Scheduler) AddTasks(tasks []Task) *Counter {
	n, err := safecast.Conv[uint32](len(tasks))
	if err != nil {
		panic(err)
	}
	c := NewCounter(n)
	for _, t := range tasks {
		s.queue.push(taskBundle{task: t, counter: c})
	}
	return c
}

// WaitForCounter blocks the calling task (or, from the external driver,
// the calling goroutine) until counter's value is at most target.
//
// Called from inside a task, it parks the task's fiber on the waiting
// list and switches the underlying worker onto a fresh fiber so the
// worker keeps making progress on other work. Called from the external
// driver — which has no fiber of its own — it spins until the condition
// holds, since there is nothing to suspend.
func (s *Scheduler) WaitForCounter(c *Counter, target uint32) {
	if c.Load() <= target {
		return
	}

	self := s.execs.current()
	if self == nil {
		s.spinWait(c, target)
		return
	}

	span := trace.Begin(s.tracer, trace.ScopeCounter, "wait", 0)
	started := time.Now()

	w := self.curWorker
	fresh := s.pool.acquire()
	wt := waitingTask{fiber: self, counter: c, target: target}
	w.parkToWaiters(self, wt, fresh)

	s.recorder.Record("wait", time.Since(started))
	span.End("resumed")
}

// spinWait is the external-driver-thread fallback for WaitForCounter: with
// no fiber to park, the only option is to poll.
func (s *Scheduler) spinWait(c *Counter, target uint32) {
	for c.Load() > target {
		idleBackoff()
	}
}

// Quit requests shutdown: workers finish draining the task queue and
// waiting list, then exit. Quit blocks until every worker has exited, every
// trampoline fiber has exited, and every fiber still resting in the pool
// has exited too — spec.md §4.8's "destroy all fibers," not just the one
// fiber per worker that happens to be active when quitting is observed.
// Safe shutdown requires that the caller has already waited on every
// counter for work it cares about — Quit does not cancel in-flight tasks.
func (s *Scheduler) Quit() error {
	s.quitting.Store(true)
	s.queue.drain()
	err := s.group.Wait()

	s.shutdownTrampolines()
	s.shutdownPoolFibers()

	s.heart.Stop()
	_ = s.tracer.Close()
	return err
}

// shutdownTrampolines wakes every worker's two trampoline fibers one last
// time with a nil worker, which worker.runTrampoline recognizes as a
// shutdown signal rather than a real switchIntent, and lets them return.
// By the time group.Wait() above has returned, every worker's own loop has
// already exited, so each trampoline is guaranteed to be resting in its
// own park call rather than mid-switch — there is no fiber left that could
// still try to suspend through it.
func (s *Scheduler) shutdownTrampolines() {
	for _, w := range s.workers {
		handoff(w.returnToPoolTramp, nil)
		handoff(w.addToWaitersTramp, nil)
	}
}

// shutdownPoolFibers drains every fiber still resting in the pool — the
// FiberPoolSize-Workers of them that were never the last fiber active
// under their worker at shutdown — and wakes each one with a nil worker so
// its runFiberBody returns instead of looping back into step. Fibers that
// were the active fiber under some worker and observed quit-and-drained
// there have already returned on their own, per worker.go's runFiberBody.
func (s *Scheduler) shutdownPoolFibers() {
	for {
		f, ok := s.pool.tryAcquire()
		if !ok {
			return
		}
		handoff(f, nil)
	}
}

// runTask executes one task bundle on behalf of self: it registers self as
// the current fiber for WaitForCounter lookups, runs the task function,
// then decrements the bundle's counter.
//
// A task function that panics would otherwise skip that decrement and
// strand every waiter on the bundle's counter forever. runTask recovers at
// this boundary, always decrements, and then disposes of the panic per
// cfg.PanicPolicy.
func (s *Scheduler) runTask(self *fiber, b taskBundle) {
	s.execs.enter(self)
	span := trace.Begin(s.tracer, trace.ScopeTask, "task", 0)
	started := time.Now()

	r := func() (recovered any) {
		defer func() { recovered = recover() }()
		b.task.Fn(s, b.task.Arg)
		return nil
	}()

	s.recorder.Record("task", time.Since(started))
	s.execs.leave()
	b.counter.decrement()

	if r != nil {
		s.handleTaskPanic(r, span)
		return
	}
	span.End("done")
}

// handleTaskPanic disposes of a recovered task panic per cfg.PanicPolicy:
// PanicPolicyRepanic re-raises on the worker goroutine after recording the
// trace event, crashing the process exactly as an unrecovered panic would;
// the default, PanicPolicyLog, logs to stderr and lets the worker keep
// pulling work.
func (s *Scheduler) handleTaskPanic(r any, span *trace.Span) {
	span.WithExtra("panic", fmt.Sprint(r)).End("panic")

	if s.cfg.PanicPolicy == PanicPolicyRepanic {
		panic(r)
	}
	fmt.Fprintf(os.Stderr, "weave: task panic recovered: %v\n", r)
}

// Report returns a snapshot of accumulated task/wait timing statistics.
func (s *Scheduler) Report() observ.AggregateReport {
	return s.recorder.Report()
}

// Tracer exposes the scheduler's tracer, e.g. for cmd/weave's monitor
// dashboard to pull a RingTracer snapshot from.
func (s *Scheduler) Tracer() trace.Tracer {
	return s.tracer
}

// Config returns the configuration this scheduler was initialized with.
func (s *Scheduler) Config() Config {
	return s.cfg
}
