package fiber

import (
	"runtime"
	"sync/atomic"
	"testing"
	"time"
)

func testConfig(workers int) Config {
	cfg := DefaultConfig()
	cfg.Workers = workers
	cfg.FiberPoolSize = 2*workers + 1
	cfg.Affinity = false
	cfg.Trace.Level = "off"
	return cfg
}

// TestScheduler_TwoLevelFanOut reproduces the canonical fan-out shape: 10
// outer tasks each spawn 10 inner tasks and wait on them before returning.
// Every task increments a shared atomic, so a completed round must leave it
// at exactly 110 (10 outer + 100 inner) — satisfying P1 (every counter
// reaches exactly zero) and P4 (every spawned task's effects happen-before
// the code after AddTasks+WaitForCounter(0)).
func TestScheduler_TwoLevelFanOut(t *testing.T) {
	sched, err := Initialize(testConfig(4))
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer sched.Quit()

	var total atomic.Int64
	outer := make([]Task, 10)
	for i := range outer {
		outer[i] = Task{Fn: fanOutOuter, Arg: &total}
	}

	c := sched.AddTasks(outer)
	sched.WaitForCounter(c, 0)

	if got := total.Load(); got != 110 {
		t.Fatalf("total = %d, want 110", got)
	}
	if got := c.Load(); got != 0 {
		t.Fatalf("counter = %d, want 0 after WaitForCounter(0) returns", got)
	}
}

func fanOutOuter(s *Scheduler, arg any) {
	total := arg.(*atomic.Int64)
	total.Add(1)

	inner := make([]Task, 10)
	for i := range inner {
		inner[i] = Task{Fn: fanOutInner, Arg: total}
	}
	c := s.AddTasks(inner)
	s.WaitForCounter(c, 0)
}

func fanOutInner(s *Scheduler, arg any) {
	arg.(*atomic.Int64).Add(1)
}

// TestScheduler_BoundaryPoolSizeUnderMaxConcurrentWait exercises the
// documented minimum fiber_pool_size = 2*workers+1 under a workload where
// every worker is simultaneously waiting on a nested counter — the worst
// case the minimum is sized for.
func TestScheduler_BoundaryPoolSizeUnderMaxConcurrentWait(t *testing.T) {
	const workers = 3
	cfg := testConfig(workers)
	sched, err := Initialize(cfg)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer sched.Quit()

	var done atomic.Int64
	outer := make([]Task, workers*2)
	for i := range outer {
		outer[i] = Task{Fn: func(s *Scheduler, arg any) {
			inner := s.AddTask(Task{Fn: func(s *Scheduler, arg any) {
				done.Add(1)
			}})
			s.WaitForCounter(inner, 0)
			done.Add(1)
		}}
	}

	c := sched.AddTasks(outer)
	sched.WaitForCounter(c, 0)

	if got, want := done.Load(), int64(len(outer)*2); got != want {
		t.Fatalf("done = %d, want %d", got, want)
	}
}

// TestScheduler_NestedWaitReturnsInCompletionOrder confirms a task that
// waits on a nested task's counter resumes only after that nested task has
// run: the nested task's "fast" lands before the outer task's post-wait
// "slow-outer".
func TestScheduler_NestedWaitReturnsInCompletionOrder(t *testing.T) {
	sched, err := Initialize(testConfig(4))
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer sched.Quit()

	order := make(chan string, 2)

	slow := sched.AddTask(Task{Fn: func(s *Scheduler, arg any) {
		fast := s.AddTask(Task{Fn: func(s *Scheduler, arg any) {
			order <- "fast"
		}})
		s.WaitForCounter(fast, 0)
		order <- "slow-outer"
	}})
	sched.WaitForCounter(slow, 0)

	first := <-order
	second := <-order
	if first != "fast" || second != "slow-outer" {
		t.Fatalf("completion order = [%s %s], want [fast slow-outer]", first, second)
	}
}

// TestScheduler_QuitDrainsBeforeExiting checks that Quit returns cleanly
// once every queued task has been waited on (P5: bounded-time shutdown
// after drain), and that every one of those tasks actually ran.
func TestScheduler_QuitDrainsBeforeExiting(t *testing.T) {
	sched, err := Initialize(testConfig(2))
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	var ran atomic.Int64
	tasks := make([]Task, 200)
	for i := range tasks {
		tasks[i] = Task{Fn: func(s *Scheduler, arg any) { ran.Add(1) }}
	}
	c := sched.AddTasks(tasks)
	sched.WaitForCounter(c, 0)

	if err := sched.Quit(); err != nil {
		t.Fatalf("Quit: %v", err)
	}
	if got := ran.Load(); got != int64(len(tasks)) {
		t.Fatalf("ran = %d, want %d", got, len(tasks))
	}
}

// TestScheduler_SelfWaitOnAlreadySatisfiedCounterIsNoOp confirms
// WaitForCounter returns immediately when the counter is already at or
// below target, without needing to park anything.
func TestScheduler_SelfWaitOnAlreadySatisfiedCounterIsNoOp(t *testing.T) {
	sched, err := Initialize(testConfig(2))
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer sched.Quit()

	c := NewCounter(0)
	done := make(chan struct{})
	go func() {
		sched.WaitForCounter(c, 0)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("WaitForCounter on an already-satisfied counter did not return")
	}
}

// TestScheduler_EmptyAddTasksReturnsZeroedCounter confirms AddTasks with no
// work returns a counter that is already at its target, so a subsequent
// WaitForCounter(c, 0) never blocks.
func TestScheduler_EmptyAddTasksReturnsZeroedCounter(t *testing.T) {
	sched, err := Initialize(testConfig(2))
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer sched.Quit()

	c := sched.AddTasks(nil)
	if got := c.Load(); got != 0 {
		t.Fatalf("counter = %d, want 0", got)
	}
	sched.WaitForCounter(c, 0)
}

// TestScheduler_TaskPanicDoesNotStrandWaiter ensures a panicking task's
// counter is still decremented, so WaitForCounter on its group returns
// instead of hanging forever (PanicPolicyLog is the default: the worker
// keeps running after logging).
func TestScheduler_TaskPanicDoesNotStrandWaiter(t *testing.T) {
	sched, err := Initialize(testConfig(2))
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer sched.Quit()

	var ranAfterPanic atomic.Bool
	tasks := []Task{
		{Fn: func(s *Scheduler, arg any) { panic("boom") }},
		{Fn: func(s *Scheduler, arg any) { ranAfterPanic.Store(true) }},
	}

	done := make(chan struct{})
	go func() {
		c := sched.AddTasks(tasks)
		sched.WaitForCounter(c, 0)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("WaitForCounter hung after a task panic")
	}
	if !ranAfterPanic.Load() {
		t.Fatalf("sibling task did not run after another task in the group panicked")
	}
}

// TestScheduler_RepanicPolicyIsRecordedOnSchedulerConfig confirms
// PanicPolicyRepanic round-trips through Initialize. The policy re-raises
// the panic on the fiber's own goroutine when exercised, which (like any
// unrecovered goroutine panic) terminates the process rather than
// returning an error a single goroutine's recover() could observe — so
// that behavior is not exercised from within this test binary.
func TestScheduler_RepanicPolicyIsRecordedOnSchedulerConfig(t *testing.T) {
	cfg := testConfig(2)
	cfg.PanicPolicy = PanicPolicyRepanic
	sched, err := Initialize(cfg)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer sched.Quit()

	if got := sched.Config().PanicPolicy; got != PanicPolicyRepanic {
		t.Fatalf("Config().PanicPolicy = %q, want %q", got, PanicPolicyRepanic)
	}
}

func TestInitialize_RejectsUndersizedPool(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 4
	cfg.FiberPoolSize = 2 * cfg.Workers // one short of the minimum
	if _, err := Initialize(cfg); err == nil {
		t.Fatalf("Initialize: expected a synchronous configuration error")
	}
}

func TestScheduler_ConfigReturnsInitializedValues(t *testing.T) {
	cfg := testConfig(3)
	sched, err := Initialize(cfg)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer sched.Quit()

	if got := sched.Config(); got.Workers != cfg.Workers || got.FiberPoolSize != cfg.FiberPoolSize {
		t.Fatalf("Config() = %+v, want %+v", got, cfg)
	}
}

func TestScheduler_ReportAggregatesTaskTimings(t *testing.T) {
	sched, err := Initialize(testConfig(2))
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer sched.Quit()

	tasks := make([]Task, 20)
	for i := range tasks {
		tasks[i] = Task{Fn: func(s *Scheduler, arg any) {}}
	}
	c := sched.AddTasks(tasks)
	sched.WaitForCounter(c, 0)

	report := sched.Report()
	var found bool
	for _, cat := range report.Categories {
		if cat.Category == "task" {
			found = true
			if cat.Count < int64(len(tasks)) {
				t.Fatalf("task count = %d, want >= %d", cat.Count, len(tasks))
			}
		}
	}
	if !found {
		t.Fatalf("Report(): no %q category recorded", "task")
	}
}

// TestScheduler_QuitReleasesAllFiberGoroutines reproduces spec.md §4.8's
// "destroy all fibers" contract at the goroutine level: every worker's two
// trampolines plus every fiber still resting in the pool are permanent
// goroutines (newFiber plus Initialize's go runFiberBody / newWorker's go
// runTrampoline), and
// Quit must wake and retire every one of them, not just the fiber that
// happened to be active under each worker when shutdown was requested.
//
// runtime.NumGoroutine() is a process-wide count, so this is necessarily a
// loose heuristic rather than an exact diff — background goroutines (GC,
// finalizers, the test harness itself) can come and go independently of the
// scheduler. The settle delay and tolerance follow the same pattern used in
// this pack for goroutine-leak checks.
func TestScheduler_QuitReleasesAllFiberGoroutines(t *testing.T) {
	before := runtime.NumGoroutine()

	for i := 0; i < 5; i++ {
		sched, err := Initialize(testConfig(4))
		if err != nil {
			t.Fatalf("Initialize: %v", err)
		}

		tasks := make([]Task, 50)
		for j := range tasks {
			tasks[j] = Task{Fn: func(s *Scheduler, arg any) {}}
		}
		c := sched.AddTasks(tasks)
		sched.WaitForCounter(c, 0)

		if err := sched.Quit(); err != nil {
			t.Fatalf("Quit: %v", err)
		}
	}

	time.Sleep(100 * time.Millisecond)
	after := runtime.NumGoroutine()

	if after-before > 10 {
		t.Fatalf("goroutine count grew from %d to %d after 5 Initialize/Quit cycles; fibers or trampolines are leaking", before, after)
	}
}
