package fiber

// TaskFunc is the signature every task entry point implements: it receives
// the scheduler handle it was submitted to plus the opaque argument that was
// paired with it. The scheduler never inspects, copies, or frees Arg; that
// memory belongs to the caller for as long as the task might run.
type TaskFunc func(s *Scheduler, arg any)

// Task is an immutable (function, argument) pair submitted for execution.
type Task struct {
	Fn  TaskFunc
	Arg any
}

// taskBundle pairs a task with the shared counter its completion will
// decrement. It is created when AddTask(s) enqueues and consumed when a
// worker pops it off the queue.
type taskBundle struct {
	task    Task
	counter *Counter
}
