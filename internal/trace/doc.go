// Package trace provides the tracing subsystem for the weave scheduler.
//
// It tracks worker activity, task execution, fiber switches, and counter
// waits, to help diagnose stalls and measure scheduling overhead.
//
// # Architecture
//
// Several Tracer implementations are provided:
//
//   - Nop: zero-overhead no-op tracer when disabled
//   - StreamTracer: immediate write to an output (file, stderr)
//   - RingTracer: circular in-memory buffer, good for "what just happened"
//     snapshots fed to the monitor dashboard
//   - MultiTracer: fans out to several tracers at once
//
// # Levels
//
//   - LevelOff: no tracing
//   - LevelError: no scope events; only heartbeats are emitted
//   - LevelPhase: worker and task boundaries
//   - LevelDetail: fiber switches
//   - LevelDebug: everything, including counter waits
//
// # Scopes
//
//   - ScopeWorker: per-worker lifecycle
//   - ScopeTask: task start/end
//   - ScopeFiber: fiber switch points
//   - ScopeCounter: WaitForCounter begin/end
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//	span := trace.Begin(t, trace.ScopeTask, "task", parentID)
//	defer span.End("")
package trace
