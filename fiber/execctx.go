package fiber

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

// goroutineID extracts the calling goroutine's id from the header line of
// runtime.Stack's output. There is no supported standard-library API for
// this. It exists because every fiber owns exactly one goroutine for its
// entire lifetime and a task only ever runs on its own fiber's goroutine,
// so the goroutine id is a safe, collision-free key for "which fiber is
// currently executing on this stack" — the thing WaitForCounter needs to
// find without TaskFunc's (scheduler, arg) signature carrying it directly.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return 0
	}
	id, _ := strconv.ParseUint(string(fields[1]), 10, 64)
	return id
}

// execRegistry maps a running goroutine to the fiber it is currently
// executing a task on. Entries exist only for the duration of a task call.
type execRegistry struct {
	mu sync.Mutex
	m  map[uint64]*fiber
}

func newExecRegistry() *execRegistry {
	return &execRegistry{m: make(map[uint64]*fiber)}
}

func (r *execRegistry) enter(f *fiber) {
	r.mu.Lock()
	r.m[goroutineID()] = f
	r.mu.Unlock()
}

func (r *execRegistry) leave() {
	r.mu.Lock()
	delete(r.m, goroutineID())
	r.mu.Unlock()
}

// current reports the fiber running the calling goroutine's task, or nil if
// the caller is not inside a task call (the external driver, for example).
func (r *execRegistry) current() *fiber {
	r.mu.Lock()
	f := r.m[goroutineID()]
	r.mu.Unlock()
	return f
}
