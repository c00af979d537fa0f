package fiber

import "testing"

func TestExecRegistry_CurrentNilOutsideEnter(t *testing.T) {
	r := newExecRegistry()
	if got := r.current(); got != nil {
		t.Fatalf("current() = %v, want nil before enter", got)
	}
}

func TestExecRegistry_EnterThenCurrentReturnsSameFiber(t *testing.T) {
	r := newExecRegistry()
	f := newFiber()

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.enter(f)
		if got := r.current(); got != f {
			t.Errorf("current() = %v, want the entered fiber", got)
		}
		r.leave()
		if got := r.current(); got != nil {
			t.Errorf("current() = %v, want nil after leave", got)
		}
	}()
	<-done
}

func TestExecRegistry_IsolatedPerGoroutine(t *testing.T) {
	r := newExecRegistry()
	fa := newFiber()
	fb := newFiber()

	doneA := make(chan struct{})
	doneB := make(chan struct{})
	proceed := make(chan struct{})

	go func() {
		defer close(doneA)
		r.enter(fa)
		<-proceed
		if got := r.current(); got != fa {
			t.Errorf("goroutine A: current() = %v, want fa", got)
		}
		r.leave()
	}()
	go func() {
		defer close(doneB)
		r.enter(fb)
		<-proceed
		if got := r.current(); got != fb {
			t.Errorf("goroutine B: current() = %v, want fb", got)
		}
		r.leave()
	}()

	close(proceed)
	<-doneA
	<-doneB
}
