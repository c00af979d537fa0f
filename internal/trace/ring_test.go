package trace

import "testing"

func TestRingTracer_SnapshotBeforeFullReturnsInsertedOrder(t *testing.T) {
	r := NewRingTracer(4, LevelDebug)
	for i := 0; i < 3; i++ {
		r.Emit(&Event{Scope: ScopeTask, Kind: KindPoint, Name: string(rune('a' + i))})
	}
	snap := r.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("Snapshot() len = %d, want 3", len(snap))
	}
	for i, ev := range snap {
		if ev.Name != string(rune('a'+i)) {
			t.Fatalf("Snapshot()[%d].Name = %q, want %q", i, ev.Name, string(rune('a'+i)))
		}
	}
}

func TestRingTracer_WrapsAtCapacity(t *testing.T) {
	r := NewRingTracer(2, LevelDebug)
	r.Emit(&Event{Scope: ScopeTask, Name: "a"})
	r.Emit(&Event{Scope: ScopeTask, Name: "b"})
	r.Emit(&Event{Scope: ScopeTask, Name: "c"})

	snap := r.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("Snapshot() len = %d, want 2", len(snap))
	}
	if snap[0].Name != "b" || snap[1].Name != "c" {
		t.Fatalf("Snapshot() = %v, want [b c]", []string{snap[0].Name, snap[1].Name})
	}
}

func TestRingTracer_RespectsLevelFiltering(t *testing.T) {
	r := NewRingTracer(4, LevelPhase)
	r.Emit(&Event{Scope: ScopeFiber, Name: "filtered"})
	r.Emit(&Event{Scope: ScopeTask, Name: "kept"})

	snap := r.Snapshot()
	if len(snap) != 1 || snap[0].Name != "kept" {
		t.Fatalf("Snapshot() = %v, want only the task-scope event", snap)
	}
}

func TestRingTracer_HeartbeatBypassesLevelFilter(t *testing.T) {
	r := NewRingTracer(4, LevelOff)
	r.Emit(&Event{Scope: ScopeWorker, Kind: KindHeartbeat, Name: "beat"})

	snap := r.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("Snapshot() len = %d, want 1 (heartbeat bypasses level filtering)", len(snap))
	}
}
