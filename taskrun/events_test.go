package taskrun

import "testing"

func TestEventEmitterDeliversInOrder(t *testing.T) {
	e := NewEventEmitter("run-1", 8)
	e.Emit(EventRunStart, nil)
	e.Emit(EventRunEnd, map[string]any{"succeeded": true})
	e.Close()

	var got []EventKind
	for ev := range e.Events() {
		if ev.RunID != "run-1" {
			t.Errorf("RunID = %q, want run-1", ev.RunID)
		}
		got = append(got, ev.Kind)
	}
	if len(got) != 2 || got[0] != EventRunStart || got[1] != EventRunEnd {
		t.Errorf("events = %v", got)
	}
}

func TestEventEmitterDropsWhenFull(t *testing.T) {
	e := NewEventEmitter("run-2", 2)
	for i := 0; i < 10; i++ {
		e.Emit(EventStepStart, map[string]any{"i": i})
	}
	e.Close()

	count := 0
	for range e.Events() {
		count++
	}
	if count != 2 {
		t.Errorf("delivered %d events, want buffer size 2", count)
	}
}

func TestEventEmitterCloseIdempotent(t *testing.T) {
	e := NewEventEmitter("run-3", 2)
	e.Close()
	e.Close()
	e.Emit(EventRunEnd, nil) // no-op after close, must not panic
}
