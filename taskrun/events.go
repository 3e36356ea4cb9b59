package taskrun

import (
	"sync"
	"time"
)

// EventKind identifies the type of run event.
type EventKind string

const (
	EventRunStart        EventKind = "run_start"
	EventPlanningStart   EventKind = "planning_start"
	EventPlanAdopted     EventKind = "plan_adopted"
	EventNoFurtherAction EventKind = "no_further_action"
	EventStepStart       EventKind = "step_start"
	EventStepEnd         EventKind = "step_end"
	EventStepRetry       EventKind = "step_retry"
	EventReplan          EventKind = "replan"
	EventRunEnd          EventKind = "run_end"
)

// RunEvent is a typed event emitted while a run progresses.
type RunEvent struct {
	Kind      EventKind      `json:"kind"`
	Timestamp time.Time      `json:"timestamp"`
	RunID     string         `json:"run_id"`
	Data      map[string]any `json:"data,omitempty"`
}

// EventEmitter delivers run events to the host application via a buffered
// channel. If the buffer fills, events are dropped rather than stalling
// the run.
type EventEmitter struct {
	runID  string
	ch     chan RunEvent
	closed bool
	mu     sync.Mutex
}

// NewEventEmitter creates an emitter with the given buffer size.
func NewEventEmitter(runID string, bufferSize int) *EventEmitter {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &EventEmitter{
		runID: runID,
		ch:    make(chan RunEvent, bufferSize),
	}
}

// Emit sends an event. Emitting on a closed emitter is a no-op.
func (e *EventEmitter) Emit(kind EventKind, data map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	event := RunEvent{
		Kind:      kind,
		Timestamp: time.Now(),
		RunID:     e.runID,
		Data:      data,
	}
	select {
	case e.ch <- event:
	default:
		// Buffer full; drop rather than block the run.
	}
}

// Events returns the receive side of the event channel.
func (e *EventEmitter) Events() <-chan RunEvent {
	return e.ch
}

// Close closes the event channel. Safe to call more than once.
func (e *EventEmitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	close(e.ch)
}
