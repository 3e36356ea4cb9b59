package taskrun

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// phase is a state of the orchestrator's finite state machine.
type phase int

const (
	phasePlanning phase = iota
	phaseExecuting
	phaseEvaluating
	phaseDone
	phaseFailed
)

// runState is the per-run mutable state. It is created at run start, mutated
// only by the orchestrator, and discarded when the run ends; nothing is
// shared between runs.
type runState struct {
	id        string
	goal      string
	plan      *Plan
	cursor    int // next step in the current plan
	attempt   int // 1-based attempt counter for the step at cursor
	history   RunHistory
	nextIndex int // next global step index
	cycles    int // planner calls issued
	startedAt time.Time
}

// Orchestrator drives the agentic loop: it calls the Planner for a plan,
// the Executor per step, and decides after each result whether to continue,
// retry, replan, or stop. It holds no per-run state and is safe for
// concurrent runs against its shared read-only Registry.
type Orchestrator struct {
	planner  Planner
	executor *Executor
	registry *Registry
	config   Config
	sink     func(RunEvent)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithEventSink registers a callback receiving every run event. The sink is
// called from a per-run goroutine; it must not block indefinitely.
func WithEventSink(fn func(RunEvent)) Option {
	return func(o *Orchestrator) {
		o.sink = fn
	}
}

// New creates an Orchestrator. Malformed configuration is the only error
// surfaced here; once New succeeds, Run always completes with a report.
func New(planner Planner, registry *Registry, config Config, opts ...Option) (*Orchestrator, error) {
	if planner == nil {
		return nil, &ConfigError{Message: "planner must not be nil"}
	}
	if registry == nil {
		return nil, &ConfigError{Message: "registry must not be nil"}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	o := &Orchestrator{
		planner:  planner,
		executor: NewExecutor(registry),
		registry: registry,
		config:   config,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Run executes one goal to completion and returns the final report. The run
// is bounded by the configured planning-cycle and step-retry budgets, and
// ctx cancellation is honored between state transitions.
func (o *Orchestrator) Run(ctx context.Context, goal string) *FinalReport {
	emitter := NewEventEmitter(uuid.New().String(), 256)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for ev := range emitter.Events() {
			if o.sink != nil {
				o.sink(ev)
			}
		}
	}()

	report := o.run(ctx, goal, emitter)
	emitter.Close()
	<-drained
	return report
}

func (o *Orchestrator) run(ctx context.Context, goal string, emitter *EventEmitter) *FinalReport {
	st := &runState{
		id:        emitter.runID,
		goal:      goal,
		attempt:   1,
		startedAt: time.Now(),
	}
	emitter.Emit(EventRunStart, map[string]any{"goal": goal})

	var (
		ph     = phasePlanning
		last   StepResult
		reason FailureReason
		detail string
	)

	for ph != phaseDone && ph != phaseFailed {
		// Cancellation is checked at the top of every transition so a run
		// can be aborted promptly between steps.
		if err := ctx.Err(); err != nil {
			ph, reason, detail = phaseFailed, FailureCancelled, err.Error()
			break
		}

		switch ph {
		case phasePlanning:
			ph, reason, detail = o.stepPlanning(ctx, st, emitter)
		case phaseExecuting:
			last = o.stepExecuting(ctx, st, emitter)
			ph = phaseEvaluating
		case phaseEvaluating:
			ph = o.stepEvaluating(st, last, emitter)
		}
	}

	report := &FinalReport{
		RunID:          st.id,
		Goal:           st.goal,
		History:        st.history,
		Succeeded:      ph == phaseDone,
		PlanningCycles: st.cycles,
		StartedAt:      st.startedAt,
		Duration:       time.Since(st.startedAt),
	}
	if ph == phaseFailed {
		report.FailureReason = reason
		report.FailureDetail = detail
	}
	emitter.Emit(EventRunEnd, map[string]any{
		"succeeded":      report.Succeeded,
		"failure_reason": string(report.FailureReason),
		"history_len":    len(report.History),
	})
	return report
}

// stepPlanning issues one Planner call and adopts the result.
func (o *Orchestrator) stepPlanning(ctx context.Context, st *runState, emitter *EventEmitter) (phase, FailureReason, string) {
	if st.cycles >= o.config.MaxPlanningCycles {
		return phaseFailed, FailureCycleBudget,
			fmt.Sprintf("planning cycle budget of %d exhausted", o.config.MaxPlanningCycles)
	}
	st.cycles++
	emitter.Emit(EventPlanningStart, map[string]any{"cycle": st.cycles})

	pctx, cancel := context.WithTimeout(ctx, o.config.PlanningTimeout)
	resp, err := o.planner.Plan(pctx, PlanRequest{
		Goal:    st.goal,
		History: st.history,
		Tools:   o.registry.List(),
	})
	cancel()

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return phaseFailed, FailurePlanningTimeout, err.Error()
		}
		return phaseFailed, FailurePlanning, err.Error()
	}

	switch resp.Directive {
	case DirectiveComplete:
		emitter.Emit(EventNoFurtherAction, map[string]any{"reason": resp.Reason})
		return phaseDone, "", ""
	case DirectiveUnreachable:
		emitter.Emit(EventNoFurtherAction, map[string]any{"reason": resp.Reason})
		return phaseFailed, FailureUnreachable, resp.Reason
	case DirectiveExecute:
		if len(resp.Steps) == 0 {
			return phaseFailed, FailurePlanning, "planner returned an empty plan"
		}
		// Stamp global indices; they never reset across replans.
		for _, s := range resp.Steps {
			s.Index = st.nextIndex
			s.Status = StepPending
			st.nextIndex++
		}
		st.plan = &Plan{Steps: resp.Steps}
		st.cursor = 0
		st.attempt = 1
		emitter.Emit(EventPlanAdopted, map[string]any{"cycle": st.cycles, "steps": len(resp.Steps)})
		return phaseExecuting, "", ""
	default:
		return phaseFailed, FailurePlanning, fmt.Sprintf("unknown planner directive %q", resp.Directive)
	}
}

// stepExecuting dispatches the step at the cursor and appends its result to
// the history.
func (o *Orchestrator) stepExecuting(ctx context.Context, st *runState, emitter *EventEmitter) StepResult {
	step := st.plan.Steps[st.cursor]
	step.Status = StepRunning
	emitter.Emit(EventStepStart, map[string]any{
		"index":   step.Index,
		"tool":    step.Tool,
		"attempt": st.attempt,
	})

	sctx, cancel := context.WithTimeout(ctx, o.config.StepTimeout)
	res := o.executor.Execute(sctx, step, st.attempt)
	cancel()

	st.history = append(st.history, res)
	return res
}

// stepEvaluating applies the retry/replan policy to the latest result.
func (o *Orchestrator) stepEvaluating(st *runState, last StepResult, emitter *EventEmitter) phase {
	step := st.plan.Steps[st.cursor]

	if last.Succeeded() {
		step.Status = StepSucceeded
		emitter.Emit(EventStepEnd, map[string]any{
			"index":    step.Index,
			"tool":     step.Tool,
			"duration": last.Duration.String(),
		})
		st.cursor++
		st.attempt = 1
		if st.cursor < len(st.plan.Steps) {
			return phaseExecuting
		}
		// Plan exhausted; ask the planner to confirm completion or continue.
		return phasePlanning
	}

	if st.attempt <= o.config.MaxStepRetries {
		st.attempt++
		emitter.Emit(EventStepRetry, map[string]any{
			"index":   step.Index,
			"tool":    step.Tool,
			"attempt": st.attempt,
			"fault":   string(last.Fault),
		})
		return phaseExecuting
	}

	// Give up on this step: discard the plan suffix, keep the history, and
	// replan from ground truth.
	step.Status = StepFailed
	for _, s := range st.plan.Steps[st.cursor+1:] {
		s.Status = StepSkipped
	}
	emitter.Emit(EventReplan, map[string]any{
		"index": step.Index,
		"tool":  step.Tool,
		"fault": string(last.Fault),
	})
	return phasePlanning
}
