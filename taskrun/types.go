package taskrun

import (
	"encoding/json"
	"time"
)

// StepStatus represents the lifecycle state of a planned step.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepSucceeded StepStatus = "succeeded"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

// Step is one planned tool invocation. Steps are owned by the Plan that
// produced them and are never shared across plans. Index is assigned by the
// orchestrator when a plan is adopted and increases monotonically across the
// whole run, replans included.
type Step struct {
	Index     int            `json:"index"`
	Tool      string         `json:"tool"`
	Input     map[string]any `json:"input,omitempty"`
	Rationale string         `json:"rationale,omitempty"`
	Status    StepStatus     `json:"status"`
}

// Plan is an ordered sequence of steps produced by one Planner invocation.
type Plan struct {
	Steps []*Step `json:"steps"`
}

// StepResult records the outcome of exactly one step dispatch. Retried
// dispatches each produce their own StepResult.
type StepResult struct {
	StepIndex int            `json:"step_index"`
	Tool      string         `json:"tool"`
	Input     map[string]any `json:"input,omitempty"`
	Attempt   int            `json:"attempt"` // 1-based
	Output    any            `json:"output,omitempty"`
	Error     string         `json:"error,omitempty"`
	Fault     FaultKind      `json:"fault,omitempty"`
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration"`
}

// Succeeded reports whether the dispatch completed without a fault.
func (r StepResult) Succeeded() bool {
	return r.Fault == FaultNone
}

// RunHistory is the append-only sequence of all StepResults across all plans
// generated during one run.
type RunHistory []StepResult

// Failed returns the results in the history that carry a fault.
func (h RunHistory) Failed() []StepResult {
	var out []StepResult
	for _, r := range h {
		if !r.Succeeded() {
			out = append(out, r)
		}
	}
	return out
}

// FailureReason classifies why a run ended without success.
type FailureReason string

const (
	FailurePlanning        FailureReason = "planning_failed"
	FailurePlanningTimeout FailureReason = "planning_timeout"
	FailureUnreachable     FailureReason = "goal_unreachable"
	FailureCycleBudget     FailureReason = "cycle_budget_exhausted"
	FailureCancelled       FailureReason = "run_cancelled"
)

// FinalReport is the aggregated result of one run. A run always completes
// with a report; the only errors surfaced to callers are configuration
// errors raised before the run starts.
type FinalReport struct {
	RunID          string        `json:"run_id"`
	Goal           string        `json:"goal"`
	History        RunHistory    `json:"history"`
	Succeeded      bool          `json:"succeeded"`
	FailureReason  FailureReason `json:"failure_reason,omitempty"`
	FailureDetail  string        `json:"failure_detail,omitempty"`
	PlanningCycles int           `json:"planning_cycles"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration"`
}

// stepKey canonicalizes a tool name plus input for identity comparison.
// Two steps with the same tool and deep-equal input are the same action.
func stepKey(tool string, input map[string]any) string {
	b, err := json.Marshal(input)
	if err != nil {
		b = []byte("{}")
	}
	return tool + "\x00" + string(b)
}
