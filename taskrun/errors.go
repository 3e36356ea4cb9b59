package taskrun

import (
	"errors"
	"fmt"
)

// FaultKind classifies a failed step dispatch. Faults are data carried on
// StepResults and handled by orchestrator policy; they never unwind past
// the executor.
type FaultKind string

const (
	FaultNone          FaultKind = ""
	FaultUnknownTool   FaultKind = "unknown_tool"
	FaultValidation    FaultKind = "validation"
	FaultToolExecution FaultKind = "tool_execution"
	FaultTimeout       FaultKind = "timeout"
)

// Registry sentinel errors.
var (
	ErrDuplicateTool = errors.New("tool already registered")
	ErrUnknownTool   = errors.New("unknown tool")
)

// PlanningError indicates the planner could not produce a valid plan after
// its internal retry budget. It is fatal to the run: the orchestrator
// transitions to Failed instead of retrying the planner.
type PlanningError struct {
	Message string
	Cause   error
}

func (e *PlanningError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("planning: %s: %v", e.Message, e.Cause)
	}
	return "planning: " + e.Message
}

func (e *PlanningError) Unwrap() error {
	return e.Cause
}

// ConfigError indicates malformed run configuration. It is the only error
// category surfaced to the run's caller.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return "config: " + e.Message
}
