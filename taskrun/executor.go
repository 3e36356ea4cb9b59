package taskrun

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Executor dispatches single steps against a Registry. It performs zero
// automatic retries; retry decisions belong to the orchestrator, which has
// the history and budget context to decide whether retrying is productive.
type Executor struct {
	Registry *Registry
}

// NewExecutor creates an executor over the given registry.
func NewExecutor(registry *Registry) *Executor {
	return &Executor{Registry: registry}
}

// Execute resolves the step's tool, validates its input against the tool's
// declared schema, and invokes the capability exactly once. Every fault —
// unknown tool, schema mismatch, tool error, timeout, even a panicking
// capability — is captured as a failure StepResult. A failed step is data,
// not an exception that unwinds the run.
func (e *Executor) Execute(ctx context.Context, step *Step, attempt int) (res StepResult) {
	res = StepResult{
		StepIndex: step.Index,
		Tool:      step.Tool,
		Input:     step.Input,
		Attempt:   attempt,
		StartedAt: time.Now(),
	}
	// res is named so every return path carries the duration.
	defer func() {
		res.Duration = time.Since(res.StartedAt)
	}()

	capability, info, err := e.Registry.Resolve(step.Tool)
	if err != nil {
		res.Fault = FaultUnknownTool
		res.Error = err.Error()
		return res
	}

	if err := info.Schema.Validate(step.Input); err != nil {
		// The tool is never invoked on a schema mismatch.
		res.Fault = FaultValidation
		res.Error = err.Error()
		return res
	}

	output, err := invoke(ctx, capability, step.Input)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			res.Fault = FaultTimeout
		} else {
			res.Fault = FaultToolExecution
		}
		res.Error = err.Error()
		return res
	}

	res.Output = output
	return res
}

// invoke calls the capability, converting a panic into an error so a broken
// tool cannot take down the run.
func invoke(ctx context.Context, capability Capability, input map[string]any) (output any, err error) {
	defer func() {
		if r := recover(); r != nil {
			output = nil
			err = fmt.Errorf("tool panicked: %v", r)
		}
	}()
	return capability.Invoke(ctx, input)
}
