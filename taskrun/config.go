package taskrun

import "time"

// Config bounds a run. Both budgets are hard limits: the loop cannot run
// unboundedly unless an operator supplies effectively infinite values.
type Config struct {
	// MaxPlanningCycles caps the total number of Planner calls in a run,
	// confirmation and replanning cycles included.
	MaxPlanningCycles int `json:"max_planning_cycles"`
	// MaxStepRetries is the number of extra attempts a failing step gets
	// beyond its first dispatch before the orchestrator forces a replan.
	MaxStepRetries int `json:"max_step_retries"`
	// StepTimeout bounds a single tool invocation. Expiry is recorded as a
	// failure StepResult with a timeout fault.
	StepTimeout time.Duration `json:"step_timeout"`
	// PlanningTimeout bounds a single Planner call. Expiry is fatal to the
	// run, like any planning failure.
	PlanningTimeout time.Duration `json:"planning_timeout"`
}

// DefaultConfig returns the default run configuration.
func DefaultConfig() Config {
	return Config{
		MaxPlanningCycles: 10,
		MaxStepRetries:    2,
		StepTimeout:       60 * time.Second,
		PlanningTimeout:   120 * time.Second,
	}
}

// Validate reports malformed configuration.
func (c Config) Validate() error {
	if c.MaxPlanningCycles < 1 {
		return &ConfigError{Message: "MaxPlanningCycles must be at least 1"}
	}
	if c.MaxStepRetries < 0 {
		return &ConfigError{Message: "MaxStepRetries must not be negative"}
	}
	if c.StepTimeout <= 0 {
		return &ConfigError{Message: "StepTimeout must be positive"}
	}
	if c.PlanningTimeout <= 0 {
		return &ConfigError{Message: "PlanningTimeout must be positive"}
	}
	return nil
}
