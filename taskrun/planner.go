package taskrun

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/martinemde/agentic/reasonllm"
)

// Directive is the planner's verdict on how the run should proceed.
type Directive string

const (
	// DirectiveExecute means the response carries a plan to run.
	DirectiveExecute Directive = "execute"
	// DirectiveComplete means the goal is satisfied; no further action.
	DirectiveComplete Directive = "complete"
	// DirectiveUnreachable means the planner determined no productive plan
	// exists; the run must stop rather than loop.
	DirectiveUnreachable Directive = "unreachable"
)

// PlanRequest carries everything a planner may consult: the immutable goal,
// the run history so far (empty on the first call), and the tool catalog.
type PlanRequest struct {
	Goal    string
	History RunHistory
	Tools   []ToolInfo
}

// PlanResponse is either an ordered plan (DirectiveExecute) or a terminal
// signal, distinguishable from a plan containing a single no-op step.
type PlanResponse struct {
	Directive Directive
	Reason    string
	Steps     []*Step
}

// Planner produces plans. Implementations must treat prior StepResults as
// ground truth and must not mutate the request. A returned *PlanningError
// is fatal to the run; the orchestrator does not retry it.
type Planner interface {
	Plan(ctx context.Context, req PlanRequest) (*PlanResponse, error)
}

// LLMPlanner builds a planning prompt from the goal, tool catalog, and
// history, and parses the reasoning backend's response into a PlanResponse.
// Malformed responses are retried up to an internal budget before the
// planner gives up with a PlanningError.
type LLMPlanner struct {
	Backend reasonllm.Backend
	// MaxAttempts is the internal budget for malformed backend output.
	// Zero means the default of 3.
	MaxAttempts int
	// OutputLimit caps the characters of any single step output embedded
	// in the prompt. Zero means the default of 2000.
	OutputLimit int
}

// NewLLMPlanner creates a planner over the given reasoning backend.
func NewLLMPlanner(backend reasonllm.Backend) *LLMPlanner {
	return &LLMPlanner{Backend: backend}
}

const plannerSystem = `You are the planning component of a tool-running agent.
You never execute anything yourself; you produce plans for an executor that
dispatches one step at a time, strictly in order.`

// Plan implements Planner.
func (p *LLMPlanner) Plan(ctx context.Context, req PlanRequest) (*PlanResponse, error) {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	prompt := p.buildPrompt(req)

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, &PlanningError{Message: "planning aborted", Cause: err}
		}

		raw, err := p.Backend.Generate(ctx, reasonllm.Request{System: plannerSystem, Prompt: prompt})
		if err != nil {
			return nil, &PlanningError{Message: "reasoning backend call failed", Cause: err}
		}

		resp, err := parsePlanResponse(raw)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.Directive == DirectiveExecute {
			resp.Steps, err = pruneRepeatedFailures(resp.Steps, req.History)
			if err != nil {
				lastErr = err
				continue
			}
		}
		return resp, nil
	}

	// A backend that only ever re-proposes failed steps has no new ideas;
	// terminate the run instead of cycling.
	if _, ok := lastErr.(*unproductivePlanError); ok {
		return &PlanResponse{Directive: DirectiveUnreachable, Reason: lastErr.Error()}, nil
	}
	return nil, &PlanningError{Message: fmt.Sprintf("no structurally valid plan after %d attempts", attempts), Cause: lastErr}
}

func (p *LLMPlanner) buildPrompt(req PlanRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Goal: %s\n\n", req.Goal)

	b.WriteString("Available tools (you MUST use only these, with inputs matching each schema):\n")
	for _, t := range req.Tools {
		schema, _ := json.Marshal(t.Schema.JSONSchema())
		fmt.Fprintf(&b, "- %s: %s\n  input schema: %s\n", t.Name, t.Description, schema)
	}
	b.WriteString("\n")

	if len(req.History) > 0 {
		limit := p.OutputLimit
		if limit <= 0 {
			limit = 2000
		}
		b.WriteString("Execution history so far (ground truth, oldest first):\n")
		for _, r := range req.History {
			input, _ := json.Marshal(r.Input)
			if r.Succeeded() {
				out := truncateMiddle(stringifyOutput(r.Output), limit)
				fmt.Fprintf(&b, "- step %d attempt %d: %s(%s) -> OK: %s\n", r.StepIndex, r.Attempt, r.Tool, input, out)
			} else {
				fmt.Fprintf(&b, "- step %d attempt %d: %s(%s) -> FAILED (%s): %s\n", r.StepIndex, r.Attempt, r.Tool, input, r.Fault, r.Error)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString(`Decide what to do next and respond with ONLY a JSON object, no prose, no code fences:
- {"status": "plan", "steps": [{"tool": "...", "input": {...}, "rationale": "..."}]} to continue with an ordered plan
- {"status": "complete", "reason": "..."} if the goal is already satisfied and no further action is needed
- {"status": "unreachable", "reason": "..."} if no available tool can make progress toward the goal

Rules:
- Every step's tool must be one of the available tools and its input must satisfy that tool's schema.
- Never repeat a step that already failed unless you materially change its input.
- Prefer short plans; the executor will ask you to replan after it runs them.`)

	return b.String()
}

// rawStep is the wire shape of one planned step.
type rawStep struct {
	Tool      string         `json:"tool"`
	Input     map[string]any `json:"input"`
	Rationale string         `json:"rationale"`
}

// rawPlan is the wire shape of a planner response.
type rawPlan struct {
	Status string    `json:"status"`
	Reason string    `json:"reason"`
	Steps  []rawStep `json:"steps"`
}

// parsePlanResponse parses backend output into a PlanResponse. It tolerates
// code fences and responses that are a bare step array instead of the
// documented object.
func parsePlanResponse(raw string) (*PlanResponse, error) {
	text := normalizeJSONText(raw)
	if text == "" {
		return nil, fmt.Errorf("empty planner response")
	}

	var plan rawPlan
	if strings.HasPrefix(text, "[") {
		if err := json.Unmarshal([]byte(text), &plan.Steps); err != nil {
			return nil, fmt.Errorf("parse step array: %w", err)
		}
		plan.Status = "plan"
	} else if err := json.Unmarshal([]byte(text), &plan); err != nil {
		return nil, fmt.Errorf("parse planner response: %w", err)
	}

	// An object with steps but no status is a plan.
	if plan.Status == "" && len(plan.Steps) > 0 {
		plan.Status = "plan"
	}

	switch plan.Status {
	case "complete":
		return &PlanResponse{Directive: DirectiveComplete, Reason: plan.Reason}, nil
	case "unreachable":
		return &PlanResponse{Directive: DirectiveUnreachable, Reason: plan.Reason}, nil
	case "plan":
		if len(plan.Steps) == 0 {
			return nil, fmt.Errorf("plan has no steps")
		}
		steps := make([]*Step, 0, len(plan.Steps))
		for i, s := range plan.Steps {
			if strings.TrimSpace(s.Tool) == "" {
				return nil, fmt.Errorf("step %d has no tool", i)
			}
			input := s.Input
			if input == nil {
				input = map[string]any{}
			}
			steps = append(steps, &Step{
				Tool:      s.Tool,
				Input:     input,
				Rationale: s.Rationale,
				Status:    StepPending,
			})
		}
		return &PlanResponse{Directive: DirectiveExecute, Steps: steps}, nil
	default:
		return nil, fmt.Errorf("unknown planner status %q", plan.Status)
	}
}

// unproductivePlanError marks a parsed plan that only repeats failures.
type unproductivePlanError struct {
	repeats int
}

func (e *unproductivePlanError) Error() string {
	return fmt.Sprintf("plan only repeats %d already-failed steps", e.repeats)
}

// pruneRepeatedFailures drops steps identical (same tool, deep-equal input)
// to ones that already failed. A plan left empty by pruning is unproductive.
func pruneRepeatedFailures(steps []*Step, history RunHistory) ([]*Step, error) {
	failed := history.Failed()
	if len(failed) == 0 {
		return steps, nil
	}
	failedKeys := make(map[string]bool, len(failed))
	for _, r := range failed {
		failedKeys[stepKey(r.Tool, r.Input)] = true
	}

	kept := steps[:0]
	for _, s := range steps {
		if !failedKeys[stepKey(s.Tool, s.Input)] {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return nil, &unproductivePlanError{repeats: len(steps)}
	}
	return kept, nil
}

// normalizeJSONText trims whitespace and strips markdown code fences like
// ```json ... ``` from backend output.
func normalizeJSONText(s string) string {
	t := strings.TrimSpace(s)
	if strings.HasPrefix(t, "```") {
		t = strings.TrimPrefix(t, "```")
		if idx := strings.IndexByte(t, '\n'); idx != -1 {
			t = t[idx+1:] // drop language hint line
		}
		if j := strings.LastIndex(t, "```"); j != -1 {
			t = t[:j]
		}
		t = strings.TrimSpace(t)
	}
	return t
}

// stringifyOutput renders a tool output for prompt embedding.
func stringifyOutput(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}
