package taskrun

import (
	"fmt"
	"sort"
	"strings"
)

// ParamSpec declares the expected type and purpose of one input parameter.
// Types follow JSON schema primitives: string, integer, number, boolean,
// array, object.
type ParamSpec struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// InputSchema declares a tool's input contract. Validation is strict:
// required parameters must be present, every parameter must be declared,
// and values must match their declared type.
type InputSchema struct {
	Properties map[string]ParamSpec `json:"properties"`
	Required   []string             `json:"required,omitempty"`
}

// Validate checks input against the schema. The returned error describes
// every violation found, not just the first.
func (s InputSchema) Validate(input map[string]any) error {
	var problems []string

	for _, name := range s.Required {
		if _, ok := input[name]; !ok {
			problems = append(problems, fmt.Sprintf("missing required parameter %q", name))
		}
	}

	names := make([]string, 0, len(input))
	for name := range input {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		spec, ok := s.Properties[name]
		if !ok {
			problems = append(problems, fmt.Sprintf("unexpected parameter %q", name))
			continue
		}
		if err := checkType(input[name], spec.Type); err != nil {
			problems = append(problems, fmt.Sprintf("parameter %q: %v", name, err))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("input does not match schema: %s", strings.Join(problems, "; "))
	}
	return nil
}

// JSONSchema renders the schema as a JSON-schema-shaped map, the format
// reasoning backends expect in tool catalogs.
func (s InputSchema) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.Properties))
	for name, spec := range s.Properties {
		p := map[string]any{"type": spec.Type}
		if spec.Description != "" {
			p["description"] = spec.Description
		}
		props[name] = p
	}
	out := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(s.Required) > 0 {
		req := make([]string, len(s.Required))
		copy(req, s.Required)
		sort.Strings(req)
		out["required"] = req
	}
	return out
}

// checkType validates a decoded JSON value against a schema primitive.
// Numbers arrive as float64 after JSON decoding, so integer accepts any
// float64 without a fractional part.
func checkType(v any, want string) error {
	switch want {
	case "string":
		if _, ok := v.(string); !ok {
			return fmt.Errorf("expected string, got %T", v)
		}
	case "integer":
		switch n := v.(type) {
		case int:
		case int64:
		case float64:
			if n != float64(int64(n)) {
				return fmt.Errorf("expected integer, got fractional number %v", n)
			}
		default:
			return fmt.Errorf("expected integer, got %T", v)
		}
	case "number":
		switch v.(type) {
		case int, int64, float64:
		default:
			return fmt.Errorf("expected number, got %T", v)
		}
	case "boolean":
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", v)
		}
	case "array":
		if _, ok := v.([]any); !ok {
			return fmt.Errorf("expected array, got %T", v)
		}
	case "object":
		if _, ok := v.(map[string]any); !ok {
			return fmt.Errorf("expected object, got %T", v)
		}
	default:
		return fmt.Errorf("unknown schema type %q", want)
	}
	return nil
}
