package taskrun

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Capability is a callable tool. Input has already been validated against
// the tool's declared schema when Invoke is called by the executor.
// A capability performs its side effect at most once per invocation and
// never sees run state, only its own input.
type Capability interface {
	Invoke(ctx context.Context, input map[string]any) (output any, err error)
}

// CapabilityFunc adapts a function to the Capability interface.
type CapabilityFunc func(ctx context.Context, input map[string]any) (any, error)

func (f CapabilityFunc) Invoke(ctx context.Context, input map[string]any) (any, error) {
	return f(ctx, input)
}

// ToolInfo is the serializable description of a registered tool, used by
// the planner to constrain plan generation to executable actions.
type ToolInfo struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Schema      InputSchema `json:"schema"`
}

// Registry maps tool names to capabilities. It is configuration: establish
// it before any run begins and treat it as read-only during execution.
// Lookup is by exact name match, never implicit fallback. Concurrent
// readers are safe; multiple runs may share one Registry.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]registeredTool
}

type registeredTool struct {
	info       ToolInfo
	capability Capability
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]registeredTool)}
}

// Register adds a tool. Registering a name twice fails with
// ErrDuplicateTool.
func (r *Registry) Register(info ToolInfo, capability Capability) error {
	if info.Name == "" {
		return fmt.Errorf("register: tool name must not be empty")
	}
	if capability == nil {
		return fmt.Errorf("register %q: capability must not be nil", info.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[info.Name]; exists {
		return fmt.Errorf("register %q: %w", info.Name, ErrDuplicateTool)
	}
	r.tools[info.Name] = registeredTool{info: info, capability: capability}
	return nil
}

// Resolve returns the capability and info for name, or ErrUnknownTool.
func (r *Registry) Resolve(name string) (Capability, ToolInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return nil, ToolInfo{}, fmt.Errorf("resolve %q: %w", name, ErrUnknownTool)
	}
	return t.capability, t.info, nil
}

// List returns the registered tools sorted by name.
func (r *Registry) List() []ToolInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ToolInfo, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the sorted names of all registered tools.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
