package taskrun

import (
	"context"
	"errors"
	"testing"
)

func echoCapability() Capability {
	return CapabilityFunc(func(ctx context.Context, input map[string]any) (any, error) {
		return input["text"], nil
	})
}

func TestRegistryRegisterAndResolve(t *testing.T) {
	reg := NewRegistry()
	info := ToolInfo{
		Name:        "echo",
		Description: "Echo the input back.",
		Schema: InputSchema{
			Properties: map[string]ParamSpec{"text": {Type: "string"}},
			Required:   []string{"text"},
		},
	}
	if err := reg.Register(info, echoCapability()); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	capability, got, err := reg.Resolve("echo")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got.Name != "echo" || got.Description != info.Description {
		t.Errorf("Resolve returned wrong info: %+v", got)
	}
	out, err := capability.Invoke(context.Background(), map[string]any{"text": "hi"})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if out != "hi" {
		t.Errorf("Invoke returned %v, want hi", out)
	}
}

func TestRegistryDuplicateName(t *testing.T) {
	reg := NewRegistry()
	info := ToolInfo{Name: "echo"}
	if err := reg.Register(info, echoCapability()); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	err := reg.Register(info, echoCapability())
	if !errors.Is(err, ErrDuplicateTool) {
		t.Errorf("second Register returned %v, want ErrDuplicateTool", err)
	}
	if reg.Count() != 1 {
		t.Errorf("Count = %d after rejected duplicate, want 1", reg.Count())
	}
}

func TestRegistryRejectsInvalidRegistrations(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(ToolInfo{Name: ""}, echoCapability()); err == nil {
		t.Error("expected error for empty tool name")
	}
	if err := reg.Register(ToolInfo{Name: "x"}, nil); err == nil {
		t.Error("expected error for nil capability")
	}
}

func TestRegistryUnknownTool(t *testing.T) {
	reg := NewRegistry()
	_, _, err := reg.Resolve("missing")
	if !errors.Is(err, ErrUnknownTool) {
		t.Errorf("Resolve returned %v, want ErrUnknownTool", err)
	}
}

func TestRegistryResolveIsRepeatable(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(ToolInfo{Name: "echo"}, echoCapability()); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, _, err := reg.Resolve("echo"); err != nil {
			t.Fatalf("Resolve #%d failed: %v", i+1, err)
		}
	}
}

func TestRegistryListSorted(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := reg.Register(ToolInfo{Name: name}, echoCapability()); err != nil {
			t.Fatal(err)
		}
	}
	list := reg.List()
	want := []string{"alpha", "mid", "zeta"}
	if len(list) != len(want) {
		t.Fatalf("List returned %d tools, want %d", len(list), len(want))
	}
	for i, info := range list {
		if info.Name != want[i] {
			t.Errorf("List[%d].Name = %q, want %q", i, info.Name, want[i])
		}
	}
	names := reg.Names()
	for i, name := range names {
		if name != want[i] {
			t.Errorf("Names[%d] = %q, want %q", i, name, want[i])
		}
	}
}
