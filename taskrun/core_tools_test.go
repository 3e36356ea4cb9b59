package taskrun

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

func builtinRegistry(t *testing.T) (*Registry, *LocalEnvironment) {
	t.Helper()
	env := NewLocalEnvironment(t.TempDir())
	reg := NewRegistry()
	if err := RegisterBuiltinTools(reg, env); err != nil {
		t.Fatalf("RegisterBuiltinTools failed: %v", err)
	}
	return reg, env
}

func invokeTool(t *testing.T, reg *Registry, name string, input map[string]any) any {
	t.Helper()
	capability, info, err := reg.Resolve(name)
	if err != nil {
		t.Fatalf("Resolve(%q) failed: %v", name, err)
	}
	if err := info.Schema.Validate(input); err != nil {
		t.Fatalf("input rejected by %q schema: %v", name, err)
	}
	out, err := capability.Invoke(context.Background(), input)
	if err != nil {
		t.Fatalf("%q failed: %v", name, err)
	}
	return out
}

func TestRegisterBuiltinTools(t *testing.T) {
	reg, _ := builtinRegistry(t)
	want := []string{
		"calculate", "html_to_text", "http_request", "list_files",
		"parse_csv", "parse_json", "read_file", "read_pdf",
		"run_command", "write_file",
	}
	if got := reg.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names = %v, want %v", got, want)
	}
}

func TestFileTools(t *testing.T) {
	reg, _ := builtinRegistry(t)

	invokeTool(t, reg, "write_file", map[string]any{
		"path":    "notes/hello.txt",
		"content": "hello world",
	})
	out := invokeTool(t, reg, "read_file", map[string]any{"path": "notes/hello.txt"})
	if out != "hello world" {
		t.Errorf("read_file = %v, want hello world", out)
	}

	listing := invokeTool(t, reg, "list_files", map[string]any{"directory": "notes"}).(map[string]any)
	entries := listing["entries"].([]DirEntry)
	if len(entries) != 1 || entries[0].Name != "hello.txt" || entries[0].IsDir {
		t.Errorf("entries = %+v", entries)
	}
}

func TestReadFileMissing(t *testing.T) {
	reg, _ := builtinRegistry(t)
	capability, _, err := reg.Resolve("read_file")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := capability.Invoke(context.Background(), map[string]any{"path": "no/such/file"}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestRunCommandAllowList(t *testing.T) {
	reg, _ := builtinRegistry(t)

	out := invokeTool(t, reg, "run_command", map[string]any{"command": "echo hello"})
	if strings.TrimSpace(out.(string)) != "hello" {
		t.Errorf("echo output = %q", out)
	}

	capability, _, err := reg.Resolve("run_command")
	if err != nil {
		t.Fatal(err)
	}
	for _, cmd := range []string{"rm -rf /", "curl http://x", ""} {
		if _, err := capability.Invoke(context.Background(), map[string]any{"command": cmd}); err == nil {
			t.Errorf("command %q was not rejected", cmd)
		}
	}
}

func TestHTTPRequestTool(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Test") != "yes" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	reg, _ := builtinRegistry(t)
	out := invokeTool(t, reg, "http_request", map[string]any{
		"url":     srv.URL,
		"headers": map[string]any{"X-Test": "yes"},
	}).(map[string]any)
	if out["status"] != http.StatusOK {
		t.Errorf("status = %v, want 200", out["status"])
	}
	if out["body"] != "payload" {
		t.Errorf("body = %q, want payload", out["body"])
	}
	if out["truncated"] != false {
		t.Errorf("truncated = %v, want false", out["truncated"])
	}
}

func TestHTTPRequestBodyCap(t *testing.T) {
	bodies := map[string][]byte{
		"/exact": bytes.Repeat([]byte("a"), maxHTTPBodyBytes),
		"/over":  bytes.Repeat([]byte("b"), maxHTTPBodyBytes+512),
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(bodies[r.URL.Path])
	}))
	defer srv.Close()

	reg, _ := builtinRegistry(t)

	exact := invokeTool(t, reg, "http_request", map[string]any{"url": srv.URL + "/exact"}).(map[string]any)
	if exact["truncated"] != false {
		t.Error("body of exactly the cap reported as truncated")
	}
	if got := len(exact["body"].(string)); got != maxHTTPBodyBytes {
		t.Errorf("exact body length = %d, want %d", got, maxHTTPBodyBytes)
	}

	over := invokeTool(t, reg, "http_request", map[string]any{"url": srv.URL + "/over"}).(map[string]any)
	if over["truncated"] != true {
		t.Error("oversized body not reported as truncated")
	}
	if got := len(over["body"].(string)); got != maxHTTPBodyBytes {
		t.Errorf("truncated body length = %d, want %d", got, maxHTTPBodyBytes)
	}
}

func TestHTMLToText(t *testing.T) {
	reg, _ := builtinRegistry(t)
	out := invokeTool(t, reg, "html_to_text", map[string]any{
		"html": `<html><head><style>p{color:red}</style><script>alert(1)</script></head>
<body><h1>Title</h1><p>First   paragraph.</p><p>Second.</p></body></html>`,
	})
	text := out.(string)
	if strings.Contains(text, "alert") || strings.Contains(text, "color:red") {
		t.Errorf("script/style leaked into text: %q", text)
	}
	for _, want := range []string{"Title", "First paragraph.", "Second."} {
		if !strings.Contains(text, want) {
			t.Errorf("text %q missing %q", text, want)
		}
	}
}

func TestParseCSVTool(t *testing.T) {
	reg, _ := builtinRegistry(t)

	rows := invokeTool(t, reg, "parse_csv", map[string]any{
		"csv": "name,age\nalice,30\nbob,41\n",
	}).([]map[string]string)
	want := []map[string]string{
		{"name": "alice", "age": "30"},
		{"name": "bob", "age": "41"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("rows = %v, want %v", rows, want)
	}

	rows = invokeTool(t, reg, "parse_csv", map[string]any{
		"csv":        "a;b\n1;2\n",
		"delimiter":  ";",
		"has_header": false,
	}).([]map[string]string)
	if len(rows) != 2 || rows[1]["c1"] != "1" || rows[1]["c2"] != "2" {
		t.Errorf("headerless rows = %v", rows)
	}

	rows = invokeTool(t, reg, "parse_csv", map[string]any{"csv": "  "}).([]map[string]string)
	if len(rows) != 0 {
		t.Errorf("blank input produced %v", rows)
	}
}

func TestParseCSVDuplicateHeaders(t *testing.T) {
	reg, _ := builtinRegistry(t)
	rows := invokeTool(t, reg, "parse_csv", map[string]any{
		"csv": "name,name,name\na,b,c\n",
	}).([]map[string]string)
	want := []map[string]string{
		{"name": "a", "name_2": "b", "name_3": "c"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("rows = %v, want %v", rows, want)
	}
}

func TestParseJSONTool(t *testing.T) {
	reg, _ := builtinRegistry(t)
	out := invokeTool(t, reg, "parse_json", map[string]any{
		"text": `{"items": [1, 2], "ok": true}`,
	}).(map[string]any)
	if out["ok"] != true {
		t.Errorf("parsed = %v", out)
	}

	capability, _, err := reg.Resolve("parse_json")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := capability.Invoke(context.Background(), map[string]any{"text": "{broken"}); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestCalculateTool(t *testing.T) {
	reg, _ := builtinRegistry(t)
	out := invokeTool(t, reg, "calculate", map[string]any{"expression": "(2 + 3) * 4"}).(map[string]any)
	if out["result"] != 20.0 {
		t.Errorf("result = %v, want 20", out["result"])
	}

	capability, _, err := reg.Resolve("calculate")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := capability.Invoke(context.Background(), map[string]any{"expression": "1 / 0"}); err == nil {
		t.Error("expected division-by-zero error")
	}
}

func TestReadPDFMissingFile(t *testing.T) {
	reg, _ := builtinRegistry(t)
	capability, _, err := reg.Resolve("read_pdf")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := capability.Invoke(context.Background(), map[string]any{"path": "missing.pdf"}); err == nil {
		t.Error("expected error for missing PDF")
	}
}
