package taskrun

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"
)

// DirEntry represents a filesystem directory entry.
type DirEntry struct {
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size,omitempty"`
}

// ExecResult holds the result of a command execution.
type ExecResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
	TimedOut bool   `json:"timed_out"`
}

// ExecutionEnvironment abstracts where the file and shell tools operate.
// Builtin tools delegate here so hosts can substitute a sandboxed
// implementation without touching tool registration.
type ExecutionEnvironment interface {
	ReadFile(path string) (string, error)
	WriteFile(path string, content string) error
	ListDirectory(path string) ([]DirEntry, error)
	ExecCommand(ctx context.Context, command string, timeoutMs int) (*ExecResult, error)

	// ResolvePath resolves a possibly relative path within the environment.
	ResolvePath(path string) string
	WorkingDirectory() string
}

// LocalEnvironment runs tools on the local machine, rooted at a working
// directory.
type LocalEnvironment struct {
	workingDir string
}

// NewLocalEnvironment creates a local environment. An empty workingDir
// means the process working directory.
func NewLocalEnvironment(workingDir string) *LocalEnvironment {
	if workingDir == "" {
		workingDir, _ = os.Getwd()
	}
	return &LocalEnvironment{workingDir: workingDir}
}

func (e *LocalEnvironment) WorkingDirectory() string {
	return e.workingDir
}

func (e *LocalEnvironment) ResolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(e.workingDir, path)
}

func (e *LocalEnvironment) ReadFile(path string) (string, error) {
	data, err := os.ReadFile(e.ResolvePath(path))
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return string(data), nil
}

func (e *LocalEnvironment) WriteFile(path string, content string) error {
	resolved := e.ResolvePath(path)
	if err := os.MkdirAll(filepath.Dir(resolved), 0755); err != nil {
		return fmt.Errorf("write file: create directory: %w", err)
	}
	return os.WriteFile(resolved, []byte(content), 0644)
}

func (e *LocalEnvironment) ListDirectory(path string) ([]DirEntry, error) {
	entries, err := os.ReadDir(e.ResolvePath(path))
	if err != nil {
		return nil, fmt.Errorf("list directory: %w", err)
	}
	result := make([]DirEntry, 0, len(entries))
	for _, entry := range entries {
		de := DirEntry{Name: entry.Name(), IsDir: entry.IsDir()}
		if info, err := entry.Info(); err == nil && !entry.IsDir() {
			de.Size = info.Size()
		}
		result = append(result, de)
	}
	return result, nil
}

func (e *LocalEnvironment) ExecCommand(ctx context.Context, command string, timeoutMs int) (*ExecResult, error) {
	if timeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
		defer cancel()
	}

	shell, shellArg := "/bin/sh", "-c"
	if runtime.GOOS == "windows" {
		shell, shellArg = "cmd.exe", "/c"
	}

	cmd := exec.CommandContext(ctx, shell, shellArg, command)
	cmd.Dir = e.workingDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := &ExecResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		TimedOut: ctx.Err() == context.DeadlineExceeded,
	}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else if result.TimedOut {
			result.ExitCode = -1
		} else {
			return nil, fmt.Errorf("exec command: %w", err)
		}
	}
	return result, nil
}
