// Package toolchain runs the external LLVM and binaryen tools the
// backend and linker delegate to.
package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ErrNotFound is returned when a tool is not installed
var ErrNotFound = errors.New("tool not found")

// ToolError reports a failed tool invocation
type ToolError struct {
	Tool   string
	Args   []string
	Stderr string
	Err    error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s failed: %v", filepath.Base(e.Tool), e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += "\n" + s
	}
	return msg
}

func (e *ToolError) Unwrap() error { return e.Err }

// Runner executes a tool and returns its standard output
type Runner interface {
	Run(ctx context.Context, tool string, args ...string) ([]byte, error)
}

// ExecRunner runs tools as subprocesses
type ExecRunner struct {
	Logger *zap.Logger
}

// NewExecRunner returns a subprocess runner logging to logger
func NewExecRunner(logger *zap.Logger) *ExecRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecRunner{Logger: logger}
}

// Run looks tool up on PATH unless it is a path and waits for it
func (r *ExecRunner) Run(ctx context.Context, tool string, args ...string) ([]byte, error) {
	path, err := Lookup(tool)
	if err != nil {
		return nil, &ToolError{Tool: tool, Args: args, Err: err}
	}

	cmd := exec.CommandContext(ctx, path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.Logger.Debug("running tool",
		zap.String("tool", path),
		zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		return nil, &ToolError{Tool: tool, Args: args, Stderr: stderr.String(), Err: err}
	}
	if stderr.Len() > 0 {
		r.Logger.Debug("tool stderr",
			zap.String("tool", filepath.Base(path)),
			zap.String("stderr", strings.TrimSpace(stderr.String())))
	}
	return stdout.Bytes(), nil
}

// Lookup resolves a tool name to an executable path
func Lookup(tool string) (string, error) {
	if tool == "" {
		return "", fmt.Errorf("empty tool name: %w", ErrNotFound)
	}
	if strings.ContainsRune(tool, filepath.Separator) {
		if _, err := os.Stat(tool); err != nil {
			return "", fmt.Errorf("%s: %w", tool, ErrNotFound)
		}
		return tool, nil
	}
	path, err := exec.LookPath(tool)
	if err != nil {
		return "", fmt.Errorf("%s: %w", tool, ErrNotFound)
	}
	return path, nil
}

// Available reports whether every tool can be found
func Available(tools ...string) bool {
	for _, t := range tools {
		if _, err := Lookup(t); err != nil {
			return false
		}
	}
	return true
}

// Scratch is a temporary working directory for one invocation
type Scratch struct {
	Dir string
}

// NewScratch creates a unique scratch directory
func NewScratch(prefix string) (*Scratch, error) {
	dir, err := os.MkdirTemp("", prefix+"-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	return &Scratch{Dir: dir}, nil
}

// Path joins name onto the scratch directory
func (s *Scratch) Path(name string) string {
	return filepath.Join(s.Dir, name)
}

// Write stores data under name and returns its path
func (s *Scratch) Write(name string, data []byte) (string, error) {
	path := s.Path(name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	return path, nil
}

// Read returns the contents of name
func (s *Scratch) Read(name string) ([]byte, error) {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// Close removes the directory and everything in it
func (s *Scratch) Close() error {
	return os.RemoveAll(s.Dir)
}
