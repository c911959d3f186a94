package compiler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lhaig/yul2wasm/internal/ast"
	"github.com/lhaig/yul2wasm/internal/backend"
	"github.com/lhaig/yul2wasm/internal/config"
	"github.com/lhaig/yul2wasm/internal/stdlib"
)

// Target selects what Emit writes
type Target int

const (
	// TargetWasm writes the linked module and its packaged forms
	TargetWasm Target = iota
	// TargetIR writes textual LLVM IR of the main contract
	TargetIR
)

// ParseTarget parses wasm or ir
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(s) {
	case "wasm", "":
		return TargetWasm, nil
	case "ir", "ll":
		return TargetIR, nil
	}
	return TargetWasm, fmt.Errorf("unknown target: %s", s)
}

func (t Target) String() string {
	if t == TargetIR {
		return "ir"
	}
	return "wasm"
}

// Extension returns the file extension of the target's main output
func (t Target) Extension() string {
	if t == TargetIR {
		return ".ll"
	}
	return ".wasm"
}

// Emit compiles source to target and writes the outputs next to out.
// It returns the paths written.
func (c *Compiler) Emit(ctx context.Context, source, file string, target Target, out string) ([]string, error) {
	root, diags := Frontend(source)
	if err := diags.Err(file); err != nil {
		return nil, err
	}

	if target == TargetIR {
		text, err := IR(ctx, root, c.Opts)
		if err != nil {
			return nil, err
		}
		path := strings.TrimSuffix(out, filepath.Ext(out)) + target.Extension()
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create output dir: %w", err)
			}
		}
		if err := os.WriteFile(path, text, 0644); err != nil {
			return nil, fmt.Errorf("failed to write output file: %w", err)
		}
		return []string{path}, nil
	}

	art, err := c.CompileObject(ctx, root)
	if err != nil {
		return nil, err
	}
	if err := art.WriteArtifacts(out); err != nil {
		return nil, err
	}
	wasm, cbin, hex := ArtifactPaths(out)
	return []string{wasm, cbin, hex}, nil
}

// IR renders the main contract of root as textual LLVM IR, with
// placeholder blobs for embedded objects.
func IR(ctx context.Context, root *ast.Object, opts config.Options) ([]byte, error) {
	mod, err := Lower(root, opts)
	if err != nil {
		return nil, err
	}
	return backend.Text{}.Generate(ctx, mod, stdlib.Inputs{})
}
