package compiler

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lhaig/yul2wasm/internal/config"
)

func TestParseTarget(t *testing.T) {
	tests := []struct {
		in   string
		want Target
		ext  string
	}{
		{"", TargetWasm, ".wasm"},
		{"wasm", TargetWasm, ".wasm"},
		{"IR", TargetIR, ".ll"},
		{"ll", TargetIR, ".ll"},
	}
	for _, tt := range tests {
		got, err := ParseTarget(tt.in)
		if err != nil || got != tt.want || got.Extension() != tt.ext {
			t.Errorf("ParseTarget(%q) = %v, %v", tt.in, got, err)
		}
	}
	if _, err := ParseTarget("rust"); err == nil {
		t.Error("expected error for unknown target")
	}
}

func TestEmitIR(t *testing.T) {
	dir := t.TempDir()
	c, _, _ := newTestCompiler(config.Test("test_add"))
	paths, err := c.Emit(context.Background(), testAdd, "t.yul", TargetIR, filepath.Join(dir, "out", "test_add.wasm"))
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(paths) != 1 || filepath.Base(paths[0]) != "test_add.ll" {
		t.Fatalf("paths = %v", paths)
	}
	content, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), "define void @call()") {
		t.Errorf("IR lacks call entry:\n%s", content)
	}
}

func TestEmitWasm(t *testing.T) {
	dir := t.TempDir()
	c, _, _ := newTestCompiler(config.Test("test_add"))
	out := filepath.Join(dir, "test_add.wasm")
	paths, err := c.Emit(context.Background(), testAdd, "t.yul", TargetWasm, out)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("paths = %v", paths)
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing output %s", p)
		}
	}
}

func TestIRMatchesLoweredModule(t *testing.T) {
	root, diags := Frontend(testAdd)
	if diags.HasErrors() {
		t.Fatal(diags.Format("t.yul"))
	}
	opts := config.Test("test_add")
	text, err := IR(context.Background(), root, opts)
	if err != nil {
		t.Fatalf("IR: %v", err)
	}
	mod, err := Lower(root, opts)
	if err != nil {
		t.Fatal(err)
	}
	if string(text) != mod.String() {
		t.Errorf("IR output differs from the lowered module:\n%s", text)
	}
}
