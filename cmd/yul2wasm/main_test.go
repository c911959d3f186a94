package main

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lhaig/yul2wasm/internal/config"
)

func writeInput(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.yul")
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunCheck(t *testing.T) {
	var stdout, stderr bytes.Buffer
	in := writeInput(t, `{ sstore(0, 1) }`)
	if code := run([]string{"check", "--input", in}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "No errors found.") {
		t.Errorf("stdout = %q", stdout.String())
	}

	stdout.Reset()
	stderr.Reset()
	in = writeInput(t, `{ sstore(0, x) }`)
	if code := run([]string{"check", "--input", in}, &stdout, &stderr); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "in.yul") {
		t.Errorf("diagnostics should name the input: %q", stderr.String())
	}
}

func TestRunIR(t *testing.T) {
	var stdout, stderr bytes.Buffer
	in := writeInput(t, `object "C" { code { } object "C_deployed" { code { stop() } } }`)
	if code := run([]string{"ir", "--input", in, "--debug"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}
	for _, want := range []string{"define void @deploy()", "define void @call()"} {
		if !strings.Contains(stdout.String(), want) {
			t.Errorf("IR missing %q", want)
		}
	}
}

func TestRunEmitIR(t *testing.T) {
	var stdout, stderr bytes.Buffer
	in := writeInput(t, `{ stop() }`)
	out := filepath.Join(t.TempDir(), "out", "c.wasm")
	if code := run([]string{"--input", in, "--output", out, "--emit-ir"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}
	if _, err := os.Stat(strings.TrimSuffix(out, ".wasm") + ".ll"); err != nil {
		t.Errorf("IR file not written: %v", err)
	}
}

func TestRunUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no args", nil, "Usage"},
		{"unknown command", []string{"frobnicate"}, "Unknown command"},
		{"no input", []string{"build", "--output", "x.wasm"}, "no input file"},
		{"missing file", []string{"check", "--input", "/no/such.yul"}, "Error reading file"},
		{"bad symbol", []string{"build", "--symbol", "nope"}, "invalid symbol"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run(tt.args, &stdout, &stderr); code != 1 {
				t.Errorf("exit %d, want 1", code)
			}
			if !strings.Contains(stderr.String(), tt.want) {
				t.Errorf("stderr %q lacks %q", stderr.String(), tt.want)
			}
		})
	}

	var stdout, stderr bytes.Buffer
	if code := run([]string{"help"}, &stdout, &stderr); code != 0 || !strings.Contains(stdout.String(), "Usage") {
		t.Errorf("help: exit %d, stdout %q", code, stdout.String())
	}
}

func TestOptionsPrecedence(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "yul2wasm.toml")
	content := `
[build]
opt_level = "less"
minify_wasm_size = true

[symbols]
"lib.sol:L" = "0x01"
`
	if err := os.WriteFile(cfg, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	var f buildFlags
	fs := newFlagSet("build", &bytes.Buffer{}, &f)
	args := []string{"--config", cfg, "--opt-level", "aggressive", "--symbol", "lib.sol:M=0x02", "--output", "out/c.wasm"}
	if err := fs.Parse(args); err != nil {
		t.Fatal(err)
	}
	opts, err := f.options(fs)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.OptLevel != config.OptAggressive {
		t.Errorf("flag should override file: opt level %v", opts.OptLevel)
	}
	if !opts.MinifyWasmSize {
		t.Error("file setting lost")
	}
	if opts.Symbols["lib.sol:L"] != "0x01" || opts.Symbols["lib.sol:M"] != "0x02" {
		t.Errorf("symbols = %v", opts.Symbols)
	}
	if opts.OutputDir != "out" {
		t.Errorf("output dir = %q", opts.OutputDir)
	}

	f = buildFlags{}
	fs = newFlagSet("build", &bytes.Buffer{}, &f)
	if err := fs.Parse([]string{"--config", cfg, "--debug"}); err != nil {
		t.Fatal(err)
	}
	opts, err = f.options(fs)
	if err != nil {
		t.Fatal(err)
	}
	if !opts.Debug || !opts.NoInline || opts.OptLevel != config.OptNone {
		t.Errorf("--debug should imply no-inline and O0: %+v", opts)
	}

	f = buildFlags{}
	fs = newFlagSet("build", &bytes.Buffer{}, &f)
	if err := fs.Parse([]string{"--enable-all-optimizers", "--disable-all-optimizers"}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.options(fs); err == nil {
		t.Error("expected conflicting optimizer flags to fail")
	}
}

var _ flag.Value = (*symbolFlag)(nil)
