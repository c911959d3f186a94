package backend

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/lhaig/yul2wasm/internal/config"
	"github.com/lhaig/yul2wasm/internal/ir"
	"github.com/lhaig/yul2wasm/internal/stdlib"
	"github.com/lhaig/yul2wasm/internal/toolchain"
)

// fakeRunner records invocations and writes fixed contents to the -o
// argument of each one.
type fakeRunner struct {
	calls  [][]string
	output map[string][]byte
	fail   string
}

func (r *fakeRunner) Run(_ context.Context, tool string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, append([]string{tool}, args...))
	if tool == r.fail {
		return nil, &toolchain.ToolError{Tool: tool, Args: args, Stderr: "boom", Err: errors.New("exit status 1")}
	}
	for i, a := range args {
		if a == "-o" && i+1 < len(args) {
			if err := os.WriteFile(args[i+1], r.output[tool], 0644); err != nil {
				return nil, err
			}
		}
	}
	return nil, nil
}

func testModule() *ir.Module {
	mod := ir.NewModule("token")
	fn := mod.NewFunction("deploy", ir.Void)
	ir.NewBuilder(fn).Ret(nil)
	return mod
}

func TestLLCGenerate(t *testing.T) {
	r := &fakeRunner{output: map[string][]byte{
		"llvm-link": []byte("BC"),
		"llc":       []byte("\x00asm object"),
	}}
	opts := config.Default()
	opts.OptLevel = config.OptAggressive
	b := NewLLC(opts, r, nil)

	inputs := stdlib.Inputs{Files: []string{"/lib/debug/stdlib.bc", "/lib/debug/chain.bc"}}
	obj, err := b.Generate(context.Background(), testModule(), inputs)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if string(obj) != "\x00asm object" {
		t.Errorf("object = %q", obj)
	}
	if len(r.calls) != 2 {
		t.Fatalf("expected llvm-link and llc, got %v", r.calls)
	}

	link := strings.Join(r.calls[0], " ")
	if r.calls[0][0] != "llvm-link" || !strings.Contains(link, "token.ll /lib/debug/stdlib.bc /lib/debug/chain.bc") {
		t.Errorf("llvm-link invocation = %s", link)
	}
	llc := strings.Join(r.calls[1], " ")
	for _, want := range []string{"-O3", "-mtriple=wasm32-unknown-unknown", "-filetype=obj", "token.linked.bc"} {
		if !strings.Contains(llc, want) {
			t.Errorf("llc invocation %q missing %q", llc, want)
		}
	}
}

func TestLLCDisabledOptimizersUseO0(t *testing.T) {
	r := &fakeRunner{output: map[string][]byte{"llc": []byte("obj")}}
	opts := config.Default()
	opts.OptLevel = config.OptAggressive
	opts.DisableAllOptimizers = true
	if _, err := NewLLC(opts, r, nil).Generate(context.Background(), testModule(), stdlib.Inputs{}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	llc := strings.Join(r.calls[1], " ")
	if !strings.Contains(llc, "-O0") || strings.Contains(llc, "-O3") {
		t.Errorf("llc invocation = %s", llc)
	}
}

func TestLLCToolFailure(t *testing.T) {
	r := &fakeRunner{fail: "llc", output: map[string][]byte{}}
	b := NewLLC(config.Default(), r, nil)
	_, err := b.Generate(context.Background(), testModule(), stdlib.Inputs{})
	var te *toolchain.ToolError
	if !errors.As(err, &te) || te.Tool != "llc" {
		t.Fatalf("expected llc ToolError, got %v", err)
	}
	if !strings.Contains(err.Error(), "compiling token") {
		t.Errorf("error lacks context: %v", err)
	}
}

func TestTextBackend(t *testing.T) {
	var b Backend = Text{}
	out, err := b.Generate(context.Background(), testModule(), stdlib.Inputs{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "define void @deploy()") {
		t.Errorf("text output:\n%s", out)
	}
	if b.Name() != "text" || NewLLC(config.Default(), nil, nil).Name() != "llc" {
		t.Error("unexpected backend names")
	}
}
