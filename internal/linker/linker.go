// Package linker turns a wasm object file into a deployable module:
// wasm-ld, the stack pointer patch, then the optional post-link
// optimizers.
package linker

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/lhaig/yul2wasm/internal/config"
	"github.com/lhaig/yul2wasm/internal/logging"
	"github.com/lhaig/yul2wasm/internal/toolchain"
	"github.com/lhaig/yul2wasm/internal/wasm"
)

// ClangRTLib is the compiler-rt builtins archive linked into every module
const ClangRTLib = "clang_rt.builtins-wasm32"

// Linker drives wasm-ld and the post-link tools
type Linker struct {
	Opts   config.Options
	Runner toolchain.Runner
	Logger *zap.Logger
}

// New returns a linker for opts. A nil runner runs real subprocesses.
func New(opts config.Options, runner toolchain.Runner, logger *zap.Logger) *Linker {
	logger = logging.OrNop(logger)
	if runner == nil {
		runner = toolchain.NewExecRunner(logger)
	}
	return &Linker{Opts: opts, Runner: runner, Logger: logger}
}

// Args returns the wasm-ld command line. An empty export list exports
// everything.
func (l *Linker) Args(object, output string, exports []string, hasSubContract bool) []string {
	o := l.Opts
	args := []string{
		o.EffectiveOptLevel().Flag(),
		"--allow-undefined",
		"--gc-sections",
		"--global-base=0",
		"--stack-first",
		"-l" + ClangRTLib,
		"-L" + o.ClangRTDir,
		"--no-entry",
	}
	if stack := o.StackSize(hasSubContract); stack != 0x10000 {
		args = append(args, "-z", "stack-size="+strconv.FormatUint(uint64(stack), 10))
	}
	if len(exports) == 0 {
		args = append(args, "--export-all")
	} else {
		args = append(args, "--export", "__wasm_call_ctors", "--export", "_start")
		for _, e := range exports {
			args = append(args, "--export", e)
		}
	}
	if !o.Debug && !o.DisableAllOptimizers {
		args = append(args, "-O", "2")
	}
	args = append(args, object)
	if o.MinifyWasmSize {
		args = append(args, "--strip-all")
	}
	return append(args, "-o", output)
}

// Link links object into a wasm module exporting exports. Linker
// failures are fatal; optimizer failures keep the previous bytes.
func (l *Linker) Link(ctx context.Context, object []byte, name string, exports []string, hasSubContract bool) ([]byte, error) {
	scratch, err := toolchain.NewScratch("yul2wasm-link")
	if err != nil {
		return nil, err
	}
	defer scratch.Close()

	objPath, err := scratch.Write(name+".o", object)
	if err != nil {
		return nil, err
	}
	args := l.Args(objPath, scratch.Path(name+".wasm"), exports, hasSubContract)
	if _, err := l.Runner.Run(ctx, l.Opts.Tools.WasmLd, args...); err != nil {
		return nil, fmt.Errorf("linking %s: %w", name, err)
	}
	linked, err := scratch.Read(name + ".wasm")
	if err != nil {
		return nil, err
	}

	stack := l.Opts.StackSize(hasSubContract)
	linked, err = wasm.SetFirstGlobal(linked, int32(stack))
	if err != nil {
		return nil, fmt.Errorf("setting stack pointer of %s: %w", name, err)
	}
	for _, e := range exports {
		ok, err := wasm.ExportsFunc(linked, e)
		if err != nil {
			return nil, fmt.Errorf("reading exports of %s: %w", name, err)
		}
		if !ok {
			return nil, fmt.Errorf("linked module %s does not export %s", name, e)
		}
	}
	l.Logger.Debug("linked module",
		zap.String("module", name),
		zap.Uint32("stack", stack),
		zap.Int("bytes", len(linked)))

	if !l.Opts.NoBinaryenOptimize && !l.Opts.DisableAllOptimizers {
		linked = l.optional(ctx, scratch, l.Opts.Tools.WasmOpt, linked, "-O2", "-g")
	}
	if !l.Opts.DisableAllOptimizers {
		linked = l.optional(ctx, scratch, l.Opts.Tools.Wizer, linked, "--init-func", "_start")
	}
	return linked, nil
}

// optional runs a post-link tool over in. Any failure, including a
// missing tool or output that is not wasm, returns in unchanged.
func (l *Linker) optional(ctx context.Context, scratch *toolchain.Scratch, tool string, in []byte, flags ...string) []byte {
	base := filepath.Base(tool)
	inName, outName := base+".in.wasm", base+".out.wasm"
	inPath, err := scratch.Write(inName, in)
	if err != nil {
		l.Logger.Warn("skipping optimizer", zap.String("tool", tool), zap.Error(err))
		return in
	}
	args := append([]string{"-o", scratch.Path(outName)}, flags...)
	args = append(args, inPath)
	if _, err := l.Runner.Run(ctx, tool, args...); err != nil {
		l.Logger.Warn("optimizer failed, keeping previous module", zap.String("tool", tool), zap.Error(err))
		return in
	}
	out, err := scratch.Read(outName)
	if err != nil {
		l.Logger.Warn("optimizer produced no output", zap.String("tool", tool), zap.Error(err))
		return in
	}
	if _, err := wasm.Sections(out); err != nil {
		l.Logger.Warn("optimizer produced an invalid module", zap.String("tool", tool), zap.Error(err))
		return in
	}
	l.Logger.Debug("optimized module",
		zap.String("tool", tool),
		zap.Int("before", len(in)),
		zap.Int("after", len(out)))
	return out
}
