package backend

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lhaig/yul2wasm/internal/config"
	"github.com/lhaig/yul2wasm/internal/ir"
	"github.com/lhaig/yul2wasm/internal/logging"
	"github.com/lhaig/yul2wasm/internal/stdlib"
	"github.com/lhaig/yul2wasm/internal/toolchain"
)

// LLC links the module with the runtime bitcode using llvm-link and
// compiles the result to a wasm32 object with llc.
type LLC struct {
	Tools    config.Tools
	OptLevel config.OptLevel
	Runner   toolchain.Runner
	Logger   *zap.Logger
}

// NewLLC returns an LLC backend configured from opts
func NewLLC(opts config.Options, runner toolchain.Runner, logger *zap.Logger) *LLC {
	logger = logging.OrNop(logger)
	if runner == nil {
		runner = toolchain.NewExecRunner(logger)
	}
	return &LLC{
		Tools:    opts.Tools,
		OptLevel: opts.EffectiveOptLevel(),
		Runner:   runner,
		Logger:   logger,
	}
}

// Name returns the backend name
func (b *LLC) Name() string {
	return "llc"
}

// Generate writes mod to a scratch directory and returns the object
// file llc produces.
func (b *LLC) Generate(ctx context.Context, mod *ir.Module, inputs stdlib.Inputs) ([]byte, error) {
	scratch, err := toolchain.NewScratch("yul2wasm-llc")
	if err != nil {
		return nil, err
	}
	defer scratch.Close()

	src, err := scratch.Write(mod.Name+".ll", []byte(mod.String()))
	if err != nil {
		return nil, err
	}
	linked := scratch.Path(mod.Name + ".linked.bc")
	obj := scratch.Path(mod.Name + ".o")

	linkArgs := append([]string{"-o", linked, src}, inputs.Files...)
	if _, err := b.Runner.Run(ctx, b.Tools.LLVMLink, linkArgs...); err != nil {
		return nil, fmt.Errorf("linking runtime into %s: %w", mod.Name, err)
	}

	llcArgs := []string{
		b.OptLevel.Flag(),
		"-mtriple=" + ir.DefaultTriple,
		"-filetype=obj",
		linked,
		"-o", obj,
	}
	if _, err := b.Runner.Run(ctx, b.Tools.LLC, llcArgs...); err != nil {
		return nil, fmt.Errorf("compiling %s: %w", mod.Name, err)
	}

	data, err := scratch.Read(mod.Name + ".o")
	if err != nil {
		return nil, err
	}
	b.Logger.Debug("generated object",
		zap.String("module", mod.Name),
		zap.Int("bytes", len(data)))
	return data, nil
}
