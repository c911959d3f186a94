// Package compiler orchestrates the pipeline: parse, resolve, check,
// lower every needed object to IR, generate native code, link and
// package.
package compiler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lhaig/yul2wasm/internal/ast"
	"github.com/lhaig/yul2wasm/internal/backend"
	"github.com/lhaig/yul2wasm/internal/checker"
	"github.com/lhaig/yul2wasm/internal/codegen"
	"github.com/lhaig/yul2wasm/internal/config"
	"github.com/lhaig/yul2wasm/internal/diagnostic"
	"github.com/lhaig/yul2wasm/internal/ir"
	"github.com/lhaig/yul2wasm/internal/linker"
	"github.com/lhaig/yul2wasm/internal/logging"
	"github.com/lhaig/yul2wasm/internal/parser"
	"github.com/lhaig/yul2wasm/internal/stdlib"
)

// Frontend parses source, resolves the object tree and checks it.
// Diagnostics include warnings even when there are no errors.
func Frontend(source string) (*ast.Object, *diagnostic.Diagnostics) {
	root, diags := parser.Parse(source)
	if diags.HasErrors() {
		return nil, diags
	}
	if err := ast.Resolve(root); err != nil {
		diags.Errorf(root.Line, root.Column, "%s", err)
		return nil, diags
	}
	diags.Merge(checker.Check(root))
	if diags.HasErrors() {
		return nil, diags
	}
	return root, diags
}

// Check runs parse + check only (no codegen)
func Check(source string) *diagnostic.Diagnostics {
	_, diags := Frontend(source)
	return diags
}

// Compiler holds the stages shared by every object of one invocation
type Compiler struct {
	Opts    config.Options
	Backend backend.Backend
	Linker  *linker.Linker
	Logger  *zap.Logger

	// Inputs is the runtime bitcode; selected from Opts on first use
	// when nil.
	Inputs *stdlib.Inputs
}

// New returns a compiler running the external toolchain
func New(opts config.Options, logger *zap.Logger) *Compiler {
	logger = logging.OrNop(logger)
	return &Compiler{
		Opts:    opts,
		Backend: backend.NewLLC(opts, nil, logger),
		Linker:  linker.New(opts, nil, logger),
		Logger:  logger,
	}
}

func (c *Compiler) inputs() (stdlib.Inputs, error) {
	if c.Inputs == nil {
		in, err := stdlib.Select(c.Opts.StdlibDir, c.Opts.Debug)
		if err != nil {
			return stdlib.Inputs{}, err
		}
		c.Inputs = &in
	}
	return *c.Inputs, nil
}

// Compile builds the main contract of source. file names the input in
// diagnostics.
func (c *Compiler) Compile(ctx context.Context, source, file string) (*Artifact, error) {
	root, diags := Frontend(source)
	if err := diags.Err(file); err != nil {
		return nil, err
	}
	return c.CompileObject(ctx, root)
}

// CompileObject builds the main contract of a checked object tree,
// compiling every object it embeds first.
func (c *Compiler) CompileObject(ctx context.Context, root *ast.Object) (*Artifact, error) {
	if err := c.Opts.Validate(); err != nil {
		return nil, err
	}
	reg, err := NewRegistry(root, c.Opts.MainContract)
	if err != nil {
		return nil, err
	}
	reg.Discover()

	blobs := make(map[*ast.Object][]byte)
	var main []byte
	for _, u := range reg.Sorted() {
		wasm, err := c.compileUnit(ctx, u, blobs)
		if err != nil {
			return nil, fmt.Errorf("compiling object %q: %w", u.Object.Name, err)
		}
		blobs[u.Object] = Package(wasm)
		main = wasm
	}

	entry := reg.Entry()
	art := NewArtifact(config.ContractName(entry.Object.Name), main)
	c.Logger.Info("compiled contract",
		zap.String("contract", art.Name),
		zap.Stringer("role", entry.Role),
		zap.Int("wasm", len(art.Wasm)))
	return art, nil
}

func (c *Compiler) compileUnit(ctx context.Context, u *Unit, blobs map[*ast.Object][]byte) ([]byte, error) {
	mod, err := codegen.EmitObject(u.Object, u.Role, c.Opts, blobs)
	if err != nil {
		return nil, err
	}
	in, err := c.inputs()
	if err != nil {
		return nil, err
	}
	obj, err := c.Backend.Generate(ctx, mod, in)
	if err != nil {
		return nil, err
	}
	exports := codegen.Exports(u.Object, u.Role)
	wasm, err := c.Linker.Link(ctx, obj, mod.Name, exports, u.HasSubContract())
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("compiled object",
		zap.String("object", u.Object.Name),
		zap.Strings("exports", exports),
		zap.Int("embeds", len(u.Embeds)),
		zap.Int("wasm", len(wasm)))
	return wasm, nil
}

// Placeholder stands in for embedded modules when only IR is wanted
var Placeholder = Package(nil)

// Lower returns the IR of the main contract without running any tool.
// Embedded objects are represented by an empty packaged module.
func Lower(root *ast.Object, opts config.Options) (*ir.Module, error) {
	reg, err := NewRegistry(root, opts.MainContract)
	if err != nil {
		return nil, err
	}
	reg.Discover()
	entry := reg.Entry()
	blobs := make(map[*ast.Object][]byte, len(entry.Embeds))
	for _, dep := range entry.Embeds {
		blobs[dep] = Placeholder
	}
	return codegen.EmitObject(entry.Object, entry.Role, opts, blobs)
}
