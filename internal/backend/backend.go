// Package backend turns IR modules into native wasm object code.
package backend

import (
	"context"

	"github.com/lhaig/yul2wasm/internal/ir"
	"github.com/lhaig/yul2wasm/internal/stdlib"
)

// Backend is the interface all code generators implement
type Backend interface {
	// Name returns the backend name (e.g., "llc", "text")
	Name() string
	// Generate produces output for one contract module linked against
	// the runtime bitcode in inputs.
	Generate(ctx context.Context, mod *ir.Module, inputs stdlib.Inputs) ([]byte, error)
}

// Text renders modules as textual LLVM IR without invoking any tool
type Text struct{}

// Name returns the backend name
func (Text) Name() string {
	return "text"
}

// Generate returns the textual IR of mod. The runtime is not linked in.
func (Text) Generate(_ context.Context, mod *ir.Module, _ stdlib.Inputs) ([]byte, error) {
	return []byte(mod.String()), nil
}
