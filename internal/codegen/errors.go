package codegen

import (
	"fmt"

	"github.com/lhaig/yul2wasm/internal/ast"
)

// LoweringError reports source that cannot be turned into IR. It is
// fatal for the object being compiled.
type LoweringError struct {
	Line   int
	Column int
	Msg    string
}

func (e *LoweringError) Error() string {
	if e.Line == 0 {
		return e.Msg
	}
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Msg)
}

func errorAt(n ast.Node, format string, args ...any) *LoweringError {
	line, col := 0, 0
	if n != nil {
		line, col = n.Pos()
	}
	return &LoweringError{Line: line, Column: col, Msg: fmt.Sprintf(format, args...)}
}

// located attaches a position to errors raised without one
func located(n ast.Node, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*LoweringError); ok {
		return err
	}
	return errorAt(n, "%s", err.Error())
}
