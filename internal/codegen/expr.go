package codegen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"github.com/lhaig/yul2wasm/internal/ast"
	"github.com/lhaig/yul2wasm/internal/builtin"
	"github.com/lhaig/yul2wasm/internal/ir"
)

var none = Value{Kind: KindNone}

func (f *funcGen) expr(e ast.Expression, want ExpectedType) (Value, error) {
	switch e := e.(type) {
	case *ast.Literal:
		n, err := literalValue(e)
		if err != nil {
			return none, located(e, err)
		}
		return f.constant(n, want), nil

	case *ast.Identifier:
		v := f.vars.lookup(e.Name)
		if v == nil {
			return none, errorAt(e, "undefined variable %s", e.Name)
		}
		return Value{Kind: v.kind, V: f.load(v)}, nil

	case *ast.Call:
		if uf := f.funcs.lookup(e.Name); uf != nil {
			return f.userCall(e, uf)
		}
		op, ok := builtin.Lookup(e.Name)
		if !ok {
			return none, errorAt(e, "call to undefined function %s", e.Name)
		}
		if info := op.Info(); len(e.Args) != info.Args {
			return none, errorAt(e, "%s expects %d arguments, got %d", e.Name, info.Args, len(e.Args))
		}
		v, err := f.builtin(op, e, want)
		return v, located(e, err)

	case nil:
		return none, errorAt(nil, "missing expression")
	}
	return none, errorAt(e, "unsupported expression %T", e)
}

func (f *funcGen) userCall(c *ast.Call, uf *userFunc) (Value, error) {
	if len(c.Args) != len(uf.def.Params) {
		return none, errorAt(c, "%s expects %d arguments, got %d", c.Name, len(uf.def.Params), len(c.Args))
	}
	kinds := strings.Repeat("u", len(c.Args))
	args, err := f.args(c, kinds)
	if err != nil {
		return none, located(c, err)
	}
	r := f.b.Call(uf.fn, args...)
	switch len(uf.def.Returns) {
	case 0:
		return none, nil
	case 1:
		return wrap(r), nil
	}
	return Value{Kind: KindTuple, V: r}, nil
}

// args lowers call arguments right to left, the order the EVM
// evaluates them in, then converts each according to its kind letter:
//
//	u  u256 word
//	o  i32 offset, size or length
//	n  i64 number
//	g  i64 gas amount, saturating
//	p  big-endian bytes32 buffer
//	w  native-endian u256 slot
func (f *funcGen) args(c *ast.Call, kinds string) ([]ir.Value, error) {
	if len(kinds) != len(c.Args) {
		return nil, fmt.Errorf("%s expects %d arguments, got %d", c.Name, len(kinds), len(c.Args))
	}
	vals := make([]Value, len(c.Args))
	for i := len(c.Args) - 1; i >= 0; i-- {
		v, err := f.expr(c.Args[i], kindExpectation(kinds[i]))
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}

	out := make([]ir.Value, len(vals))
	for i, v := range vals {
		var err error
		switch kinds[i] {
		case 'u':
			out[i], err = f.convert(v, KindU256, stackSlot)
		case 'o':
			out[i], err = f.convert(v, KindI32, stackSlot)
		case 'n':
			out[i], err = f.convert(v, KindI64, stackSlot)
		case 'g':
			out[i], err = f.saturate(v)
		case 'p':
			out[i], err = f.convert(v, KindBytes32Pointer, stackSlot)
		case 'w':
			out[i], err = f.spill(v)
		default:
			err = fmt.Errorf("bad argument kind %q", kinds[i])
		}
		if err != nil {
			return nil, errorAt(c.Args[i], "argument %d of %s: %v", i+1, c.Name, err)
		}
	}
	return out, nil
}

func kindExpectation(c byte) ExpectedType {
	switch c {
	case 'o':
		return ExpectI32
	case 'n', 'g':
		return ExpectI64
	case 'p':
		return ExpectBytes32Pointer
	}
	return ExpectU256
}

// spill stores a word in native byte order and returns its address
func (f *funcGen) spill(v Value) (ir.Value, error) {
	u, err := f.convert(v, KindU256, stackSlot)
	if err != nil {
		return nil, err
	}
	p := f.b.Alloca(ir.I256)
	f.b.Store(u, p)
	return p, nil
}

// boolResult widens an i1 to the width the consumer wants
func (f *funcGen) boolResult(c ir.Value, want ExpectedType) Value {
	switch want {
	case ExpectI32, ExpectBool:
		return Value{Kind: KindI32, V: f.b.ZExt(c, ir.I32)}
	case ExpectI64:
		return Value{Kind: KindI64, V: f.b.ZExt(c, ir.I64)}
	}
	return Value{Kind: KindU256, V: f.b.ZExt(c, ir.I256)}
}

// constant materializes a literal in the representation the consumer
// wants when it is exact to do so.
func (f *funcGen) constant(n *uint256.Int, want ExpectedType) Value {
	switch want {
	case ExpectI32, ExpectBool:
		if n.IsUint64() && n.Uint64() <= 0xffffffff {
			return Value{Kind: KindI32, V: ir.ConstUint64(ir.I32, n.Uint64())}
		}
	case ExpectI64:
		if n.IsUint64() && n.Uint64() <= 1<<63-1 {
			return Value{Kind: KindI64, V: ir.ConstUint64(ir.I64, n.Uint64())}
		}
	case ExpectBytes32Pointer:
		return Value{Kind: KindBytes32Pointer, V: f.g.bytes32Const(n.Bytes32())}
	}
	return Value{Kind: KindU256, V: ir.ConstInt(ir.I256, n.ToBig())}
}

// bytes32Const returns a private constant holding a big-endian word
func (g *Generator) bytes32Const(word [32]byte) *ir.Global {
	if gl, ok := g.consts[word]; ok {
		return gl
	}
	name := fmt.Sprintf("yul.const.%d", g.constSeq)
	g.constSeq++
	gl := g.mod.NewGlobal(name, word[:], true)
	g.consts[word] = gl
	return gl
}

var errLiteralTooLong = errors.New("literal does not fit in 32 bytes")

// literalValue returns the 256-bit word a literal denotes
func literalValue(l *ast.Literal) (*uint256.Int, error) {
	switch l.Kind {
	case ast.NumberLit:
		return ParseNumber(l.Value)
	case ast.BoolLit:
		if l.Value == "true" {
			return uint256.NewInt(1), nil
		}
		return uint256.NewInt(0), nil
	case ast.StringLit, ast.HexLit:
		if len(l.Value) > 32 {
			return nil, errLiteralTooLong
		}
		// strings are left-aligned
		var word [32]byte
		copy(word[:], l.Value)
		return new(uint256.Int).SetBytes32(word[:]), nil
	}
	return nil, fmt.Errorf("unknown literal kind %d", l.Kind)
}

// ParseNumber parses a decimal or 0x-prefixed hexadecimal literal.
// Values of 2^256 and above are rejected.
func ParseNumber(s string) (*uint256.Int, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		digits := strings.TrimLeft(s[2:], "0")
		if digits == "" {
			if len(s) == 2 {
				return nil, fmt.Errorf("invalid number literal %q", s)
			}
			return uint256.NewInt(0), nil
		}
		n, err := uint256.FromHex("0x" + digits)
		if err != nil {
			return nil, fmt.Errorf("invalid number literal %q: %w", s, err)
		}
		return n, nil
	}
	digits := strings.TrimLeft(s, "0")
	if digits == "" {
		if s == "" {
			return nil, fmt.Errorf("empty number literal")
		}
		return uint256.NewInt(0), nil
	}
	n, err := uint256.FromDecimal(digits)
	if err != nil {
		return nil, fmt.Errorf("invalid number literal %q: %w", s, err)
	}
	return n, nil
}
