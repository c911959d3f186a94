package codegen

import (
	"fmt"

	"github.com/lhaig/yul2wasm/internal/ir"
)

// ValueKind is the native representation of a lowered Yul value
type ValueKind int

const (
	KindNone ValueKind = iota
	KindI32
	KindI64
	KindU256
	KindBytes32
	KindBytes32Pointer
	KindTuple
)

func (k ValueKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindI32:
		return "i32"
	case KindI64:
		return "i64"
	case KindU256:
		return "u256"
	case KindBytes32:
		return "bytes32"
	case KindBytes32Pointer:
		return "bytes32*"
	case KindTuple:
		return "tuple"
	}
	return fmt.Sprintf("ValueKind(%d)", int(k))
}

// ExpectedType is the representation a consumer asks an expression for
type ExpectedType int

const (
	Untyped ExpectedType = iota
	ExpectBool
	ExpectI32
	ExpectI64
	ExpectU256
	ExpectBytes32
	ExpectBytes32Pointer
)

// KindOf classifies a native type. Widths other than 32, 64 and 256
// bits are rejected.
func KindOf(t ir.Type) (ValueKind, error) {
	switch t := t.(type) {
	case *ir.IntType:
		switch t.Bits {
		case 32:
			return KindI32, nil
		case 64:
			return KindI64, nil
		case 256:
			return KindU256, nil
		}
	case *ir.PointerType:
		return KindBytes32Pointer, nil
	case *ir.StructType:
		return KindTuple, nil
	case *ir.ArrayType:
		if t.Len == 32 && ir.Equal(t.Elem, ir.I8) {
			return KindBytes32, nil
		}
	case *ir.VoidType:
		return KindNone, nil
	}
	return KindNone, fmt.Errorf("unsupported native type %s", t)
}

// ExpectedOf maps a native type to the expected type that would request it
func ExpectedOf(t ir.Type) ExpectedType {
	switch t := t.(type) {
	case *ir.IntType:
		switch t.Bits {
		case 1:
			return ExpectBool
		case 32:
			return ExpectI32
		case 64:
			return ExpectI64
		case 256:
			return ExpectU256
		}
	case *ir.PointerType:
		return ExpectBytes32Pointer
	case *ir.ArrayType:
		return ExpectBytes32
	}
	return Untyped
}

// NativeType returns the IR type that carries a kind
func NativeType(k ValueKind) ir.Type {
	switch k {
	case KindI32:
		return ir.I32
	case KindI64:
		return ir.I64
	case KindU256:
		return ir.I256
	case KindBytes32:
		return ir.Bytes32
	case KindBytes32Pointer:
		return ir.Ptr
	}
	return ir.Void
}

// expectationFor returns the expected type that asks for kind k
func expectationFor(k ValueKind) ExpectedType {
	switch k {
	case KindI32:
		return ExpectI32
	case KindI64:
		return ExpectI64
	case KindU256:
		return ExpectU256
	case KindBytes32:
		return ExpectBytes32
	case KindBytes32Pointer:
		return ExpectBytes32Pointer
	}
	return Untyped
}

// Value is a lowered expression result
type Value struct {
	Kind ValueKind
	V    ir.Value
}

func wrap(v ir.Value) Value {
	k, err := KindOf(v.Type())
	if err != nil {
		panic(err)
	}
	return Value{Kind: k, V: v}
}

// slotKind says where a Bytes32Pointer conversion places its buffer
type slotKind int

const (
	// stackSlot buffers live in the current frame; fine for arguments
	// consumed by the callee.
	stackSlot slotKind = iota
	// heapSlot buffers outlive the frame; needed for values stored in
	// variables returned to the caller.
	heapSlot
)

// convert brings v to kind to, inserting extensions, checked or plain
// truncations and byte-order conversions as needed.
func (f *funcGen) convert(v Value, to ValueKind, slot slotKind) (ir.Value, error) {
	switch v.Kind {
	case KindNone:
		return nil, fmt.Errorf("expression does not produce a value")
	case KindTuple:
		return nil, fmt.Errorf("expression produces multiple values where one is expected")
	}
	if v.Kind == to {
		return v.V, nil
	}

	switch to {
	case KindU256:
		return f.toU256(v)

	case KindI32, KindI64:
		target := NativeType(to).(*ir.IntType)
		if v.Kind == KindI32 && to == KindI64 {
			return f.b.ZExt(v.V, ir.I64), nil
		}
		wide := v.V
		if v.Kind == KindBytes32 || v.Kind == KindBytes32Pointer {
			u, err := f.toU256(v)
			if err != nil {
				return nil, err
			}
			wide = u
		}
		return f.narrow(wide, target), nil

	case KindBytes32Pointer:
		if v.Kind == KindBytes32 {
			p := f.newSlot(slot, ir.Bytes32)
			f.b.Store(v.V, p)
			return p, nil
		}
		u, err := f.toU256(v)
		if err != nil {
			return nil, err
		}
		p := f.newSlot(slot, ir.I256)
		f.b.Store(f.bswap(u), p)
		return p, nil

	case KindBytes32:
		p, err := f.convert(v, KindBytes32Pointer, stackSlot)
		if err != nil {
			return nil, err
		}
		return f.b.Load(ir.Bytes32, p), nil
	}
	return nil, fmt.Errorf("cannot convert %s to %s", v.Kind, to)
}

// toU256 widens or decodes v into a native 256-bit word
func (f *funcGen) toU256(v Value) (ir.Value, error) {
	switch v.Kind {
	case KindU256:
		return v.V, nil
	case KindI32, KindI64:
		return f.b.ZExt(v.V, ir.I256), nil
	case KindBytes32Pointer:
		return f.bswap(f.b.Load(ir.I256, v.V)), nil
	case KindBytes32:
		p := f.b.Alloca(ir.Bytes32)
		f.b.Store(v.V, p)
		return f.bswap(f.b.Load(ir.I256, p)), nil
	}
	return nil, fmt.Errorf("cannot convert %s to u256", v.Kind)
}

// narrow truncates a wide integer. Debug builds trap when the value
// does not fit.
func (f *funcGen) narrow(v ir.Value, to *ir.IntType) ir.Value {
	from := v.Type().(*ir.IntType)
	if from.Bits <= to.Bits {
		if from.Bits == to.Bits {
			return v
		}
		return f.b.ZExt(v, to)
	}
	if f.g.opts.Debug {
		max := ir.ConstInt(from, maxUint(to.Bits))
		overflow := f.b.ICmp(ir.UGT, v, max)
		trap := f.fn.NewBlock("narrow.trap")
		ok := f.fn.NewBlock("narrow.ok")
		f.b.CondBr(overflow, trap, ok)
		f.b.SetInsertPoint(trap)
		f.b.Unreachable()
		f.b.SetInsertPoint(ok)
	}
	return f.b.Trunc(v, to)
}

// saturate truncates v to an i64, clamping values that do not fit.
// Gas amounts above the available gas mean "all of it".
func (f *funcGen) saturate(v Value) (ir.Value, error) {
	if v.Kind == KindI64 {
		return v.V, nil
	}
	if v.Kind == KindI32 {
		return f.b.ZExt(v.V, ir.I64), nil
	}
	u, err := f.convert(v, KindU256, stackSlot)
	if err != nil {
		return nil, err
	}
	limit := ir.ConstInt(ir.I256, maxUint(63))
	big := f.b.ICmp(ir.UGT, u, limit)
	clamped := f.b.Select(big, limit, u)
	return f.b.Trunc(clamped, ir.I64), nil
}

// newSlot returns a buffer for a value of type t
func (f *funcGen) newSlot(kind slotKind, t ir.Type) ir.Value {
	if kind == heapSlot {
		return f.b.Call(f.g.rt(rtAllocaBytes32))
	}
	return f.b.Alloca(t)
}

// bswap converts between native little-endian and big-endian words
func (f *funcGen) bswap(v ir.Value) ir.Value {
	return f.b.Call(f.g.rt(rtBswap), v)
}
