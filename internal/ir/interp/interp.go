// Package interp executes ir modules directly. It models a wasm32-style
// linear memory holding globals, an alloca stack and a bump heap, and
// calls out to Go implementations for declared functions.
package interp

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/lhaig/yul2wasm/internal/ir"
)

// Memory layout of the machine
const (
	GlobalBase = 0x400
	StackBase  = 0x10000
	StackLimit = 0x80000
	HeapBase   = 0x80000
	HeapLimit  = 0x100000

	// DefaultMaxSteps bounds execution so runaway loops fail tests
	// instead of hanging them.
	DefaultMaxSteps = 5_000_000
)

// ErrUnreachable is returned when execution reaches an unreachable
// instruction.
var ErrUnreachable = errors.New("interp: reached unreachable")

// Value is a runtime value: an integer (pointers are integers holding
// an address) or an aggregate.
type Value struct {
	Int    *big.Int
	Fields []Value
}

// Uint returns an integer value
func Uint(v uint64) Value {
	return Value{Int: new(big.Int).SetUint64(v)}
}

// Big returns an integer value holding a copy of v
func Big(v *big.Int) Value {
	return Value{Int: new(big.Int).Set(v)}
}

// Uint64 returns the low 64 bits of an integer value
func (v Value) Uint64() uint64 {
	if v.Int == nil {
		return 0
	}
	return new(big.Int).And(v.Int, new(big.Int).SetUint64(^uint64(0))).Uint64()
}

// Addr returns the value as a 32-bit address
func (v Value) Addr() uint32 {
	return uint32(v.Uint64())
}

// Extern implements a declared function in Go
type Extern func(m *Machine, args []Value) (Value, error)

// Machine executes functions of one module
type Machine struct {
	mod      *ir.Module
	Mem      []byte
	globals  map[*ir.Global]uint32
	externs  map[string]Extern
	sp       uint32
	heap     uint32
	steps    int
	MaxSteps int
}

// New lays out the module's globals in memory
func New(mod *ir.Module) *Machine {
	m := &Machine{
		mod:      mod,
		Mem:      make([]byte, HeapLimit),
		globals:  make(map[*ir.Global]uint32),
		externs:  make(map[string]Extern),
		sp:       StackBase,
		heap:     HeapBase,
		MaxSteps: DefaultMaxSteps,
	}
	addr := uint32(GlobalBase)
	for _, g := range mod.Globals {
		addr = align(addr, 16)
		m.globals[g] = addr
		copy(m.Mem[addr:], g.Data)
		addr += uint32(len(g.Data))
	}
	return m
}

func align(v, a uint32) uint32 {
	return (v + a - 1) &^ (a - 1)
}

// Bind registers the Go implementation of a declared function
func (m *Machine) Bind(name string, fn Extern) {
	m.externs[name] = fn
}

// GlobalAddr returns the address of a named global
func (m *Machine) GlobalAddr(name string) (uint32, bool) {
	g := m.mod.Global(name)
	if g == nil {
		return 0, false
	}
	return m.globals[g], true
}

// Alloc reserves n zeroed bytes on the heap
func (m *Machine) Alloc(n int) (uint32, error) {
	addr := align(m.heap, 16)
	if uint64(addr)+uint64(n) > HeapLimit {
		return 0, fmt.Errorf("interp: heap exhausted")
	}
	m.heap = addr + uint32(n)
	return addr, nil
}

// Grow makes sure memory extends at least to end
func (m *Machine) Grow(end uint64) {
	if end > uint64(len(m.Mem)) {
		grown := make([]byte, end)
		copy(grown, m.Mem)
		m.Mem = grown
	}
}

// Read returns a copy of n bytes at addr
func (m *Machine) Read(addr uint32, n int) ([]byte, error) {
	end := uint64(addr) + uint64(n)
	if end > uint64(len(m.Mem)) {
		return nil, fmt.Errorf("interp: read of %d bytes at %#x out of bounds", n, addr)
	}
	out := make([]byte, n)
	copy(out, m.Mem[addr:end])
	return out, nil
}

// Write stores data at addr
func (m *Machine) Write(addr uint32, data []byte) error {
	end := uint64(addr) + uint64(len(data))
	if end > uint64(len(m.Mem)) {
		return fmt.Errorf("interp: write of %d bytes at %#x out of bounds", len(data), addr)
	}
	copy(m.Mem[addr:end], data)
	return nil
}

// Call runs the named function with the given arguments
func (m *Machine) Call(name string, args ...Value) (Value, error) {
	fn := m.mod.Function(name)
	if fn == nil {
		return Value{}, fmt.Errorf("interp: no function %s", name)
	}
	m.steps = 0
	return m.call(fn, args)
}

func (m *Machine) call(fn *ir.Function, args []Value) (Value, error) {
	if len(args) != len(fn.Params) {
		return Value{}, fmt.Errorf("interp: %s called with %d args, want %d", fn.Name, len(args), len(fn.Params))
	}
	if fn.IsDeclaration() {
		if v, ok, err := m.intrinsic(fn, args); ok {
			return v, err
		}
		ext, ok := m.externs[fn.Name]
		if !ok {
			return Value{}, fmt.Errorf("interp: unbound external function %s", fn.Name)
		}
		return ext(m, args)
	}

	fr := &frame{
		fn:     fn,
		values: make(map[*ir.Instr]Value),
		params: make(map[*ir.Param]Value),
	}
	for i, p := range fn.Params {
		fr.params[p] = args[i]
	}
	savedSP := m.sp
	defer func() { m.sp = savedSP }()
	return m.run(fr)
}

type frame struct {
	fn     *ir.Function
	values map[*ir.Instr]Value
	params map[*ir.Param]Value
}

func (m *Machine) run(fr *frame) (Value, error) {
	block := fr.fn.Blocks[0]
	for {
		var next *ir.Block
		for _, in := range block.Instrs {
			m.steps++
			if m.MaxSteps > 0 && m.steps > m.MaxSteps {
				return Value{}, fmt.Errorf("interp: step limit exceeded in %s", fr.fn.Name)
			}
			switch in.Op {
			case ir.OpBr:
				next = in.Targets[0]
			case ir.OpCondBr:
				c, err := m.operand(fr, in.Args[0])
				if err != nil {
					return Value{}, err
				}
				if c.Int.Sign() != 0 {
					next = in.Targets[0]
				} else {
					next = in.Targets[1]
				}
			case ir.OpRet:
				if len(in.Args) == 0 {
					return Value{}, nil
				}
				return m.operand(fr, in.Args[0])
			case ir.OpUnreachable:
				return Value{}, fmt.Errorf("%w in %s/%s", ErrUnreachable, fr.fn.Name, block.Name)
			default:
				v, err := m.exec(fr, in)
				if err != nil {
					return Value{}, err
				}
				if in.Name != "" {
					fr.values[in] = v
				}
				continue
			}
			break
		}
		if next == nil {
			return Value{}, fmt.Errorf("interp: block %s/%s fell through", fr.fn.Name, block.Name)
		}
		block = next
	}
}

func (m *Machine) operand(fr *frame, v ir.Value) (Value, error) {
	switch v := v.(type) {
	case *ir.Const:
		return Value{Int: v.Int()}, nil
	case *ir.Param:
		return fr.params[v], nil
	case *ir.Instr:
		val, ok := fr.values[v]
		if !ok {
			return Value{}, fmt.Errorf("interp: %s used before definition", v.Ident())
		}
		return val, nil
	case *ir.Global:
		return Uint(uint64(m.globals[v])), nil
	case ir.Null:
		return Uint(0), nil
	case *ir.Undef:
		return zero(v.Typ), nil
	}
	return Value{}, fmt.Errorf("interp: unsupported operand %T", v)
}

func zero(t ir.Type) Value {
	if st, ok := t.(*ir.StructType); ok {
		fields := make([]Value, len(st.Fields))
		for i, f := range st.Fields {
			fields[i] = zero(f)
		}
		return Value{Fields: fields}
	}
	return Uint(0)
}

func bitsOf(t ir.Type) int {
	switch t := t.(type) {
	case *ir.IntType:
		return t.Bits
	case *ir.PointerType:
		return 32
	}
	return 0
}

func (m *Machine) exec(fr *frame, in *ir.Instr) (Value, error) {
	args := make([]Value, len(in.Args))
	for i, a := range in.Args {
		v, err := m.operand(fr, a)
		if err != nil {
			return Value{}, err
		}
		args[i] = v
	}

	switch {
	case in.Op.IsBinary():
		r, err := binary(in.Op, args[0].Int, args[1].Int, bitsOf(in.Typ))
		return Value{Int: r}, err
	case in.Op.IsCast():
		return cast(in.Op, args[0].Int, bitsOf(in.Args[0].Type()), bitsOf(in.Typ)), nil
	}

	switch in.Op {
	case ir.OpICmp:
		bits := bitsOf(in.Args[0].Type())
		if compare(in.Pred, args[0].Int, args[1].Int, bits) {
			return Uint(1), nil
		}
		return Uint(0), nil
	case ir.OpSelect:
		if args[0].Int.Sign() != 0 {
			return args[1], nil
		}
		return args[2], nil
	case ir.OpAlloca:
		size := uint32(ir.SizeOf(in.Elem))
		addr := align(m.sp, 16)
		if addr+size > StackLimit {
			return Value{}, fmt.Errorf("interp: stack overflow")
		}
		for i := addr; i < addr+size; i++ {
			m.Mem[i] = 0
		}
		m.sp = addr + size
		return Uint(uint64(addr)), nil
	case ir.OpLoad:
		return m.load(in.Elem, args[0].Addr())
	case ir.OpStore:
		return Value{}, m.store(in.Args[0].Type(), args[0], args[1].Addr())
	case ir.OpGEP:
		off := ir.ToSigned(args[1].Int, bitsOf(in.Args[1].Type()))
		off.Mul(off, big.NewInt(int64(ir.SizeOf(in.Elem))))
		addr := new(big.Int).Add(args[0].Int, off)
		return Value{Int: ir.Truncate(addr, 32)}, nil
	case ir.OpCall:
		return m.call(in.Callee, args)
	case ir.OpExtractValue:
		return args[0].Fields[in.Index], nil
	case ir.OpInsertValue:
		fields := make([]Value, len(args[0].Fields))
		copy(fields, args[0].Fields)
		fields[in.Index] = args[1]
		return Value{Fields: fields}, nil
	}
	return Value{}, fmt.Errorf("interp: unsupported op %s", in.Op)
}

func (m *Machine) load(t ir.Type, addr uint32) (Value, error) {
	if st, ok := t.(*ir.StructType); ok {
		fields := make([]Value, len(st.Fields))
		for i, f := range st.Fields {
			v, err := m.load(f, addr)
			if err != nil {
				return Value{}, err
			}
			fields[i] = v
			addr += uint32(ir.SizeOf(f))
		}
		return Value{Fields: fields}, nil
	}
	raw, err := m.Read(addr, ir.SizeOf(t))
	if err != nil {
		return Value{}, err
	}
	if _, ok := t.(*ir.ArrayType); ok {
		// arrays of i8 travel as their big-endian integer
		return Value{Int: new(big.Int).SetBytes(raw)}, nil
	}
	return Value{Int: fromLittleEndian(raw)}, nil
}

func (m *Machine) store(t ir.Type, v Value, addr uint32) error {
	if st, ok := t.(*ir.StructType); ok {
		for i, f := range st.Fields {
			if err := m.store(f, v.Fields[i], addr); err != nil {
				return err
			}
			addr += uint32(ir.SizeOf(f))
		}
		return nil
	}
	size := ir.SizeOf(t)
	if _, ok := t.(*ir.ArrayType); ok {
		raw := make([]byte, size)
		v.Int.FillBytes(raw)
		return m.Write(addr, raw)
	}
	return m.Write(addr, toLittleEndian(v.Int, size))
}

func fromLittleEndian(raw []byte) *big.Int {
	be := make([]byte, len(raw))
	for i, b := range raw {
		be[len(raw)-1-i] = b
	}
	return new(big.Int).SetBytes(be)
}

func toLittleEndian(v *big.Int, size int) []byte {
	be := make([]byte, size)
	ir.Truncate(v, size*8).FillBytes(be)
	le := make([]byte, size)
	for i, b := range be {
		le[size-1-i] = b
	}
	return le
}

// intrinsic implements the llvm.* functions the code generator uses
func (m *Machine) intrinsic(fn *ir.Function, args []Value) (Value, bool, error) {
	switch fn.Name {
	case "llvm.bswap.i256", "llvm.bswap.i64", "llvm.bswap.i32":
		size := ir.SizeOf(fn.Ret)
		raw := toLittleEndian(args[0].Int, size)
		return Value{Int: new(big.Int).SetBytes(raw)}, true, nil
	}
	return Value{}, false, nil
}
