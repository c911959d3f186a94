package interp

import (
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/lhaig/yul2wasm/internal/ir"
)

func TestArithmeticWraps(t *testing.T) {
	m := ir.NewModule("t")
	fn := m.NewFunction("f", ir.I256, ir.I256, ir.I256)
	b := ir.NewBuilder(fn)
	b.Ret(b.Add(fn.Param(0), fn.Param(1)))

	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	got, err := New(m).Call("f", Big(max), Uint(3))
	if err != nil {
		t.Fatal(err)
	}
	if got.Uint64() != 2 {
		t.Errorf("expected 2, got %s", got.Int)
	}
}

func TestLoopAndMemory(t *testing.T) {
	// sum = 0; for i = 0; i < 10; i++ { sum += i }
	m := ir.NewModule("t")
	fn := m.NewFunction("sum", ir.I64)
	b := ir.NewBuilder(fn)
	i := b.Alloca(ir.I64)
	sum := b.Alloca(ir.I64)
	b.Store(ir.ConstUint64(ir.I64, 0), i)
	b.Store(ir.ConstUint64(ir.I64, 0), sum)
	cond := fn.NewBlock("cond")
	body := fn.NewBlock("body")
	exit := fn.NewBlock("exit")
	b.Br(cond)

	b.SetInsertPoint(cond)
	iv := b.Load(ir.I64, i)
	b.CondBr(b.ICmp(ir.ULT, iv, ir.ConstUint64(ir.I64, 10)), body, exit)

	b.SetInsertPoint(body)
	iv2 := b.Load(ir.I64, i)
	b.Store(b.Add(b.Load(ir.I64, sum), iv2), sum)
	b.Store(b.Add(iv2, ir.ConstUint64(ir.I64, 1)), i)
	b.Br(cond)

	b.SetInsertPoint(exit)
	b.Ret(b.Load(ir.I64, sum))

	if errs := ir.Validate(m); len(errs) > 0 {
		t.Fatalf("invalid module: %v", errs)
	}
	got, err := New(m).Call("sum")
	if err != nil {
		t.Fatal(err)
	}
	if got.Uint64() != 45 {
		t.Errorf("expected 45, got %d", got.Uint64())
	}
}

func TestExternAndGlobals(t *testing.T) {
	m := ir.NewModule("t")
	ext := m.Declare("host_read", ir.I32, ir.Ptr)
	g := m.NewGlobal("blob", []byte{0x11, 0x22, 0x33, 0x44}, true)
	fn := m.NewFunction("f", ir.I32)
	b := ir.NewBuilder(fn)
	b.Ret(b.Call(ext, g))

	mach := New(m)
	mach.Bind("host_read", func(m *Machine, args []Value) (Value, error) {
		raw, err := m.Read(args[0].Addr(), 4)
		if err != nil {
			return Value{}, err
		}
		return Uint(uint64(raw[0]) + uint64(raw[3])), nil
	})
	got, err := mach.Call("f")
	if err != nil {
		t.Fatal(err)
	}
	if got.Uint64() != 0x55 {
		t.Errorf("expected 0x55, got %#x", got.Uint64())
	}
	if addr, ok := mach.GlobalAddr("blob"); !ok || addr < GlobalBase {
		t.Errorf("unexpected global address %#x", addr)
	}
}

func TestUnboundExtern(t *testing.T) {
	m := ir.NewModule("t")
	ext := m.Declare("missing", ir.Void)
	fn := m.NewFunction("f", ir.Void)
	b := ir.NewBuilder(fn)
	b.Call(ext)
	b.Ret(nil)
	_, err := New(m).Call("f")
	if err == nil || !strings.Contains(err.Error(), "unbound external function missing") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestUnreachable(t *testing.T) {
	m := ir.NewModule("t")
	fn := m.NewFunction("f", ir.Void)
	ir.NewBuilder(fn).Unreachable()
	_, err := New(m).Call("f")
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("expected ErrUnreachable, got %v", err)
	}
}

func TestUndefinedBehaviourIsReported(t *testing.T) {
	tests := []struct {
		op   ir.Op
		x, y uint64
		want string
	}{
		{ir.OpUDiv, 1, 0, "udiv by zero"},
		{ir.OpShl, 1, 256, "shl by 256"},
		{ir.OpLShr, 1, 300, "lshr by 300"},
	}
	for _, tt := range tests {
		m := ir.NewModule("t")
		fn := m.NewFunction("f", ir.I256)
		b := ir.NewBuilder(fn)
		b.Ret(b.Binary(tt.op, ir.ConstUint64(ir.I256, tt.x), ir.ConstUint64(ir.I256, tt.y)))
		_, err := New(m).Call("f")
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: expected %q, got %v", tt.op, tt.want, err)
		}
	}
}

func TestSignedOps(t *testing.T) {
	neg := func(v int64) *big.Int { return ir.Truncate(big.NewInt(v), 256) }
	tests := []struct {
		op   ir.Op
		x, y *big.Int
		want *big.Int
	}{
		{ir.OpSDiv, neg(-7), big.NewInt(2), neg(-3)},
		{ir.OpSRem, neg(-7), big.NewInt(2), neg(-1)},
		{ir.OpAShr, neg(-8), big.NewInt(1), neg(-4)},
		{ir.OpLShr, big.NewInt(8), big.NewInt(3), big.NewInt(1)},
	}
	for _, tt := range tests {
		got, err := binary(tt.op, tt.x, tt.y, 256)
		if err != nil {
			t.Fatal(err)
		}
		if got.Cmp(tt.want) != 0 {
			t.Errorf("%s: expected %s, got %s", tt.op, tt.want, got)
		}
	}
	if !compare(ir.SLT, neg(-1), big.NewInt(0), 256) {
		t.Errorf("-1 <s 0")
	}
	if compare(ir.ULT, neg(-1), big.NewInt(0), 256) {
		t.Errorf("not (max <u 0)")
	}
}

func TestBswapAndByteOrder(t *testing.T) {
	m := ir.NewModule("t")
	bswap := m.Declare("llvm.bswap.i256", ir.I256, ir.I256)
	fn := m.NewFunction("f", ir.I256, ir.Ptr)
	b := ir.NewBuilder(fn)
	// load a big-endian buffer as a native word
	b.Ret(b.Call(bswap, b.Load(ir.I256, fn.Param(0))))

	mach := New(m)
	addr, err := mach.Alloc(32)
	if err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 32)
	buf[31] = 0x2a
	buf[30] = 0x01
	if err := mach.Write(addr, buf); err != nil {
		t.Fatal(err)
	}
	got, err := mach.Call("f", Uint(uint64(addr)))
	if err != nil {
		t.Fatal(err)
	}
	if got.Uint64() != 0x012a {
		t.Errorf("expected 0x12a, got %#x", got.Uint64())
	}
}

func TestStepLimit(t *testing.T) {
	m := ir.NewModule("t")
	fn := m.NewFunction("spin", ir.Void)
	b := ir.NewBuilder(fn)
	loop := fn.NewBlock("loop")
	b.Br(loop)
	b.SetInsertPoint(loop)
	b.Br(loop)
	mach := New(m)
	mach.MaxSteps = 100
	if _, err := mach.Call("spin"); err == nil || !strings.Contains(err.Error(), "step limit") {
		t.Errorf("expected step limit error, got %v", err)
	}
}
