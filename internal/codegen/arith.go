package codegen

import (
	"math/big"

	"github.com/lhaig/yul2wasm/internal/ir"
)

var (
	zero256   = ir.ConstUint64(ir.I256, 0)
	one256    = ir.ConstUint64(ir.I256, 1)
	ones256   = ir.ConstInt(ir.I256, big.NewInt(-1))
	bits256   = ir.ConstUint64(ir.I256, 256)
	minInt256 = ir.ConstInt(ir.I256, new(big.Int).Lsh(big.NewInt(1), 255))
)

func maxUint(bits int) *big.Int {
	return new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(bits)), big.NewInt(1))
}

func (f *funcGen) isZero(x ir.Value) ir.Value {
	return f.b.ICmp(ir.EQ, x, zero256)
}

// div and mod by zero yield zero
func (f *funcGen) div(x, y ir.Value, op ir.Op) ir.Value {
	isZero := f.isZero(y)
	safe := f.b.Select(isZero, one256, y)
	r := f.b.Binary(op, x, safe)
	return f.b.Select(isZero, zero256, r)
}

// sdiv additionally maps MIN / -1 to MIN; dividing by one gets there
// without the overflowing instruction. smod of the same operands is 0,
// which x srem 1 also yields.
func (f *funcGen) sdiv(x, y ir.Value, op ir.Op) ir.Value {
	isZero := f.isZero(y)
	overflow := f.b.And(
		f.b.ICmp(ir.EQ, x, minInt256),
		f.b.ICmp(ir.EQ, y, ones256),
	)
	one := f.b.Or(isZero, overflow)
	safe := f.b.Select(one, one256, y)
	r := f.b.Binary(op, x, safe)
	return f.b.Select(isZero, zero256, r)
}

// modArith computes (x op y) % m in 512 bits, with m == 0 giving 0
func (f *funcGen) modArith(x, y, m ir.Value, op ir.Op) ir.Value {
	wx := f.b.ZExt(x, ir.I512)
	wy := f.b.ZExt(y, ir.I512)
	wm := f.b.ZExt(m, ir.I512)
	isZero := f.isZero(m)
	safe := f.b.Select(isZero, ir.ConstUint64(ir.I512, 1), wm)
	r := f.b.URem(f.b.Binary(op, wx, wy), safe)
	return f.b.Select(isZero, zero256, f.b.Trunc(r, ir.I256))
}

// shift implements shl and shr: amounts of 256 and more shift
// everything out.
func (f *funcGen) shift(amount, value ir.Value, op ir.Op) ir.Value {
	inRange := f.b.ICmp(ir.ULT, amount, bits256)
	masked := f.b.And(amount, ir.ConstUint64(ir.I256, 255))
	r := f.b.Binary(op, value, masked)
	return f.b.Select(inRange, r, zero256)
}

// sar fills with the sign bit, so large amounts give 0 or all ones
func (f *funcGen) sar(amount, value ir.Value) ir.Value {
	inRange := f.b.ICmp(ir.ULT, amount, bits256)
	masked := f.b.And(amount, ir.ConstUint64(ir.I256, 255))
	r := f.b.AShr(value, masked)
	negative := f.b.ICmp(ir.SLT, value, zero256)
	fill := f.b.Select(negative, ones256, zero256)
	return f.b.Select(inRange, r, fill)
}

// signExtend extends from byte n (counting from the least significant)
func (f *funcGen) signExtend(n, x ir.Value) ir.Value {
	c31 := ir.ConstUint64(ir.I256, 31)
	inRange := f.b.ICmp(ir.ULT, n, c31)
	safeN := f.b.Select(inRange, n, zero256)
	bits := f.b.Mul(safeN, ir.ConstUint64(ir.I256, 8))
	sh := f.b.Sub(ir.ConstUint64(ir.I256, 248), bits)
	r := f.b.AShr(f.b.Shl(x, sh), sh)
	return f.b.Select(inRange, r, x)
}

// byteAt returns byte i of x counting from the most significant
func (f *funcGen) byteAt(i, x ir.Value) ir.Value {
	inRange := f.b.ICmp(ir.ULT, i, ir.ConstUint64(ir.I256, 32))
	safeI := f.b.Select(inRange, i, zero256)
	sh := f.b.Sub(ir.ConstUint64(ir.I256, 248), f.b.Mul(safeI, ir.ConstUint64(ir.I256, 8)))
	r := f.b.And(f.b.LShr(x, sh), ir.ConstUint64(ir.I256, 0xff))
	return f.b.Select(inRange, r, zero256)
}

// exp calls the square-and-multiply helper
func (f *funcGen) exp(base, exponent ir.Value) ir.Value {
	return f.b.Call(f.g.expHelper(), base, exponent)
}

func (g *Generator) expHelper() *ir.Function {
	if g.expFn != nil {
		return g.expFn
	}
	fn := g.mod.NewFunction("yul.exp", ir.I256, ir.I256, ir.I256)
	fn.Linkage = ir.Internal
	g.expFn = fn

	b := ir.NewBuilder(fn)
	result := b.Alloca(ir.I256)
	base := b.Alloca(ir.I256)
	exp := b.Alloca(ir.I256)
	b.Store(one256, result)
	b.Store(fn.Param(0), base)
	b.Store(fn.Param(1), exp)

	head := fn.NewBlock("loop")
	body := fn.NewBlock("body")
	mul := fn.NewBlock("mul")
	next := fn.NewBlock("next")
	done := fn.NewBlock("done")
	b.Br(head)

	b.SetInsertPoint(head)
	b.CondBr(b.ICmp(ir.NE, b.Load(ir.I256, exp), zero256), body, done)

	b.SetInsertPoint(body)
	bit := b.And(b.Load(ir.I256, exp), one256)
	b.CondBr(b.ICmp(ir.NE, bit, zero256), mul, next)

	b.SetInsertPoint(mul)
	b.Store(b.Mul(b.Load(ir.I256, result), b.Load(ir.I256, base)), result)
	b.Br(next)

	b.SetInsertPoint(next)
	sq := b.Load(ir.I256, base)
	b.Store(b.Mul(sq, sq), base)
	b.Store(b.LShr(b.Load(ir.I256, exp), one256), exp)
	b.Br(head)

	b.SetInsertPoint(done)
	b.Ret(b.Load(ir.I256, result))
	return fn
}
