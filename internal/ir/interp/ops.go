package interp

import (
	"fmt"
	"math/big"

	"github.com/lhaig/yul2wasm/internal/ir"
)

// binary evaluates an integer instruction the way LLVM defines it.
// Operations LLVM leaves undefined (division by zero, signed overflow in
// division, oversized shifts) are reported as errors so that code
// generation bugs surface in tests.
func binary(op ir.Op, x, y *big.Int, bits int) (*big.Int, error) {
	r := new(big.Int)
	switch op {
	case ir.OpAdd:
		r.Add(x, y)
	case ir.OpSub:
		r.Sub(x, y)
	case ir.OpMul:
		r.Mul(x, y)
	case ir.OpUDiv, ir.OpURem:
		if y.Sign() == 0 {
			return nil, fmt.Errorf("interp: %s by zero", op)
		}
		if op == ir.OpUDiv {
			r.Quo(x, y)
		} else {
			r.Rem(x, y)
		}
	case ir.OpSDiv, ir.OpSRem:
		if y.Sign() == 0 {
			return nil, fmt.Errorf("interp: %s by zero", op)
		}
		sx, sy := ir.ToSigned(x, bits), ir.ToSigned(y, bits)
		min := new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), uint(bits-1)))
		if sx.Cmp(min) == 0 && sy.Cmp(big.NewInt(-1)) == 0 {
			return nil, fmt.Errorf("interp: %s overflow", op)
		}
		if op == ir.OpSDiv {
			r.Quo(sx, sy)
		} else {
			r.Rem(sx, sy)
		}
	case ir.OpShl, ir.OpLShr, ir.OpAShr:
		if y.Cmp(big.NewInt(int64(bits))) >= 0 {
			return nil, fmt.Errorf("interp: %s by %s on i%d", op, y, bits)
		}
		n := uint(y.Uint64())
		switch op {
		case ir.OpShl:
			r.Lsh(x, n)
		case ir.OpLShr:
			r.Rsh(x, n)
		default:
			r.Rsh(ir.ToSigned(x, bits), n)
		}
	case ir.OpAnd:
		r.And(x, y)
	case ir.OpOr:
		r.Or(x, y)
	case ir.OpXor:
		r.Xor(x, y)
	default:
		return nil, fmt.Errorf("interp: %s is not binary", op)
	}
	return ir.Truncate(r, bits), nil
}

func cast(op ir.Op, v *big.Int, from, to int) Value {
	switch op {
	case ir.OpSExt:
		return Value{Int: ir.Truncate(ir.ToSigned(v, from), to)}
	default:
		// zext, trunc, ptrtoint and inttoptr all reduce to masking
		return Value{Int: ir.Truncate(v, to)}
	}
}

func compare(p ir.Pred, x, y *big.Int, bits int) bool {
	switch p {
	case ir.SLT, ir.SGT, ir.SLE, ir.SGE:
		x, y = ir.ToSigned(x, bits), ir.ToSigned(y, bits)
	}
	c := x.Cmp(y)
	switch p {
	case ir.EQ:
		return c == 0
	case ir.NE:
		return c != 0
	case ir.ULT, ir.SLT:
		return c < 0
	case ir.UGT, ir.SGT:
		return c > 0
	case ir.ULE, ir.SLE:
		return c <= 0
	default:
		return c >= 0
	}
}
