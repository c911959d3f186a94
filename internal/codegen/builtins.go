package codegen

import (
	"fmt"

	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"

	"github.com/lhaig/yul2wasm/internal/ast"
	"github.com/lhaig/yul2wasm/internal/builtin"
	"github.com/lhaig/yul2wasm/internal/config"
	"github.com/lhaig/yul2wasm/internal/ir"
)

var comparisons = map[builtin.Instruction]ir.Pred{
	builtin.Lt:  ir.ULT,
	builtin.Gt:  ir.UGT,
	builtin.SLt: ir.SLT,
	builtin.SGt: ir.SGT,
	builtin.Eq:  ir.EQ,
}

// builtin lowers one built-in call. Arity was checked by the caller.
func (f *funcGen) builtin(op builtin.Instruction, c *ast.Call, want ExpectedType) (Value, error) {
	switch op {
	case builtin.Add, builtin.Sub, builtin.Mul, builtin.Div, builtin.SDiv,
		builtin.Mod, builtin.SMod, builtin.Exp, builtin.SignExtend,
		builtin.And, builtin.Or, builtin.Xor, builtin.Byte,
		builtin.Shl, builtin.Shr, builtin.Sar:
		a, err := f.args(c, "uu")
		if err != nil {
			return none, err
		}
		return Value{Kind: KindU256, V: f.binaryWord(op, a[0], a[1])}, nil

	case builtin.AddMod, builtin.MulMod:
		a, err := f.args(c, "uuu")
		if err != nil {
			return none, err
		}
		wop := ir.OpAdd
		if op == builtin.MulMod {
			wop = ir.OpMul
		}
		return Value{Kind: KindU256, V: f.modArith(a[0], a[1], a[2], wop)}, nil

	case builtin.Not:
		a, err := f.args(c, "u")
		if err != nil {
			return none, err
		}
		return Value{Kind: KindU256, V: f.b.Xor(a[0], ones256)}, nil

	case builtin.IsZero:
		a, err := f.args(c, "u")
		if err != nil {
			return none, err
		}
		return f.boolResult(f.isZero(a[0]), want), nil

	case builtin.Lt, builtin.Gt, builtin.SLt, builtin.SGt, builtin.Eq:
		a, err := f.args(c, "uu")
		if err != nil {
			return none, err
		}
		return f.boolResult(f.b.ICmp(comparisons[op], a[0], a[1]), want), nil

	case builtin.Keccak256:
		return f.withOutBytes(rtKeccak256, c, "oo")

	case builtin.Pop:
		_, err := f.expr(c.Args[0], Untyped)
		return none, err

	case builtin.MLoad:
		return f.mload(c, want)

	case builtin.MStore:
		return f.mstore(c)

	case builtin.MStore8:
		vals, err := f.args(c, "ou")
		if err != nil {
			return none, err
		}
		f.b.Call(f.g.rt(rtMStoreU8), vals[0], f.b.Trunc(vals[1], ir.I8))
		return none, nil

	case builtin.MCopy:
		return f.runtime(rtMCopy, c, "ooo")

	case builtin.MSize:
		return f.runtime(rtMemorySize, c, "")

	case builtin.SLoad:
		if f.g.opts.LittleEndianStorage {
			return f.withOutWord(rtSLoadLE, c, "p")
		}
		return f.withOutWord(rtSLoad, c, "p")

	case builtin.SStore:
		if f.g.opts.LittleEndianStorage {
			return f.runtime(rtSStoreLE, c, "pw")
		}
		return f.runtime(rtSStore, c, "ww")

	case builtin.TLoad:
		return f.withOutWord(rtTLoad, c, "p")

	case builtin.TStore:
		return f.runtime(rtTStore, c, "ww")

	case builtin.Address:
		return f.withOutBytes(rtAddress, c, "")
	case builtin.Balance:
		return f.withOutWord(rtBalance, c, "p")
	case builtin.SelfBalance:
		return f.withOutWord(rtSelfBalance, c, "")
	case builtin.Origin:
		return f.withOutBytes(rtOrigin, c, "")
	case builtin.Caller:
		return f.withOutBytes(rtCaller, c, "")
	case builtin.CallValue:
		return f.withOutWord(rtCallValue, c, "")

	case builtin.CallDataLoad:
		return f.withOutWord(rtCallDataLoad, c, "o")
	case builtin.CallDataSize:
		return f.runtime(rtCallDataSize, c, "")
	case builtin.CallDataCopy:
		return f.runtime(rtCallDataCopy, c, "ooo")

	case builtin.CodeSize:
		return f.runtime(rtCodeSize, c, "")
	case builtin.CodeCopy:
		return f.runtime(rtCodeCopy, c, "ooo")
	case builtin.ExtCodeSize:
		return f.runtime(rtExtCodeSize, c, "p")
	case builtin.ExtCodeCopy:
		return f.runtime(rtExtCodeCopy, c, "pooo")
	case builtin.ExtCodeHash:
		return f.withOutBytes(rtExtCodeHash, c, "p")

	case builtin.ReturnDataSize:
		return f.runtime(rtReturnDataSize, c, "")
	case builtin.ReturnDataCopy:
		return f.runtime(rtReturnDataCopy, c, "ooo")

	case builtin.Gas:
		return f.runtime(rtGas, c, "")
	case builtin.GasPrice:
		return f.withOutWord(rtGasPrice, c, "")
	case builtin.GasLimit:
		return f.runtime(rtGasLimit, c, "")
	case builtin.ChainID:
		return f.withOutWord(rtChainID, c, "")
	case builtin.BaseFee:
		return f.withOutWord(rtBaseFee, c, "")
	case builtin.BlobBaseFee:
		return f.withOutWord(rtBlobBaseFee, c, "")

	case builtin.BlobHash:
		// no host API exposes blob hashes
		if _, err := f.args(c, "u"); err != nil {
			return none, err
		}
		return Value{Kind: KindU256, V: zero256}, nil

	case builtin.BlockHash:
		return f.withOutBytes(rtBlockHash, c, "n")
	case builtin.CoinBase:
		return f.withOutBytes(rtCoinBase, c, "")
	case builtin.Timestamp:
		return f.runtime(rtTimestamp, c, "")
	case builtin.Number:
		return f.runtime(rtNumber, c, "")
	case builtin.Difficulty, builtin.PrevRandao:
		return f.withOutBytes(rtPrevRandao, c, "")

	case builtin.Create:
		return f.withOutBytes(rtCreate, c, "woo")
	case builtin.Create2:
		return f.withOutBytes(rtCreate2, c, "woow")
	case builtin.Call:
		return f.runtime(rtCall, c, "gpwoooo")
	case builtin.CallCode:
		return f.runtime(rtCallCode, c, "gpwoooo")
	case builtin.DelegateCall:
		return f.runtime(rtDelegateCall, c, "gpoooo")
	case builtin.StaticCall:
		return f.runtime(rtStaticCall, c, "gpoooo")

	case builtin.Return:
		return f.terminate(rtReturn, c, "oo")
	case builtin.Revert:
		return f.terminate(rtRevert, c, "oo")
	case builtin.Stop:
		return f.terminate(rtStop, c, "")
	case builtin.SelfDestruct:
		return f.terminate(rtSelfDestruct, c, "p")
	case builtin.InvalidOp:
		return f.terminate(rtInvalid, c, "")

	case builtin.Log0:
		return f.runtime(rtLog0, c, "oo")
	case builtin.Log1:
		return f.runtime(rtLog1, c, "oop")
	case builtin.Log2:
		return f.runtime(rtLog2, c, "oopp")
	case builtin.Log3:
		return f.runtime(rtLog3, c, "ooppp")
	case builtin.Log4:
		return f.runtime(rtLog4, c, "oopppp")

	case builtin.DataOffset:
		return f.dataOffset(c)
	case builtin.DataSize:
		return f.dataSize(c)
	case builtin.DataCopy:
		return f.runtime(rtDataCopy, c, "ooo")

	case builtin.SetImmutable:
		name, err := literalArg(c, 1)
		if err != nil {
			return none, err
		}
		vv, err := f.expr(c.Args[2], ExpectU256)
		if err != nil {
			return none, err
		}
		ov, err := f.expr(c.Args[0], ExpectI32)
		if err != nil {
			return none, err
		}
		off, err := f.convert(ov, KindI32, stackSlot)
		if err != nil {
			return none, err
		}
		val, err := f.spill(vv)
		if err != nil {
			return none, err
		}
		f.b.Call(f.g.rt(rtSetImmutable), off, f.g.immutableKey(name), val)
		return none, nil

	case builtin.LoadImmutable:
		name, err := literalArg(c, 0)
		if err != nil {
			return none, err
		}
		out := f.b.Alloca(ir.I256)
		f.b.Call(f.g.rt(rtLoadImmutable), f.g.immutableKey(name), out)
		return Value{Kind: KindU256, V: f.b.Load(ir.I256, out)}, nil

	case builtin.LinkerSymbol:
		name, err := literalArg(c, 0)
		if err != nil {
			return none, err
		}
		addr, ok := f.g.opts.Symbols[name]
		if !ok {
			if !f.g.opts.IgnoreUnknownLinkerLibrary {
				return none, fmt.Errorf("unknown linker library %q", name)
			}
			return f.constant(uint256.NewInt(0), want), nil
		}
		n, err := config.SymbolAddress(addr)
		if err != nil {
			return none, fmt.Errorf("linker library %q: %w", name, err)
		}
		return f.constant(n, want), nil

	case builtin.MemoryGuard:
		// never folded: the runtime reserves the guarded region
		return f.runtime(rtMemoryGuard, c, "o")

	case builtin.DebugPrint:
		v, err := f.expr(c.Args[0], Untyped)
		if err != nil || !f.g.opts.Debug {
			return none, err
		}
		if v.Kind == KindBytes32 || v.Kind == KindBytes32Pointer {
			p, err := f.convert(v, KindBytes32Pointer, stackSlot)
			if err != nil {
				return none, err
			}
			f.b.Call(f.g.rt(rtDebugBytes32), p)
			return none, nil
		}
		p, err := f.spill(v)
		if err != nil {
			return none, err
		}
		f.b.Call(f.g.rt(rtDebugI256), p)
		return none, nil

	case builtin.Invalid:
		return none, fmt.Errorf("invalid built-in")
	}
	return none, fmt.Errorf("built-in %s is not supported", op)
}

// binaryWord lowers the two-operand word arithmetic
func (f *funcGen) binaryWord(op builtin.Instruction, x, y ir.Value) ir.Value {
	switch op {
	case builtin.Add:
		return f.b.Add(x, y)
	case builtin.Sub:
		return f.b.Sub(x, y)
	case builtin.Mul:
		return f.b.Mul(x, y)
	case builtin.Div:
		return f.div(x, y, ir.OpUDiv)
	case builtin.Mod:
		return f.div(x, y, ir.OpURem)
	case builtin.SDiv:
		return f.sdiv(x, y, ir.OpSDiv)
	case builtin.SMod:
		return f.sdiv(x, y, ir.OpSRem)
	case builtin.Exp:
		return f.exp(x, y)
	case builtin.SignExtend:
		return f.signExtend(x, y)
	case builtin.And:
		return f.b.And(x, y)
	case builtin.Or:
		return f.b.Or(x, y)
	case builtin.Xor:
		return f.b.Xor(x, y)
	case builtin.Byte:
		return f.byteAt(x, y)
	case builtin.Shl:
		return f.shift(x, y, ir.OpShl)
	case builtin.Shr:
		return f.shift(x, y, ir.OpLShr)
	}
	return f.sar(x, y)
}

// runtime calls a wrapper with converted arguments and passes its
// result through.
func (f *funcGen) runtime(id runtimeFn, c *ast.Call, kinds string) (Value, error) {
	a, err := f.args(c, kinds)
	if err != nil {
		return none, err
	}
	r := f.b.Call(f.g.rt(id), a...)
	if _, void := r.Type().(*ir.VoidType); void {
		return none, nil
	}
	return wrap(r), nil
}

// withOutBytes calls a wrapper that writes a big-endian word to a
// trailing output pointer.
func (f *funcGen) withOutBytes(id runtimeFn, c *ast.Call, kinds string) (Value, error) {
	a, err := f.args(c, kinds)
	if err != nil {
		return none, err
	}
	out := f.b.Alloca(ir.Bytes32)
	f.b.Call(f.g.rt(id), append(a, out)...)
	return Value{Kind: KindBytes32Pointer, V: out}, nil
}

// withOutWord calls a wrapper that writes a native-endian word to a
// trailing output pointer.
func (f *funcGen) withOutWord(id runtimeFn, c *ast.Call, kinds string) (Value, error) {
	a, err := f.args(c, kinds)
	if err != nil {
		return none, err
	}
	out := f.b.Alloca(ir.I256)
	f.b.Call(f.g.rt(id), append(a, out)...)
	return Value{Kind: KindU256, V: f.b.Load(ir.I256, out)}, nil
}

// terminate calls a wrapper that ends execution. Code after it is
// lowered into a block nothing jumps to.
func (f *funcGen) terminate(id runtimeFn, c *ast.Call, kinds string) (Value, error) {
	a, err := f.args(c, kinds)
	if err != nil {
		return none, err
	}
	f.b.Call(f.g.rt(id), a...)
	f.b.Unreachable()
	f.deadBlock()
	return none, nil
}

func (f *funcGen) mload(c *ast.Call, want ExpectedType) (Value, error) {
	a, err := f.args(c, "o")
	if err != nil {
		return none, err
	}
	switch {
	case want == ExpectBytes32Pointer:
		out := f.b.Alloca(ir.Bytes32)
		f.b.Call(f.g.rt(rtMLoadBytes32), a[0], out)
		return Value{Kind: KindBytes32Pointer, V: out}, nil
	case want == ExpectI32 && !f.g.opts.Debug:
		return wrap(f.b.Call(f.g.rt(rtMLoadU32), a[0])), nil
	case want == ExpectI64 && !f.g.opts.Debug:
		return wrap(f.b.Call(f.g.rt(rtMLoadU64), a[0])), nil
	}
	out := f.b.Alloca(ir.I256)
	f.b.Call(f.g.rt(rtMLoadU256), a[0], out)
	return Value{Kind: KindU256, V: f.b.Load(ir.I256, out)}, nil
}

// mstore picks the wrapper matching the value's representation
func (f *funcGen) mstore(c *ast.Call) (Value, error) {
	v, err := f.expr(c.Args[1], Untyped)
	if err != nil {
		return none, err
	}
	ov, err := f.expr(c.Args[0], ExpectI32)
	if err != nil {
		return none, err
	}
	off, err := f.convert(ov, KindI32, stackSlot)
	if err != nil {
		return none, err
	}

	switch v.Kind {
	case KindI32:
		f.b.Call(f.g.rt(rtMStoreU32), off, v.V)
	case KindI64:
		f.b.Call(f.g.rt(rtMStoreU64), off, v.V)
	case KindBytes32, KindBytes32Pointer:
		p, err := f.convert(v, KindBytes32Pointer, stackSlot)
		if err != nil {
			return none, err
		}
		f.b.Call(f.g.rt(rtMStoreBytes32), off, p)
	default:
		p, err := f.spill(v)
		if err != nil {
			return none, err
		}
		f.b.Call(f.g.rt(rtMStoreU256), off, p)
	}
	return none, nil
}

// dataRef resolves a dataoffset/datasize name against the object whose
// code is being lowered. ok is false for the object's own name.
func (f *funcGen) dataRef(name string) (g *ir.Global, ok bool, err error) {
	if name == f.obj.Name {
		return nil, false, nil
	}
	key := dataKey{obj: f.obj, name: name}
	if g := f.g.data[key]; g != nil {
		return g, true, nil
	}

	var content []byte
	if child := f.obj.Child(name); child != nil {
		blob, found := f.g.blobs[child]
		if !found && child == f.obj.DeployedChild {
			// the runtime code is this module's call export
			found = true
		}
		if !found {
			return nil, false, fmt.Errorf("object %q has not been compiled", name)
		}
		content = blob
	} else if seg := f.obj.Segment(name); seg != nil {
		content = seg.Value
	} else {
		return nil, false, fmt.Errorf("unknown object or data %q", name)
	}

	gname := "yul.data." + name
	for i := 1; f.g.mod.Global(gname) != nil; i++ {
		gname = fmt.Sprintf("yul.data.%s.%d", name, i)
	}
	g = f.g.mod.NewGlobal(gname, content, true)
	f.g.data[key] = g
	return g, true, nil
}

// dataOffset is the distance from EVM memory offset 0 to the data, so
// datacopy can address it like memory.
func (f *funcGen) dataOffset(c *ast.Call) (Value, error) {
	name, err := literalArg(c, 0)
	if err != nil {
		return none, err
	}
	g, ok, err := f.dataRef(name)
	if err != nil {
		return none, err
	}
	if !ok {
		return Value{Kind: KindI32, V: ir.ConstUint64(ir.I32, 0)}, nil
	}
	base := f.b.Call(f.g.rt(rtMemoryAddr), ir.ConstUint64(ir.I32, 0))
	addr := f.b.PtrToInt(g, ir.I32)
	return Value{Kind: KindI32, V: f.b.Sub(addr, f.b.PtrToInt(base, ir.I32))}, nil
}

func (f *funcGen) dataSize(c *ast.Call) (Value, error) {
	name, err := literalArg(c, 0)
	if err != nil {
		return none, err
	}
	g, ok, err := f.dataRef(name)
	if err != nil {
		return none, err
	}
	if !ok {
		return wrap(f.b.Call(f.g.rt(rtCodeSize))), nil
	}
	return Value{Kind: KindI32, V: ir.ConstUint64(ir.I32, uint64(len(g.Data)))}, nil
}

// immutableKey returns the constant slot key of an immutable, the
// keccak256 hash of its name, as a native-endian word.
func (g *Generator) immutableKey(name string) *ir.Global {
	if k, ok := g.immKeys[name]; ok {
		return k
	}
	k := g.mod.NewGlobal(fmt.Sprintf("yul.immutable.%d", len(g.immKeys)), ImmutableSlot(name), true)
	g.immKeys[name] = k
	return k
}

func literalArg(c *ast.Call, i int) (string, error) {
	lit, ok := c.Args[i].(*ast.Literal)
	if !ok || lit.Kind != ast.StringLit {
		return "", fmt.Errorf("argument %d of %s must be a string literal", i+1, c.Name)
	}
	return lit.Value, nil
}

// ImmutableSlot returns the little-endian storage key of an immutable
func ImmutableSlot(name string) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(name))
	sum := h.Sum(nil)
	for i, j := 0, len(sum)-1; i < j; i, j = i+1, j-1 {
		sum[i], sum[j] = sum[j], sum[i]
	}
	return sum
}
