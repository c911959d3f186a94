package ir

import "fmt"

// Builder appends instructions to a block of a function
type Builder struct {
	fn    *Function
	block *Block
}

// NewBuilder creates a builder positioned at the end of fn's entry block
func NewBuilder(fn *Function) *Builder {
	return &Builder{fn: fn, block: fn.Entry()}
}

// Function returns the function being built
func (b *Builder) Function() *Function { return b.fn }

// Block returns the current insertion block
func (b *Builder) Block() *Block { return b.block }

// SetInsertPoint moves the builder to the end of bb
func (b *Builder) SetInsertPoint(bb *Block) { b.block = bb }

// Terminated reports whether the current block is closed
func (b *Builder) Terminated() bool { return b.block.Terminated() }

func (b *Builder) emit(in *Instr) *Instr {
	if _, void := in.Typ.(*VoidType); !void && in.Name == "" {
		in.Name = b.fn.freshName()
	}
	b.block.Instrs = append(b.block.Instrs, in)
	return in
}

// Binary emits a two-operand integer instruction
func (b *Builder) Binary(op Op, x, y Value) *Instr {
	if !op.IsBinary() {
		panic(fmt.Sprintf("ir: %s is not a binary op", op))
	}
	return b.emit(&Instr{Op: op, Typ: x.Type(), Args: []Value{x, y}})
}

func (b *Builder) Add(x, y Value) *Instr  { return b.Binary(OpAdd, x, y) }
func (b *Builder) Sub(x, y Value) *Instr  { return b.Binary(OpSub, x, y) }
func (b *Builder) Mul(x, y Value) *Instr  { return b.Binary(OpMul, x, y) }
func (b *Builder) UDiv(x, y Value) *Instr { return b.Binary(OpUDiv, x, y) }
func (b *Builder) SDiv(x, y Value) *Instr { return b.Binary(OpSDiv, x, y) }
func (b *Builder) URem(x, y Value) *Instr { return b.Binary(OpURem, x, y) }
func (b *Builder) SRem(x, y Value) *Instr { return b.Binary(OpSRem, x, y) }
func (b *Builder) Shl(x, y Value) *Instr  { return b.Binary(OpShl, x, y) }
func (b *Builder) LShr(x, y Value) *Instr { return b.Binary(OpLShr, x, y) }
func (b *Builder) AShr(x, y Value) *Instr { return b.Binary(OpAShr, x, y) }
func (b *Builder) And(x, y Value) *Instr  { return b.Binary(OpAnd, x, y) }
func (b *Builder) Or(x, y Value) *Instr   { return b.Binary(OpOr, x, y) }
func (b *Builder) Xor(x, y Value) *Instr  { return b.Binary(OpXor, x, y) }

// ICmp emits an integer comparison producing i1
func (b *Builder) ICmp(p Pred, x, y Value) *Instr {
	return b.emit(&Instr{Op: OpICmp, Typ: I1, Pred: p, Args: []Value{x, y}})
}

// Select emits cond ? x : y
func (b *Builder) Select(cond, x, y Value) *Instr {
	return b.emit(&Instr{Op: OpSelect, Typ: x.Type(), Args: []Value{cond, x, y}})
}

// Cast emits a conversion instruction
func (b *Builder) Cast(op Op, v Value, to Type) *Instr {
	if !op.IsCast() {
		panic(fmt.Sprintf("ir: %s is not a cast", op))
	}
	return b.emit(&Instr{Op: op, Typ: to, Args: []Value{v}})
}

func (b *Builder) ZExt(v Value, to Type) *Instr     { return b.Cast(OpZExt, v, to) }
func (b *Builder) SExt(v Value, to Type) *Instr     { return b.Cast(OpSExt, v, to) }
func (b *Builder) Trunc(v Value, to Type) *Instr    { return b.Cast(OpTrunc, v, to) }
func (b *Builder) PtrToInt(v Value, to Type) *Instr { return b.Cast(OpPtrToInt, v, to) }
func (b *Builder) IntToPtr(v Value) *Instr          { return b.Cast(OpIntToPtr, v, Ptr) }

// Alloca reserves a stack slot of type t. Slots are placed in the entry
// block so that loops reuse one slot per site.
func (b *Builder) Alloca(t Type) *Instr {
	in := &Instr{Op: OpAlloca, Typ: Ptr, Elem: t, Name: b.fn.freshName()}
	entry := b.fn.Entry()
	// keep allocas grouped at the top of the entry block
	i := 0
	for i < len(entry.Instrs) && entry.Instrs[i].Op == OpAlloca {
		i++
	}
	entry.Instrs = append(entry.Instrs, nil)
	copy(entry.Instrs[i+1:], entry.Instrs[i:])
	entry.Instrs[i] = in
	return in
}

// Load reads a value of type t from p
func (b *Builder) Load(t Type, p Value) *Instr {
	return b.emit(&Instr{Op: OpLoad, Typ: t, Elem: t, Args: []Value{p}})
}

// Store writes v to p
func (b *Builder) Store(v, p Value) *Instr {
	return b.emit(&Instr{Op: OpStore, Typ: Void, Args: []Value{v, p}})
}

// ByteOffset emits getelementptr i8, p, off
func (b *Builder) ByteOffset(p, off Value) *Instr {
	return b.emit(&Instr{Op: OpGEP, Typ: Ptr, Elem: I8, Args: []Value{p, off}})
}

// Call emits a direct call
func (b *Builder) Call(fn *Function, args ...Value) *Instr {
	return b.emit(&Instr{Op: OpCall, Typ: fn.Ret, Callee: fn, Args: args})
}

// ExtractValue reads field i of an aggregate
func (b *Builder) ExtractValue(agg Value, i int) *Instr {
	st, ok := agg.Type().(*StructType)
	if !ok || i < 0 || i >= len(st.Fields) {
		panic(fmt.Sprintf("ir: extractvalue %d from %s", i, agg.Type()))
	}
	return b.emit(&Instr{Op: OpExtractValue, Typ: st.Fields[i], Index: i, Args: []Value{agg}})
}

// InsertValue returns agg with field i replaced by v
func (b *Builder) InsertValue(agg, v Value, i int) *Instr {
	return b.emit(&Instr{Op: OpInsertValue, Typ: agg.Type(), Index: i, Args: []Value{agg, v}})
}

// Br emits an unconditional branch
func (b *Builder) Br(dest *Block) *Instr {
	return b.emit(&Instr{Op: OpBr, Typ: Void, Targets: []*Block{dest}})
}

// CondBr emits a two-way branch on an i1
func (b *Builder) CondBr(cond Value, then, els *Block) *Instr {
	return b.emit(&Instr{Op: OpCondBr, Typ: Void, Args: []Value{cond}, Targets: []*Block{then, els}})
}

// Ret emits a return; pass nil for void functions
func (b *Builder) Ret(v Value) *Instr {
	if v == nil {
		return b.emit(&Instr{Op: OpRet, Typ: Void})
	}
	return b.emit(&Instr{Op: OpRet, Typ: Void, Args: []Value{v}})
}

// Unreachable marks the end of a path that never continues
func (b *Builder) Unreachable() *Instr {
	return b.emit(&Instr{Op: OpUnreachable, Typ: Void})
}
