package ir

import "fmt"

// Op is an instruction opcode
type Op int

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpUDiv
	OpSDiv
	OpURem
	OpSRem
	OpShl
	OpLShr
	OpAShr
	OpAnd
	OpOr
	OpXor

	OpICmp
	OpSelect

	OpZExt
	OpSExt
	OpTrunc
	OpPtrToInt
	OpIntToPtr

	OpAlloca
	OpLoad
	OpStore
	OpGEP

	OpCall
	OpExtractValue
	OpInsertValue

	// Terminators
	OpBr
	OpCondBr
	OpRet
	OpUnreachable
)

var opNames = [...]string{
	OpAdd:          "add",
	OpSub:          "sub",
	OpMul:          "mul",
	OpUDiv:         "udiv",
	OpSDiv:         "sdiv",
	OpURem:         "urem",
	OpSRem:         "srem",
	OpShl:          "shl",
	OpLShr:         "lshr",
	OpAShr:         "ashr",
	OpAnd:          "and",
	OpOr:           "or",
	OpXor:          "xor",
	OpICmp:         "icmp",
	OpSelect:       "select",
	OpZExt:         "zext",
	OpSExt:         "sext",
	OpTrunc:        "trunc",
	OpPtrToInt:     "ptrtoint",
	OpIntToPtr:     "inttoptr",
	OpAlloca:       "alloca",
	OpLoad:         "load",
	OpStore:        "store",
	OpGEP:          "getelementptr",
	OpCall:         "call",
	OpExtractValue: "extractvalue",
	OpInsertValue:  "insertvalue",
	OpBr:           "br",
	OpCondBr:       "br",
	OpRet:          "ret",
	OpUnreachable:  "unreachable",
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("op(%d)", int(op))
}

// IsBinary reports whether op is a two-operand integer instruction
func (op Op) IsBinary() bool { return op >= OpAdd && op <= OpXor }

// IsCast reports whether op converts between types
func (op Op) IsCast() bool { return op >= OpZExt && op <= OpIntToPtr }

// IsTerminator reports whether op ends a basic block
func (op Op) IsTerminator() bool { return op >= OpBr }

// Pred is an integer comparison predicate
type Pred int

const (
	EQ Pred = iota
	NE
	ULT
	UGT
	ULE
	UGE
	SLT
	SGT
	SLE
	SGE
)

var predNames = [...]string{"eq", "ne", "ult", "ugt", "ule", "uge", "slt", "sgt", "sle", "sge"}

func (p Pred) String() string { return predNames[p] }

// Instr is a single SSA instruction. Which fields are meaningful
// depends on Op.
type Instr struct {
	Op   Op
	Name string // result name without the % sigil; empty for void results
	Typ  Type   // result type (Void for stores, terminators, void calls)
	Args []Value

	Pred    Pred      // icmp
	Callee  *Function // call
	Elem    Type      // alloca, load and getelementptr element type
	Index   int       // extractvalue, insertvalue
	Targets []*Block  // br: [dest]; condbr: [then, else]
}

func (in *Instr) Type() Type     { return in.Typ }
func (in *Instr) Ident() string { return "%" + quoteName(in.Name) }

// Block is a basic block
type Block struct {
	Name   string
	Instrs []*Instr
}

// Terminated reports whether the block already ends in a terminator
func (b *Block) Terminated() bool {
	if len(b.Instrs) == 0 {
		return false
	}
	return b.Instrs[len(b.Instrs)-1].Op.IsTerminator()
}

// Linkage controls symbol visibility
type Linkage int

const (
	External Linkage = iota
	Internal
)

// Function is a function definition or declaration
type Function struct {
	Name    string
	Ret     Type
	Params  []*Param
	Blocks  []*Block
	Linkage Linkage
	Attrs   []string // function attributes, e.g. noinline

	declared  bool
	nextValue int
	blockUse  map[string]int
}

// Type of a function reference is a pointer
func (f *Function) Type() Type     { return Ptr }
func (f *Function) Ident() string { return "@" + quoteName(f.Name) }

// IsDeclaration reports whether the function has no body
func (f *Function) IsDeclaration() bool { return f.declared }

// Param returns the i-th parameter
func (f *Function) Param(i int) *Param { return f.Params[i] }

// NewBlock appends a basic block. The name is made unique within the
// function.
func (f *Function) NewBlock(name string) *Block {
	if f.blockUse == nil {
		f.blockUse = make(map[string]int)
	}
	n := f.blockUse[name]
	f.blockUse[name] = n + 1
	if n > 0 {
		name = fmt.Sprintf("%s.%d", name, n)
	}
	b := &Block{Name: name}
	f.Blocks = append(f.Blocks, b)
	return b
}

// Entry returns the first block, creating it if needed
func (f *Function) Entry() *Block {
	if len(f.Blocks) == 0 {
		return f.NewBlock("entry")
	}
	return f.Blocks[0]
}

// HasAttr reports whether the function carries attribute a
func (f *Function) HasAttr(a string) bool {
	for _, x := range f.Attrs {
		if x == a {
			return true
		}
	}
	return false
}

func (f *Function) freshName() string {
	name := fmt.Sprintf("t%d", f.nextValue)
	f.nextValue++
	return name
}

// Module is a compilation unit
type Module struct {
	Name    string
	Triple  string
	Globals []*Global
	Funcs   []*Function

	funcs   map[string]*Function
	globals map[string]*Global
}

// DefaultTriple is the target all modules are compiled for
const DefaultTriple = "wasm32-unknown-unknown"

// NewModule creates an empty module for the wasm32 target
func NewModule(name string) *Module {
	return &Module{
		Name:    name,
		Triple:  DefaultTriple,
		funcs:   make(map[string]*Function),
		globals: make(map[string]*Global),
	}
}

// NewFunction adds a function definition
func (m *Module) NewFunction(name string, ret Type, params ...Type) *Function {
	f := newFunction(name, ret, params)
	m.Funcs = append(m.Funcs, f)
	m.funcs[name] = f
	return f
}

// Declare adds an external declaration, or returns the existing
// function of that name.
func (m *Module) Declare(name string, ret Type, params ...Type) *Function {
	if f, ok := m.funcs[name]; ok {
		return f
	}
	f := newFunction(name, ret, params)
	f.declared = true
	m.Funcs = append(m.Funcs, f)
	m.funcs[name] = f
	return f
}

func newFunction(name string, ret Type, params []Type) *Function {
	f := &Function{Name: name, Ret: ret}
	for i, p := range params {
		f.Params = append(f.Params, &Param{Name: fmt.Sprintf("arg%d", i), Typ: p, Index: i})
	}
	return f
}

// Function returns the function with the given name, or nil
func (m *Module) Function(name string) *Function {
	return m.funcs[name]
}

// HasFunction reports whether name is already taken
func (m *Module) HasFunction(name string) bool {
	_, ok := m.funcs[name]
	return ok
}

// NewGlobal adds a private byte-array global
func (m *Module) NewGlobal(name string, data []byte, constant bool) *Global {
	g := &Global{Name: name, Data: data, Constant: constant, Private: true}
	m.Globals = append(m.Globals, g)
	m.globals[name] = g
	return g
}

// Global returns the global with the given name, or nil
func (m *Module) Global(name string) *Global {
	return m.globals[name]
}
