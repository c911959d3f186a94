// Package codegen lowers checked Yul objects into ir modules. Values
// are kept in the narrowest native representation that is exact and
// converted at each use site; see ValueKind.
package codegen

import (
	"fmt"

	"github.com/lhaig/yul2wasm/internal/ast"
	"github.com/lhaig/yul2wasm/internal/config"
	"github.com/lhaig/yul2wasm/internal/ir"
)

// Generator holds the module-wide state of one EmitObject call
type Generator struct {
	mod   *ir.Module
	opts  config.Options
	blobs map[*ast.Object][]byte

	funcs    map[*ast.FunctionDef]*userFunc
	consts   map[[32]byte]*ir.Global
	data     map[dataKey]*ir.Global
	immKeys  map[string]*ir.Global
	expFn    *ir.Function
	retKind  ValueKind
	constSeq int
}

type dataKey struct {
	obj  *ast.Object
	name string
}

func newGenerator(name string, opts config.Options, blobs map[*ast.Object][]byte) *Generator {
	retKind := KindU256
	if opts.DefaultReturn == config.ReturnBytes32 {
		retKind = KindBytes32Pointer
	}
	return &Generator{
		mod:     ir.NewModule(name),
		opts:    opts,
		blobs:   blobs,
		funcs:   make(map[*ast.FunctionDef]*userFunc),
		consts:  make(map[[32]byte]*ir.Global),
		data:    make(map[dataKey]*ir.Global),
		immKeys: make(map[string]*ir.Global),
		retKind: retKind,
	}
}

// userFunc is a Yul function and its IR definition
type userFunc struct {
	def *ast.FunctionDef
	fn  *ir.Function
}

type variable struct {
	name string
	kind ValueKind
	slot ir.Value
}

// varScope chains block scopes inside one function. Variables of
// enclosing functions are never visible.
type varScope struct {
	parent *varScope
	vars   map[string]*variable
}

func (s *varScope) lookup(name string) *variable {
	for sc := s; sc != nil; sc = sc.parent {
		if v, ok := sc.vars[name]; ok {
			return v
		}
	}
	return nil
}

// funcScope chains hoisted function definitions across function
// boundaries.
type funcScope struct {
	parent *funcScope
	funcs  map[string]*userFunc
}

func (s *funcScope) lookup(name string) *userFunc {
	for sc := s; sc != nil; sc = sc.parent {
		if f, ok := sc.funcs[name]; ok {
			return f
		}
	}
	return nil
}

type loop struct {
	brk  *ir.Block
	cont *ir.Block
}

// funcGen lowers the body of one IR function
type funcGen struct {
	g     *Generator
	obj   *ast.Object
	fn    *ir.Function
	b     *ir.Builder
	vars  *varScope
	funcs *funcScope
	loops []loop

	// ret is the shared exit block of user functions, nil in entry points
	ret  *ir.Block
	rets []*variable
}

func (g *Generator) newFuncGen(obj *ast.Object, fn *ir.Function, funcs *funcScope) *funcGen {
	return &funcGen{
		g:     g,
		obj:   obj,
		fn:    fn,
		b:     ir.NewBuilder(fn),
		vars:  &varScope{vars: make(map[string]*variable)},
		funcs: funcs,
	}
}

// declareFunction creates the IR signature of a Yul function. Names are
// prefixed so they never collide with runtime symbols, and made unique
// since nested scopes may reuse a name.
func (g *Generator) declareFunction(def *ast.FunctionDef) *userFunc {
	name := "yul_" + def.Name
	for i := 1; g.mod.HasFunction(name); i++ {
		name = fmt.Sprintf("yul_%s.%d", def.Name, i)
	}

	params := make([]ir.Type, len(def.Params))
	for i := range params {
		params[i] = ir.I256
	}
	var ret ir.Type = ir.Void
	switch n := len(def.Returns); {
	case n == 1:
		ret = NativeType(g.retKind)
	case n > 1:
		fields := make([]ir.Type, n)
		for i := range fields {
			fields[i] = NativeType(g.retKind)
		}
		ret = ir.Struct(fields...)
	}

	fn := g.mod.NewFunction(name, ret, params...)
	fn.Linkage = ir.Internal
	if g.opts.NoInline {
		fn.Attrs = append(fn.Attrs, "noinline")
	}
	uf := &userFunc{def: def, fn: fn}
	g.funcs[def] = uf
	return uf
}

// lowerFunction emits the body of a user function
func (g *Generator) lowerFunction(obj *ast.Object, uf *userFunc, funcs *funcScope) error {
	fn := uf.fn
	f := g.newFuncGen(obj, fn, funcs)
	f.ret = fn.NewBlock("return")

	for i, p := range uf.def.Params {
		slot := f.b.Alloca(ir.I256)
		f.b.Store(fn.Param(i), slot)
		f.define(p.Name, KindU256, slot)
	}
	for _, r := range uf.def.Returns {
		slot := f.b.Alloca(NativeType(g.retKind))
		if g.retKind == KindBytes32Pointer {
			f.b.Store(f.b.Call(g.rt(rtZeroBytes32)), slot)
		} else {
			f.b.Store(ir.ConstUint64(ir.I256, 0), slot)
		}
		f.rets = append(f.rets, f.define(r.Name, g.retKind, slot))
	}

	if err := f.block(uf.def.Body); err != nil {
		return err
	}
	if !f.b.Terminated() {
		f.b.Br(f.ret)
	}

	f.b.SetInsertPoint(f.ret)
	switch len(f.rets) {
	case 0:
		f.b.Ret(nil)
	case 1:
		f.b.Ret(f.load(f.rets[0]))
	default:
		var agg ir.Value = &ir.Undef{Typ: fn.Ret}
		for i, r := range f.rets {
			agg = f.b.InsertValue(agg, f.load(r), i)
		}
		f.b.Ret(agg)
	}
	return nil
}

func (f *funcGen) define(name string, kind ValueKind, slot ir.Value) *variable {
	v := &variable{name: name, kind: kind, slot: slot}
	f.vars.vars[name] = v
	return v
}

func (f *funcGen) load(v *variable) ir.Value {
	return f.b.Load(NativeType(v.kind), v.slot)
}

func (f *funcGen) pushScope() {
	f.vars = &varScope{parent: f.vars, vars: make(map[string]*variable)}
	f.funcs = &funcScope{parent: f.funcs, funcs: make(map[string]*userFunc)}
}

func (f *funcGen) popScope() {
	f.vars = f.vars.parent
	f.funcs = f.funcs.parent
}

// hoist declares the functions of a block so that calls may precede
// their definitions.
func (f *funcGen) hoist(stmts []ast.Statement) {
	for _, s := range stmts {
		if def, ok := s.(*ast.FunctionDef); ok {
			f.funcs.funcs[def.Name] = f.g.declareFunction(def)
		}
	}
}

// block lowers a braced block in a new scope
func (f *funcGen) block(b *ast.Block) error {
	if b == nil {
		return nil
	}
	f.pushScope()
	defer f.popScope()
	return f.statements(b.Statements)
}

func (f *funcGen) statements(stmts []ast.Statement) error {
	f.hoist(stmts)
	for _, s := range stmts {
		if err := f.stmt(s); err != nil {
			return err
		}
	}
	return nil
}

// deadBlock continues emission after a jump; the block has no
// predecessors.
func (f *funcGen) deadBlock() {
	f.b.SetInsertPoint(f.fn.NewBlock("dead"))
}
