package codegen

import (
	"github.com/lhaig/yul2wasm/internal/ast"
	"github.com/lhaig/yul2wasm/internal/ir"
)

func (f *funcGen) stmt(s ast.Statement) error {
	switch s := s.(type) {
	case *ast.FunctionDef:
		uf := f.g.funcs[s]
		if uf == nil {
			return errorAt(s, "function %s was not hoisted", s.Name)
		}
		return f.g.lowerFunction(f.obj, uf, f.funcs)

	case *ast.VarDecl:
		return f.varDecl(s)

	case *ast.Assignment:
		return f.assign(s)

	case *ast.ExprStmt:
		_, err := f.expr(s.Call, Untyped)
		return err

	case *ast.If:
		cond, err := f.cond(s.Cond)
		if err != nil {
			return err
		}
		then := f.fn.NewBlock("if.then")
		end := f.fn.NewBlock("if.end")
		f.b.CondBr(cond, then, end)
		f.b.SetInsertPoint(then)
		if err := f.block(s.Body); err != nil {
			return err
		}
		f.branch(end)
		f.b.SetInsertPoint(end)
		return nil

	case *ast.Switch:
		return f.switchStmt(s)

	case *ast.For:
		return f.forStmt(s)

	case *ast.Break:
		if len(f.loops) == 0 {
			return errorAt(s, "break outside of a for loop")
		}
		f.b.Br(f.loops[len(f.loops)-1].brk)
		f.deadBlock()
		return nil

	case *ast.Continue:
		if len(f.loops) == 0 {
			return errorAt(s, "continue outside of a for loop")
		}
		f.b.Br(f.loops[len(f.loops)-1].cont)
		f.deadBlock()
		return nil

	case *ast.Leave:
		if f.ret == nil {
			return errorAt(s, "leave outside of a function")
		}
		f.b.Br(f.ret)
		f.deadBlock()
		return nil

	case *ast.BlockStmt:
		return f.block(s.Block)
	}
	return errorAt(s, "unsupported statement %T", s)
}

// branch closes the current block with a jump unless it already ends
func (f *funcGen) branch(to *ir.Block) {
	if !f.b.Terminated() {
		f.b.Br(to)
	}
}

func (f *funcGen) varDecl(s *ast.VarDecl) error {
	if s.Value == nil {
		for _, n := range s.Names {
			slot := f.b.Alloca(ir.I256)
			f.b.Store(ir.ConstUint64(ir.I256, 0), slot)
			f.define(n.Name, KindU256, slot)
		}
		return nil
	}

	vals, err := f.values(s.Value, len(s.Names))
	if err != nil {
		return err
	}
	// lowered before the names exist so the initializer sees outer bindings
	for i, n := range s.Names {
		u, err := f.convert(vals[i], KindU256, stackSlot)
		if err != nil {
			return located(s, err)
		}
		slot := f.b.Alloca(ir.I256)
		f.b.Store(u, slot)
		f.define(n.Name, KindU256, slot)
	}
	return nil
}

func (f *funcGen) assign(s *ast.Assignment) error {
	targets := make([]*variable, len(s.Targets))
	for i, id := range s.Targets {
		v := f.vars.lookup(id.Name)
		if v == nil {
			return errorAt(id, "assignment to undeclared variable %s", id.Name)
		}
		targets[i] = v
	}

	var vals []Value
	var err error
	if len(targets) == 1 {
		var v Value
		v, err = f.expr(s.Value, expectationFor(targets[0].kind))
		vals = []Value{v}
	} else {
		vals, err = f.values(s.Value, len(targets))
	}
	if err != nil {
		return err
	}

	for i, t := range targets {
		var nv ir.Value
		if t.kind == KindBytes32Pointer {
			nv, err = f.escape(vals[i])
		} else {
			nv, err = f.convert(vals[i], t.kind, stackSlot)
		}
		if err != nil {
			return located(s, err)
		}
		f.b.Store(nv, t.slot)
	}
	return nil
}

// values lowers an initializer that must produce exactly n values
func (f *funcGen) values(e ast.Expression, n int) ([]Value, error) {
	if n == 1 {
		v, err := f.expr(e, ExpectU256)
		if err != nil {
			return nil, err
		}
		return []Value{v}, nil
	}
	v, err := f.expr(e, Untyped)
	if err != nil {
		return nil, err
	}
	if v.Kind != KindTuple {
		return nil, errorAt(e, "expected %d values, expression produces %s", n, v.Kind)
	}
	st := v.V.Type().(*ir.StructType)
	if len(st.Fields) != n {
		return nil, errorAt(e, "expected %d values, expression produces %d", n, len(st.Fields))
	}
	out := make([]Value, n)
	for i := range out {
		out[i] = wrap(f.b.ExtractValue(v.V, i))
	}
	return out, nil
}

// escape produces a pointer that stays valid after the current frame
// returns.
func (f *funcGen) escape(v Value) (ir.Value, error) {
	if v.Kind == KindBytes32Pointer {
		if g, ok := v.V.(*ir.Global); ok && g.Constant {
			return g, nil
		}
		p := f.b.Call(f.g.rt(rtAllocaBytes32))
		f.b.Store(f.b.Load(ir.Bytes32, v.V), p)
		return p, nil
	}
	return f.convert(v, KindBytes32Pointer, heapSlot)
}

// cond lowers a condition to an i1
func (f *funcGen) cond(e ast.Expression) (ir.Value, error) {
	v, err := f.expr(e, ExpectBool)
	if err != nil {
		return nil, err
	}
	if v.Kind == KindBytes32 || v.Kind == KindBytes32Pointer {
		u, err := f.convert(v, KindU256, stackSlot)
		if err != nil {
			return nil, located(e, err)
		}
		v = Value{Kind: KindU256, V: u}
	}
	switch v.Kind {
	case KindI32, KindI64, KindU256:
		zero := ir.ConstUint64(v.V.Type().(*ir.IntType), 0)
		return f.b.ICmp(ir.NE, v.V, zero), nil
	}
	_, err = f.convert(v, KindU256, stackSlot)
	return nil, located(e, err)
}

func (f *funcGen) switchStmt(s *ast.Switch) error {
	v, err := f.expr(s.Expr, ExpectU256)
	if err != nil {
		return err
	}
	subject, err := f.convert(v, KindU256, stackSlot)
	if err != nil {
		return located(s.Expr, err)
	}

	end := f.fn.NewBlock("switch.end")
	for _, c := range s.Cases {
		n, err := literalValue(c.Value)
		if err != nil {
			return located(c.Value, err)
		}
		match := f.fn.NewBlock("switch.case")
		next := f.fn.NewBlock("switch.next")
		eq := f.b.ICmp(ir.EQ, subject, ir.ConstInt(ir.I256, n.ToBig()))
		f.b.CondBr(eq, match, next)

		f.b.SetInsertPoint(match)
		if err := f.block(c.Body); err != nil {
			return err
		}
		f.branch(end)
		f.b.SetInsertPoint(next)
	}
	if s.Default != nil {
		if err := f.block(s.Default); err != nil {
			return err
		}
	}
	f.branch(end)
	f.b.SetInsertPoint(end)
	return nil
}

func (f *funcGen) forStmt(s *ast.For) error {
	// init variables stay visible in the condition, post and body
	f.pushScope()
	defer f.popScope()
	if s.Init != nil {
		if err := f.statements(s.Init.Statements); err != nil {
			return err
		}
	}

	condB := f.fn.NewBlock("for.cond")
	body := f.fn.NewBlock("for.body")
	post := f.fn.NewBlock("for.post")
	end := f.fn.NewBlock("for.end")
	f.branch(condB)

	f.b.SetInsertPoint(condB)
	c, err := f.cond(s.Cond)
	if err != nil {
		return err
	}
	f.b.CondBr(c, body, end)

	f.b.SetInsertPoint(body)
	f.loops = append(f.loops, loop{brk: end, cont: post})
	err = f.block(s.Body)
	f.loops = f.loops[:len(f.loops)-1]
	if err != nil {
		return err
	}
	f.branch(post)

	f.b.SetInsertPoint(post)
	if err := f.block(s.Post); err != nil {
		return err
	}
	f.branch(condB)

	f.b.SetInsertPoint(end)
	return nil
}
