package checker

import (
	"github.com/lhaig/yul2wasm/internal/ast"
	"github.com/lhaig/yul2wasm/internal/builtin"
	"github.com/lhaig/yul2wasm/internal/diagnostic"
)

// Checker validates name resolution, arity and control-flow placement
// in every code block of an object tree.
type Checker struct {
	diags     *diagnostic.Diagnostics
	scope     *Scope
	loopDepth int
	inFunc    bool
	inPost    bool
}

// Check validates obj and all nested objects.
func Check(obj *ast.Object) *diagnostic.Diagnostics {
	c := &Checker{diags: diagnostic.New()}
	c.checkObject(obj)
	return c.diags
}

func (c *Checker) checkObject(obj *ast.Object) {
	if obj.Code != nil {
		c.scope = NewScope(nil)
		c.loopDepth = 0
		c.inFunc = false
		c.checkBlock(obj.Code)
	}
	for _, child := range obj.Objects {
		c.checkObject(child)
	}
}

// checkBlock opens a scope, hoists the block's functions and checks
// each statement.
func (c *Checker) checkBlock(block *ast.Block) {
	outer := c.scope
	c.scope = NewScope(outer)
	c.hoistFunctions(block)
	for _, stmt := range block.Statements {
		c.checkStatement(stmt)
	}
	c.scope = outer
}

// checkBlockIn checks the block's statements in the current scope (for
// init blocks whose declarations stay visible to the rest of the loop).
func (c *Checker) checkBlockIn(block *ast.Block) {
	c.hoistFunctions(block)
	for _, stmt := range block.Statements {
		c.checkStatement(stmt)
	}
}

func (c *Checker) hoistFunctions(block *ast.Block) {
	for _, stmt := range block.Statements {
		fn, ok := stmt.(*ast.FunctionDef)
		if !ok {
			continue
		}
		c.declare(&Symbol{
			Name:    fn.Name,
			Kind:    SymFunction,
			Params:  len(fn.Params),
			Returns: len(fn.Returns),
			Line:    fn.Line,
			Column:  fn.Column,
		})
	}
}

// declare defines sym, reporting redeclaration, shadowing and clashes
// with built-in names.
func (c *Checker) declare(sym *Symbol) {
	if builtin.IsBuiltin(sym.Name) {
		c.diags.Errorf(sym.Line, sym.Column, "cannot declare '%s': name is reserved for a built-in", sym.Name)
		return
	}
	if prev := c.scope.Resolve(sym.Name); prev != nil && c.scope.ResolveLocal(sym.Name) == nil {
		c.diags.ErrorWithHint(sym.Line, sym.Column,
			"'"+sym.Name+"' shadows an existing "+prev.Kind.String(),
			"Yul does not allow shadowing; rename one of them")
		return
	}
	if err := c.scope.Define(sym); err != nil {
		c.diags.Errorf(sym.Line, sym.Column, "%s", err.Error())
	}
}

func (c *Checker) checkStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.FunctionDef:
		c.checkFunction(s)

	case *ast.VarDecl:
		if s.Value != nil {
			c.checkValue(s.Value, len(s.Names))
		}
		for _, n := range s.Names {
			c.declare(&Symbol{Name: n.Name, Kind: SymVariable, Line: n.Line, Column: n.Column})
		}

	case *ast.Assignment:
		c.checkValue(s.Value, len(s.Targets))
		seen := make(map[string]bool)
		for _, target := range s.Targets {
			if seen[target.Name] {
				c.diags.Errorf(target.Line, target.Column, "variable '%s' assigned twice in one statement", target.Name)
			}
			seen[target.Name] = true
			c.resolveVariable(target.Name, target.Line, target.Column)
		}

	case *ast.ExprStmt:
		if n := c.checkCall(s.Call); n != 0 {
			c.diags.ErrorWithHint(s.Line, s.Column,
				"value of '"+s.Call.Name+"' is discarded",
				"wrap the call in pop(...) or assign its result")
		}

	case *ast.If:
		c.checkValue(s.Cond, 1)
		c.checkBlock(s.Body)

	case *ast.Switch:
		c.checkValue(s.Expr, 1)
		seen := make(map[string]bool)
		for _, cs := range s.Cases {
			key := literalKey(cs.Value)
			if seen[key] {
				c.diags.Errorf(cs.Line, cs.Column, "duplicate case value")
			}
			seen[key] = true
			c.checkBlock(cs.Body)
		}
		if s.Default != nil {
			c.checkBlock(s.Default)
		}

	case *ast.For:
		outer := c.scope
		c.scope = NewScope(outer)
		c.checkBlockIn(s.Init)
		c.checkValue(s.Cond, 1)
		c.loopDepth++
		c.checkBlock(s.Body)
		c.inPost = true
		c.checkBlock(s.Post)
		c.inPost = false
		c.loopDepth--
		c.scope = outer

	case *ast.Break:
		c.checkLoopJump("break", s.Line, s.Column)

	case *ast.Continue:
		c.checkLoopJump("continue", s.Line, s.Column)

	case *ast.Leave:
		if !c.inFunc {
			c.diags.Errorf(s.Line, s.Column, "leave used outside of a function body")
		}

	case *ast.BlockStmt:
		c.checkBlock(s.Block)
	}
}

func (c *Checker) checkLoopJump(word string, line, col int) {
	if c.loopDepth == 0 {
		c.diags.Errorf(line, col, "%s used outside of a for loop", word)
		return
	}
	if c.inPost {
		c.diags.Errorf(line, col, "%s not allowed in the post block of a for loop", word)
	}
}

func (c *Checker) checkFunction(fn *ast.FunctionDef) {
	outer := c.scope
	savedLoop, savedFunc, savedPost := c.loopDepth, c.inFunc, c.inPost

	c.scope = NewFunctionScope(outer)
	c.loopDepth, c.inFunc, c.inPost = 0, true, false
	for _, p := range fn.Params {
		c.declare(&Symbol{Name: p.Name, Kind: SymVariable, Line: p.Line, Column: p.Column})
	}
	for _, r := range fn.Returns {
		c.declare(&Symbol{Name: r.Name, Kind: SymVariable, Line: r.Line, Column: r.Column})
	}
	c.checkBlock(fn.Body)

	c.scope = outer
	c.loopDepth, c.inFunc, c.inPost = savedLoop, savedFunc, savedPost
}

// checkValue checks an expression that must produce want values.
func (c *Checker) checkValue(expr ast.Expression, want int) {
	got := c.checkExpr(expr)
	if got != want {
		line, col := expr.Pos()
		c.diags.Errorf(line, col, "expected %d value(s), expression produces %d", want, got)
	}
}

// checkExpr returns the number of values expr produces.
func (c *Checker) checkExpr(expr ast.Expression) int {
	switch e := expr.(type) {
	case *ast.Identifier:
		c.resolveVariable(e.Name, e.Line, e.Column)
		return 1
	case *ast.Literal:
		if e.Kind == ast.StringLit && len(e.Value) > 32 {
			c.diags.Errorf(e.Line, e.Column, "string literal longer than 32 bytes")
		}
		return 1
	case *ast.Call:
		return c.checkCall(e)
	}
	return 0
}

// checkCall validates a call and returns how many values it produces.
func (c *Checker) checkCall(call *ast.Call) int {
	if inst, ok := builtin.Lookup(call.Name); ok {
		info := inst.Info()
		if len(call.Args) != info.Args {
			c.diags.Errorf(call.Line, call.Column, "built-in '%s' expects %d argument(s), got %d", call.Name, info.Args, len(call.Args))
		}
		for i, arg := range call.Args {
			if inst.IsLiteralArg(i) {
				if lit, ok := arg.(*ast.Literal); !ok || lit.Kind != ast.StringLit {
					line, col := arg.Pos()
					c.diags.Errorf(line, col, "argument %d of '%s' must be a string literal", i+1, call.Name)
				}
				continue
			}
			c.checkValue(arg, 1)
		}
		return info.Returns
	}

	sym := c.scope.Resolve(call.Name)
	if sym == nil || sym.Kind != SymFunction {
		c.diags.Errorf(call.Line, call.Column, "call to undefined function '%s'", call.Name)
		for _, arg := range call.Args {
			c.checkExpr(arg)
		}
		return 1
	}
	if len(call.Args) != sym.Params {
		c.diags.Errorf(call.Line, call.Column, "function '%s' expects %d argument(s), got %d", call.Name, sym.Params, len(call.Args))
	}
	for _, arg := range call.Args {
		c.checkValue(arg, 1)
	}
	return sym.Returns
}

func (c *Checker) resolveVariable(name string, line, col int) {
	sym := c.scope.Resolve(name)
	if sym == nil {
		c.diags.Errorf(line, col, "undeclared identifier '%s'", name)
		return
	}
	if sym.Kind != SymVariable {
		c.diags.Errorf(line, col, "'%s' is a function, not a variable", name)
	}
}

func literalKey(l *ast.Literal) string {
	if l == nil {
		return ""
	}
	return string(rune('0'+l.Kind)) + l.Value
}
