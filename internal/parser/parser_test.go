package parser

import (
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/lhaig/yul2wasm/internal/ast"
)

func mustParse(t *testing.T, source string) *ast.Object {
	t.Helper()
	obj, diags := Parse(source)
	if diags.HasErrors() {
		t.Fatalf("unexpected parse errors:\n%s", diags.Format("test.yul"))
	}
	return obj
}

func TestParseObjectTree(t *testing.T) {
	src := `
object "Token" {
    code {
        datacopy(0, dataoffset("Token_deployed"), datasize("Token_deployed"))
        return(0, datasize("Token_deployed"))
    }
    object "Token_deployed" {
        code { mstore(0, 1) }
        data ".metadata" hex"a2646970"
    }
    data "greeting" "hi"
}`
	obj := mustParse(t, src)
	if obj.Name != "Token" {
		t.Fatalf("expected object Token, got %q", obj.Name)
	}
	if len(obj.Code.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d:\n%s", len(obj.Code.Statements), spew.Sdump(obj.Code))
	}
	if len(obj.Objects) != 1 || obj.Objects[0].Name != "Token_deployed" {
		t.Fatalf("expected one child Token_deployed:\n%s", spew.Sdump(obj.Objects))
	}
	meta := obj.Objects[0].Segment(".metadata")
	if meta == nil || string(meta.Value) != "\xa2\x64\x69\x70" {
		t.Errorf("unexpected metadata: %v", meta)
	}
	if g := obj.Segment("greeting"); g == nil || string(g.Value) != "hi" {
		t.Errorf("unexpected greeting segment: %v", g)
	}
}

func TestParseBareBlock(t *testing.T) {
	obj := mustParse(t, `{ let x := 1 }`)
	if obj.Name != "object" {
		t.Errorf("expected default name 'object', got %q", obj.Name)
	}
	if len(obj.Code.Statements) != 1 {
		t.Errorf("expected 1 statement, got %d", len(obj.Code.Statements))
	}
}

func TestParseStatements(t *testing.T) {
	src := `object "C" { code {
    function f(a, b:u256) -> r, s {
        r := add(a, b)
        s := 0x10
        if lt(r, s) { leave }
    }
    let x, y := f(1, 2)
    let z
    switch x
    case 0 { z := 1 }
    case "ab" { z := 2 }
    default { z := 3 }
    for { let i := 0 } lt(i, 10) { i := add(i, 1) } {
        if eq(i, 5) { break }
        if eq(i, 2) { continue }
    }
    {
        pop(true)
    }
}}`
	obj := mustParse(t, src)
	stmts := obj.Code.Statements
	if len(stmts) != 6 {
		t.Fatalf("expected 6 statements, got %d:\n%s", len(stmts), ast.Print(obj))
	}

	fn, ok := stmts[0].(*ast.FunctionDef)
	if !ok {
		t.Fatalf("expected FunctionDef, got %T", stmts[0])
	}
	if fn.Name != "f" || len(fn.Params) != 2 || len(fn.Returns) != 2 {
		t.Errorf("unexpected function signature: %s", spew.Sdump(fn.Params, fn.Returns))
	}
	if fn.Params[1].Type != "u256" {
		t.Errorf("expected type annotation u256, got %q", fn.Params[1].Type)
	}
	if _, ok := fn.Body.Statements[2].(*ast.If).Body.Statements[0].(*ast.Leave); !ok {
		t.Errorf("expected leave inside if")
	}

	decl := stmts[1].(*ast.VarDecl)
	if len(decl.Names) != 2 || decl.Value.(*ast.Call).Name != "f" {
		t.Errorf("unexpected let: %s", spew.Sdump(decl))
	}
	if bare := stmts[2].(*ast.VarDecl); bare.Value != nil {
		t.Errorf("expected bare let without value")
	}

	sw := stmts[3].(*ast.Switch)
	if len(sw.Cases) != 2 || sw.Default == nil {
		t.Fatalf("unexpected switch shape: %s", spew.Sdump(sw))
	}
	if sw.Cases[1].Value.Kind != ast.StringLit || sw.Cases[1].Value.Value != "ab" {
		t.Errorf("expected string case, got %+v", sw.Cases[1].Value)
	}

	loop := stmts[4].(*ast.For)
	if len(loop.Init.Statements) != 1 || len(loop.Post.Statements) != 1 || len(loop.Body.Statements) != 2 {
		t.Errorf("unexpected for shape:\n%s", ast.Print(loop))
	}

	if _, ok := stmts[5].(*ast.BlockStmt); !ok {
		t.Errorf("expected nested block, got %T", stmts[5])
	}
}

func TestParseLiterals(t *testing.T) {
	obj := mustParse(t, `{ pop(0xff) pop(42) pop("s") pop(true) pop(false) pop(hex"0102") pop(7:u32) }`)
	expected := []struct {
		kind  ast.LiteralKind
		value string
		typ   string
	}{
		{ast.NumberLit, "0xff", ""},
		{ast.NumberLit, "42", ""},
		{ast.StringLit, "s", ""},
		{ast.BoolLit, "true", ""},
		{ast.BoolLit, "false", ""},
		{ast.HexLit, "\x01\x02", ""},
		{ast.NumberLit, "7", "u32"},
	}
	for i, want := range expected {
		call := obj.Code.Statements[i].(*ast.ExprStmt).Call
		lit := call.Args[0].(*ast.Literal)
		if lit.Kind != want.kind || lit.Value != want.value || lit.Type != want.typ {
			t.Errorf("literal %d: expected %+v, got %+v", i, want, lit)
		}
	}
}

func TestParseMultiAssignment(t *testing.T) {
	obj := mustParse(t, `{ let a, b := g() a, b := g() }`)
	assign, ok := obj.Code.Statements[1].(*ast.Assignment)
	if !ok {
		t.Fatalf("expected assignment, got %T", obj.Code.Statements[1])
	}
	if len(assign.Targets) != 2 || assign.Targets[1].Name != "b" {
		t.Errorf("unexpected targets: %s", spew.Sdump(assign.Targets))
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"missing code", `object "A" { }`, "expected 'code'"},
		{"stray token", `{ 5 }`, "unexpected '5' at start of statement"},
		{"missing assign", `{ x 1 }`, "expected ':=' after x"},
		{"empty switch", `{ switch 1 }`, "switch needs at least one case"},
		{"bad case", `{ switch 1 case x { } }`, "case value must be a literal"},
		{"unterminated string", `{ pop("abc) }`, "malformed string literal"},
		{"trailing garbage", `{ } }`, "after top-level object"},
		{"unknown object item", `object "A" { code { } foo }`, "expected 'object' or 'data'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, diags := Parse(tt.input)
			if !diags.HasErrors() {
				t.Fatalf("expected errors for %q", tt.input)
			}
			if out := diags.Format("t.yul"); !strings.Contains(out, tt.want) {
				t.Errorf("expected %q in:\n%s", tt.want, out)
			}
		})
	}
}

func TestParseCommentsInsideObject(t *testing.T) {
	src := `/* header */
object "A" { // the object
    code { /* nothing */ }
    // a data item
    data "d" hex"ff"
}`
	obj := mustParse(t, src)
	if len(obj.Data) != 1 || obj.Data[0].Value[0] != 0xff {
		t.Errorf("unexpected data: %s", spew.Sdump(obj.Data))
	}
}
