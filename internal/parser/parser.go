package parser

import (
	"encoding/hex"

	"github.com/lhaig/yul2wasm/internal/ast"
	"github.com/lhaig/yul2wasm/internal/diagnostic"
	"github.com/lhaig/yul2wasm/internal/lexer"
)

// New creates a new parser
func New(source string) *Parser {
	l := lexer.New(source)
	tokens := l.Tokenize()
	p := &Parser{
		tokens: tokens,
		pos:    0,
		diags:  diagnostic.New(),
	}
	for _, tok := range tokens {
		if tok.Type == lexer.ILLEGAL {
			p.errorAt(tok, "illegal token: %s", tok.Literal)
		}
	}
	return p
}

// Diagnostics returns the parser's diagnostics
func (p *Parser) Diagnostics() *diagnostic.Diagnostics {
	return p.diags
}

// Parse parses a Yul source file into its top-level object. A bare
// block is accepted and wrapped into an object named "object".
func (p *Parser) Parse() *ast.Object {
	var obj *ast.Object
	if p.check(lexer.LBRACE) {
		tok := p.current()
		obj = &ast.Object{Name: "object", Code: p.parseBlock(), Line: tok.Line, Column: tok.Column}
	} else {
		obj = p.parseObject()
	}
	if !p.check(lexer.EOF) {
		p.errorAt(p.current(), "unexpected %s after top-level object", describe(p.current()))
	}
	return obj
}

// Parse is a convenience wrapper returning the object and diagnostics.
func Parse(source string) (*ast.Object, *diagnostic.Diagnostics) {
	p := New(source)
	obj := p.Parse()
	return obj, p.Diagnostics()
}

// parseObject parses: object "Name" { code { ... } (object ... | data ...)* }
func (p *Parser) parseObject() *ast.Object {
	tok := p.expectWord("object")
	name := p.expect(lexer.STRING_LIT)
	obj := &ast.Object{Name: name.Literal, Line: tok.Line, Column: tok.Column}

	p.expect(lexer.LBRACE)
	p.expectWord("code")
	obj.Code = p.parseBlock()

	for !p.check(lexer.RBRACE) && !p.check(lexer.EOF) {
		switch {
		case p.checkWord("object"):
			obj.Objects = append(obj.Objects, p.parseObject())
		case p.checkWord("data"):
			obj.Data = append(obj.Data, p.parseData())
		default:
			p.errorAt(p.current(), "expected 'object' or 'data', got %s", describe(p.current()))
			p.advance()
		}
	}
	p.expect(lexer.RBRACE)
	return obj
}

// parseData parses: data "name" hex"..." | data "name" "..."
func (p *Parser) parseData() *ast.Data {
	tok := p.expectWord("data")
	name := p.expect(lexer.STRING_LIT)
	d := &ast.Data{Name: name.Literal, Line: tok.Line, Column: tok.Column}

	switch p.current().Type {
	case lexer.HEX_STRING:
		raw, err := hex.DecodeString(p.advance().Literal)
		if err != nil {
			p.errorAt(tok, "invalid hex data: %v", err)
		}
		d.Value = raw
	case lexer.STRING_LIT:
		d.Value = []byte(p.advance().Literal)
	default:
		p.errorAt(p.current(), "expected data value, got %s", describe(p.current()))
	}
	return d
}

// parseBlock parses: { statement* }
func (p *Parser) parseBlock() *ast.Block {
	tok := p.expect(lexer.LBRACE)
	block := &ast.Block{Line: tok.Line, Column: tok.Column}
	for !p.check(lexer.RBRACE) && !p.check(lexer.EOF) {
		startPos := p.pos
		if stmt := p.parseStatement(); stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		if p.pos == startPos {
			p.advance()
		}
	}
	p.expect(lexer.RBRACE)
	return block
}

// parseStatement dispatches on the leading token
func (p *Parser) parseStatement() ast.Statement {
	tok := p.current()
	switch tok.Type {
	case lexer.LBRACE:
		return &ast.BlockStmt{Block: p.parseBlock()}
	case lexer.FUNCTION:
		return p.parseFunctionDef()
	case lexer.LET:
		return p.parseVarDecl()
	case lexer.IF:
		p.advance()
		cond := p.parseExpression()
		return &ast.If{Cond: cond, Body: p.parseBlock(), Line: tok.Line, Column: tok.Column}
	case lexer.SWITCH:
		return p.parseSwitch()
	case lexer.FOR:
		p.advance()
		f := &ast.For{Line: tok.Line, Column: tok.Column}
		f.Init = p.parseBlock()
		f.Cond = p.parseExpression()
		f.Post = p.parseBlock()
		f.Body = p.parseBlock()
		return f
	case lexer.BREAK:
		p.advance()
		return &ast.Break{Line: tok.Line, Column: tok.Column}
	case lexer.CONTINUE:
		p.advance()
		return &ast.Continue{Line: tok.Line, Column: tok.Column}
	case lexer.LEAVE:
		p.advance()
		return &ast.Leave{Line: tok.Line, Column: tok.Column}
	case lexer.IDENT:
		if p.peek().Type == lexer.LPAREN {
			call := p.parseCall()
			return &ast.ExprStmt{Call: call, Line: tok.Line, Column: tok.Column}
		}
		return p.parseAssignment()
	default:
		p.errorAt(tok, "unexpected %s at start of statement", describe(tok))
		p.synchronize()
		return nil
	}
}

// parseFunctionDef parses: function name(a, b) -> r, s { ... }
func (p *Parser) parseFunctionDef() *ast.FunctionDef {
	tok := p.expect(lexer.FUNCTION)
	name := p.expect(lexer.IDENT)
	fn := &ast.FunctionDef{Name: name.Literal, Line: tok.Line, Column: tok.Column}

	p.expect(lexer.LPAREN)
	if !p.check(lexer.RPAREN) {
		fn.Params = p.parseTypedNames()
	}
	p.expect(lexer.RPAREN)

	if p.match(lexer.ARROW) {
		fn.Returns = p.parseTypedNames()
	}
	fn.Body = p.parseBlock()
	return fn
}

// parseVarDecl parses: let a, b := expr | let a
func (p *Parser) parseVarDecl() *ast.VarDecl {
	tok := p.expect(lexer.LET)
	decl := &ast.VarDecl{Names: p.parseTypedNames(), Line: tok.Line, Column: tok.Column}
	if p.match(lexer.ASSIGN) {
		decl.Value = p.parseExpression()
	}
	return decl
}

// parseAssignment parses: a, b := expr
func (p *Parser) parseAssignment() ast.Statement {
	tok := p.current()
	assign := &ast.Assignment{Line: tok.Line, Column: tok.Column}
	for {
		id := p.expect(lexer.IDENT)
		assign.Targets = append(assign.Targets, &ast.Identifier{Name: id.Literal, Line: id.Line, Column: id.Column})
		if !p.match(lexer.COMMA) {
			break
		}
	}
	if !p.check(lexer.ASSIGN) {
		p.errorAt(p.current(), "expected ':=' after %s, got %s", assign.Targets[0].Name, describe(p.current()))
		p.synchronize()
		return nil
	}
	p.advance()
	assign.Value = p.parseExpression()
	return assign
}

// parseSwitch parses: switch expr (case lit { })* (default { })?
func (p *Parser) parseSwitch() *ast.Switch {
	tok := p.expect(lexer.SWITCH)
	sw := &ast.Switch{Expr: p.parseExpression(), Line: tok.Line, Column: tok.Column}

	for p.check(lexer.CASE) {
		caseTok := p.advance()
		lit, ok := p.parseLiteral()
		if !ok {
			p.errorAt(caseTok, "case value must be a literal")
		}
		sw.Cases = append(sw.Cases, &ast.Case{Value: lit, Body: p.parseBlock(), Line: caseTok.Line, Column: caseTok.Column})
	}
	if p.match(lexer.DEFAULT) {
		sw.Default = p.parseBlock()
	}
	if len(sw.Cases) == 0 && sw.Default == nil {
		p.errorAt(tok, "switch needs at least one case or a default")
	}
	return sw
}

// parseTypedNames parses: a, b:u256, c
func (p *Parser) parseTypedNames() []*ast.TypedName {
	var names []*ast.TypedName
	for {
		id := p.expect(lexer.IDENT)
		tn := &ast.TypedName{Name: id.Literal, Line: id.Line, Column: id.Column}
		if p.match(lexer.COLON) {
			tn.Type = p.expect(lexer.IDENT).Literal
		}
		names = append(names, tn)
		if !p.match(lexer.COMMA) {
			break
		}
	}
	return names
}

// parseExpression parses a literal, an identifier or a call
func (p *Parser) parseExpression() ast.Expression {
	tok := p.current()
	if tok.Type == lexer.IDENT {
		if p.peek().Type == lexer.LPAREN {
			return p.parseCall()
		}
		p.advance()
		return &ast.Identifier{Name: tok.Literal, Line: tok.Line, Column: tok.Column}
	}
	if lit, ok := p.parseLiteral(); ok {
		return lit
	}
	p.errorAt(tok, "expected expression, got %s", describe(tok))
	return &ast.Literal{Kind: ast.NumberLit, Value: "0", Line: tok.Line, Column: tok.Column}
}

// parseCall parses: name(arg, ...)
func (p *Parser) parseCall() *ast.Call {
	name := p.expect(lexer.IDENT)
	call := &ast.Call{Name: name.Literal, Line: name.Line, Column: name.Column}
	p.expect(lexer.LPAREN)
	if !p.check(lexer.RPAREN) {
		for {
			call.Args = append(call.Args, p.parseExpression())
			if !p.match(lexer.COMMA) {
				break
			}
		}
	}
	p.expect(lexer.RPAREN)
	return call
}

// parseLiteral parses a number, string, hex string or boolean with an
// optional type annotation. It consumes nothing when the current token
// is not a literal.
func (p *Parser) parseLiteral() (*ast.Literal, bool) {
	tok := p.current()
	lit := &ast.Literal{Value: tok.Literal, Line: tok.Line, Column: tok.Column}
	switch tok.Type {
	case lexer.NUMBER, lexer.HEX_NUMBER:
		lit.Kind = ast.NumberLit
	case lexer.STRING_LIT:
		lit.Kind = ast.StringLit
	case lexer.HEX_STRING:
		raw, err := hex.DecodeString(tok.Literal)
		if err != nil {
			p.errorAt(tok, "invalid hex literal: %v", err)
		}
		lit.Kind = ast.HexLit
		lit.Value = string(raw)
	case lexer.TRUE, lexer.FALSE:
		lit.Kind = ast.BoolLit
	default:
		return nil, false
	}
	p.advance()
	if p.match(lexer.COLON) {
		lit.Type = p.expect(lexer.IDENT).Literal
	}
	return lit, true
}
