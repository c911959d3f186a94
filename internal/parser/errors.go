package parser

import (
	"github.com/lhaig/yul2wasm/internal/diagnostic"
	"github.com/lhaig/yul2wasm/internal/lexer"
)

// syncTokens are tokens the parser can synchronize to after an error
var syncTokens = map[lexer.TokenType]bool{
	lexer.FUNCTION: true,
	lexer.LET:      true,
	lexer.IF:       true,
	lexer.SWITCH:   true,
	lexer.FOR:      true,
	lexer.BREAK:    true,
	lexer.CONTINUE: true,
	lexer.LEAVE:    true,
	lexer.RBRACE:   true,
	lexer.EOF:      true,
}

// Parser holds the parser state
type Parser struct {
	tokens []lexer.Token
	pos    int
	diags  *diagnostic.Diagnostics
}

// current returns the current token
func (p *Parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return lexer.Token{Type: lexer.EOF}
	}
	return p.tokens[p.pos]
}

// peek returns the next token without consuming
func (p *Parser) peek() lexer.Token {
	if p.pos+1 >= len(p.tokens) {
		return lexer.Token{Type: lexer.EOF}
	}
	return p.tokens[p.pos+1]
}

// advance moves to the next token and returns the consumed token
func (p *Parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// expect consumes the current token if it matches the expected type,
// otherwise reports an error
func (p *Parser) expect(tt lexer.TokenType) lexer.Token {
	tok := p.current()
	if tok.Type != tt {
		p.errorAt(tok, "expected %s, got %s", tt, describe(tok))
		return tok
	}
	return p.advance()
}

// expectWord consumes an identifier with the given spelling (object,
// code, data).
func (p *Parser) expectWord(word string) lexer.Token {
	tok := p.current()
	if tok.Type != lexer.IDENT || tok.Literal != word {
		p.errorAt(tok, "expected '%s', got %s", word, describe(tok))
		return tok
	}
	return p.advance()
}

// check returns true if the current token is of the given type
func (p *Parser) check(tt lexer.TokenType) bool {
	return p.current().Type == tt
}

// checkWord returns true if the current token is the identifier word
func (p *Parser) checkWord(word string) bool {
	tok := p.current()
	return tok.Type == lexer.IDENT && tok.Literal == word
}

// match consumes the current token if it matches, returns true if consumed
func (p *Parser) match(tt lexer.TokenType) bool {
	if p.check(tt) {
		p.advance()
		return true
	}
	return false
}

// synchronize skips tokens until a statement boundary is found.
func (p *Parser) synchronize() {
	for !p.check(lexer.EOF) {
		if syncTokens[p.current().Type] {
			return
		}
		p.advance()
	}
}

func (p *Parser) errorAt(tok lexer.Token, format string, args ...interface{}) {
	p.diags.Errorf(tok.Line, tok.Column, format, args...)
}

// describe renders a token for error messages
func describe(tok lexer.Token) string {
	switch tok.Type {
	case lexer.IDENT, lexer.NUMBER, lexer.HEX_NUMBER:
		return "'" + tok.Literal + "'"
	case lexer.ILLEGAL:
		return tok.Literal
	case lexer.EOF:
		return "end of input"
	default:
		return tok.Type.String()
	}
}
