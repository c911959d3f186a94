package lexer

import "fmt"

// TokenType represents the type of a token
type TokenType int

const (
	// Special tokens
	ILLEGAL TokenType = iota
	EOF

	// Literals
	IDENT      // x, mstore, abi_decode_t_uint256
	NUMBER     // 123
	HEX_NUMBER // 0x7f
	STRING_LIT // "hello"
	HEX_STRING // hex"00ff"

	// Keywords
	FUNCTION
	LET
	IF
	SWITCH
	CASE
	DEFAULT
	FOR
	BREAK
	CONTINUE
	LEAVE
	TRUE
	FALSE

	// Delimiters
	LBRACE // {
	RBRACE // }
	LPAREN // (
	RPAREN // )
	COMMA  // ,
	COLON  // :
	ASSIGN // :=
	ARROW  // ->
)

var tokenNames = map[TokenType]string{
	ILLEGAL:    "ILLEGAL",
	EOF:        "EOF",
	IDENT:      "IDENT",
	NUMBER:     "NUMBER",
	HEX_NUMBER: "HEX_NUMBER",
	STRING_LIT: "STRING",
	HEX_STRING: "HEX_STRING",
	FUNCTION:   "function",
	LET:        "let",
	IF:         "if",
	SWITCH:     "switch",
	CASE:       "case",
	DEFAULT:    "default",
	FOR:        "for",
	BREAK:      "break",
	CONTINUE:   "continue",
	LEAVE:      "leave",
	TRUE:       "true",
	FALSE:      "false",
	LBRACE:     "{",
	RBRACE:     "}",
	LPAREN:     "(",
	RPAREN:     ")",
	COMMA:      ",",
	COLON:      ":",
	ASSIGN:     ":=",
	ARROW:      "->",
}

// String returns the string representation of the token type
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// keywords maps reserved words to their token types. The object-level
// words "object", "code" and "data" are plain identifiers; the parser
// recognizes them by position.
var keywords = map[string]TokenType{
	"function": FUNCTION,
	"let":      LET,
	"if":       IF,
	"switch":   SWITCH,
	"case":     CASE,
	"default":  DEFAULT,
	"for":      FOR,
	"break":    BREAK,
	"continue": CONTINUE,
	"leave":    LEAVE,
	"true":     TRUE,
	"false":    FALSE,
}

// LookupIdent checks if an identifier is a keyword
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// Token represents a lexical token
type Token struct {
	Type    TokenType
	Literal string // decoded contents for strings, digits for hex strings
	Line    int
	Column  int
}

// String returns a debug representation of the token
func (t Token) String() string {
	return fmt.Sprintf("%s(%q) at %d:%d", t.Type, t.Literal, t.Line, t.Column)
}
