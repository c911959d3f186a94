package lexer

import (
	"strconv"
	"strings"
)

// Lexer scans Yul source text and produces tokens
type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	line         int  // current line number
	column       int  // current column number
}

// New creates a new Lexer instance
func New(input string) *Lexer {
	l := &Lexer{
		input:  input,
		line:   1,
		column: 0,
	}
	l.readChar()
	return l
}

// readChar reads the next character and advances the position
func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++
}

// peekChar returns the next character without advancing the position
func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// skipWhitespace skips whitespace characters
func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		if l.ch == '\n' {
			l.line++
			l.column = 0
		}
		l.readChar()
	}
}

// skipSingleLineComment skips a single-line comment (//)
func (l *Lexer) skipSingleLineComment() {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}

// skipMultiLineComment skips a multi-line comment (/* */). The opening
// delimiter has already been consumed.
func (l *Lexer) skipMultiLineComment() {
	for {
		if l.ch == 0 {
			break
		}
		if l.ch == '\n' {
			l.line++
			l.column = 0
		}
		if l.ch == '*' && l.peekChar() == '/' {
			l.readChar()
			l.readChar()
			break
		}
		l.readChar()
	}
}

// readIdentifier reads an identifier or keyword. Yul identifiers may
// contain dots and dollar signs.
func (l *Lexer) readIdentifier() string {
	position := l.position
	for isIdentChar(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

// readNumber reads a decimal or 0x-prefixed hexadecimal literal
func (l *Lexer) readNumber() (string, TokenType) {
	position := l.position
	if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X') {
		l.readChar()
		l.readChar()
		for isHexDigit(l.ch) {
			l.readChar()
		}
		return l.input[position:l.position], HEX_NUMBER
	}
	for isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position], NUMBER
}

// readString reads a quoted string literal and returns its decoded
// contents. The current character is the opening quote, which may be
// either ' or ".
func (l *Lexer) readString() (string, bool) {
	quote := l.ch
	var sb strings.Builder

	for {
		l.readChar()
		if l.ch == 0 || l.ch == '\n' {
			return "", false
		}
		if l.ch == quote {
			break
		}
		if l.ch != '\\' {
			sb.WriteByte(l.ch)
			continue
		}
		l.readChar()
		switch l.ch {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '\\', '"', '\'':
			sb.WriteByte(l.ch)
		case 'x':
			digits := string([]byte{l.peekAt(1), l.peekAt(2)})
			v, err := strconv.ParseUint(digits, 16, 8)
			if err != nil {
				return "", false
			}
			l.readChar()
			l.readChar()
			sb.WriteByte(byte(v))
		case 'u':
			digits := string([]byte{l.peekAt(1), l.peekAt(2), l.peekAt(3), l.peekAt(4)})
			v, err := strconv.ParseUint(digits, 16, 16)
			if err != nil {
				return "", false
			}
			for i := 0; i < 4; i++ {
				l.readChar()
			}
			sb.WriteRune(rune(v))
		default:
			return "", false
		}
	}
	return sb.String(), true
}

// peekAt returns the character n positions after the current one
func (l *Lexer) peekAt(n int) byte {
	if l.position+n >= len(l.input) {
		return 0
	}
	return l.input[l.position+n]
}

// readHexString reads the quoted part of hex"..." and returns the digits
// with any underscore separators removed. The current character is the
// opening quote.
func (l *Lexer) readHexString() (string, bool) {
	quote := l.ch
	var sb strings.Builder
	for {
		l.readChar()
		if l.ch == quote {
			break
		}
		if l.ch == '_' {
			continue
		}
		if !isHexDigit(l.ch) {
			return "", false
		}
		sb.WriteByte(l.ch)
	}
	if sb.Len()%2 != 0 {
		return "", false
	}
	return sb.String(), true
}

// NextToken returns the next token from the input
func (l *Lexer) NextToken() Token {
	var tok Token

	l.skipWhitespace()

	tok.Line = l.line
	tok.Column = l.column

	switch l.ch {
	case '{':
		tok = Token{Type: LBRACE, Literal: "{", Line: tok.Line, Column: tok.Column}
	case '}':
		tok = Token{Type: RBRACE, Literal: "}", Line: tok.Line, Column: tok.Column}
	case '(':
		tok = Token{Type: LPAREN, Literal: "(", Line: tok.Line, Column: tok.Column}
	case ')':
		tok = Token{Type: RPAREN, Literal: ")", Line: tok.Line, Column: tok.Column}
	case ',':
		tok = Token{Type: COMMA, Literal: ",", Line: tok.Line, Column: tok.Column}
	case ':':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: ASSIGN, Literal: ":=", Line: tok.Line, Column: tok.Column}
		} else {
			tok = Token{Type: COLON, Literal: ":", Line: tok.Line, Column: tok.Column}
		}
	case '-':
		if l.peekChar() == '>' {
			l.readChar()
			tok = Token{Type: ARROW, Literal: "->", Line: tok.Line, Column: tok.Column}
		} else {
			tok = Token{Type: ILLEGAL, Literal: "-", Line: tok.Line, Column: tok.Column}
		}
	case '/':
		if l.peekChar() == '/' {
			l.skipSingleLineComment()
			return l.NextToken()
		} else if l.peekChar() == '*' {
			l.readChar()
			l.readChar()
			l.skipMultiLineComment()
			return l.NextToken()
		}
		tok = Token{Type: ILLEGAL, Literal: "/", Line: tok.Line, Column: tok.Column}
	case '"', '\'':
		str, ok := l.readString()
		if !ok {
			tok = Token{Type: ILLEGAL, Literal: "malformed string literal", Line: tok.Line, Column: tok.Column}
		} else {
			tok = Token{Type: STRING_LIT, Literal: str, Line: tok.Line, Column: tok.Column}
		}
	case 0:
		tok = Token{Type: EOF, Literal: "", Line: tok.Line, Column: tok.Column}
	default:
		if isLetter(l.ch) {
			ident := l.readIdentifier()
			if ident == "hex" && (l.ch == '"' || l.ch == '\'') {
				digits, ok := l.readHexString()
				if !ok {
					tok = Token{Type: ILLEGAL, Literal: "malformed hex literal", Line: tok.Line, Column: tok.Column}
				} else {
					tok = Token{Type: HEX_STRING, Literal: digits, Line: tok.Line, Column: tok.Column}
				}
				break
			}
			return Token{Type: LookupIdent(ident), Literal: ident, Line: tok.Line, Column: tok.Column}
		} else if isDigit(l.ch) {
			literal, tokenType := l.readNumber()
			if isIdentChar(l.ch) {
				// 12abc or 0x12g
				for isIdentChar(l.ch) {
					l.readChar()
				}
				return Token{Type: ILLEGAL, Literal: "malformed number literal", Line: tok.Line, Column: tok.Column}
			}
			return Token{Type: tokenType, Literal: literal, Line: tok.Line, Column: tok.Column}
		}
		tok = Token{Type: ILLEGAL, Literal: string(l.ch), Line: tok.Line, Column: tok.Column}
	}

	l.readChar()
	return tok
}

// Tokenize returns all tokens from the input
func (l *Lexer) Tokenize() []Token {
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			break
		}
	}
	return tokens
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_' || ch == '$'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || 'a' <= ch && ch <= 'f' || 'A' <= ch && ch <= 'F'
}

func isIdentChar(ch byte) bool {
	return isLetter(ch) || isDigit(ch) || ch == '.'
}
