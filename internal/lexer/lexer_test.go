package lexer

import (
	"testing"
)

func TestNextToken_Delimiters(t *testing.T) {
	input := "{ } ( ) , : := ->"
	expected := []TokenType{
		LBRACE, RBRACE, LPAREN, RPAREN, COMMA, COLON, ASSIGN, ARROW, EOF,
	}

	l := New(input)
	for i, expectedType := range expected {
		tok := l.NextToken()
		if tok.Type != expectedType {
			t.Errorf("token[%d] - wrong type. expected=%q, got=%q",
				i, expectedType, tok.Type)
		}
	}
}

func TestNextToken_Keywords(t *testing.T) {
	tests := []struct {
		keyword  string
		expected TokenType
	}{
		{"function", FUNCTION},
		{"let", LET},
		{"if", IF},
		{"switch", SWITCH},
		{"case", CASE},
		{"default", DEFAULT},
		{"for", FOR},
		{"break", BREAK},
		{"continue", CONTINUE},
		{"leave", LEAVE},
		{"true", TRUE},
		{"false", FALSE},
		{"object", IDENT},
		{"code", IDENT},
		{"data", IDENT},
		{"mstore", IDENT},
	}

	for _, tt := range tests {
		t.Run(tt.keyword, func(t *testing.T) {
			tok := New(tt.keyword).NextToken()
			if tok.Type != tt.expected {
				t.Errorf("expected=%q, got=%q", tt.expected, tok.Type)
			}
			if tok.Literal != tt.keyword {
				t.Errorf("expected literal %q, got %q", tt.keyword, tok.Literal)
			}
		})
	}
}

func TestNextToken_Identifiers(t *testing.T) {
	tests := []string{"abi_decode", "usr$x", "a.b.c", "_tmp1", "$ptr"}
	for _, input := range tests {
		tok := New(input).NextToken()
		if tok.Type != IDENT || tok.Literal != input {
			t.Errorf("input %q: expected IDENT %q, got %s", input, input, tok)
		}
	}
}

func TestNextToken_Numbers(t *testing.T) {
	tests := []struct {
		input    string
		expected TokenType
		literal  string
	}{
		{"0", NUMBER, "0"},
		{"12345", NUMBER, "12345"},
		{"0x7f", HEX_NUMBER, "0x7f"},
		{"0xFFffFF", HEX_NUMBER, "0xFFffFF"},
		{"12ab", ILLEGAL, "malformed number literal"},
	}
	for _, tt := range tests {
		tok := New(tt.input).NextToken()
		if tok.Type != tt.expected || tok.Literal != tt.literal {
			t.Errorf("input %q: expected %s(%q), got %s", tt.input, tt.expected, tt.literal, tok)
		}
	}
}

func TestNextToken_Strings(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`"hello"`, "hello"},
		{`'single'`, "single"},
		{`"a\nb"`, "a\nb"},
		{`"\x41\x42"`, "AB"},
		{`"q\"q"`, `q"q`},
		{`"A"`, "A"},
	}
	for _, tt := range tests {
		tok := New(tt.input).NextToken()
		if tok.Type != STRING_LIT {
			t.Fatalf("input %s: expected STRING, got %s", tt.input, tok)
		}
		if tok.Literal != tt.expected {
			t.Errorf("input %s: expected %q, got %q", tt.input, tt.expected, tok.Literal)
		}
	}
}

func TestNextToken_UnterminatedString(t *testing.T) {
	tok := New(`"abc`).NextToken()
	if tok.Type != ILLEGAL {
		t.Errorf("expected ILLEGAL, got %s", tok)
	}
}

func TestNextToken_HexString(t *testing.T) {
	tok := New(`hex"00ff_10"`).NextToken()
	if tok.Type != HEX_STRING || tok.Literal != "00ff10" {
		t.Errorf("expected HEX_STRING(00ff10), got %s", tok)
	}

	tok = New(`hex"abc"`).NextToken()
	if tok.Type != ILLEGAL {
		t.Errorf("odd digit count: expected ILLEGAL, got %s", tok)
	}

	// "hex" alone is an identifier
	tok = New(`hex := 1`).NextToken()
	if tok.Type != IDENT || tok.Literal != "hex" {
		t.Errorf("expected IDENT hex, got %s", tok)
	}
}

func TestNextToken_Comments(t *testing.T) {
	input := `// leading comment
let x /* inline
comment */ := 1 // trailing`
	tokens := New(input).Tokenize()
	expected := []TokenType{LET, IDENT, ASSIGN, NUMBER, EOF}
	if len(tokens) != len(expected) {
		t.Fatalf("expected %d tokens, got %d: %v", len(expected), len(tokens), tokens)
	}
	for i, tt := range expected {
		if tokens[i].Type != tt {
			t.Errorf("token[%d]: expected %s, got %s", i, tt, tokens[i])
		}
	}
	if tokens[2].Line != 3 {
		t.Errorf("expected := on line 3, got %d", tokens[2].Line)
	}
}

func TestNextToken_Positions(t *testing.T) {
	tokens := New("let a := add(1, 2)\n  mstore(0, a)").Tokenize()
	mstore := tokens[9]
	if mstore.Literal != "mstore" {
		t.Fatalf("expected mstore at index 9, got %s", mstore)
	}
	if mstore.Line != 2 || mstore.Column != 3 {
		t.Errorf("expected 2:3, got %d:%d", mstore.Line, mstore.Column)
	}
}
