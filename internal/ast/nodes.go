package ast

// Node is the base interface for all AST nodes
type Node interface {
	Pos() (line, col int)
}

// Statement nodes
type Statement interface {
	Node
	stmtNode()
}

// Expression nodes
type Expression interface {
	Node
	exprNode()
}

// Object is a named Yul object: a code block plus nested objects and
// data segments.
type Object struct {
	Name    string
	Code    *Block
	Objects []*Object
	Data    []*Data

	// DeployedChild is the nested object named Name+"_deployed", set by
	// Resolve. Nil for objects without a runtime part.
	DeployedChild *Object

	Line   int
	Column int
}

func (o *Object) Pos() (int, int) { return o.Line, o.Column }

// Child returns the direct child object with the given name.
func (o *Object) Child(name string) *Object {
	for _, c := range o.Objects {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Segment returns the data segment with the given name.
func (o *Object) Segment(name string) *Data {
	for _, d := range o.Data {
		if d.Name == name {
			return d
		}
	}
	return nil
}

// Data is a named data segment: data "name" hex"..." or data "name" "..."
type Data struct {
	Name   string
	Value  []byte
	Line   int
	Column int
}

func (d *Data) Pos() (int, int) { return d.Line, d.Column }

// Block is a braced list of statements
type Block struct {
	Statements []Statement
	Line       int
	Column     int
}

func (b *Block) Pos() (int, int) { return b.Line, b.Column }

// TypedName is a variable or parameter name with an optional type
// annotation (x:u256). The annotation is informational only.
type TypedName struct {
	Name   string
	Type   string
	Line   int
	Column int
}

func (t *TypedName) Pos() (int, int) { return t.Line, t.Column }

// --- Statements ---

// FunctionDef represents function name(params) -> returns { body }
type FunctionDef struct {
	Name    string
	Params  []*TypedName
	Returns []*TypedName
	Body    *Block
	Line    int
	Column  int
}

func (f *FunctionDef) Pos() (int, int) { return f.Line, f.Column }
func (f *FunctionDef) stmtNode()       {}

// VarDecl represents let a, b := value. Value is nil for a bare
// declaration, which zero-initializes.
type VarDecl struct {
	Names  []*TypedName
	Value  Expression
	Line   int
	Column int
}

func (v *VarDecl) Pos() (int, int) { return v.Line, v.Column }
func (v *VarDecl) stmtNode()       {}

// Assignment represents a, b := value
type Assignment struct {
	Targets []*Identifier
	Value   Expression
	Line    int
	Column  int
}

func (a *Assignment) Pos() (int, int) { return a.Line, a.Column }
func (a *Assignment) stmtNode()       {}

// ExprStmt is a call evaluated for its effects
type ExprStmt struct {
	Call   *Call
	Line   int
	Column int
}

func (e *ExprStmt) Pos() (int, int) { return e.Line, e.Column }
func (e *ExprStmt) stmtNode()       {}

// If represents if cond { body }. Yul has no else branch.
type If struct {
	Cond   Expression
	Body   *Block
	Line   int
	Column int
}

func (i *If) Pos() (int, int) { return i.Line, i.Column }
func (i *If) stmtNode()       {}

// Switch represents switch expr case lit { } ... default { }
type Switch struct {
	Expr    Expression
	Cases   []*Case
	Default *Block
	Line    int
	Column  int
}

func (s *Switch) Pos() (int, int) { return s.Line, s.Column }
func (s *Switch) stmtNode()       {}

// Case is a single switch arm
type Case struct {
	Value  *Literal
	Body   *Block
	Line   int
	Column int
}

func (c *Case) Pos() (int, int) { return c.Line, c.Column }

// For represents for { init } cond { post } { body }
type For struct {
	Init   *Block
	Cond   Expression
	Post   *Block
	Body   *Block
	Line   int
	Column int
}

func (f *For) Pos() (int, int) { return f.Line, f.Column }
func (f *For) stmtNode()       {}

// Break exits the innermost loop
type Break struct {
	Line   int
	Column int
}

func (b *Break) Pos() (int, int) { return b.Line, b.Column }
func (b *Break) stmtNode()       {}

// Continue jumps to the post block of the innermost loop
type Continue struct {
	Line   int
	Column int
}

func (c *Continue) Pos() (int, int) { return c.Line, c.Column }
func (c *Continue) stmtNode()       {}

// Leave returns from the enclosing function
type Leave struct {
	Line   int
	Column int
}

func (l *Leave) Pos() (int, int) { return l.Line, l.Column }
func (l *Leave) stmtNode()       {}

// BlockStmt is a nested block opening a new scope
type BlockStmt struct {
	Block *Block
}

func (b *BlockStmt) Pos() (int, int) { return b.Block.Pos() }
func (b *BlockStmt) stmtNode()       {}

// --- Expressions ---

// Identifier references a variable
type Identifier struct {
	Name   string
	Line   int
	Column int
}

func (i *Identifier) Pos() (int, int) { return i.Line, i.Column }
func (i *Identifier) exprNode()       {}

// LiteralKind classifies literal expressions
type LiteralKind int

const (
	NumberLit LiteralKind = iota // decimal or 0x-prefixed
	StringLit
	BoolLit
	HexLit // hex"..." used as an expression
)

// Literal is a constant. Value holds the source digits for numbers,
// the decoded bytes for strings and hex strings, and "true"/"false"
// for booleans.
type Literal struct {
	Kind   LiteralKind
	Value  string
	Type   string // optional annotation, 1:u256
	Line   int
	Column int
}

func (l *Literal) Pos() (int, int) { return l.Line, l.Column }
func (l *Literal) exprNode()       {}

// Call invokes a builtin or user function
type Call struct {
	Name   string
	Args   []Expression
	Line   int
	Column int
}

func (c *Call) Pos() (int, int) { return c.Line, c.Column }
func (c *Call) exprNode()       {}
