package checker

import "fmt"

// SymbolKind represents the kind of symbol
type SymbolKind int

const (
	SymVariable SymbolKind = iota
	SymFunction
)

// String returns the string representation of the symbol kind
func (sk SymbolKind) String() string {
	switch sk {
	case SymVariable:
		return "variable"
	case SymFunction:
		return "function"
	default:
		return "unknown"
	}
}

// Symbol represents a symbol in the symbol table
type Symbol struct {
	Name    string
	Kind    SymbolKind
	Params  int // functions only
	Returns int // functions only
	Line    int
	Column  int
}

// Scope represents a lexical scope with a symbol table. A function
// body opens a boundary scope: variables of enclosing scopes are not
// visible past it, functions are.
type Scope struct {
	parent   *Scope
	boundary bool
	symbols  map[string]*Symbol
}

// NewScope creates a new scope with an optional parent
func NewScope(parent *Scope) *Scope {
	return &Scope{
		parent:  parent,
		symbols: make(map[string]*Symbol),
	}
}

// NewFunctionScope creates a scope for a function body
func NewFunctionScope(parent *Scope) *Scope {
	s := NewScope(parent)
	s.boundary = true
	return s
}

// Define adds a symbol to the current scope
// Returns an error if the symbol is already defined in this scope
func (s *Scope) Define(sym *Symbol) error {
	if _, exists := s.symbols[sym.Name]; exists {
		return fmt.Errorf("'%s' already defined in this scope", sym.Name)
	}
	s.symbols[sym.Name] = sym
	return nil
}

// Resolve looks up a symbol visible from this scope. Variables are not
// visible across a function boundary.
func (s *Scope) Resolve(name string) *Symbol {
	crossed := false
	for cur := s; cur != nil; cur = cur.parent {
		if sym, ok := cur.symbols[name]; ok {
			if sym.Kind == SymVariable && crossed {
				return nil
			}
			return sym
		}
		if cur.boundary {
			crossed = true
		}
	}
	return nil
}

// ResolveLocal looks up a symbol only in the current scope (not parent scopes)
func (s *Scope) ResolveLocal(name string) *Symbol {
	if sym, ok := s.symbols[name]; ok {
		return sym
	}
	return nil
}
