package compiler

import (
	"fmt"

	"github.com/lhaig/yul2wasm/internal/ast"
	"github.com/lhaig/yul2wasm/internal/codegen"
)

// Unit is one object compiled to its own wasm module
type Unit struct {
	Object *ast.Object
	Role   codegen.Role
	// Embeds are the objects whose packaged modules this unit's code
	// can reference through dataoffset and datasize.
	Embeds []*ast.Object
}

// HasSubContract reports whether the unit can create other contracts
func (u *Unit) HasSubContract() bool {
	return len(u.Embeds) > 0
}

// Registry collects the units needed to compile a main contract. It
// discovers embedded objects breadth first from the entry, then orders
// them so every unit comes after the units it embeds.
type Registry struct {
	units map[*ast.Object]*Unit
	order []*ast.Object
	entry *ast.Object
}

// NewRegistry selects the main contract in the tree rooted at root. An
// empty name selects the root.
func NewRegistry(root *ast.Object, main string) (*Registry, error) {
	entry := root
	if main != "" {
		found, _ := ast.Find(root, main)
		if found == nil {
			return nil, fmt.Errorf("main contract %q not found", main)
		}
		entry = found
	}
	return &Registry{
		units: make(map[*ast.Object]*Unit),
		entry: entry,
	}, nil
}

// Entry returns the main contract's unit, nil before Discover
func (r *Registry) Entry() *Unit {
	return r.units[r.entry]
}

// Discover walks from the entry to every object it transitively embeds
func (r *Registry) Discover() {
	queue := []*ast.Object{r.entry}
	for len(queue) > 0 {
		obj := queue[0]
		queue = queue[1:]
		if r.units[obj] != nil {
			continue
		}

		role := codegen.RoleOf(obj)
		u := &Unit{Object: obj, Role: role, Embeds: embeds(obj, role)}
		r.units[obj] = u
		for _, dep := range u.Embeds {
			if r.units[dep] == nil {
				queue = append(queue, dep)
			}
		}
	}
}

// embeds lists the children referenced by the code a module of obj in
// role contains. A creation module also carries its deployed child's
// code, so that child's own children count too.
func embeds(obj *ast.Object, role codegen.Role) []*ast.Object {
	var out []*ast.Object
	for _, child := range obj.Objects {
		if role == codegen.Creation && child == obj.DeployedChild {
			continue
		}
		out = append(out, child)
	}
	if role == codegen.Creation && obj.DeployedChild != nil {
		out = append(out, obj.DeployedChild.Objects...)
	}
	return out
}

// Sorted returns units in dependency order: embedded objects first,
// the entry last.
func (r *Registry) Sorted() []*Unit {
	if r.order == nil {
		visited := make(map[*ast.Object]bool)
		var visit func(obj *ast.Object)
		visit = func(obj *ast.Object) {
			if visited[obj] {
				return
			}
			visited[obj] = true
			for _, dep := range r.units[obj].Embeds {
				visit(dep)
			}
			r.order = append(r.order, obj)
		}
		if r.units[r.entry] != nil {
			visit(r.entry)
		}
	}

	units := make([]*Unit, len(r.order))
	for i, obj := range r.order {
		units[i] = r.units[obj]
	}
	return units
}
