package codegen

import (
	"fmt"
	"strings"

	"github.com/lhaig/yul2wasm/internal/ast"
	"github.com/lhaig/yul2wasm/internal/config"
	"github.com/lhaig/yul2wasm/internal/ir"
)

// Role decides which entry points an object's module exports
type Role int

const (
	// Creation objects export deploy, plus call when they carry a
	// deployed child.
	Creation Role = iota
	// Runtime objects export call only.
	Runtime
)

func (r Role) String() string {
	if r == Runtime {
		return "runtime"
	}
	return "creation"
}

// RoleOf returns the role of a top-level contract object
func RoleOf(obj *ast.Object) Role {
	if ast.IsDeployed(obj.Name) {
		return Runtime
	}
	return Creation
}

// Exports lists the entry points a module of obj in role exports
func Exports(obj *ast.Object, role Role) []string {
	if role == Runtime {
		return []string{"call"}
	}
	if obj.DeployedChild != nil {
		return []string{"deploy", "call"}
	}
	return []string{"deploy"}
}

// EmitObject lowers obj into a module. blobs holds the packaged wasm of
// every child object the code may reference through dataoffset.
func EmitObject(obj *ast.Object, role Role, opts config.Options, blobs map[*ast.Object][]byte) (*ir.Module, error) {
	g := newGenerator(obj.Name, opts, blobs)

	switch role {
	case Creation:
		if err := g.emitEntry("deploy", obj, true); err != nil {
			return nil, err
		}
		if obj.DeployedChild != nil {
			if err := g.emitEntry("call", obj.DeployedChild, false); err != nil {
				return nil, err
			}
		}
	case Runtime:
		if err := g.emitEntry("call", obj, false); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown role %d", role)
	}
	g.emitStart()

	if problems := ir.Validate(g.mod); len(problems) > 0 {
		return nil, fmt.Errorf("generated invalid IR for %s: %s", obj.Name, strings.Join(problems, "; "))
	}
	return g.mod, nil
}

// emitEntry defines an exported entry point running obj's code.
// Falling off the end stops execution successfully.
func (g *Generator) emitEntry(name string, obj *ast.Object, deploying bool) error {
	if obj.Code == nil {
		return errorAt(obj, "object %q has no code block", obj.Name)
	}
	fn := g.mod.NewFunction(name, ir.Void)
	f := g.newFuncGen(obj, fn, &funcScope{funcs: make(map[string]*userFunc)})

	if deploying {
		f.b.Call(g.rt(rtSetDeploying))
	}
	f.b.Call(g.rt(rtInitHeap), ir.ConstUint64(ir.I32, 0))

	if err := f.block(obj.Code); err != nil {
		return err
	}
	if !f.b.Terminated() {
		f.b.Call(g.rt(rtStop))
		f.b.Unreachable()
	}
	return nil
}

// emitStart defines the initializer run before snapshotting
func (g *Generator) emitStart() {
	fn := g.mod.NewFunction("_start", ir.Void)
	b := ir.NewBuilder(fn)
	b.Call(g.rt(rtInitHeap), ir.ConstUint64(ir.I32, 0))
	b.Ret(nil)
}
