package ir

import (
	"fmt"
)

// Validate checks a module for structural correctness and returns a list
// of error messages. An empty slice indicates the module is valid.
// Dominance is not checked; LLVM's own verifier covers it.
func Validate(mod *Module) []string {
	var errors []string
	for _, fn := range mod.Funcs {
		if fn.IsDeclaration() {
			if len(fn.Blocks) > 0 {
				errors = append(errors, fmt.Sprintf("declaration %s has a body", fn.Name))
			}
			continue
		}
		errors = append(errors, validateFunction(mod, fn)...)
	}
	return errors
}

func validateFunction(mod *Module, fn *Function) []string {
	var errors []string
	report := func(b *Block, format string, args ...interface{}) {
		errors = append(errors, fmt.Sprintf("function %s, block %s: %s", fn.Name, b.Name, fmt.Sprintf(format, args...)))
	}

	if len(fn.Blocks) == 0 {
		return []string{fmt.Sprintf("function %s has no blocks", fn.Name)}
	}

	blocks := make(map[*Block]bool)
	for _, b := range fn.Blocks {
		blocks[b] = true
	}
	defined := make(map[*Instr]bool)
	names := make(map[string]bool)
	for _, p := range fn.Params {
		names[p.Name] = true
	}
	for _, b := range fn.Blocks {
		for _, in := range b.Instrs {
			defined[in] = true
			if in.Name == "" {
				continue
			}
			if names[in.Name] {
				report(b, "duplicate value name %%%s", in.Name)
			}
			names[in.Name] = true
		}
	}

	for _, b := range fn.Blocks {
		if len(b.Instrs) == 0 {
			report(b, "empty block")
			continue
		}
		for i, in := range b.Instrs {
			last := i == len(b.Instrs)-1
			if in.Op.IsTerminator() && !last {
				report(b, "terminator %s in the middle of the block", in.Op)
			}
			if last && !in.Op.IsTerminator() {
				report(b, "block does not end in a terminator")
			}
			for _, arg := range in.Args {
				if arg == nil {
					report(b, "%s has a nil operand", in.Op)
					continue
				}
				if def, ok := arg.(*Instr); ok && !defined[def] {
					report(b, "%s uses %s which is not defined in this function", in.Op, def.Ident())
				}
			}
			for _, t := range in.Targets {
				if !blocks[t] {
					report(b, "branch to a block outside the function")
				}
			}
			if msg := checkInstr(mod, fn, in); msg != "" {
				report(b, "%s", msg)
			}
		}
	}
	return errors
}

// checkInstr verifies operand and result types of one instruction
func checkInstr(mod *Module, fn *Function, in *Instr) string {
	for _, a := range in.Args {
		if a == nil {
			return ""
		}
	}
	switch {
	case in.Op.IsBinary():
		if len(in.Args) != 2 {
			return fmt.Sprintf("%s needs 2 operands", in.Op)
		}
		if !IsInt(in.Args[0].Type()) || !Equal(in.Args[0].Type(), in.Args[1].Type()) {
			return fmt.Sprintf("%s operand types %s and %s", in.Op, in.Args[0].Type(), in.Args[1].Type())
		}
	case in.Op.IsCast():
		return checkCast(in)
	}

	switch in.Op {
	case OpICmp:
		if !Equal(in.Args[0].Type(), in.Args[1].Type()) {
			return fmt.Sprintf("icmp operand types %s and %s", in.Args[0].Type(), in.Args[1].Type())
		}
	case OpSelect:
		if !Equal(in.Args[0].Type(), I1) {
			return fmt.Sprintf("select condition is %s", in.Args[0].Type())
		}
		if !Equal(in.Args[1].Type(), in.Args[2].Type()) {
			return fmt.Sprintf("select arm types %s and %s", in.Args[1].Type(), in.Args[2].Type())
		}
	case OpLoad:
		if !Equal(in.Args[0].Type(), Ptr) {
			return "load from non-pointer"
		}
	case OpStore:
		if !Equal(in.Args[1].Type(), Ptr) {
			return "store to non-pointer"
		}
	case OpGEP:
		if !Equal(in.Args[0].Type(), Ptr) || !IsInt(in.Args[1].Type()) {
			return "getelementptr needs a pointer and an integer offset"
		}
	case OpCall:
		callee := in.Callee
		if callee == nil || mod.Function(callee.Name) != callee {
			return "call to a function outside the module"
		}
		if len(in.Args) != len(callee.Params) {
			return fmt.Sprintf("call to %s with %d arguments, want %d", callee.Name, len(in.Args), len(callee.Params))
		}
		for i, a := range in.Args {
			if !Equal(a.Type(), callee.Params[i].Typ) {
				return fmt.Sprintf("argument %d of %s is %s, want %s", i, callee.Name, a.Type(), callee.Params[i].Typ)
			}
		}
	case OpInsertValue:
		st, ok := in.Args[0].Type().(*StructType)
		if !ok || in.Index >= len(st.Fields) || !Equal(st.Fields[in.Index], in.Args[1].Type()) {
			return fmt.Sprintf("insertvalue %d into %s", in.Index, in.Args[0].Type())
		}
	case OpCondBr:
		if !Equal(in.Args[0].Type(), I1) {
			return "conditional branch on non-i1"
		}
	case OpRet:
		_, void := fn.Ret.(*VoidType)
		if void && len(in.Args) != 0 {
			return "value returned from void function"
		}
		if !void && (len(in.Args) != 1 || !Equal(in.Args[0].Type(), fn.Ret)) {
			return fmt.Sprintf("return type mismatch, want %s", fn.Ret)
		}
	}
	return ""
}

func checkCast(in *Instr) string {
	from := in.Args[0].Type()
	switch in.Op {
	case OpZExt, OpSExt, OpTrunc:
		fi, ok1 := from.(*IntType)
		ti, ok2 := in.Typ.(*IntType)
		if !ok1 || !ok2 {
			return fmt.Sprintf("%s between non-integers", in.Op)
		}
		if in.Op == OpTrunc && fi.Bits <= ti.Bits {
			return fmt.Sprintf("trunc from %s to %s", fi, ti)
		}
		if in.Op != OpTrunc && fi.Bits >= ti.Bits {
			return fmt.Sprintf("%s from %s to %s", in.Op, fi, ti)
		}
	case OpPtrToInt:
		if !Equal(from, Ptr) || !IsInt(in.Typ) {
			return "ptrtoint needs ptr to integer"
		}
	case OpIntToPtr:
		if !IsInt(from) || !Equal(in.Typ, Ptr) {
			return "inttoptr needs integer to ptr"
		}
	}
	return ""
}
