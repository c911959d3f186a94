package ir

import (
	"fmt"
	"strings"
)

// String renders the module as textual LLVM IR
func (m *Module) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("; ModuleID = '%s'\n", m.Name))
	sb.WriteString(fmt.Sprintf("source_filename = \"%s\"\n", m.Name))
	sb.WriteString(fmt.Sprintf("target triple = \"%s\"\n", m.Triple))

	if len(m.Globals) > 0 {
		sb.WriteString("\n")
	}
	for _, g := range m.Globals {
		writeGlobal(&sb, g)
	}

	attrGroups := make(map[string]int)
	var attrOrder []string
	for _, f := range m.Funcs {
		sb.WriteString("\n")
		group := -1
		if len(f.Attrs) > 0 {
			key := strings.Join(f.Attrs, " ")
			id, ok := attrGroups[key]
			if !ok {
				id = len(attrOrder)
				attrGroups[key] = id
				attrOrder = append(attrOrder, key)
			}
			group = id
		}
		writeFunction(&sb, f, group)
	}

	if len(attrOrder) > 0 {
		sb.WriteString("\n")
	}
	for id, key := range attrOrder {
		sb.WriteString(fmt.Sprintf("attributes #%d = { %s }\n", id, key))
	}
	return sb.String()
}

func writeGlobal(sb *strings.Builder, g *Global) {
	kind := "global"
	if g.Constant {
		kind = "constant"
	}
	linkage := ""
	if g.Private {
		linkage = "private unnamed_addr "
	}
	sb.WriteString(fmt.Sprintf("%s = %s%s %s c\"%s\", align 1\n",
		g.Ident(), linkage, kind, g.ContentType(), escapeBytes(g.Data)))
}

// escapeBytes renders data the way LLVM prints c"..." strings
func escapeBytes(data []byte) string {
	var sb strings.Builder
	for _, ch := range data {
		if ch >= 0x20 && ch < 0x7f && ch != '"' && ch != '\\' {
			sb.WriteByte(ch)
		} else {
			sb.WriteString(fmt.Sprintf("\\%02X", ch))
		}
	}
	return sb.String()
}

func writeFunction(sb *strings.Builder, f *Function, attrGroup int) {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		if f.IsDeclaration() {
			params[i] = p.Typ.String()
		} else {
			params[i] = p.Typ.String() + " " + p.Ident()
		}
	}
	linkage := ""
	if f.Linkage == Internal {
		linkage = "internal "
	}
	attrs := ""
	if attrGroup >= 0 {
		attrs = fmt.Sprintf(" #%d", attrGroup)
	}

	if f.IsDeclaration() {
		sb.WriteString(fmt.Sprintf("declare %s %s(%s)%s\n", f.Ret, f.Ident(), strings.Join(params, ", "), attrs))
		return
	}

	sb.WriteString(fmt.Sprintf("define %s%s %s(%s)%s {\n", linkage, f.Ret, f.Ident(), strings.Join(params, ", "), attrs))
	for i, b := range f.Blocks {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(quoteName(b.Name) + ":\n")
		for _, in := range b.Instrs {
			sb.WriteString("  " + FormatInstr(in) + "\n")
		}
	}
	sb.WriteString("}\n")
}

func typed(v Value) string {
	return v.Type().String() + " " + v.Ident()
}

func label(b *Block) string {
	return "label %" + quoteName(b.Name)
}

// FormatInstr renders a single instruction
func FormatInstr(in *Instr) string {
	var body string
	switch {
	case in.Op.IsBinary():
		body = fmt.Sprintf("%s %s, %s", in.Op, typed(in.Args[0]), in.Args[1].Ident())
	case in.Op.IsCast():
		body = fmt.Sprintf("%s %s to %s", in.Op, typed(in.Args[0]), in.Typ)
	default:
		switch in.Op {
		case OpICmp:
			body = fmt.Sprintf("icmp %s %s, %s", in.Pred, typed(in.Args[0]), in.Args[1].Ident())
		case OpSelect:
			body = fmt.Sprintf("select %s, %s, %s", typed(in.Args[0]), typed(in.Args[1]), typed(in.Args[2]))
		case OpAlloca:
			body = fmt.Sprintf("alloca %s", in.Elem)
		case OpLoad:
			body = fmt.Sprintf("load %s, %s", in.Elem, typed(in.Args[0]))
		case OpStore:
			body = fmt.Sprintf("store %s, %s", typed(in.Args[0]), typed(in.Args[1]))
		case OpGEP:
			body = fmt.Sprintf("getelementptr %s, %s, %s", in.Elem, typed(in.Args[0]), typed(in.Args[1]))
		case OpCall:
			args := make([]string, len(in.Args))
			for i, a := range in.Args {
				args[i] = typed(a)
			}
			body = fmt.Sprintf("call %s %s(%s)", in.Callee.Ret, in.Callee.Ident(), strings.Join(args, ", "))
		case OpExtractValue:
			body = fmt.Sprintf("extractvalue %s, %d", typed(in.Args[0]), in.Index)
		case OpInsertValue:
			body = fmt.Sprintf("insertvalue %s, %s, %d", typed(in.Args[0]), typed(in.Args[1]), in.Index)
		case OpBr:
			body = "br " + label(in.Targets[0])
		case OpCondBr:
			body = fmt.Sprintf("br %s, %s, %s", typed(in.Args[0]), label(in.Targets[0]), label(in.Targets[1]))
		case OpRet:
			if len(in.Args) == 0 {
				body = "ret void"
			} else {
				body = "ret " + typed(in.Args[0])
			}
		case OpUnreachable:
			body = "unreachable"
		default:
			body = fmt.Sprintf("; unknown op %s", in.Op)
		}
	}
	if in.Name != "" {
		return in.Ident() + " = " + body
	}
	return body
}
