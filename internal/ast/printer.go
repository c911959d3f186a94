package ast

import (
	"fmt"
	"strings"
)

// Print returns a tree-like string representation of the AST for debugging
func Print(node Node) string {
	var sb strings.Builder
	printNode(&sb, node, 0)
	return sb.String()
}

func printNode(sb *strings.Builder, node Node, indent int) {
	if node == nil {
		return
	}

	prefix := strings.Repeat("  ", indent)

	switch n := node.(type) {
	case *Object:
		sb.WriteString(fmt.Sprintf("%sObject: %s\n", prefix, n.Name))
		if n.Code != nil {
			sb.WriteString(prefix + "  Code\n")
			printNode(sb, n.Code, indent+2)
		}
		for _, child := range n.Objects {
			printNode(sb, child, indent+1)
		}
		for _, d := range n.Data {
			printNode(sb, d, indent+1)
		}

	case *Data:
		sb.WriteString(fmt.Sprintf("%sData: %s (%d bytes)\n", prefix, n.Name, len(n.Value)))

	case *Block:
		for _, stmt := range n.Statements {
			printNode(sb, stmt, indent)
		}

	case *FunctionDef:
		sb.WriteString(fmt.Sprintf("%sFunction: %s(%s)", prefix, n.Name, joinNames(n.Params)))
		if len(n.Returns) > 0 {
			sb.WriteString(" -> " + joinNames(n.Returns))
		}
		sb.WriteString("\n")
		printNode(sb, n.Body, indent+1)

	case *VarDecl:
		sb.WriteString(fmt.Sprintf("%sLet: %s\n", prefix, joinNames(n.Names)))
		if n.Value != nil {
			printNode(sb, n.Value, indent+1)
		}

	case *Assignment:
		names := make([]string, len(n.Targets))
		for i, t := range n.Targets {
			names[i] = t.Name
		}
		sb.WriteString(fmt.Sprintf("%sAssign: %s\n", prefix, strings.Join(names, ", ")))
		printNode(sb, n.Value, indent+1)

	case *ExprStmt:
		printNode(sb, n.Call, indent)

	case *If:
		sb.WriteString(prefix + "If\n")
		printNode(sb, n.Cond, indent+1)
		sb.WriteString(prefix + "Then\n")
		printNode(sb, n.Body, indent+1)

	case *Switch:
		sb.WriteString(prefix + "Switch\n")
		printNode(sb, n.Expr, indent+1)
		for _, c := range n.Cases {
			sb.WriteString(fmt.Sprintf("%sCase: %s\n", prefix, literalText(c.Value)))
			printNode(sb, c.Body, indent+1)
		}
		if n.Default != nil {
			sb.WriteString(prefix + "Default\n")
			printNode(sb, n.Default, indent+1)
		}

	case *For:
		sb.WriteString(prefix + "For\n")
		sb.WriteString(prefix + "  Init\n")
		printNode(sb, n.Init, indent+2)
		sb.WriteString(prefix + "  Cond\n")
		printNode(sb, n.Cond, indent+2)
		sb.WriteString(prefix + "  Post\n")
		printNode(sb, n.Post, indent+2)
		sb.WriteString(prefix + "  Body\n")
		printNode(sb, n.Body, indent+2)

	case *Break:
		sb.WriteString(prefix + "Break\n")
	case *Continue:
		sb.WriteString(prefix + "Continue\n")
	case *Leave:
		sb.WriteString(prefix + "Leave\n")

	case *BlockStmt:
		sb.WriteString(prefix + "Block\n")
		printNode(sb, n.Block, indent+1)

	case *Identifier:
		sb.WriteString(fmt.Sprintf("%sIdent: %s\n", prefix, n.Name))

	case *Literal:
		sb.WriteString(fmt.Sprintf("%sLiteral: %s\n", prefix, literalText(n)))

	case *Call:
		sb.WriteString(fmt.Sprintf("%sCall: %s\n", prefix, n.Name))
		for _, arg := range n.Args {
			printNode(sb, arg, indent+1)
		}

	default:
		sb.WriteString(fmt.Sprintf("%s<unknown node %T>\n", prefix, node))
	}
}

func joinNames(names []*TypedName) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = n.Name
		if n.Type != "" {
			parts[i] += ":" + n.Type
		}
	}
	return strings.Join(parts, ", ")
}

// literalText renders a literal the way it would appear in source.
func literalText(l *Literal) string {
	if l == nil {
		return ""
	}
	var s string
	switch l.Kind {
	case StringLit:
		s = fmt.Sprintf("%q", l.Value)
	case HexLit:
		s = fmt.Sprintf("hex\"%x\"", l.Value)
	default:
		s = l.Value
	}
	if l.Type != "" {
		s += ":" + l.Type
	}
	return s
}
