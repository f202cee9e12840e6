// Package emit renders a structured function (internal/structurer) back
// into VB6 source text, per §4.10. Indentation is four spaces per
// nesting level, matching the VB6 IDE's default; operator precedence
// follows §4.10's table so the printer parenthesizes only where VB6
// would otherwise mis-parse the expression.
package emit

import (
	"fmt"
	"strconv"
	"strings"

	"vbdecompile/internal/ir"
	"vbdecompile/internal/structurer"
)

const indentUnit = "    "

// Function renders fn's structured body as a complete Function/Sub
// block, given the already-computed structured node list.
func Function(fn *ir.Function, nodes []*structurer.Node) string {
	var b strings.Builder
	kind := "Sub"
	if fn.ReturnType.Tag != ir.TypeVoid {
		kind = "Function"
	}
	fmt.Fprintf(&b, "%s %s(%s)", kind, fn.Name, paramList(fn.Params))
	if kind == "Function" {
		fmt.Fprintf(&b, " As %s", fn.ReturnType.String())
	}
	b.WriteByte('\n')

	e := &emitter{out: &b}
	e.nodes(nodes, 1)

	fmt.Fprintf(&b, "End %s\n", kind)
	return b.String()
}

func paramList(params []*ir.Variable) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = fmt.Sprintf("%s As %s", p.Name, p.Type.String())
	}
	return strings.Join(parts, ", ")
}

type emitter struct {
	out *strings.Builder
}

func (e *emitter) line(depth int, format string, args ...interface{}) {
	e.out.WriteString(strings.Repeat(indentUnit, depth))
	fmt.Fprintf(e.out, format, args...)
	e.out.WriteByte('\n')
}

func (e *emitter) nodes(nodes []*structurer.Node, depth int) {
	for _, n := range nodes {
		e.node(n, depth)
	}
}

func (e *emitter) node(n *structurer.Node, depth int) {
	switch n.Kind {
	case structurer.NodeBlock:
		e.block(n.Block, depth)

	case structurer.NodeSequence:
		e.nodes(n.Children, depth)

	case structurer.NodeIfThen:
		e.line(depth, "If %s Then", Expr(n.Cond))
		e.nodes(n.Then, depth+1)
		e.line(depth, "End If")

	case structurer.NodeIfThenElse:
		e.line(depth, "If %s Then", Expr(n.Cond))
		e.nodes(n.Then, depth+1)
		e.line(depth, "Else")
		e.nodes(n.Else, depth+1)
		e.line(depth, "End If")

	case structurer.NodeWhile:
		e.line(depth, "While %s", Expr(n.Cond))
		e.nodes(n.Body, depth+1)
		e.line(depth, "Wend")

	case structurer.NodeDoWhile:
		e.line(depth, "Do")
		e.nodes(n.Body, depth+1)
		e.line(depth, "Loop While %s", Expr(n.Cond))

	case structurer.NodeDoUntil:
		e.line(depth, "Do")
		e.nodes(n.Body, depth+1)
		e.line(depth, "Loop Until %s", Expr(n.Cond))

	case structurer.NodeGotoLabel:
		if n.IsGotoStmt {
			e.line(depth, "GoTo Label_%d", n.Label)
		} else {
			e.line(depth-1, "Label_%d:", n.Label)
		}
	}
}

// block prints every non-control-flow statement of b. A trailing
// Branch/Goto is elided — its meaning is already captured by the
// structured node that wraps this block (an If/While/DoWhile condition,
// or a NodeGotoLabel sibling); printing it again would duplicate the
// control transfer in the emitted text.
func (e *emitter) block(b *ir.BasicBlock, depth int) {
	for _, s := range b.Stmts {
		if s.IsTerminator() && (s.Kind == ir.StmtBranch || s.Kind == ir.StmtGoto) {
			continue
		}
		e.stmt(s, depth)
	}
}

func (e *emitter) stmt(s *ir.Stmt, depth int) {
	switch s.Kind {
	case ir.StmtAssign:
		e.line(depth, "%s = %s", s.Target.Name, Expr(s.Value))

	case ir.StmtStore:
		e.line(depth, "%s = %s", Expr(s.StoreAddr), Expr(s.StoreValue))

	case ir.StmtCall:
		e.line(depth, "%s", callText(s.CallName, s.CallArgs))

	case ir.StmtReturn:
		if s.HasReturn {
			e.line(depth, "Return %s", Expr(s.ReturnValue))
		} else {
			e.line(depth, "Return")
		}

	case ir.StmtLabel:
		e.line(depth-1, "Label_%d:", s.LabelID)

	case ir.StmtNop:
		// no textual representation

	case ir.StmtBranch, ir.StmtGoto:
		// handled by block(); reached only if a caller emits a raw
		// unstructured block, in which case fall back to a literal GoTo.
		if s.Kind == ir.StmtGoto {
			e.line(depth, "GoTo Label_%d", s.GotoBlock)
		} else {
			e.line(depth, "If %s Then GoTo Label_%d", Expr(s.Cond), s.TargetBlock)
		}
	}
}

func callText(name string, args []*ir.Expr) string {
	if len(args) == 0 {
		return name
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = Expr(a)
	}
	return fmt.Sprintf("%s %s", name, strings.Join(parts, ", "))
}

// precedence ranks a BinaryOp per §4.10's table, higher binds tighter.
func precedence(op ir.BinaryOp) int {
	switch op {
	case ir.OpXor:
		return 2
	case ir.OpOr:
		return 3
	case ir.OpAnd:
		return 4
	case ir.OpEq, ir.OpNe, ir.OpLt, ir.OpLe, ir.OpGt, ir.OpGe:
		return 5
	case ir.OpConcat:
		return 6
	case ir.OpAdd, ir.OpSub:
		return 7
	case ir.OpMod:
		return 8
	case ir.OpMul, ir.OpDiv, ir.OpIntDiv:
		return 9
	default:
		return 0
	}
}

var binOpText = map[ir.BinaryOp]string{
	ir.OpAdd:    "+",
	ir.OpSub:    "-",
	ir.OpMul:    "*",
	ir.OpDiv:    "/",
	ir.OpIntDiv: "\\",
	ir.OpMod:    "Mod",
	ir.OpEq:     "=",
	ir.OpNe:     "<>",
	ir.OpLt:     "<",
	ir.OpLe:     "<=",
	ir.OpGt:     ">",
	ir.OpGe:     ">=",
	ir.OpAnd:    "And",
	ir.OpOr:     "Or",
	ir.OpXor:    "Xor",
	ir.OpConcat: "&",
}

// Expr renders an expression tree as VB6 source text, parenthesizing a
// child when its operator binds more loosely than its parent's, or
// equally tightly when it is the right operand, per §4.10.
func Expr(e *ir.Expr) string {
	if e == nil {
		return ""
	}
	switch e.Kind {
	case ir.ExprConstant:
		return constText(e)

	case ir.ExprVariable:
		return e.Var.Name

	case ir.ExprUnary:
		operand := Expr(e.Operand)
		if e.Operand.Kind == ir.ExprBinary {
			operand = "(" + operand + ")"
		}
		if e.UnaryOp == ir.OpNot {
			return "Not " + operand
		}
		return "-" + operand

	case ir.ExprBinary:
		left := exprAtPrec(e.Left, precedence(e.BinaryOp), false)
		right := exprAtPrec(e.Right, precedence(e.BinaryOp), true)
		return fmt.Sprintf("%s %s %s", left, binOpText[e.BinaryOp], right)

	case ir.ExprCall:
		parts := make([]string, len(e.Args))
		for i, a := range e.Args {
			parts[i] = Expr(a)
		}
		return fmt.Sprintf("%s(%s)", e.CallName, strings.Join(parts, ", "))

	case ir.ExprMemberAccess:
		return fmt.Sprintf("%s.%s", Expr(e.Object), e.Member)

	case ir.ExprArrayIndex:
		parts := make([]string, len(e.Indices))
		for i, idx := range e.Indices {
			parts[i] = Expr(idx)
		}
		return fmt.Sprintf("%s(%s)", Expr(e.Array), strings.Join(parts, ", "))

	case ir.ExprCast:
		return fmt.Sprintf("C%s(%s)", castSuffix(e.TargetType), Expr(e.CastOperand))

	case ir.ExprLoad:
		return fmt.Sprintf("*%s", Expr(e.Address))

	default:
		return ""
	}
}

// exprAtPrec renders a child expression, parenthesizing it if it is a
// binary expression whose own precedence is lower than parentPrec, or
// equal to it when the child is the right operand (all binary operators
// print as left-associative).
func exprAtPrec(e *ir.Expr, parentPrec int, isRight bool) string {
	s := Expr(e)
	if e != nil && e.Kind == ir.ExprBinary {
		p := precedence(e.BinaryOp)
		if p < parentPrec || (isRight && p == parentPrec) {
			return "(" + s + ")"
		}
	}
	return s
}

func constText(e *ir.Expr) string {
	switch e.ConstKind {
	case ir.ConstInt:
		return strconv.FormatInt(e.IntValue, 10)
	case ir.ConstFloat:
		return strconv.FormatFloat(e.FloatValue, 'f', 6, 64)
	case ir.ConstString:
		return "\"" + strings.ReplaceAll(e.StringValue, "\"", "\"\"") + "\""
	case ir.ConstBool:
		if e.BoolValue {
			return "True"
		}
		return "False"
	default:
		return ""
	}
}

func castSuffix(t ir.Type) string {
	switch t.Tag {
	case ir.TypeInteger:
		return "Int"
	case ir.TypeLong:
		return "Lng"
	case ir.TypeSingle:
		return "Sng"
	case ir.TypeDouble:
		return "Dbl"
	case ir.TypeString:
		return "Str"
	case ir.TypeBoolean:
		return "Bool"
	case ir.TypeByte:
		return "Byte"
	default:
		return "Var"
	}
}

// StmtText renders a single statement as one diagnostic line, for
// callers outside full function emission — internal/render annotates
// CFG blocks with this instead of the structured Sub/Function body.
func StmtText(s *ir.Stmt) string {
	switch s.Kind {
	case ir.StmtAssign:
		return fmt.Sprintf("%s = %s", s.Target.Name, Expr(s.Value))
	case ir.StmtStore:
		return fmt.Sprintf("%s = %s", Expr(s.StoreAddr), Expr(s.StoreValue))
	case ir.StmtCall:
		return callText(s.CallName, s.CallArgs)
	case ir.StmtReturn:
		if s.HasReturn {
			return "Return " + Expr(s.ReturnValue)
		}
		return "Return"
	case ir.StmtBranch:
		return fmt.Sprintf("If %s Then -> block %d", Expr(s.Cond), s.TargetBlock)
	case ir.StmtGoto:
		return fmt.Sprintf("GoTo block %d", s.GotoBlock)
	case ir.StmtLabel:
		return fmt.Sprintf("Label_%d:", s.LabelID)
	default:
		return ""
	}
}
