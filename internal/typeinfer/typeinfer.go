// Package typeinfer refines the Variant types the lifter assigns by
// default into concrete VB6 types, by propagating constraints from
// literals, known runtime call signatures, and binary operators across
// the expression trees of one function, per §4.9. It mutates each
// Expr/Variable's Type field in place rather than rebuilding the tree —
// the same "refine, don't replace" discipline the IR package documents
// for its nodes.
package typeinfer

import (
	"vbdecompile/internal/ir"
)

// Infer runs one fixed-point pass of constraint propagation over fn,
// then returns the number of types it changed. The count reaches zero
// once nothing changes, usually within one or two passes; a variable
// assigned two conflicting concrete types never settles, because unify
// lets its Variant fallback yield to the first assignment again on the
// next pass. The CLI therefore runs a bounded number of passes (see
// cmd/vbdecompile).
func Infer(fn *ir.Function) int {
	inf := &inferer{fn: fn}
	for _, id := range fn.BlockIDs() {
		b := fn.Blocks[id]
		for _, s := range b.Stmts {
			inf.stmt(s)
		}
	}
	return inf.changes
}

type inferer struct {
	fn      *ir.Function
	changes int
}

func (inf *inferer) stmt(s *ir.Stmt) {
	switch s.Kind {
	case ir.StmtAssign:
		inf.expr(s.Value)
		inf.unifyVar(s.Target, s.Value.Type)
	case ir.StmtStore:
		inf.expr(s.StoreAddr)
		inf.expr(s.StoreValue)
	case ir.StmtCall:
		for _, a := range s.CallArgs {
			inf.expr(a)
		}
	case ir.StmtReturn:
		if s.ReturnValue != nil {
			inf.expr(s.ReturnValue)
			inf.unifyReturn(s.ReturnValue.Type)
		}
	case ir.StmtBranch:
		inf.expr(s.Cond)
		inf.forceBoolean(s.Cond)
	}
}

func (inf *inferer) expr(e *ir.Expr) {
	if e == nil {
		return
	}
	switch e.Kind {
	case ir.ExprConstant:
		// Constants already carry their concrete literal type from
		// construction (§4.9's "Constant" rule); nothing to refine.

	case ir.ExprVariable:
		if e.Var != nil && !e.Type.Equal(e.Var.Type) {
			e.Type = e.Var.Type
			inf.changes++
		}

	case ir.ExprUnary:
		inf.expr(e.Operand)
		switch e.UnaryOp {
		case ir.OpNot:
			inf.setType(e, ir.Boolean)
		case ir.OpNegate:
			inf.setType(e, widen(e.Operand.Type))
		}

	case ir.ExprBinary:
		inf.expr(e.Left)
		inf.expr(e.Right)
		if e.BinaryOp.IsComparison() {
			inf.setType(e, ir.Boolean)
		} else if e.BinaryOp.IsLogical() {
			inf.setType(e, ir.Boolean)
			inf.forceBoolean(e.Left)
			inf.forceBoolean(e.Right)
		} else if e.BinaryOp == ir.OpConcat {
			inf.setType(e, ir.String)
		} else {
			inf.setType(e, widen(numeric(e.Left.Type), numeric(e.Right.Type)))
		}

	case ir.ExprCall:
		for _, a := range e.Args {
			inf.expr(a)
		}
		if t, ok := knownReturnType(e.CallName); ok {
			inf.setType(e, t)
		}

	case ir.ExprMemberAccess:
		inf.expr(e.Object)

	case ir.ExprArrayIndex:
		inf.expr(e.Array)
		for _, idx := range e.Indices {
			inf.expr(idx)
		}
		if e.Array.Type.Tag == ir.TypeArray && e.Array.Type.Elem != nil {
			inf.setType(e, *e.Array.Type.Elem)
		}

	case ir.ExprCast:
		inf.expr(e.CastOperand)

	case ir.ExprLoad:
		inf.expr(e.Address)
	}
}

func (inf *inferer) setType(e *ir.Expr, t ir.Type) {
	if !e.Type.Equal(t) {
		e.Type = t
		inf.changes++
	}
}

func (inf *inferer) unifyVar(v *ir.Variable, t ir.Type) {
	if v == nil {
		return
	}
	merged := unify(v.Type, t)
	if !v.Type.Equal(merged) {
		v.Type = merged
		inf.changes++
	}
}

// unifyReturn widens the function's declared ReturnType to accommodate
// every observed return-value type, defaulting to Variant on conflict
// per §4.9's "unify on conflict, never error" rule.
func (inf *inferer) unifyReturn(t ir.Type) {
	merged := unify(inf.fn.ReturnType, t)
	if !inf.fn.ReturnType.Equal(merged) {
		inf.fn.ReturnType = merged
		inf.changes++
	}
}

func (inf *inferer) forceBoolean(e *ir.Expr) {
	if e != nil && e.Type.Tag == ir.TypeVariant {
		inf.setType(e, ir.Boolean)
	}
}

// unify merges two candidate types for one variable/return slot. An
// as-yet-unconstrained Variant always yields to the other side; two
// concrete but differing types fall back to Variant rather than error,
// matching the runtime's own dynamic-typing behavior.
func unify(a, b ir.Type) ir.Type {
	if a.Tag == ir.TypeVariant || a.Tag == ir.TypeUnknown {
		return b
	}
	if b.Tag == ir.TypeVariant || b.Tag == ir.TypeUnknown {
		return a
	}
	if a.Equal(b) {
		return a
	}
	return ir.Variant
}

// numeric coerces a non-numeric operand type (Variant, String used
// numerically) to Long, the runtime's default coercion target, so widen
// has two numeric types to compare. Boolean and Date pass through
// unchanged; widen has no rank for them and yields Variant.
func numeric(t ir.Type) ir.Type {
	switch t.Tag {
	case ir.TypeByte, ir.TypeBoolean, ir.TypeInteger, ir.TypeLong,
		ir.TypeSingle, ir.TypeDouble, ir.TypeCurrency, ir.TypeDate:
		return t
	default:
		return ir.Long
	}
}

// widen returns the wider of two numeric types by VB6's promotion rules
// (Byte < Integer < Long < Single < Double < Currency), per §4.9's
// arithmetic typing table. Called with one argument it simply returns a
// non-numeric type unchanged (used by unary Negate).
func widen(ts ...ir.Type) ir.Type {
	if len(ts) == 1 {
		return ts[0]
	}
	rank := func(t ir.Type) int {
		switch t.Tag {
		case ir.TypeByte:
			return 0
		case ir.TypeInteger:
			return 1
		case ir.TypeLong:
			return 2
		case ir.TypeSingle:
			return 3
		case ir.TypeDouble:
			return 4
		case ir.TypeCurrency:
			return 5
		default:
			return -1
		}
	}
	a, b := ts[0], ts[1]
	ra, rb := rank(a), rank(b)
	if ra < 0 || rb < 0 {
		return ir.Variant
	}
	if ra >= rb {
		return a
	}
	return b
}

// knownReturnType hard-codes the return types of a small set of VB6
// runtime functions commonly called via CallFuncStr, so that e.g.
// `Len(s)` types as Long instead of falling back to Variant. This is
// intentionally small: it grows only as real binaries exercise more of
// the runtime's function table.
func knownReturnType(name string) (ir.Type, bool) {
	switch name {
	case "Len", "Asc", "InStr", "CLng":
		return ir.Long, true
	case "Chr", "Mid", "Left", "Right", "Trim", "UCase", "LCase", "CStr":
		return ir.String, true
	case "CInt":
		return ir.Integer, true
	case "CSng":
		return ir.Single, true
	case "CDbl":
		return ir.Double, true
	case "CBool":
		return ir.Boolean, true
	}
	return ir.Type{}, false
}
