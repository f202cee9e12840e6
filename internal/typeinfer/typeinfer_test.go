package typeinfer

import (
	"testing"

	"vbdecompile/internal/ir"
)

func TestInferPropagatesConstantThroughAssign(t *testing.T) {
	fn := ir.NewFunction("F", 0)
	b := fn.NewBlock()
	fn.EntryBlock = b.ID
	local := fn.AddLocal("local0", ir.Variant)

	lit := ir.NewIntConstant(5)
	b.Append(ir.NewAssign(local, lit))
	b.Append(ir.NewReturn(ir.NewVariable(local)))

	for Infer(fn) > 0 {
	}

	if local.Type.Tag != ir.TypeLong {
		t.Fatalf("local.Type = %v, want Long", local.Type)
	}
}

func TestInferComparisonIsBoolean(t *testing.T) {
	fn := ir.NewFunction("F", 0)
	b := fn.NewBlock()
	fn.EntryBlock = b.ID
	cmp := ir.NewBinary(ir.OpLt, ir.NewIntConstant(1), ir.NewIntConstant(2), ir.Variant)
	b.Append(ir.NewBranch(cmp, b.ID))
	b.Append(ir.NewReturn(nil))

	Infer(fn)
	if cmp.Type.Tag != ir.TypeBoolean {
		t.Fatalf("cmp.Type = %v, want Boolean", cmp.Type)
	}
}

func TestInferConflictingAssignFallsBackToVariant(t *testing.T) {
	fn := ir.NewFunction("F", 0)
	b := fn.NewBlock()
	fn.EntryBlock = b.ID
	local := fn.AddLocal("local0", ir.Variant)

	b.Append(ir.NewAssign(local, ir.NewIntConstant(1)))
	b.Append(ir.NewAssign(local, ir.NewStringConstant("x")))
	b.Append(ir.NewReturn(nil))

	for i := 0; i < 4 && Infer(fn) > 0; i++ {
	}

	if local.Type.Tag != ir.TypeVariant {
		t.Fatalf("local.Type = %v, want Variant after conflicting assigns", local.Type)
	}
}
