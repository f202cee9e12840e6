package lift

import (
	"testing"

	"vbdecompile/internal/ir"
	"vbdecompile/internal/pcode"
	"vbdecompile/internal/vbfmt"
)

func decode(t *testing.T, data []byte, base uint32) []pcode.Inst {
	t.Helper()
	insts, diags := pcode.DecodeProcedure(data, base, vbfmt.Options{})
	if diags.Len() != 0 {
		t.Fatalf("unexpected diags decoding fixture: %v", diags.Items())
	}
	return insts
}

func TestLiftLiteralAddReturn(t *testing.T) {
	// LitI4 10; LitI4 20; AddI4; Ret
	data := []byte{
		0x11, 0x0a, 0x00, 0x00, 0x00,
		0x11, 0x14, 0x00, 0x00, 0x00,
		0x40,
		0x03,
	}
	insts := decode(t, data, 0x1000)
	res := Lift("Add10And20", 0x1000, insts, nil)
	if res.Partial {
		t.Fatalf("unexpected partial lift: %v", res.Diags.Items())
	}
	fn := res.Func
	if err := fn.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	entry := fn.Blocks[fn.EntryBlock]
	term := entry.Terminator()
	if term == nil || term.Kind != ir.StmtReturn {
		t.Fatalf("terminator = %+v, want Return", term)
	}
	v := term.ReturnValue
	if v == nil || v.Kind != ir.ExprBinary || v.BinaryOp != ir.OpAdd {
		t.Fatalf("return value = %+v, want Add binary", v)
	}
	if v.Left.ConstKind != ir.ConstInt || v.Left.IntValue != 10 {
		t.Fatalf("left = %+v, want 10", v.Left)
	}
	if v.Right.ConstKind != ir.ConstInt || v.Right.IntValue != 20 {
		t.Fatalf("right = %+v, want 20", v.Right)
	}
}

func TestLiftEmptyStackPopIsRecoverable(t *testing.T) {
	// AddI4 with nothing pushed: should be reported as a diag, not panic.
	data := []byte{0x40, 0x03}
	insts := decode(t, data, 0)
	res := Lift("Broken", 0, insts, nil)
	if !res.Partial {
		t.Fatalf("expected a partial lift from an empty-stack pop")
	}
	if res.Diags.Len() == 0 {
		t.Fatalf("expected at least one diagnostic")
	}
	if err := res.Func.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLiftConditionalBranchCreatesTwoSuccessors(t *testing.T) {
	// LitVarTrue; BranchFalse +3 (skip LitI4); LitI4 1; Ret
	// layout: addr0 LitVarTrue(1) addr1 BranchFalse(3: %=i16) addr4 LitI4(5) addr9 Ret
	data := []byte{
		0x14,                   // 0: LitVarTrue
		0x05, 0x05, 0x00,       // 1: BranchFalse -> target = addr(1)+len(3)+off(5) = 9
		0x11, 0x01, 0x00, 0x00, 0x00, // 4: LitI4 1
		0x03,                   // 9: Ret
	}
	insts := decode(t, data, 0)
	res := Lift("CondBranch", 0, insts, nil)
	if res.Partial {
		t.Fatalf("unexpected partial lift: %v", res.Diags.Items())
	}
	fn := res.Func
	if err := fn.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	entry := fn.Blocks[fn.EntryBlock]
	if len(entry.SortedSuccs()) != 2 {
		t.Fatalf("entry succs = %v, want 2", entry.SortedSuccs())
	}
	term := entry.Terminator()
	if term == nil || term.Kind != ir.StmtBranch {
		t.Fatalf("entry terminator = %+v, want Branch", term)
	}
}

func TestLiftBackwardBranchMergesWithEntryBlock(t *testing.T) {
	// addr0 LitI4 1; addr5 StLocI2 local0; addr8 Branch -> addr0 (self loop)
	data := []byte{
		0x11, 0x01, 0x00, 0x00, 0x00, // 0: LitI4 1
		0x28, 0x00, 0x00, // 5: StLocI2 local0
		0x04, 0xf5, 0xff, // 8: Branch back to 0: off = 0 - (8+3) = -11 = 0xfff5
	}
	insts := decode(t, data, 0)
	res := Lift("SelfLoop", 0, insts, nil)
	fn := res.Func
	if err := fn.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	entry := fn.Blocks[fn.EntryBlock]
	if !entry.Preds[entry.ID] {
		t.Fatalf("expected entry block to have itself as a predecessor (self loop), preds=%v", entry.SortedPreds())
	}
}
