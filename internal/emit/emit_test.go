package emit

import (
	"strings"
	"testing"

	"vbdecompile/internal/ir"
	"vbdecompile/internal/structurer"
)

func TestExprParenthesizesLowerPrecedenceChild(t *testing.T) {
	// (1 + 2) * 3 must keep its parens; 1 + 2 * 3 must not gain any.
	sum := ir.NewBinary(ir.OpAdd, ir.NewIntConstant(1), ir.NewIntConstant(2), ir.Long)
	mul := ir.NewBinary(ir.OpMul, sum, ir.NewIntConstant(3), ir.Long)
	got := Expr(mul)
	want := "(1 + 2) * 3"
	if got != want {
		t.Fatalf("Expr = %q, want %q", got, want)
	}

	mul2 := ir.NewBinary(ir.OpMul, ir.NewIntConstant(2), ir.NewIntConstant(3), ir.Long)
	sum2 := ir.NewBinary(ir.OpAdd, ir.NewIntConstant(1), mul2, ir.Long)
	got2 := Expr(sum2)
	want2 := "1 + 2 * 3"
	if got2 != want2 {
		t.Fatalf("Expr = %q, want %q", got2, want2)
	}
}

func TestFunctionEmitsIfThenElse(t *testing.T) {
	fn := ir.NewFunction("Choose", 0)
	fn.ReturnType = ir.Long
	b0 := fn.NewBlock()
	b1 := fn.NewBlock()
	b2 := fn.NewBlock()
	b3 := fn.NewBlock()
	fn.EntryBlock = b0.ID

	cond := ir.NewBoolConstant(true)
	b0.Append(ir.NewBranch(cond, b1.ID))
	fn.AddEdge(b0.ID, b1.ID)
	fn.AddEdge(b0.ID, b2.ID)

	b1.Append(ir.NewGoto(b3.ID))
	fn.AddEdge(b1.ID, b3.ID)
	b2.Append(ir.NewGoto(b3.ID))
	fn.AddEdge(b2.ID, b3.ID)
	b3.Append(ir.NewReturn(ir.NewIntConstant(1)))

	nodes := structurer.Structure(fn)
	out := Function(fn, nodes)

	if !strings.HasPrefix(out, "Function Choose() As Long\n") {
		t.Fatalf("unexpected header: %s", out)
	}
	if !strings.Contains(out, "If True Then") {
		t.Fatalf("missing If: %s", out)
	}
	if !strings.HasSuffix(out, "End Function\n") {
		t.Fatalf("missing footer: %s", out)
	}
}

// TestScenarioLiteralAddThenReturn matches spec scenario 1: a single
// Return statement over a literal add, with no function-name assignment.
func TestScenarioLiteralAddThenReturn(t *testing.T) {
	fn := ir.NewFunction("Add", 0)
	fn.ReturnType = ir.Variant
	b0 := fn.NewBlock()
	fn.EntryBlock = b0.ID

	sum := ir.NewBinary(ir.OpAdd, ir.NewIntConstant(10), ir.NewIntConstant(20), ir.Variant)
	b0.Append(ir.NewReturn(sum))

	nodes := structurer.Structure(fn)
	got := Function(fn, nodes)
	want := "Function Add() As Variant\n" +
		"    Return 10 + 20\n" +
		"End Function\n"
	if got != want {
		t.Fatalf("Function =\n%s\nwant\n%s", got, want)
	}
}

// TestScenarioMaxIfThenElse matches spec scenario 2.
func TestScenarioMaxIfThenElse(t *testing.T) {
	fn := ir.NewFunction("Max", 0)
	fn.ReturnType = ir.Integer
	x := fn.AddParam("x", ir.Integer)
	y := fn.AddParam("y", ir.Integer)

	b0 := fn.NewBlock()
	thenBB := fn.NewBlock()
	elseBB := fn.NewBlock()
	fn.EntryBlock = b0.ID

	cond := ir.NewBinary(ir.OpGt, ir.NewVariable(x), ir.NewVariable(y), ir.Boolean)
	b0.Append(ir.NewBranch(cond, thenBB.ID))
	fn.AddEdge(b0.ID, thenBB.ID)
	fn.AddEdge(b0.ID, elseBB.ID)

	thenBB.Append(ir.NewReturn(ir.NewVariable(x)))
	elseBB.Append(ir.NewReturn(ir.NewVariable(y)))

	nodes := structurer.Structure(fn)
	got := Function(fn, nodes)
	want := "Function Max(x As Integer, y As Integer) As Integer\n" +
		"    If x > y Then\n" +
		"        Return x\n" +
		"    Else\n" +
		"        Return y\n" +
		"    End If\n" +
		"End Function\n"
	if got != want {
		t.Fatalf("Function =\n%s\nwant\n%s", got, want)
	}
}

// TestScenarioWhileCountdown matches spec scenario 4: a header/body/exit
// loop over a back edge structures into While/Wend.
func TestScenarioWhileCountdown(t *testing.T) {
	fn := ir.NewFunction("Countdown", 0)
	fn.ReturnType = ir.Integer
	n := fn.AddParam("n", ir.Integer)

	entry := fn.NewBlock()
	header := fn.NewBlock()
	body := fn.NewBlock()
	exit := fn.NewBlock()
	fn.EntryBlock = entry.ID

	count := fn.AddLocal("count", ir.Integer)
	entry.Append(ir.NewAssign(count, ir.NewVariable(n)))
	entry.Append(ir.NewGoto(header.ID))
	fn.AddEdge(entry.ID, header.ID)

	cond := ir.NewBinary(ir.OpGt, ir.NewVariable(count), ir.NewIntConstant(0), ir.Boolean)
	header.Append(ir.NewBranch(cond, body.ID))
	fn.AddEdge(header.ID, body.ID)
	fn.AddEdge(header.ID, exit.ID)

	dec := ir.NewBinary(ir.OpSub, ir.NewVariable(count), ir.NewIntConstant(1), ir.Integer)
	body.Append(ir.NewAssign(count, dec))
	body.Append(ir.NewGoto(header.ID))
	fn.AddEdge(body.ID, header.ID)

	exit.Append(ir.NewReturn(ir.NewVariable(count)))

	nodes := structurer.Structure(fn)
	got := Function(fn, nodes)
	want := "Function Countdown(n As Integer) As Integer\n" +
		"    count = n\n" +
		"    While count > 0\n" +
		"        count = count - 1\n" +
		"    Wend\n" +
		"    Return count\n" +
		"End Function\n"
	if got != want {
		t.Fatalf("Function =\n%s\nwant\n%s", got, want)
	}
}

func TestConstTextEscapesQuotes(t *testing.T) {
	s := ir.NewStringConstant(`say "hi"`)
	got := Expr(s)
	want := `"say ""hi"""`
	if got != want {
		t.Fatalf("Expr = %q, want %q", got, want)
	}
}

// TestConstTextFloatFixedSixDecimals matches spec §4.10: doubles print
// fixed with six decimals, not Go's shortest-round-trip form.
func TestConstTextFloatFixedSixDecimals(t *testing.T) {
	got := Expr(ir.NewFloatConstant(3.14))
	want := "3.140000"
	if got != want {
		t.Fatalf("Expr = %q, want %q", got, want)
	}
}

// TestStmtCallOmitsCallKeywordAndParens matches spec scenario 3: a
// subroutine call statement prints as bare `Name arg1, arg2`, never
// `Call Name(arg1, arg2)`.
func TestStmtCallOmitsCallKeywordAndParens(t *testing.T) {
	message := &ir.Variable{Name: "message", Type: ir.String}
	got := callText("Debug.Print", []*ir.Expr{ir.NewVariable(message)})
	want := "Debug.Print message"
	if got != want {
		t.Fatalf("callText = %q, want %q", got, want)
	}
	if got := callText("Foo", nil); got != "Foo" {
		t.Fatalf("callText(no args) = %q, want %q", got, "Foo")
	}
}
