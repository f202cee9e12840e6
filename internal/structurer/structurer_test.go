package structurer

import (
	"testing"

	"vbdecompile/internal/ir"
)

// buildIfElse builds: b0 (branch b1/b2) -> b1 -> b3; b2 -> b3; b3 return.
func buildIfElse() *ir.Function {
	fn := ir.NewFunction("IfElse", 0)
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

	b3.Append(ir.NewReturn(nil))
	return fn
}

func TestStructureIfThenElse(t *testing.T) {
	fn := buildIfElse()
	if err := fn.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	nodes := Structure(fn)
	if len(nodes) == 0 {
		t.Fatal("no nodes produced")
	}
	if nodes[0].Kind != NodeIfThenElse {
		t.Fatalf("nodes[0].Kind = %v, want NodeIfThenElse", nodes[0].Kind)
	}
}

// buildIfElseNoJoin builds the spec's Max shape: both arms Return, so
// there is no common successor block for the branches to rejoin at.
func buildIfElseNoJoin() *ir.Function {
	fn := ir.NewFunction("Max", 0)
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
	return fn
}

func TestStructureIfElseNoJoinKeepsBothArms(t *testing.T) {
	fn := buildIfElseNoJoin()
	if err := fn.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	nodes := Structure(fn)
	if len(nodes) != 1 || nodes[0].Kind != NodeIfThenElse {
		t.Fatalf("nodes = %+v, want a single NodeIfThenElse", nodes)
	}
	n := nodes[0]
	if len(n.Then) != 1 || n.Then[0].Kind != NodeBlock {
		t.Fatalf("Then = %+v, want a single NodeBlock returning x", n.Then)
	}
	if len(n.Else) != 1 || n.Else[0].Kind != NodeBlock {
		t.Fatalf("Else = %+v, want a single NodeBlock returning y", n.Else)
	}
}

// buildDoWhile builds a 3-block self-contained loop: b0 entry falls into
// b1 (body), b1 tests cond and branches back to b1 on true, else to b2.
func buildDoWhile() *ir.Function {
	fn := ir.NewFunction("DoWhile", 0)
	b0 := fn.NewBlock()
	b1 := fn.NewBlock()
	b2 := fn.NewBlock()
	fn.EntryBlock = b0.ID

	b0.Append(ir.NewGoto(b1.ID))
	fn.AddEdge(b0.ID, b1.ID)

	cond := ir.NewBoolConstant(true)
	b1.Append(ir.NewBranch(cond, b1.ID))
	fn.AddEdge(b1.ID, b1.ID)
	fn.AddEdge(b1.ID, b2.ID)

	b2.Append(ir.NewReturn(nil))
	return fn
}

// buildWhile builds the spec's while-countdown shape: entry assigns and
// falls into header; header branches on count>0 to body, else to exit;
// body decrements and jumps back to header (a back edge); exit returns.
func buildWhile() *ir.Function {
	fn := ir.NewFunction("Countdown", 0)
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
	return fn
}

func TestStructureWhile(t *testing.T) {
	fn := buildWhile()
	if err := fn.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	nodes := Structure(fn)
	var while *Node
	for _, n := range nodes {
		if n.Kind == NodeWhile {
			while = n
		}
	}
	if while == nil {
		t.Fatalf("expected a NodeWhile among %d nodes", len(nodes))
	}
	if len(while.Body) != 1 || while.Body[0].Kind != NodeBlock {
		t.Fatalf("expected a single NodeBlock body carrying the decrement, got %+v", while.Body)
	}
	if len(while.Body[0].Block.Stmts) != 2 {
		t.Fatalf("expected the body block to retain its assign and its back-edge goto, got %d stmts", len(while.Body[0].Block.Stmts))
	}
}

func TestStructureDoWhile(t *testing.T) {
	fn := buildDoWhile()
	if err := fn.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	nodes := Structure(fn)
	var found bool
	for _, n := range nodes {
		if n.Kind == NodeDoWhile {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a NodeDoWhile among %d nodes", len(nodes))
	}
}
