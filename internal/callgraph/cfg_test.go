package callgraph

import (
	"testing"

	"github.com/zboralski/lattice/render"

	"vbdecompile/internal/ir"
)

// buildBranchingFunc constructs:
//
//	b0: Call Foo.bar; Branch cond -> b1 (true) / b2 (false, fallthrough)
//	b1: Call Baz.qux; Goto b3
//	b2: Call Quux.run; Return
//	b3: Return
func buildBranchingFunc(name string) *ir.Function {
	fn := ir.NewFunction(name, 0)
	b0 := fn.NewBlock()
	b1 := fn.NewBlock()
	b2 := fn.NewBlock()
	b3 := fn.NewBlock()
	fn.EntryBlock = b0.ID

	b0.Append(ir.NewCallStmt("Foo.bar", nil))
	cond := ir.NewBoolConstant(true)
	b0.Append(ir.NewBranch(cond, b1.ID))
	fn.AddEdge(b0.ID, b1.ID)
	fn.AddEdge(b0.ID, b2.ID)

	b1.Append(ir.NewCallStmt("Baz.qux", nil))
	b1.Append(ir.NewGoto(b3.ID))
	fn.AddEdge(b1.ID, b3.ID)

	b2.Append(ir.NewCallStmt("Quux.run", nil))
	b2.Append(ir.NewReturn(nil))

	b3.Append(ir.NewReturn(nil))

	return fn
}

func TestBuildCFG_DOTOutput(t *testing.T) {
	fn := buildBranchingFunc("MyClass.myMethod")
	funcs := []FuncInfo{{Name: "MyClass.myMethod", Fn: fn}}

	cfg := BuildCFG(funcs)
	if len(cfg.Funcs) != 1 {
		t.Fatalf("expected 1 function, got %d", len(cfg.Funcs))
	}
	f := cfg.Funcs[0]
	if f.Name != "MyClass.myMethod" {
		t.Errorf("func name = %q", f.Name)
	}
	if len(f.Blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(f.Blocks))
	}

	b0 := f.Blocks[0]
	if len(b0.Calls) != 1 || b0.Calls[0].Callee != "Foo.bar" {
		t.Errorf("B0 calls = %+v", b0.Calls)
	}
	if len(b0.Succs) != 2 {
		t.Errorf("B0 succs = %+v", b0.Succs)
	}

	b1 := f.Blocks[1]
	if len(b1.Calls) != 1 || b1.Calls[0].Callee != "Baz.qux" {
		t.Errorf("B1 calls = %+v", b1.Calls)
	}

	b2 := f.Blocks[2]
	if len(b2.Calls) != 1 || b2.Calls[0].Callee != "Quux.run" {
		t.Errorf("B2 calls = %+v", b2.Calls)
	}
	if !b2.Term {
		t.Error("B2 should be terminal")
	}

	b3 := f.Blocks[3]
	if !b3.Term {
		t.Error("B3 should be terminal")
	}

	dot := render.DOTCFG(cfg, "vbdecompile CFG example")
	if dot == "" {
		t.Error("expected non-empty DOT output")
	}
}

func TestBuildCallGraph_DOTOutput(t *testing.T) {
	logFn := ir.NewFunction("Logger.log", 0)
	b := logFn.NewBlock()
	logFn.EntryBlock = b.ID
	b.Append(ir.NewReturn(nil))

	fooFn := ir.NewFunction("Foo.init", 0)
	fb := fooFn.NewBlock()
	fooFn.EntryBlock = fb.ID
	fb.Append(ir.NewCallStmt("Logger.log", nil))
	fb.Append(ir.NewReturn(nil))

	barFn := ir.NewFunction("Bar.run", 0)
	bb := barFn.NewBlock()
	barFn.EntryBlock = bb.ID
	bb.Append(ir.NewCallStmt("Logger.log", nil))
	bb.Append(ir.NewAssign(barFn.AddLocal("tmp", ir.Variant), ir.NewCall("Widget.build", nil, ir.Variant)))
	bb.Append(ir.NewReturn(nil))

	mainFn := ir.NewFunction("main", 0)
	mb := mainFn.NewBlock()
	mainFn.EntryBlock = mb.ID
	mb.Append(ir.NewCallStmt("Foo.init", nil))
	mb.Append(ir.NewCallStmt("Bar.run", nil))
	mb.Append(ir.NewReturn(nil))

	funcs := []FuncInfo{
		{Name: "main", Fn: mainFn},
		{Name: "Foo.init", Fn: fooFn},
		{Name: "Bar.run", Fn: barFn},
		{Name: "Logger.log", Fn: logFn},
	}

	cg := BuildCallGraph(funcs)
	if len(cg.Nodes) != 4 {
		t.Errorf("expected 4 nodes, got %d", len(cg.Nodes))
	}

	dot := render.DOT(cg, "vbdecompile call graph example")
	if dot == "" {
		t.Error("expected non-empty DOT output")
	}
}
