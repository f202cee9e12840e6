// Package callgraph builds github.com/zboralski/lattice graphs from the
// decompiler's lifted IR: a whole-project call graph across functions,
// and per-function CFGs annotated with call sites, in the shapes
// internal/render expects. Where the teacher's version walked
// disassembled ARM64 instructions and resolved BLR targets, this
// version walks ir.Function's blocks and statements directly — the
// lifter has already resolved calls to names, so no separate
// call-edge-resolution pass is needed.
package callgraph

import (
	"sort"

	"github.com/zboralski/lattice"

	"vbdecompile/internal/ir"
)

// FuncInfo pairs a display name with its lifted function body.
type FuncInfo struct {
	Name string
	Fn   *ir.Function
}

// BuildCallGraph constructs a lattice.Graph across all functions. Each
// function is a node; each distinct callee named by a Call statement or
// Call expression anywhere in the function's body becomes an edge.
func BuildCallGraph(funcs []FuncInfo) *lattice.Graph {
	g := &lattice.Graph{}
	for _, f := range funcs {
		g.Nodes = append(g.Nodes, f.Name)
		for _, callee := range CalleesOf(f.Fn) {
			g.Edges = append(g.Edges, lattice.Edge{Caller: f.Name, Callee: callee})
		}
	}
	g.Dedup()
	return g
}

// CalleesOf returns the distinct, sorted set of callee names reachable
// from fn's statements.
func CalleesOf(fn *ir.Function) []string {
	if fn == nil {
		return nil
	}
	seen := make(map[string]bool)
	for _, id := range fn.BlockIDs() {
		for _, s := range fn.Blocks[id].Stmts {
			walkStmtCalls(s, seen)
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func walkStmtCalls(s *ir.Stmt, seen map[string]bool) {
	switch s.Kind {
	case ir.StmtCall:
		markCall(s.CallName, seen)
		for _, a := range s.CallArgs {
			walkExprCalls(a, seen)
		}
	case ir.StmtAssign:
		walkExprCalls(s.Value, seen)
	case ir.StmtStore:
		walkExprCalls(s.StoreAddr, seen)
		walkExprCalls(s.StoreValue, seen)
	case ir.StmtReturn:
		walkExprCalls(s.ReturnValue, seen)
	case ir.StmtBranch:
		walkExprCalls(s.Cond, seen)
	}
}

func walkExprCalls(e *ir.Expr, seen map[string]bool) {
	if e == nil {
		return
	}
	switch e.Kind {
	case ir.ExprCall:
		markCall(e.CallName, seen)
		for _, a := range e.Args {
			walkExprCalls(a, seen)
		}
	case ir.ExprUnary:
		walkExprCalls(e.Operand, seen)
	case ir.ExprBinary:
		walkExprCalls(e.Left, seen)
		walkExprCalls(e.Right, seen)
	case ir.ExprMemberAccess:
		walkExprCalls(e.Object, seen)
	case ir.ExprArrayIndex:
		walkExprCalls(e.Array, seen)
		for _, idx := range e.Indices {
			walkExprCalls(idx, seen)
		}
	case ir.ExprCast:
		walkExprCalls(e.CastOperand, seen)
	case ir.ExprLoad:
		walkExprCalls(e.Address, seen)
	}
}

func markCall(name string, seen map[string]bool) {
	if name != "" {
		seen[name] = true
	}
}
