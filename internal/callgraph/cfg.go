package callgraph

import (
	"sort"

	"github.com/zboralski/lattice"

	"vbdecompile/internal/ir"
)

// BuildCFG converts every function's already-computed IR control-flow
// graph into a lattice.CFGGraph. Unlike the teacher's disasm.BuildCFG,
// this needs no separate block-discovery pass — internal/lift already
// built the block/edge structure the renderer wants.
func BuildCFG(funcs []FuncInfo) *lattice.CFGGraph {
	cg := &lattice.CFGGraph{}
	for _, f := range funcs {
		cg.Funcs = append(cg.Funcs, BuildFuncCFG(f.Name, f.Fn))
	}
	return cg
}

// BuildFuncCFG converts one function's blocks into a lattice.FuncCFG.
// Start/End are statement offsets within the block (there is no linear
// address space once code has been lifted to IR), and Cond labels a
// Branch's two successors "true"/"false" by comparing against
// TargetBlock.
func BuildFuncCFG(name string, fn *ir.Function) *lattice.FuncCFG {
	lcfg := &lattice.FuncCFG{Name: name}
	if fn == nil {
		return lcfg
	}
	for _, id := range fn.BlockIDs() {
		b := fn.Blocks[id]
		lb := &lattice.BasicBlock{
			ID:    b.ID,
			Start: 0,
			End:   len(b.Stmts),
			Term:  isTerminal(b),
			Calls: callSitesOf(b),
		}
		term := b.Terminator()
		for _, succ := range b.SortedSuccs() {
			cond := ""
			if term != nil && term.Kind == ir.StmtBranch {
				if succ == term.TargetBlock {
					cond = "true"
				} else {
					cond = "false"
				}
			}
			lb.Succs = append(lb.Succs, lattice.Successor{BlockID: succ, Cond: cond})
		}
		lcfg.Blocks = append(lcfg.Blocks, lb)
	}
	return lcfg
}

// isTerminal reports whether b ends the function (a Return with no
// successors), matching the teacher's disasm.FuncCFG.IsTerm meaning.
func isTerminal(b *ir.BasicBlock) bool {
	term := b.Terminator()
	return term != nil && term.Kind == ir.StmtReturn
}

// callSitesOf collects every named call in b, in statement order.
func callSitesOf(b *ir.BasicBlock) []lattice.CallSite {
	var calls []lattice.CallSite
	for offset, s := range b.Stmts {
		for _, name := range namesIn(s) {
			calls = append(calls, lattice.CallSite{Offset: offset, Callee: name})
		}
	}
	return calls
}

func namesIn(s *ir.Stmt) []string {
	seen := make(map[string]bool)
	walkStmtCalls(s, seen)
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
