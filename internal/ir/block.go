package ir

// BasicBlock is a maximal straight-line statement sequence. Only its
// last statement may transfer control; Preds/Succs are sets of block
// ids, never pointers, kept mutually consistent by Function.AddEdge.
type BasicBlock struct {
	ID    int
	Stmts []*Stmt
	Preds map[int]bool
	Succs map[int]bool
}

// NewBasicBlock creates an empty block with the given id.
func NewBasicBlock(id int) *BasicBlock {
	return &BasicBlock{
		ID:    id,
		Preds: make(map[int]bool),
		Succs: make(map[int]bool),
	}
}

// Append adds a statement to the end of the block.
func (b *BasicBlock) Append(s *Stmt) {
	b.Stmts = append(b.Stmts, s)
}

// Terminator returns the block's last statement, or nil if empty.
func (b *BasicBlock) Terminator() *Stmt {
	if len(b.Stmts) == 0 {
		return nil
	}
	return b.Stmts[len(b.Stmts)-1]
}

// IsEmpty reports whether the block has no statements.
func (b *BasicBlock) IsEmpty() bool { return len(b.Stmts) == 0 }

// SortedSuccs returns Succs as a sorted slice, for deterministic
// iteration (map order is otherwise unspecified).
func (b *BasicBlock) SortedSuccs() []int { return sortedKeys(b.Succs) }

// SortedPreds returns Preds as a sorted slice.
func (b *BasicBlock) SortedPreds() []int { return sortedKeys(b.Preds) }

func sortedKeys(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
