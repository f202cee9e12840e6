// Package structurer turns a lifted ir.Function's basic-block graph into
// a tree of structured nodes (sequence, if/then/else, while, do-while,
// goto) for the emitter to print, per §4.8; NodeDoUntil is declared
// but Structure never builds it. The
// pattern-matching approach — classify each block by its terminator and
// successor shape, consume the blocks it claims, recurse on what is
// left — is grounded on the teacher's disasm.BuildCFG leader-partition
// algorithm, adapted from "discover basic blocks from raw bytes" to
// "discover structured regions from basic blocks".
package structurer

import (
	"sort"

	"vbdecompile/internal/ir"
)

// NodeKind discriminates a structured node.
type NodeKind int

const (
	NodeSequence NodeKind = iota
	NodeIfThen
	NodeIfThenElse
	NodeWhile
	NodeDoWhile
	NodeDoUntil
	NodeGotoLabel
	NodeBlock // a single basic block with no further structure
)

// Node is one structured region. Only the fields relevant to Kind are
// populated; see each constructor.
type Node struct {
	Kind NodeKind

	// NodeBlock
	Block *ir.BasicBlock

	// NodeSequence
	Children []*Node

	// NodeIfThen / NodeIfThenElse / NodeWhile / NodeDoWhile / NodeDoUntil
	Cond *ir.Expr
	Then []*Node
	Else []*Node // NodeIfThenElse only
	Body []*Node // NodeWhile/NodeDoWhile/NodeDoUntil

	// NodeGotoLabel
	Label      int
	IsGotoStmt bool // true for the goto node itself, false for the label marker
}

// Structure builds the structured tree for fn's entry block, returning
// the ordered list of top-level nodes (a sequence body).
func Structure(fn *ir.Function) []*Node {
	s := &structurer{fn: fn, done: map[int]bool{}}
	order := reachableOrder(fn)
	return s.region(order)
}

type structurer struct {
	fn   *ir.Function
	done map[int]bool // block ids already consumed into some node
}

// reachableOrder returns block ids reachable from the entry block in a
// deterministic id-ascending order, matching the teacher's convention of
// processing blocks by increasing address/id rather than a DFS that
// would vary with map iteration order.
func reachableOrder(fn *ir.Function) []int {
	seen := map[int]bool{fn.EntryBlock: true}
	queue := []int{fn.EntryBlock}
	for i := 0; i < len(queue); i++ {
		b := fn.Blocks[queue[i]]
		for _, s := range b.SortedSuccs() {
			if !seen[s] {
				seen[s] = true
				queue = append(queue, s)
			}
		}
	}
	sort.Ints(queue)
	return queue
}

// region walks ids in order, emitting one node per claimed region, and
// returns the resulting node list. ids already in s.done are skipped —
// they were consumed as part of an earlier region (a loop body, an
// if-branch).
func (s *structurer) region(ids []int) []*Node {
	var out []*Node
	for _, id := range ids {
		if s.done[id] {
			continue
		}
		out = append(out, s.nodeFor(id))
	}
	return out
}

// nodeFor classifies the block at id by its terminator shape and
// consumes however many additional blocks that shape claims, per §4.8's
// pattern table: do-while/do-until, while, if-then-else, if-then,
// default to a single statement-carrying node.
func (s *structurer) nodeFor(id int) *Node {
	b := s.fn.Blocks[id]
	term := b.Terminator()
	if term == nil {
		s.done[id] = true
		return &Node{Kind: NodeBlock, Block: b}
	}

	switch term.Kind {
	case ir.StmtBranch:
		if n := s.matchDoWhileOrUntil(b, term); n != nil {
			return n
		}
		if n := s.matchWhile(b, term); n != nil {
			return n
		}
		return s.matchIf(b, term)

	case ir.StmtGoto:
		s.done[id] = true
		if isBackEdge(b.ID, term.GotoBlock) {
			return &Node{Kind: NodeSequence, Children: []*Node{
				{Kind: NodeBlock, Block: b},
				{Kind: NodeGotoLabel, IsGotoStmt: true, Label: term.GotoBlock},
			}}
		}
		// Forward unconditional jump: the block stays a plain statement
		// block (emit elides its trailing Goto) and the target is reached
		// later in id order; no goto or label is introduced.
		return &Node{Kind: NodeBlock, Block: b}

	default:
		s.done[id] = true
		return &Node{Kind: NodeBlock, Block: b}
	}
}

// isBackEdge reports whether a jump from "from" to "to" is a loop back
// edge, using the teacher's block-id-ordering heuristic: successor id <=
// source id implies the target was visited earlier in program order.
func isBackEdge(from, to int) bool {
	return to <= from
}

// matchDoWhileOrUntil recognizes a block whose conditional branch's
// "true" target is a loop header at or before it, i.e. the classic
// "body; test; branch back to body" shape. It declines when any block
// from the header through b is already claimed.
func (s *structurer) matchDoWhileOrUntil(b *ir.BasicBlock, term *ir.Stmt) *Node {
	if term.TargetBlock > b.ID {
		return nil
	}
	headerID := term.TargetBlock
	bodyIDs := idsBetween(headerID, b.ID)
	if len(bodyIDs) == 0 {
		return nil
	}
	for _, id := range bodyIDs {
		if s.done[id] {
			return nil
		}
	}
	// The last id is b itself, the block holding the test+branch: its
	// condition is already captured in term.Cond, so it becomes a plain
	// statement block rather than being re-classified (which would
	// re-discover the same back edge and recurse forever). Everything
	// before it may have its own nested structure.
	interior := bodyIDs[:len(bodyIDs)-1]
	body := s.region(interior)
	s.done[b.ID] = true
	body = append(body, &Node{Kind: NodeBlock, Block: b})
	// do-while continues on the true branch (back to header); falling
	// through (false) exits the loop, matching DoWhile. The result is
	// always a NodeDoWhile with Cond carrying the as-decoded predicate;
	// a loop that exits on true and continues on false is not matched
	// here, and no NodeDoUntil is built.
	return &Node{Kind: NodeDoWhile, Cond: term.Cond, Body: body}
}

// idsBetween returns [from, to] inclusive, the candidate loop-body block
// ids for a back edge discovered at block `to` targeting block `from`.
func idsBetween(from, to int) []int {
	if from > to {
		return nil
	}
	ids := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		ids = append(ids, i)
	}
	return ids
}

// matchWhile recognizes a header block whose conditional branch continues
// into the loop body on the true edge (term.TargetBlock, the same
// true-branch convention matchIf uses for its "then" arm) and exits on
// the false edge, where the body's tail performs an unconditional jump
// back to header — the "test; body; jump back to test" shape, distinct
// from do-while's "body; test".
func (s *structurer) matchWhile(header *ir.BasicBlock, term *ir.Stmt) *Node {
	if len(header.SortedSuccs()) != 2 {
		return nil
	}
	bodyStart := term.TargetBlock
	if bodyStart <= header.ID {
		return nil
	}
	// Search forward from the body's entry block for a back edge landing
	// on header.
	bodyIDs := idsBetween(header.ID+1, bodyStart)
	last := bodyStart
	for {
		lb := s.fn.Blocks[last]
		t := lb.Terminator()
		if t != nil && t.Kind == ir.StmtGoto && t.GotoBlock == header.ID {
			break
		}
		if t != nil && t.Kind == ir.StmtBranch && t.TargetBlock == header.ID {
			break
		}
		last++
		if _, ok := s.fn.Blocks[last]; !ok || s.done[last] {
			return nil
		}
		bodyIDs = append(bodyIDs, last)
	}
	for _, id := range bodyIDs {
		if s.done[id] {
			return nil
		}
	}
	// The last id is the block holding the back edge to header: its
	// transfer is already captured by this NodeWhile, so it becomes a
	// plain statement block rather than being re-classified (which would
	// re-discover the same back edge and recurse forever).
	interior := bodyIDs[:len(bodyIDs)-1]
	tail := s.fn.Blocks[bodyIDs[len(bodyIDs)-1]]
	body := s.region(interior)
	s.done[header.ID] = true
	for _, id := range bodyIDs {
		s.done[id] = true
	}
	body = append(body, &Node{Kind: NodeBlock, Block: tail})
	return &Node{Kind: NodeWhile, Cond: term.Cond, Body: body}
}

// matchIf recognizes the if-then and if-then-else shapes: a conditional
// branch whose two successors either both rejoin at a common block
// (if-then-else) or where one successor is that join point directly
// (if-then with no else).
func (s *structurer) matchIf(b *ir.BasicBlock, term *ir.Stmt) *Node {
	succs := b.SortedSuccs()
	if len(succs) != 2 {
		s.done[b.ID] = true
		return &Node{Kind: NodeBlock, Block: b}
	}
	thenID, elseID := term.TargetBlock, otherOf(succs, term.TargetBlock)
	join := findJoin(s.fn, thenID, elseID)

	thenIDs := pathTo(s.fn, thenID, join)
	elseIDs := pathTo(s.fn, elseID, join)
	for _, id := range append(append([]int{}, thenIDs...), elseIDs...) {
		if s.done[id] {
			s.done[b.ID] = true
			return &Node{Kind: NodeBlock, Block: b}
		}
	}
	// nodeFor marks each id it classifies as done on its own, the same way
	// matchDoWhileOrUntil and matchWhile leave their interior ids for
	// region to consume — pre-marking thenIDs/elseIDs here would make
	// region skip them outright and always return an empty arm.
	s.done[b.ID] = true
	thenNodes := s.region(thenIDs)
	if elseID == join {
		return &Node{Kind: NodeIfThen, Cond: term.Cond, Then: thenNodes}
	}
	elseNodes := s.region(elseIDs)
	return &Node{Kind: NodeIfThenElse, Cond: term.Cond, Then: thenNodes, Else: elseNodes}
}

func otherOf(succs []int, a int) int {
	for _, s := range succs {
		if s != a {
			return s
		}
	}
	return a
}

// findJoin walks forward from a and b independently along their single
// linear successor chains until they reach a common block id. It returns
// -1 when the two chains never converge — both arms run to their own
// dead end (typically each ending in its own Return), the "no merge"
// if/else shape.
func findJoin(fn *ir.Function, a, b int) int {
	visitedA := map[int]bool{}
	cur := a
	for i := 0; i < len(fn.Blocks)+1; i++ {
		visitedA[cur] = true
		blk := fn.Blocks[cur]
		next := soleSucc(blk)
		if next < 0 {
			break
		}
		cur = next
	}
	cur = b
	for i := 0; i < len(fn.Blocks)+1; i++ {
		if visitedA[cur] {
			return cur
		}
		blk := fn.Blocks[cur]
		next := soleSucc(blk)
		if next < 0 {
			break
		}
		cur = next
	}
	return -1
}

func soleSucc(b *ir.BasicBlock) int {
	succs := b.SortedSuccs()
	if len(succs) != 1 {
		return -1
	}
	return succs[0]
}

// pathTo collects the linear chain of block ids from start up to (but
// excluding) join, following sole successors. If start == join, the
// then/else arm is empty (a direct if-then with no statements on that
// arm, or the no-else case).
func pathTo(fn *ir.Function, start, join int) []int {
	if start == join {
		return nil
	}
	var out []int
	cur := start
	for i := 0; i < len(fn.Blocks)+1; i++ {
		out = append(out, cur)
		if cur == join {
			break
		}
		blk := fn.Blocks[cur]
		next := soleSucc(blk)
		if next < 0 || next == join {
			break
		}
		cur = next
	}
	return out
}
