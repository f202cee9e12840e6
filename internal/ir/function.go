package ir

import (
	"fmt"
	"sort"
)

// Function is an IR function: the top-level owner of every block,
// parameter, and local it contains. Blocks are referenced from outside
// the function only by id.
type Function struct {
	Name       string
	ReturnType Type
	Address    uint32
	Params     []*Variable
	Locals     []*Variable
	Blocks     map[int]*BasicBlock
	EntryBlock int

	nextVarID   int
	nextBlockID int
}

// NewFunction creates an empty function. Parameters should be added via
// AddParam before lifting begins, per §3's "formal parameters created
// up-front" rule.
func NewFunction(name string, addr uint32) *Function {
	return &Function{
		Name:    name,
		Address: addr,
		Blocks:  make(map[int]*BasicBlock),
	}
}

// AddParam creates and registers a formal parameter.
func (f *Function) AddParam(name string, t Type) *Variable {
	v := &Variable{ID: f.nextVarID, Name: name, Type: t}
	f.nextVarID++
	f.Params = append(f.Params, v)
	return v
}

// AddLocal creates and registers a local/temporary variable, created on
// demand by the lifter.
func (f *Function) AddLocal(name string, t Type) *Variable {
	v := &Variable{ID: f.nextVarID, Name: name, Type: t}
	f.nextVarID++
	f.Locals = append(f.Locals, v)
	return v
}

// FindLocal returns the local with the given name, or nil.
func (f *Function) FindLocal(name string) *Variable {
	for _, v := range f.Locals {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// NewBlock allocates and registers a fresh block with the next free id,
// returning the block.
func (f *Function) NewBlock() *BasicBlock {
	id := f.nextBlockID
	f.nextBlockID++
	b := NewBasicBlock(id)
	f.Blocks[id] = b
	return b
}

// NewBlockWithID registers a block at a caller-chosen id, advancing the
// id allocator past it. Used by the lifter's pass 1, which pre-creates
// blocks keyed by branch-target address before a sequential id would
// naturally reach them.
func (f *Function) NewBlockWithID(id int) *BasicBlock {
	if existing, ok := f.Blocks[id]; ok {
		return existing
	}
	b := NewBasicBlock(id)
	f.Blocks[id] = b
	if id >= f.nextBlockID {
		f.nextBlockID = id + 1
	}
	return b
}

// AddEdge wires a CFG edge from `from` to `to`, keeping both blocks'
// Preds/Succs sets consistent.
func (f *Function) AddEdge(from, to int) {
	fb, tb := f.Blocks[from], f.Blocks[to]
	if fb == nil || tb == nil {
		return
	}
	fb.Succs[to] = true
	tb.Preds[from] = true
}

// BlockIDs returns all block ids in sorted order.
func (f *Function) BlockIDs() []int {
	ids := make([]int, 0, len(f.Blocks))
	for id := range f.Blocks {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Validate checks the structural invariants of §3 and §8: the entry
// block exists, and every successor/predecessor id referenced by any
// block corresponds to a block in the function, and Preds/Succs are
// mutually consistent.
func (f *Function) Validate() error {
	if _, ok := f.Blocks[f.EntryBlock]; !ok {
		return fmt.Errorf("ir: entry block %d not present", f.EntryBlock)
	}
	for id, b := range f.Blocks {
		if id != b.ID {
			return fmt.Errorf("ir: block stored under key %d has ID %d", id, b.ID)
		}
		for s := range b.Succs {
			sb, ok := f.Blocks[s]
			if !ok {
				return fmt.Errorf("ir: block %d references unknown successor %d", id, s)
			}
			if !sb.Preds[id] {
				return fmt.Errorf("ir: block %d -> %d missing reciprocal predecessor", id, s)
			}
		}
		for p := range b.Preds {
			pb, ok := f.Blocks[p]
			if !ok {
				return fmt.Errorf("ir: block %d references unknown predecessor %d", id, p)
			}
			if !pb.Succs[id] {
				return fmt.Errorf("ir: block %d <- %d missing reciprocal successor", id, p)
			}
		}
		for i, s := range b.Stmts {
			if s.IsTerminator() && i != len(b.Stmts)-1 {
				return fmt.Errorf("ir: block %d has a terminator statement before its end", id)
			}
		}
	}
	return nil
}
