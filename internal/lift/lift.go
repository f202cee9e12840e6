// Package lift converts a decoded P-Code instruction stream for one
// procedure into an IR function (internal/ir), simulating the P-Code
// evaluation stack as a vector of owned expressions. It is a two-pass
// single-procedure algorithm grounded on the teacher's
// disasm.BuildCFG leader/partition/successor algorithm, adapted from
// fixed-width ARM64 raw-encoding branch detection to variable-width
// P-Code stack simulation, per spec §4.7.
package lift

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"vbdecompile/internal/ir"
	"vbdecompile/internal/pcode"
	"vbdecompile/internal/vbfmt"
)

// Result is the outcome of lifting one procedure: the IR function plus
// any diagnostics accumulated along the way. Partial is set when lifting
// could not complete the procedure (an empty-stack pop or unresolvable
// branch target, per §7's "Lift" error kind) — the function is still
// returned, truncated at the point of failure, so the pipeline can
// continue with a placeholder rather than abort the whole file.
type Result struct {
	Func    *ir.Function
	Diags   vbfmt.Diags
	Partial bool
}

// Lift builds an IR function named name (address addr) from a decoded
// P-Code instruction stream, following §4.7's two-pass algorithm.
func Lift(name string, addr uint32, insts []pcode.Inst, params []paramSpec) Result {
	fn := ir.NewFunction(name, addr)
	for _, p := range params {
		fn.AddParam(p.Name, p.Type)
	}

	if len(insts) == 0 {
		entry := fn.NewBlock()
		fn.EntryBlock = entry.ID
		entry.Append(ir.NewReturn(nil))
		return Result{Func: fn}
	}

	l := &lifter{
		fn:         fn,
		insts:      insts,
		addrToIdx:  make(map[uint32]int, len(insts)),
		blockAtPC:  make(map[uint32]int),
	}
	for i, in := range insts {
		l.addrToIdx[in.Address] = i
	}

	l.pass1(insts[0].Address)
	partial := l.pass2()

	return Result{Func: fn, Diags: l.diags, Partial: partial}
}

// paramSpec describes one formal parameter to seed into the lifted
// function before lifting begins, per §3's "formal parameters created
// up-front" rule.
type paramSpec struct {
	Name string
	Type ir.Type
}

type lifter struct {
	fn    *ir.Function
	insts []pcode.Inst

	addrToIdx map[uint32]int // instruction address -> index in insts
	blockAtPC map[uint32]int // branch-target address -> pre-created block id

	diags vbfmt.Diags
}

// pass1 scans every branch and pre-creates a basic block keyed by its
// target address, per §4.7 Pass 1: "For every branch whose target is not
// zero, compute target_address ... and pre-create a basic block keyed by
// that address." entryAddr is included so the entry block always exists
// before pass2 runs. Blocks are assigned ids in ascending address order
// via NewBlockWithID, not creation order — §9's isBackEdge heuristic
// (successor id <= source id implies a loop back edge) depends on block
// ids tracking program order, and creation order follows the order
// branches appear in the instruction stream, not the order their targets
// sit in memory.
func (l *lifter) pass1(entryAddr uint32) {
	targets := map[uint32]bool{entryAddr: true}
	for _, in := range l.insts {
		if !in.IsBranch || !in.HasBranchOffset {
			continue
		}
		target := targetAddress(in)
		if target == 0 {
			continue
		}
		targets[target] = true
	}
	addrs := make([]uint32, 0, len(targets))
	for a := range targets {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	for i, a := range addrs {
		b := l.fn.NewBlockWithID(i)
		l.blockAtPC[a] = b.ID
	}
}

func targetAddress(in pcode.Inst) uint32 {
	return uint32(int64(in.Address) + int64(in.Length) + int64(in.BranchOffset))
}

// pass2 walks instructions in order with a current-block cursor,
// translating each by category per §4.7.
func (l *lifter) pass2() bool {
	startAddr := l.insts[0].Address
	entry := l.blockFor(startAddr)
	l.fn.EntryBlock = entry.ID
	cur := entry
	var stack []*ir.Expr
	partial := false

	closeAndSwitch := func(next *ir.BasicBlock) {
		if cur != nil && !cur.IsEmpty() {
			t := cur.Terminator()
			if t == nil || !t.IsTerminator() {
				l.fn.AddEdge(cur.ID, next.ID)
			}
		} else if cur != nil && cur.IsEmpty() && cur.ID != next.ID {
			l.fn.AddEdge(cur.ID, next.ID)
		}
		cur = next
	}

	for _, in := range l.insts {
		if partial {
			// A failed pop ends lifting of this procedure here.
			break
		}
		if bid, ok := l.blockAtPC[in.Address]; ok && l.fn.Blocks[bid] != cur {
			next := l.fn.Blocks[bid]
			closeAndSwitch(next)
		}
		if cur == nil {
			// Dead code after an unconditional branch with no re-entry
			// until the next known block boundary; skip translation.
			continue
		}

		switch {
		case in.IsReturn:
			l.lowerReturn(cur, in, &stack)
			cur = nil

		case in.Category == pcode.CategoryControlFlow && in.IsConditionalBranch:
			cond, err := pop(&stack)
			if err != nil {
				l.diags.Addf(in.Address, vbfmt.DiagEmptyStack, "%s: %v", in.Mnemonic, err)
				partial = true
				cur = nil
				continue
			}
			if in.Mnemonic == "BranchFalse" {
				// IR Branch jumps when its condition holds.
				cond = ir.NewUnary(ir.OpNot, cond, ir.Boolean)
			}
			target := targetAddress(in)
			tb := l.blockFor(target)
			l.fn.AddEdge(cur.ID, tb.ID)
			cur.Append(ir.NewBranch(cond, tb.ID))
			fallAddr := in.Address + uint32(in.Length)
			fall := l.blockFor(fallAddr)
			l.fn.AddEdge(cur.ID, fall.ID)
			cur = fall

		case in.Category == pcode.CategoryControlFlow && in.IsBranch:
			target := targetAddress(in)
			tb := l.blockFor(target)
			l.fn.AddEdge(cur.ID, tb.ID)
			cur.Append(ir.NewGoto(tb.ID))
			cur = nil

		case strings.Contains(in.Mnemonic, "Lit"):
			stack = append(stack, literalExpr(in))

		case strings.Contains(in.Mnemonic, "LdLoc") || strings.Contains(in.Mnemonic, "LoadLocal"):
			stack = append(stack, l.loadLocal(in))

		case strings.Contains(in.Mnemonic, "LdArg"):
			stack = append(stack, l.loadArg(in))

		case strings.Contains(in.Mnemonic, "StLoc") || strings.Contains(in.Mnemonic, "StoreLocal"):
			v, err := pop(&stack)
			if err != nil {
				l.diags.Addf(in.Address, vbfmt.DiagEmptyStack, "%s: %v", in.Mnemonic, err)
				partial = true
				continue
			}
			local := l.localVar(in)
			cur.Append(ir.NewAssign(local, v))

		case in.Category == pcode.CategoryArithmetic || strings.HasPrefix(in.Mnemonic, "Concat"):
			if !l.lowerBinary(cur, in, &stack, ir.Variant) {
				partial = true
			}

		case in.Category == pcode.CategoryComparison:
			if !l.lowerBinary(cur, in, &stack, ir.Boolean) {
				partial = true
			}

		case in.Category == pcode.CategoryLogical:
			if strings.Contains(in.Mnemonic, "Not") {
				operand, err := pop(&stack)
				if err != nil {
					l.diags.Addf(in.Address, vbfmt.DiagEmptyStack, "%s: %v", in.Mnemonic, err)
					partial = true
					continue
				}
				stack = append(stack, ir.NewUnary(ir.OpNot, operand, ir.Boolean))
			} else if !l.lowerBinary(cur, in, &stack, ir.Boolean) {
				partial = true
			}

		case in.IsCall:
			l.lowerCall(cur, in, &stack)

		default:
			// Memory and unknown categories: no side effect modeled.
		}
	}

	if cur != nil && cur.Terminator() == nil {
		cur.Append(ir.NewReturn(nil))
	}

	if err := l.fn.Validate(); err != nil {
		l.diags.Addf(l.fn.Address, vbfmt.DiagInvalid, "post-lift validation: %v", err)
		partial = true
	}
	return partial
}

// blockFor returns the pre-created block at target, or creates one on
// demand if pass1 missed it (e.g. target 0, an unresolvable branch).
func (l *lifter) blockFor(target uint32) *ir.BasicBlock {
	if bid, ok := l.blockAtPC[target]; ok {
		return l.fn.Blocks[bid]
	}
	b := l.fn.NewBlock()
	l.blockAtPC[target] = b.ID
	return b
}

func pop(stack *[]*ir.Expr) (*ir.Expr, error) {
	s := *stack
	if len(s) == 0 {
		return nil, fmt.Errorf("pop from empty evaluation stack")
	}
	v := s[len(s)-1]
	*stack = s[:len(s)-1]
	return v, nil
}

func literalExpr(in pcode.Inst) *ir.Expr {
	switch {
	case strings.Contains(in.Mnemonic, "True"):
		return ir.NewBoolConstant(true)
	case strings.Contains(in.Mnemonic, "False"):
		return ir.NewBoolConstant(false)
	}
	if len(in.Operands) == 0 {
		return ir.NewIntConstant(0)
	}
	op := in.Operands[0]
	switch {
	case strings.Contains(in.Mnemonic, "Str"):
		return ir.NewStringConstant(op.Str)
	case strings.Contains(in.Mnemonic, "R4") || op.Kind == pcode.OperandF32:
		return ir.NewFloatConstant(float64(op.Float))
	default:
		return ir.NewIntConstant(op.Int)
	}
}

func (l *lifter) loadLocal(in pcode.Inst) *ir.Expr {
	idx := operandIndex(in)
	name := fmt.Sprintf("local%d", idx)
	v := l.fn.FindLocal(name)
	if v == nil {
		v = l.fn.AddLocal(name, pcodeType(in))
	}
	return ir.NewVariable(v)
}

func (l *lifter) loadArg(in pcode.Inst) *ir.Expr {
	idx := operandIndex(in)
	if idx >= 0 && idx < len(l.fn.Params) {
		return ir.NewVariable(l.fn.Params[idx])
	}
	// Out-of-range argument index: degrade to a Variant local rather
	// than index out of bounds.
	name := fmt.Sprintf("arg%d", idx)
	v := l.fn.FindLocal(name)
	if v == nil {
		v = l.fn.AddLocal(name, ir.Variant)
	}
	return ir.NewVariable(v)
}

func (l *lifter) localVar(in pcode.Inst) *ir.Variable {
	idx := operandIndex(in)
	name := fmt.Sprintf("local%d", idx)
	v := l.fn.FindLocal(name)
	if v == nil {
		v = l.fn.AddLocal(name, pcodeType(in))
	}
	return v
}

func operandIndex(in pcode.Inst) int {
	for _, op := range in.Operands {
		if op.Kind == pcode.OperandLocal || op.Kind == pcode.OperandArg {
			return int(op.Index)
		}
	}
	return 0
}

func pcodeType(in pcode.Inst) ir.Type {
	for _, op := range in.Operands {
		if op.TypeChar == 0 {
			continue
		}
		switch op.TypeChar {
		case pcode.TypeCharInteger:
			return ir.Integer
		case pcode.TypeCharLong:
			return ir.Long
		case pcode.TypeCharSingle:
			return ir.Single
		case pcode.TypeCharString:
			return ir.String
		case pcode.TypeCharBoolean:
			return ir.Boolean
		case pcode.TypeCharByte:
			return ir.Byte
		case pcode.TypeCharObject:
			return ir.Object
		}
	}
	return ir.Variant
}

func binOpFor(mnemonic string) (ir.BinaryOp, bool) {
	switch {
	case strings.HasPrefix(mnemonic, "Add"):
		return ir.OpAdd, true
	case strings.HasPrefix(mnemonic, "Sub"):
		return ir.OpSub, true
	case strings.HasPrefix(mnemonic, "Mul"):
		return ir.OpMul, true
	case strings.HasPrefix(mnemonic, "IDiv"):
		return ir.OpIntDiv, true
	case strings.HasPrefix(mnemonic, "Div"):
		return ir.OpDiv, true
	case strings.HasPrefix(mnemonic, "Mod"):
		return ir.OpMod, true
	case strings.HasPrefix(mnemonic, "Concat"):
		return ir.OpConcat, true
	case strings.HasPrefix(mnemonic, "Eq"):
		return ir.OpEq, true
	case strings.HasPrefix(mnemonic, "Ne"):
		return ir.OpNe, true
	case strings.HasPrefix(mnemonic, "Lt"):
		return ir.OpLt, true
	case strings.HasPrefix(mnemonic, "Le"):
		return ir.OpLe, true
	case strings.HasPrefix(mnemonic, "Gt"):
		return ir.OpGt, true
	case strings.HasPrefix(mnemonic, "Ge"):
		return ir.OpGe, true
	case strings.HasPrefix(mnemonic, "And"):
		return ir.OpAnd, true
	case strings.HasPrefix(mnemonic, "Or"):
		return ir.OpOr, true
	case strings.HasPrefix(mnemonic, "Xor"):
		return ir.OpXor, true
	}
	return 0, false
}

func (l *lifter) lowerBinary(cur *ir.BasicBlock, in pcode.Inst, stack *[]*ir.Expr, resultType ir.Type) bool {
	op, ok := binOpFor(in.Mnemonic)
	if !ok {
		l.diags.Addf(in.Address, vbfmt.DiagInvalid, "unrecognized binary mnemonic %s", in.Mnemonic)
		return false
	}
	right, err := pop(stack)
	if err != nil {
		l.diags.Addf(in.Address, vbfmt.DiagEmptyStack, "%s: %v", in.Mnemonic, err)
		return false
	}
	left, err := pop(stack)
	if err != nil {
		l.diags.Addf(in.Address, vbfmt.DiagEmptyStack, "%s: %v", in.Mnemonic, err)
		return false
	}
	*stack = append(*stack, ir.NewBinary(op, left, right, resultType))
	return true
}

func (l *lifter) lowerReturn(cur *ir.BasicBlock, in pcode.Inst, stack *[]*ir.Expr) {
	if in.Mnemonic == "Ret" {
		v, err := pop(stack)
		if err != nil {
			l.diags.Addf(in.Address, vbfmt.DiagEmptyStack, "%s: %v", in.Mnemonic, err)
			cur.Append(ir.NewReturn(nil))
			return
		}
		cur.Append(ir.NewReturn(v))
		return
	}
	// ExitProc / ExitProcHresult: value-less return.
	cur.Append(ir.NewReturn(nil))
}

func (l *lifter) lowerCall(cur *ir.BasicBlock, in pcode.Inst, stack *[]*ir.Expr) {
	name := callName(in)
	if strings.HasPrefix(in.Mnemonic, "CallFunc") || strings.HasPrefix(in.Mnemonic, "CallI4") {
		*stack = append(*stack, ir.NewCall(name, nil, ir.Variant))
		return
	}
	cur.Append(ir.NewCallStmt(name, nil))
}

// callName resolves a display name for a call site per §4.7: Address
// operand -> func_<hex>, String operand -> the string, else func_unknown.
func callName(in pcode.Inst) string {
	for _, op := range in.Operands {
		switch op.Kind {
		case pcode.OperandString:
			return op.Str
		case pcode.OperandI32:
			return "func_" + strconv.FormatInt(op.Int, 16)
		case pcode.OperandVTable:
			return fmt.Sprintf("func_vtbl%d", op.Index)
		}
	}
	return "func_unknown"
}
