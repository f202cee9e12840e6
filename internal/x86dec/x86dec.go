// Package x86dec is a partial 32-bit x86 decoder covering the opcodes
// produced by the VB6 native compiler, down to ModR/M+SIB memory
// operands. It is hand-written rather than delegating to
// golang.org/x/arch/x86/x86asm — see DESIGN.md for why — but borrows
// that package's register-name convention for textual rendering, and
// follows the teacher's disasm.Inst/Format shape otherwise.
package x86dec

import (
	"fmt"
	"strings"

	"golang.org/x/arch/x86/x86asm"
)

// Size is an operand width in bytes.
type Size int

const (
	Size0  Size = 0
	Size1  Size = 1
	Size2  Size = 2
	Size4  Size = 4
)

func (s Size) String() string {
	switch s {
	case Size1:
		return "byte"
	case Size2:
		return "word"
	case Size4:
		return "dword"
	default:
		return ""
	}
}

// Reg is a register index 0..7, interpreted against Size to select the
// 8/16/32-bit name table.
type Reg int

const regNone Reg = -1

// The x86asm.Reg tables give the canonical register enumeration; this
// decoder reuses them for name rendering only, not for decoding.
var reg8 = [8]x86asm.Reg{x86asm.AL, x86asm.CL, x86asm.DL, x86asm.BL, x86asm.AH, x86asm.CH, x86asm.DH, x86asm.BH}
var reg16 = [8]x86asm.Reg{x86asm.AX, x86asm.CX, x86asm.DX, x86asm.BX, x86asm.SP, x86asm.BP, x86asm.SI, x86asm.DI}
var reg32 = [8]x86asm.Reg{x86asm.EAX, x86asm.ECX, x86asm.EDX, x86asm.EBX, x86asm.ESP, x86asm.EBP, x86asm.ESI, x86asm.EDI}

// RegName renders a register index at the given size, lowercased to
// match the MASM-style listing convention the rest of this decoder uses.
func RegName(r Reg, size Size) string {
	if r < 0 || r > 7 {
		return ""
	}
	var xr x86asm.Reg
	switch size {
	case Size1:
		xr = reg8[r]
	case Size2:
		xr = reg16[r]
	default:
		xr = reg32[r]
	}
	return strings.ToLower(xr.String())
}

// Op enumerates the opcodes this decoder recognizes, per §4.5.
type Op int

const (
	OpUnknown Op = iota
	OpMov
	OpPush
	OpPop
	OpCall
	OpJmp
	OpJcc
	OpRet
	OpLea
	OpTest
	OpXor
	OpAnd
	OpOr
	OpInc
	OpDec
	OpAdd
	OpSub
	OpCmp
	OpLeave
	OpNop
)

var opNames = map[Op]string{
	OpUnknown: "(bad)",
	OpMov:     "mov",
	OpPush:    "push",
	OpPop:     "pop",
	OpCall:    "call",
	OpJmp:     "jmp",
	OpRet:     "ret",
	OpLea:     "lea",
	OpTest:    "test",
	OpXor:     "xor",
	OpAnd:     "and",
	OpOr:      "or",
	OpInc:     "inc",
	OpDec:     "dec",
	OpAdd:     "add",
	OpSub:     "sub",
	OpCmp:     "cmp",
	OpLeave:   "leave",
	OpNop:     "nop",
}

// condNames maps the 4-bit condition field of 0x70-0x7F/0x0F80-0x0F8F to
// the mnemonic suffix, per §4.5's Jcc table.
var condNames = [16]string{
	"jo", "jno", "jb", "jae", "je", "jne", "jbe", "ja",
	"js", "jns", "jp", "jnp", "jl", "jge", "jle", "jg",
}

// OperandKind discriminates the payload of an Operand.
type OperandKind int

const (
	OperandKindNone OperandKind = iota
	OperandKindRegister
	OperandKindImmediate
	OperandKindMemory
	OperandKindOffset
)

// Operand is one decoded x86 operand.
type Operand struct {
	Kind OperandKind
	Size Size

	// OperandKindRegister
	Reg Reg

	// OperandKindImmediate / OperandKindOffset
	Imm int64

	// OperandKindMemory
	Base        Reg // regNone if absent
	Index       Reg // regNone if absent
	Scale       int // 1, 2, 4, or 8
	Disp        int32
	HasBase     bool
	HasIndex    bool
}

func (o Operand) String() string {
	switch o.Kind {
	case OperandKindRegister:
		return RegName(o.Reg, o.Size)
	case OperandKindImmediate:
		return fmt.Sprintf("0x%x", o.Imm)
	case OperandKindOffset:
		return fmt.Sprintf("0x%x", o.Imm)
	case OperandKindMemory:
		return o.memString()
	default:
		return ""
	}
}

func (o Operand) memString() string {
	inner := ""
	if o.HasBase {
		inner += RegName(o.Base, Size4)
	}
	if o.HasIndex {
		if inner != "" {
			inner += " + "
		}
		inner += fmt.Sprintf("%s*%d", RegName(o.Index, Size4), o.Scale)
	}
	if o.Disp != 0 || inner == "" {
		if inner != "" {
			if o.Disp >= 0 {
				inner += fmt.Sprintf(" + 0x%x", o.Disp)
			} else {
				inner += fmt.Sprintf(" - 0x%x", -o.Disp)
			}
		} else {
			inner = fmt.Sprintf("0x%x", uint32(o.Disp))
		}
	}
	sizePtr := o.Size.String()
	if sizePtr == "" {
		return fmt.Sprintf("[%s]", inner)
	}
	return fmt.Sprintf("%s [%s]", sizePtr, inner)
}

// Inst is one decoded x86 instruction.
type Inst struct {
	Address  uint32
	Op       Op
	Mnemonic string // includes the jcc-specific name when Op == OpJcc
	Length   int
	Raw      []byte
	Operands []Operand
}

func (in Inst) String() string {
	parts := make([]string, 0, len(in.Operands))
	for _, o := range in.Operands {
		parts = append(parts, o.String())
	}
	if len(parts) == 0 {
		return in.Mnemonic
	}
	out := in.Mnemonic + " "
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
