package x86dec

import (
	"fmt"

	"vbdecompile/internal/vbfmt"
)

// arithGroup maps the base opcode byte of a six-variant ALU group
// (base+0..base+5: r/m8,r8 / r/m32,r32 / r8,r/m8 / r32,r/m32 / AL,imm8 /
// EAX,imm32) to its Op and mnemonic, per §4.5.
var arithGroup = map[byte]struct {
	op   Op
	name string
}{
	0x00: {OpAdd, "add"},
	0x08: {OpOr, "or"},
	0x20: {OpAnd, "and"},
	0x28: {OpSub, "sub"},
	0x30: {OpXor, "xor"},
	0x38: {OpCmp, "cmp"},
}

// Decode decodes a single x86 instruction from data at byte offset off,
// whose virtual address is addr. Unknown primary opcodes yield a
// length-1 Unknown instruction, per §4.5, so callers can resynchronize.
func Decode(data []byte, off int, addr uint32) (Inst, error) {
	r := vbfmt.NewReaderAt(data, off)

	b0, err := r.ReadU8()
	if err != nil {
		return Inst{}, fmt.Errorf("x86dec: read opcode: %w", err)
	}

	inst, decErr := decodeOpcode(r, b0, addr, off)
	if decErr != nil {
		// Unknown, declined or truncated instruction: an Unknown covering
		// the bytes read before decoding stopped (one byte when only the
		// opcode was read).
		return finish(r, off, addr, Inst{Op: OpUnknown, Mnemonic: "(bad)"}, data), nil
	}
	return finish(r, off, addr, inst, data), nil
}

func finish(r *vbfmt.Reader, off int, addr uint32, inst Inst, data []byte) Inst {
	length := r.Pos() - off
	if length < 1 {
		length = 1
	}
	inst.Address = addr
	inst.Length = length
	end := off + length
	if end > len(data) {
		end = len(data)
	}
	inst.Raw = append([]byte(nil), data[off:end]...)
	return inst
}

// Disassemble decodes x86 instructions from data starting at baseAddr
// until data is exhausted.
func Disassemble(data []byte, baseAddr uint32) []Inst {
	var out []Inst
	off := 0
	for off < len(data) {
		addr := baseAddr + uint32(off)
		inst, err := Decode(data, off, addr)
		if err != nil {
			break
		}
		out = append(out, inst)
		off += inst.Length
	}
	return out
}

func decodeOpcode(r *vbfmt.Reader, b0 byte, addr uint32, start int) (Inst, error) {
	switch {
	case b0 == 0x90:
		return Inst{Op: OpNop, Mnemonic: "nop"}, nil
	case b0 == 0xC9:
		return Inst{Op: OpLeave, Mnemonic: "leave"}, nil
	case b0 == 0xC3:
		return Inst{Op: OpRet, Mnemonic: "ret"}, nil
	case b0 == 0xC2:
		imm, err := r.ReadU16LE()
		if err != nil {
			return Inst{}, err
		}
		return Inst{Op: OpRet, Mnemonic: "ret", Operands: []Operand{immOp(int64(imm), Size2)}}, nil
	case b0 == 0xCA:
		imm, err := r.ReadU16LE()
		if err != nil {
			return Inst{}, err
		}
		return Inst{Op: OpRet, Mnemonic: "retf", Operands: []Operand{immOp(int64(imm), Size2)}}, nil
	case b0 == 0xCB:
		return Inst{Op: OpRet, Mnemonic: "retf"}, nil

	case b0 >= 0x50 && b0 <= 0x57:
		return Inst{Op: OpPush, Mnemonic: "push", Operands: []Operand{regOp(Reg(b0-0x50), Size4)}}, nil
	case b0 >= 0x58 && b0 <= 0x5F:
		return Inst{Op: OpPop, Mnemonic: "pop", Operands: []Operand{regOp(Reg(b0-0x58), Size4)}}, nil
	case b0 == 0x68:
		imm, err := r.ReadI32LE()
		if err != nil {
			return Inst{}, err
		}
		return Inst{Op: OpPush, Mnemonic: "push", Operands: []Operand{immOp(int64(imm), Size4)}}, nil
	case b0 == 0x6A:
		imm, err := r.ReadI8()
		if err != nil {
			return Inst{}, err
		}
		return Inst{Op: OpPush, Mnemonic: "push", Operands: []Operand{immOp(int64(imm), Size1)}}, nil

	case b0 >= 0x40 && b0 <= 0x47:
		return Inst{Op: OpInc, Mnemonic: "inc", Operands: []Operand{regOp(Reg(b0-0x40), Size4)}}, nil
	case b0 >= 0x48 && b0 <= 0x4F:
		return Inst{Op: OpDec, Mnemonic: "dec", Operands: []Operand{regOp(Reg(b0-0x48), Size4)}}, nil

	case b0 == 0xE8:
		rel, err := r.ReadI32LE()
		if err != nil {
			return Inst{}, err
		}
		return Inst{Op: OpCall, Mnemonic: "call", Operands: []Operand{relOp(addr, start, r.Pos(), rel)}}, nil
	case b0 == 0xE9:
		rel, err := r.ReadI32LE()
		if err != nil {
			return Inst{}, err
		}
		return Inst{Op: OpJmp, Mnemonic: "jmp", Operands: []Operand{relOp(addr, start, r.Pos(), rel)}}, nil
	case b0 == 0xEB:
		rel, err := r.ReadI8()
		if err != nil {
			return Inst{}, err
		}
		return Inst{Op: OpJmp, Mnemonic: "jmp", Operands: []Operand{relOp(addr, start, r.Pos(), int32(rel))}}, nil
	case b0 >= 0x70 && b0 <= 0x7F:
		rel, err := r.ReadI8()
		if err != nil {
			return Inst{}, err
		}
		name := condNames[b0-0x70]
		return Inst{Op: OpJcc, Mnemonic: name, Operands: []Operand{relOp(addr, start, r.Pos(), int32(rel))}}, nil

	case b0 == 0x8D:
		reg, rm, err := decodeModRM(r, Size4)
		if err != nil {
			return Inst{}, err
		}
		if rm.Kind != OperandKindMemory {
			return Inst{}, fmt.Errorf("x86dec: lea requires a memory operand")
		}
		return Inst{Op: OpLea, Mnemonic: "lea", Operands: []Operand{regOp(reg, Size4), rm}}, nil

	case b0 == 0x88:
		return decodeRMR(r, Size1, OpMov, "mov", false)
	case b0 == 0x89:
		return decodeRMR(r, Size4, OpMov, "mov", false)
	case b0 == 0x8A:
		return decodeRMR(r, Size1, OpMov, "mov", true)
	case b0 == 0x8B:
		return decodeRMR(r, Size4, OpMov, "mov", true)
	case b0 == 0xA0:
		return decodeMoffs(r, addr, Size1, true)
	case b0 == 0xA1:
		return decodeMoffs(r, addr, Size4, true)
	case b0 == 0xA2:
		return decodeMoffs(r, addr, Size1, false)
	case b0 == 0xA3:
		return decodeMoffs(r, addr, Size4, false)
	case b0 >= 0xB0 && b0 <= 0xB7:
		imm, err := r.ReadU8()
		if err != nil {
			return Inst{}, err
		}
		return Inst{Op: OpMov, Mnemonic: "mov", Operands: []Operand{regOp(Reg(b0-0xB0), Size1), immOp(int64(imm), Size1)}}, nil
	case b0 >= 0xB8 && b0 <= 0xBF:
		imm, err := r.ReadU32LE()
		if err != nil {
			return Inst{}, err
		}
		return Inst{Op: OpMov, Mnemonic: "mov", Operands: []Operand{regOp(Reg(b0-0xB8), Size4), immOp(int64(imm), Size4)}}, nil
	case b0 == 0xC6:
		return decodeMovImm(r, Size1)
	case b0 == 0xC7:
		return decodeMovImm(r, Size4)

	case b0 == 0x84:
		return decodeRMR(r, Size1, OpTest, "test", true)
	case b0 == 0x85:
		return decodeRMR(r, Size4, OpTest, "test", true)
	case b0 == 0xA8:
		imm, err := r.ReadU8()
		if err != nil {
			return Inst{}, err
		}
		return Inst{Op: OpTest, Mnemonic: "test", Operands: []Operand{regOp(0, Size1), immOp(int64(imm), Size1)}}, nil
	case b0 == 0xA9:
		imm, err := r.ReadU32LE()
		if err != nil {
			return Inst{}, err
		}
		return Inst{Op: OpTest, Mnemonic: "test", Operands: []Operand{regOp(0, Size4), immOp(int64(imm), Size4)}}, nil

	case b0 == 0xFE:
		return decodeIncDecGroup(r, Size1)
	case b0 == 0xFF:
		return decodeIncDecGroup(r, Size4)

	default:
		if g, ok := matchArithGroup(b0); ok {
			return decodeArith(r, b0, g)
		}
		return Inst{}, fmt.Errorf("x86dec: unrecognized opcode 0x%02x", b0)
	}
}

func matchArithGroup(b0 byte) (struct {
	op   Op
	name string
}, bool) {
	base := b0 &^ 0x07
	g, ok := arithGroup[base]
	if !ok || b0-base > 5 {
		return g, false
	}
	return g, true
}

func decodeArith(r *vbfmt.Reader, b0 byte, g struct {
	op   Op
	name string
}) (Inst, error) {
	base := b0 &^ 0x07
	variant := b0 - base
	switch variant {
	case 0:
		return decodeRMR(r, Size1, g.op, g.name, false)
	case 1:
		return decodeRMR(r, Size4, g.op, g.name, false)
	case 2:
		return decodeRMR(r, Size1, g.op, g.name, true)
	case 3:
		return decodeRMR(r, Size4, g.op, g.name, true)
	case 4:
		imm, err := r.ReadU8()
		if err != nil {
			return Inst{}, err
		}
		return Inst{Op: g.op, Mnemonic: g.name, Operands: []Operand{regOp(0, Size1), immOp(int64(imm), Size1)}}, nil
	case 5:
		imm, err := r.ReadU32LE()
		if err != nil {
			return Inst{}, err
		}
		return Inst{Op: g.op, Mnemonic: g.name, Operands: []Operand{regOp(0, Size4), immOp(int64(imm), Size4)}}, nil
	}
	return Inst{}, fmt.Errorf("x86dec: bad arith variant")
}

// decodeRMR decodes a ModR/M instruction of the form <reg,rm> (regIsDst)
// or <rm,reg> (!regIsDst).
func decodeRMR(r *vbfmt.Reader, size Size, op Op, name string, regIsDst bool) (Inst, error) {
	reg, rm, err := decodeModRM(r, size)
	if err != nil {
		return Inst{}, err
	}
	regOperand := regOp(reg, size)
	if regIsDst {
		return Inst{Op: op, Mnemonic: name, Operands: []Operand{regOperand, rm}}, nil
	}
	return Inst{Op: op, Mnemonic: name, Operands: []Operand{rm, regOperand}}, nil
}

// decodeMovImm decodes 0xC6/0xC7: mov r/m, imm (ModR/M reg field must be 0).
func decodeMovImm(r *vbfmt.Reader, size Size) (Inst, error) {
	reg, rm, err := decodeModRMRaw(r, size)
	if err != nil {
		return Inst{}, err
	}
	if reg != 0 {
		return Inst{}, fmt.Errorf("x86dec: mov imm requires reg field 0, got %d", reg)
	}
	var imm int64
	if size == Size1 {
		v, err := r.ReadU8()
		if err != nil {
			return Inst{}, err
		}
		imm = int64(v)
	} else {
		v, err := r.ReadU32LE()
		if err != nil {
			return Inst{}, err
		}
		imm = int64(v)
	}
	return Inst{Op: OpMov, Mnemonic: "mov", Operands: []Operand{rm, immOp(imm, size)}}, nil
}

// decodeIncDecGroup decodes 0xFE/0xFF: the ModR/M reg field selects
// inc (0) or dec (1); any other reg field is declined, per §8's
// boundary behavior (0xFF with reg not in {0,1} must not be misread
// as inc/dec).
func decodeIncDecGroup(r *vbfmt.Reader, size Size) (Inst, error) {
	reg, rm, err := decodeModRMRaw(r, size)
	if err != nil {
		return Inst{}, err
	}
	switch reg {
	case 0:
		return Inst{Op: OpInc, Mnemonic: "inc", Operands: []Operand{rm}}, nil
	case 1:
		return Inst{Op: OpDec, Mnemonic: "dec", Operands: []Operand{rm}}, nil
	default:
		return Inst{}, fmt.Errorf("x86dec: reg field %d not inc/dec", reg)
	}
}

// decodeMoffs decodes 0xA0-0xA3: mov between AL/EAX and a direct
// (disp32-only) memory operand, toAcc selects the direction.
func decodeMoffs(r *vbfmt.Reader, addr uint32, size Size, toAcc bool) (Inst, error) {
	disp, err := r.ReadI32LE()
	if err != nil {
		return Inst{}, err
	}
	mem := Operand{Kind: OperandKindMemory, Size: size, Disp: disp}
	acc := regOp(0, size)
	if toAcc {
		return Inst{Op: OpMov, Mnemonic: "mov", Operands: []Operand{acc, mem}}, nil
	}
	return Inst{Op: OpMov, Mnemonic: "mov", Operands: []Operand{mem, acc}}, nil
}

func regOp(r Reg, size Size) Operand {
	return Operand{Kind: OperandKindRegister, Reg: r, Size: size}
}

func immOp(v int64, size Size) Operand {
	return Operand{Kind: OperandKindImmediate, Imm: v, Size: size}
}

// relOp computes an absolute branch target per §4.5: address + the
// instruction's length up through the operand just read + the operand's
// signed displacement. start is the instruction's own offset into the
// decode buffer; posAfterOperand is the reader's absolute position
// immediately after reading the operand, so posAfterOperand-start is the
// length consumed so far.
func relOp(addr uint32, start, posAfterOperand int, rel int32) Operand {
	length := posAfterOperand - start
	target := int32(addr) + int32(length) + rel
	return Operand{Kind: OperandKindOffset, Imm: int64(target)}
}

// decodeModRM decodes a ModR/M (and, if present, SIB) byte sequence,
// returning the reg field as a Reg and the rm field as an Operand
// (register or memory), per §4.5.
func decodeModRM(r *vbfmt.Reader, size Size) (Reg, Operand, error) {
	regVal, rm, err := decodeModRMRaw(r, size)
	return Reg(regVal), rm, err
}

// decodeModRMRaw is the same as decodeModRM but returns the raw reg
// field as an int (used by opcode groups where reg selects a
// sub-operation rather than a register operand).
func decodeModRMRaw(r *vbfmt.Reader, size Size) (int, Operand, error) {
	b, err := r.ReadU8()
	if err != nil {
		return 0, Operand{}, err
	}
	mod := b >> 6
	reg := int((b >> 3) & 0x7)
	rmField := b & 0x7

	if mod == 3 {
		return reg, regOp(Reg(rmField), size), nil
	}

	var base, index Reg = regNone, regNone
	hasBase, hasIndex := false, false
	scale := 1
	var disp int32

	if rmField == 4 {
		// SIB byte follows.
		sib, err := r.ReadU8()
		if err != nil {
			return 0, Operand{}, err
		}
		ss := sib >> 6
		idx := (sib >> 3) & 0x7
		bse := sib & 0x7
		scale = 1 << ss
		if idx != 4 {
			index = Reg(idx)
			hasIndex = true
		}
		if mod == 0 && bse == 5 {
			// disp32, no base.
			d, err := r.ReadI32LE()
			if err != nil {
				return 0, Operand{}, err
			}
			disp = d
		} else {
			base = Reg(bse)
			hasBase = true
		}
	} else if mod == 0 && rmField == 5 {
		// disp32, no base, no SIB.
		d, err := r.ReadI32LE()
		if err != nil {
			return 0, Operand{}, err
		}
		disp = d
	} else {
		base = Reg(rmField)
		hasBase = true
	}

	switch mod {
	case 1:
		d, err := r.ReadI8()
		if err != nil {
			return 0, Operand{}, err
		}
		disp = int32(d)
	case 2:
		d, err := r.ReadI32LE()
		if err != nil {
			return 0, Operand{}, err
		}
		disp = d
	}

	mem := Operand{
		Kind:     OperandKindMemory,
		Size:     size,
		Base:     base,
		Index:    index,
		Scale:    scale,
		Disp:     disp,
		HasBase:  hasBase,
		HasIndex: hasIndex,
	}
	return reg, mem, nil
}
