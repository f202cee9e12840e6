package pcode

import (
	"fmt"
	"strings"

	"vbdecompile/internal/vbfmt"
)

// OperandKind discriminates the payload of an Operand.
type OperandKind int

const (
	OperandNone OperandKind = iota
	OperandByte
	OperandI16
	OperandI32
	OperandF32
	OperandArg
	OperandLocal
	OperandControl
	OperandString
	OperandVTable
)

// TypeChar values annotate the VB runtime data type of an operand, per
// §4.4's trailing type-character table. zero value means "none".
type TypeChar byte

const (
	TypeCharNone     TypeChar = 0
	TypeCharInteger  TypeChar = '%'
	TypeCharLong     TypeChar = '&'
	TypeCharSingle   TypeChar = '!'
	TypeCharVariant  TypeChar = '~'
	TypeCharString   TypeChar = 'z'
	TypeCharBoolean  TypeChar = '?'
	TypeCharByte     TypeChar = 'b'
	TypeCharObject   TypeChar = 'o'
)

// Operand is one decoded operand of a P-Code instruction.
type Operand struct {
	Kind     OperandKind
	Int      int64
	Float    float32
	Str      string
	Index    int16 // OperandArg/OperandLocal/OperandControl/OperandVTable
	TypeChar TypeChar
}

// Inst is one decoded P-Code instruction.
type Inst struct {
	Address             uint32
	Length              int
	Primary             byte
	Secondary           byte // valid only when Extended
	Extended            bool
	Mnemonic            string
	Category            Category
	Operands            []Operand
	StackDelta          int
	IsBranch            bool
	IsConditionalBranch bool
	IsCall              bool
	IsReturn            bool
	BranchOffset        int32 // valid only when IsBranch
	HasBranchOffset     bool
}

// DecodeOne decodes a single instruction from data starting at byte
// offset off, whose virtual address is addr. The returned Inst.Length is
// always the exact number of bytes consumed, per §8's decoder-idempotence
// invariant. Unknown opcodes decode to a one-(or two-)byte Unknown
// instruction rather than an error, per §4.4.
func DecodeOne(data []byte, off int, addr uint32) (Inst, error) {
	r := vbfmt.NewReaderAt(data, off)

	primary, err := r.ReadU8()
	if err != nil {
		return Inst{}, fmt.Errorf("pcode: read opcode: %w", err)
	}

	extended := IsExtended(primary)
	var secondary byte
	if extended {
		secondary, err = r.ReadU8()
		if err != nil {
			// Truncated extended opcode: consume just the primary byte.
			return Inst{
				Address:  addr,
				Length:   1,
				Primary:  primary,
				Mnemonic: "Unknown",
				Category: CategoryUnknown,
			}, nil
		}
	}

	meta, ok := Lookup(primary, secondary, extended)
	if !ok {
		length := 1
		if extended {
			length = 2
		}
		return Inst{
			Address:   addr,
			Length:    length,
			Primary:   primary,
			Secondary: secondary,
			Extended:  extended,
			Mnemonic:  "Unknown",
			Category:  CategoryUnknown,
		}, nil
	}

	inst := Inst{
		Address:             addr,
		Primary:             primary,
		Secondary:           secondary,
		Extended:            extended,
		Mnemonic:            meta.Mnemonic,
		Category:            meta.Category,
		StackDelta:          meta.StackDelta,
		IsBranch:            meta.IsBranch,
		IsConditionalBranch: meta.IsConditionalBranch,
		IsCall:              meta.IsCall,
		IsReturn:            meta.IsReturn,
	}

	ops, err := decodeOperands(r, meta.Format)
	if err != nil {
		// Truncated operand stream: report as Unknown so the caller can
		// resynchronize rather than propagate a hard failure (§7 Decode).
		length := r.Pos() - off
		if length < 1 {
			length = 1
		}
		return Inst{
			Address:  addr,
			Length:   length,
			Primary:  primary,
			Mnemonic: "Unknown",
			Category: CategoryUnknown,
		}, nil
	}
	inst.Operands = ops

	if meta.IsBranch {
		for _, op := range ops {
			if op.Kind == OperandI16 || op.Kind == OperandI32 {
				inst.BranchOffset = int32(op.Int)
				inst.HasBranchOffset = true
				break
			}
		}
	}

	inst.Length = r.Pos() - off
	return inst, nil
}

// decodeOperands parses the operand format string against r, consuming
// exactly the bytes each format character implies. Trailing type
// characters (§4.4) attach to the operand they follow.
func decodeOperands(r *vbfmt.Reader, format string) ([]Operand, error) {
	if format == "" {
		return nil, nil
	}
	var ops []Operand
	runes := []rune(format)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		var op Operand
		switch c {
		case 'b':
			v, err := r.ReadU8()
			if err != nil {
				return nil, err
			}
			op = Operand{Kind: OperandByte, Int: int64(v)}
		case '%':
			v, err := r.ReadI16LE()
			if err != nil {
				return nil, err
			}
			op = Operand{Kind: OperandI16, Int: int64(v)}
		case '&':
			v, err := r.ReadI32LE()
			if err != nil {
				return nil, err
			}
			op = Operand{Kind: OperandI32, Int: int64(v)}
		case '!':
			v, err := r.ReadF32LE()
			if err != nil {
				return nil, err
			}
			op = Operand{Kind: OperandF32, Float: v}
		case 'a':
			v, err := r.ReadI16LE()
			if err != nil {
				return nil, err
			}
			op = Operand{Kind: OperandArg, Index: v}
		case 'l':
			v, err := r.ReadI16LE()
			if err != nil {
				return nil, err
			}
			op = Operand{Kind: OperandLocal, Index: v}
		case 'c':
			v, err := r.ReadI16LE()
			if err != nil {
				return nil, err
			}
			op = Operand{Kind: OperandControl, Index: v}
		case 'v':
			v, err := r.ReadI16LE()
			if err != nil {
				return nil, err
			}
			op = Operand{Kind: OperandVTable, Index: v}
		case 'z':
			s, err := r.ReadUTF16NulTerminated()
			if err != nil {
				return nil, err
			}
			op = Operand{Kind: OperandString, Str: s}
		default:
			// Bare trailing type character with no preceding base
			// character (shouldn't occur given the table above, but
			// degrade gracefully rather than panic).
			continue
		}

		// A following type character (one of the trailing-annotation set)
		// attaches to the operand just decoded instead of starting a new
		// one, per §4.4.
		if i+1 < len(runes) && isTypeChar(runes[i+1]) && c != 'z' {
			op.TypeChar = TypeChar(runes[i+1])
			i++
		} else if c == 'z' {
			op.TypeChar = TypeCharString
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func isTypeChar(c rune) bool {
	switch byte(c) {
	case byte(TypeCharInteger), byte(TypeCharLong), byte(TypeCharSingle),
		byte(TypeCharVariant), byte(TypeCharString), byte(TypeCharBoolean),
		byte(TypeCharByte), byte(TypeCharObject):
		return true
	}
	return false
}

// DecodeProcedure decodes instructions from the start of a method body
// until the buffer is exhausted or an is_return instruction (ExitProc,
// ExitProcHresult, Ret, ...) is decoded, per §4.4's disassemble-procedure
// algorithm.
func DecodeProcedure(data []byte, baseAddr uint32, opts vbfmt.Options) ([]Inst, vbfmt.Diags) {
	var insts []Inst
	var diags vbfmt.Diags

	maxSteps := opts.EffectiveMaxSteps()
	off := 0
	for off < len(data) && len(insts) < maxSteps {
		addr := baseAddr + uint32(off)
		inst, err := DecodeOne(data, off, addr)
		if err != nil {
			diags.Addf(addr, vbfmt.DiagTruncated, "%v", err)
			break
		}
		if inst.Category == CategoryUnknown {
			diags.Addf(addr, vbfmt.DiagUnknownOp, "unknown opcode 0x%02x%s", inst.Primary,
				extByteSuffix(inst))
		}
		insts = append(insts, inst)
		if inst.Length <= 0 {
			// Safety net against a zero-length decode looping forever.
			break
		}
		off += inst.Length
		if inst.IsReturn {
			break
		}
	}
	return insts, diags
}

func extByteSuffix(inst Inst) string {
	if inst.Extended {
		return fmt.Sprintf(" (secondary 0x%02x)", inst.Secondary)
	}
	return ""
}

// Format renders a slice of instructions as a stable listing:
// <address>  <raw bytes>  <mnemonic> <operands>
func Format(insts []Inst, raw []byte, baseAddr uint32) string {
	var b strings.Builder
	for _, inst := range insts {
		start := int(inst.Address - baseAddr)
		end := start + inst.Length
		var rawBytes []byte
		if start >= 0 && end <= len(raw) {
			rawBytes = raw[start:end]
		}
		fmt.Fprintf(&b, "%08x  ", inst.Address)
		for _, by := range rawBytes {
			fmt.Fprintf(&b, "%02x ", by)
		}
		for pad := len(rawBytes); pad < 6; pad++ {
			b.WriteString("   ")
		}
		b.WriteString(inst.Mnemonic)
		for _, op := range inst.Operands {
			b.WriteByte(' ')
			b.WriteString(formatOperand(op))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func formatOperand(op Operand) string {
	switch op.Kind {
	case OperandByte, OperandI16, OperandI32:
		return fmt.Sprintf("%d", op.Int)
	case OperandF32:
		return fmt.Sprintf("%g", op.Float)
	case OperandArg:
		return fmt.Sprintf("arg%d", op.Index)
	case OperandLocal:
		return fmt.Sprintf("local%d", op.Index)
	case OperandControl:
		return fmt.Sprintf("ctl%d", op.Index)
	case OperandVTable:
		return fmt.Sprintf("vtbl%d", op.Index)
	case OperandString:
		return fmt.Sprintf("%q", op.Str)
	default:
		return ""
	}
}
