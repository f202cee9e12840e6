// Package pcode decodes VB5/6 P-Code, the stack-based bytecode executed
// by the MSVBVM runtime. Decoding is metadata-driven: every opcode has a
// (mnemonic, category, stack delta, operand format, branch/call/return
// flags) record, grounded on the teacher's disasm.Inst/Options shape for
// ARM64 — here driven by a lookup table instead of a fixed instruction
// width, because P-Code is variable length.
package pcode

// Category classifies an opcode's general purpose, mirroring the
// teacher's instruction-annotator categories.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryControlFlow
	CategoryStack
	CategoryVariable
	CategoryCall
	CategoryString
	CategoryArray
	CategoryLoop
	CategoryMemory
	CategoryArithmetic
	CategoryLogical
	CategoryComparison
	CategoryConversion
)

func (c Category) String() string {
	switch c {
	case CategoryControlFlow:
		return "ControlFlow"
	case CategoryStack:
		return "Stack"
	case CategoryVariable:
		return "Variable"
	case CategoryCall:
		return "Call"
	case CategoryString:
		return "String"
	case CategoryArray:
		return "Array"
	case CategoryLoop:
		return "Loop"
	case CategoryMemory:
		return "Memory"
	case CategoryArithmetic:
		return "Arithmetic"
	case CategoryLogical:
		return "Logical"
	case CategoryComparison:
		return "Comparison"
	case CategoryConversion:
		return "Conversion"
	default:
		return "Unknown"
	}
}

// OpMeta is the metadata record attached to every known opcode.
type OpMeta struct {
	Mnemonic            string
	Category            Category
	StackDelta          int
	Format              string // operand format string, §4.4
	IsBranch            bool
	IsConditionalBranch bool
	IsCall              bool
	IsReturn            bool
}

// extendedLo..extendedHi is the primary-opcode range that introduces a
// secondary opcode byte, per §4.4.
const (
	extendedLo = 0xFB
	extendedHi = 0xFF
)

// primaryTable holds metadata for non-extended (single-byte) opcodes,
// keyed by the primary opcode byte.
var primaryTable = map[byte]OpMeta{
	0x00: {Mnemonic: "Nop", Category: CategoryStack, Format: ""},

	// Control flow / returns.
	0x01: {Mnemonic: "ExitProc", Category: CategoryControlFlow, IsReturn: true},
	0x02: {Mnemonic: "ExitProcHresult", Category: CategoryControlFlow, IsReturn: true},
	0x03: {Mnemonic: "Ret", Category: CategoryControlFlow, StackDelta: -1, IsReturn: true},
	0x04: {Mnemonic: "Branch", Category: CategoryControlFlow, Format: "%", IsBranch: true},
	0x05: {Mnemonic: "BranchFalse", Category: CategoryControlFlow, Format: "%", StackDelta: -1, IsBranch: true, IsConditionalBranch: true},
	0x06: {Mnemonic: "BranchTrue", Category: CategoryControlFlow, Format: "%", StackDelta: -1, IsBranch: true, IsConditionalBranch: true},

	// Literals (push).
	0x10: {Mnemonic: "LitI2", Category: CategoryStack, Format: "%", StackDelta: 1},
	0x11: {Mnemonic: "LitI4", Category: CategoryStack, Format: "&", StackDelta: 1},
	0x12: {Mnemonic: "LitR4", Category: CategoryStack, Format: "!", StackDelta: 1},
	0x13: {Mnemonic: "LitStr", Category: CategoryString, Format: "z", StackDelta: 1},
	0x14: {Mnemonic: "LitVarTrue", Category: CategoryStack, StackDelta: 1},
	0x15: {Mnemonic: "LitVarFalse", Category: CategoryStack, StackDelta: 1},
	0x16: {Mnemonic: "LitVarEmpty", Category: CategoryStack, StackDelta: 1},
	0x17: {Mnemonic: "LitVarNull", Category: CategoryStack, StackDelta: 1},
	0x18: {Mnemonic: "LitByte", Category: CategoryStack, Format: "b", StackDelta: 1},

	// Local/argument loads and stores.
	0x20: {Mnemonic: "LdLocI2", Category: CategoryVariable, Format: "l%", StackDelta: 1},
	0x21: {Mnemonic: "LdLocI4", Category: CategoryVariable, Format: "l&", StackDelta: 1},
	0x22: {Mnemonic: "LdLocR4", Category: CategoryVariable, Format: "l!", StackDelta: 1},
	0x23: {Mnemonic: "LdLocStr", Category: CategoryVariable, Format: "lz", StackDelta: 1},
	0x24: {Mnemonic: "LdLocVar", Category: CategoryVariable, Format: "l~", StackDelta: 1},
	0x25: {Mnemonic: "LdLocObj", Category: CategoryVariable, Format: "lo", StackDelta: 1},
	0x28: {Mnemonic: "StLocI2", Category: CategoryVariable, Format: "l%", StackDelta: -1},
	0x29: {Mnemonic: "StLocI4", Category: CategoryVariable, Format: "l&", StackDelta: -1},
	0x2a: {Mnemonic: "StLocR4", Category: CategoryVariable, Format: "l!", StackDelta: -1},
	0x2b: {Mnemonic: "StLocStr", Category: CategoryVariable, Format: "lz", StackDelta: -1},
	0x2c: {Mnemonic: "StLocVar", Category: CategoryVariable, Format: "l~", StackDelta: -1},
	0x2d: {Mnemonic: "StLocObj", Category: CategoryVariable, Format: "lo", StackDelta: -1},
	0x30: {Mnemonic: "LdArgI4", Category: CategoryVariable, Format: "a&", StackDelta: 1},
	0x31: {Mnemonic: "LdArgVar", Category: CategoryVariable, Format: "a~", StackDelta: 1},
	0x32: {Mnemonic: "LdArgStr", Category: CategoryVariable, Format: "az", StackDelta: 1},
	0x34: {Mnemonic: "StArgI4", Category: CategoryVariable, Format: "a&", StackDelta: -1},
	0x35: {Mnemonic: "StArgVar", Category: CategoryVariable, Format: "a~", StackDelta: -1},

	// Arithmetic.
	0x40: {Mnemonic: "AddI4", Category: CategoryArithmetic, StackDelta: -1},
	0x41: {Mnemonic: "SubI4", Category: CategoryArithmetic, StackDelta: -1},
	0x42: {Mnemonic: "MulI4", Category: CategoryArithmetic, StackDelta: -1},
	0x43: {Mnemonic: "DivI4", Category: CategoryArithmetic, StackDelta: -1},
	0x44: {Mnemonic: "IDivI4", Category: CategoryArithmetic, StackDelta: -1},
	0x45: {Mnemonic: "ModI4", Category: CategoryArithmetic, StackDelta: -1},
	0x46: {Mnemonic: "NegI4", Category: CategoryArithmetic, StackDelta: 0},
	0x47: {Mnemonic: "AddR4", Category: CategoryArithmetic, StackDelta: -1},
	0x48: {Mnemonic: "SubR4", Category: CategoryArithmetic, StackDelta: -1},
	0x49: {Mnemonic: "MulR4", Category: CategoryArithmetic, StackDelta: -1},
	0x4a: {Mnemonic: "DivR4", Category: CategoryArithmetic, StackDelta: -1},
	0x4b: {Mnemonic: "ConcatStr", Category: CategoryString, StackDelta: -1},
	0x4c: {Mnemonic: "AddVar", Category: CategoryArithmetic, StackDelta: -1},
	0x4d: {Mnemonic: "SubVar", Category: CategoryArithmetic, StackDelta: -1},
	0x4e: {Mnemonic: "MulVar", Category: CategoryArithmetic, StackDelta: -1},
	0x4f: {Mnemonic: "DivVar", Category: CategoryArithmetic, StackDelta: -1},

	// Comparisons.
	0x50: {Mnemonic: "EqI4", Category: CategoryComparison, StackDelta: -1},
	0x51: {Mnemonic: "NeI4", Category: CategoryComparison, StackDelta: -1},
	0x52: {Mnemonic: "LtI4", Category: CategoryComparison, StackDelta: -1},
	0x53: {Mnemonic: "LeI4", Category: CategoryComparison, StackDelta: -1},
	0x54: {Mnemonic: "GtI4", Category: CategoryComparison, StackDelta: -1},
	0x55: {Mnemonic: "GeI4", Category: CategoryComparison, StackDelta: -1},
	0x56: {Mnemonic: "EqVar", Category: CategoryComparison, StackDelta: -1},
	0x57: {Mnemonic: "NeVar", Category: CategoryComparison, StackDelta: -1},
	0x58: {Mnemonic: "LtVar", Category: CategoryComparison, StackDelta: -1},
	0x59: {Mnemonic: "LeVar", Category: CategoryComparison, StackDelta: -1},
	0x5a: {Mnemonic: "GtVar", Category: CategoryComparison, StackDelta: -1},
	0x5b: {Mnemonic: "GeVar", Category: CategoryComparison, StackDelta: -1},

	// Logical.
	0x60: {Mnemonic: "AndVar", Category: CategoryLogical, StackDelta: -1},
	0x61: {Mnemonic: "OrVar", Category: CategoryLogical, StackDelta: -1},
	0x62: {Mnemonic: "XorVar", Category: CategoryLogical, StackDelta: -1},
	0x63: {Mnemonic: "NotVar", Category: CategoryLogical, StackDelta: 0},

	// Calls.
	0x70: {Mnemonic: "CallFuncAddr", Category: CategoryCall, Format: "&", StackDelta: 1, IsCall: true},
	0x71: {Mnemonic: "CallFuncStr", Category: CategoryCall, Format: "z", StackDelta: 1, IsCall: true},
	0x72: {Mnemonic: "CallI4", Category: CategoryCall, Format: "v", StackDelta: 1, IsCall: true},
	0x73: {Mnemonic: "CallSub", Category: CategoryCall, Format: "&", IsCall: true},
	0x74: {Mnemonic: "CallSubStr", Category: CategoryCall, Format: "z", IsCall: true},

	// Arrays / member access.
	0x80: {Mnemonic: "LdElem", Category: CategoryArray, StackDelta: -1},
	0x81: {Mnemonic: "StElem", Category: CategoryArray, StackDelta: -2},
	0x82: {Mnemonic: "LdMember", Category: CategoryMemory, Format: "z", StackDelta: 0},
	0x83: {Mnemonic: "StMember", Category: CategoryMemory, Format: "z", StackDelta: -1},

	// Conversions.
	0x90: {Mnemonic: "CIntVar", Category: CategoryConversion, StackDelta: 0},
	0x91: {Mnemonic: "CLngVar", Category: CategoryConversion, StackDelta: 0},
	0x92: {Mnemonic: "CSngVar", Category: CategoryConversion, StackDelta: 0},
	0x93: {Mnemonic: "CDblVar", Category: CategoryConversion, StackDelta: 0},
	0x94: {Mnemonic: "CStrVar", Category: CategoryConversion, StackDelta: 0},

	// Loop support (For/Next step helpers).
	0xa0: {Mnemonic: "ForStartI4", Category: CategoryLoop, StackDelta: -2},
	0xa1: {Mnemonic: "ForNextI4", Category: CategoryLoop, Format: "%", StackDelta: 0, IsBranch: true, IsConditionalBranch: true},
}

// extendedTable holds metadata for extended opcodes, keyed by the
// secondary opcode byte (the primary byte is always in 0xFB..0xFF).
var extendedTable = map[byte]OpMeta{
	0x01: {Mnemonic: "LdLocVarEx", Category: CategoryVariable, Format: "l~", StackDelta: 1},
	0x02: {Mnemonic: "StLocVarEx", Category: CategoryVariable, Format: "l~", StackDelta: -1},
	0x03: {Mnemonic: "CallFuncExStr", Category: CategoryCall, Format: "z", StackDelta: 1, IsCall: true},
	0x04: {Mnemonic: "LitDecimal", Category: CategoryStack, Format: "&", StackDelta: 1},
	0x05: {Mnemonic: "ModVar", Category: CategoryArithmetic, StackDelta: -1},
	0x06: {Mnemonic: "IDivVar", Category: CategoryArithmetic, StackDelta: -1},
}

// IsExtended reports whether primary introduces a secondary opcode byte.
func IsExtended(primary byte) bool {
	return primary >= extendedLo && primary <= extendedHi
}

// Lookup resolves the metadata for a (primary, secondary, extended) byte
// pair. ok is false for unrecognized opcodes.
func Lookup(primary, secondary byte, extended bool) (OpMeta, bool) {
	if extended {
		m, ok := extendedTable[secondary]
		return m, ok
	}
	m, ok := primaryTable[primary]
	return m, ok
}
