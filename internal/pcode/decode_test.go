package pcode

import (
	"testing"

	"vbdecompile/internal/vbfmt"
)

func TestDecodeOneLitI4(t *testing.T) {
	data := []byte{0x11, 0x0a, 0x00, 0x00, 0x00} // LitI4 10
	inst, err := DecodeOne(data, 0, 0x1000)
	if err != nil {
		t.Fatalf("DecodeOne: %v", err)
	}
	if inst.Mnemonic != "LitI4" {
		t.Fatalf("mnemonic = %q, want LitI4", inst.Mnemonic)
	}
	if inst.Length != 5 {
		t.Fatalf("length = %d, want 5", inst.Length)
	}
	if len(inst.Operands) != 1 || inst.Operands[0].Int != 10 {
		t.Fatalf("operands = %+v, want [10]", inst.Operands)
	}
}

func TestDecodeIdempotence(t *testing.T) {
	data := []byte{0x11, 0x0a, 0x00, 0x00, 0x00, 0x03}
	inst, err := DecodeOne(data, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if inst.Length != 5 {
		t.Fatalf("length = %d, want 5", inst.Length)
	}
	next, err := DecodeOne(data, inst.Length, uint32(inst.Length))
	if err != nil {
		t.Fatal(err)
	}
	if next.Mnemonic != "Ret" || next.Length != 1 {
		t.Fatalf("second inst = %+v", next)
	}
}

func TestDecodeUnknownOpcode(t *testing.T) {
	data := []byte{0xEE} // unassigned primary byte
	inst, err := DecodeOne(data, 0, 0)
	if err != nil {
		t.Fatalf("unknown opcode must not error: %v", err)
	}
	if inst.Category != CategoryUnknown {
		t.Fatalf("category = %v, want Unknown", inst.Category)
	}
	if inst.Length != 1 {
		t.Fatalf("length = %d, want 1", inst.Length)
	}
}

func TestDecodeProcedureStopsAtReturn(t *testing.T) {
	// LitI4 10; LitI4 20; AddI4; Ret
	data := []byte{
		0x11, 0x0a, 0x00, 0x00, 0x00,
		0x11, 0x14, 0x00, 0x00, 0x00,
		0x40,
		0x03,
	}
	insts, diags := DecodeProcedure(data, 0x1000, vbfmt.Options{})
	if diags.Len() != 0 {
		t.Fatalf("unexpected diags: %v", diags.Items())
	}
	if len(insts) != 4 {
		t.Fatalf("decoded %d instructions, want 4", len(insts))
	}
	if !insts[len(insts)-1].IsReturn {
		t.Fatalf("last instruction is not a return: %+v", insts[len(insts)-1])
	}
}

func TestDecodeProcedureEmptyBody(t *testing.T) {
	insts, diags := DecodeProcedure(nil, 0x2000, vbfmt.Options{})
	if len(insts) != 0 || diags.Len() != 0 {
		t.Fatalf("empty body should decode nothing, got insts=%v diags=%v", insts, diags.Items())
	}
}

func TestDecodeExtendedOpcode(t *testing.T) {
	data := []byte{0xFB, 0x05} // extended ModVar
	inst, err := DecodeOne(data, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if inst.Mnemonic != "ModVar" || inst.Length != 2 {
		t.Fatalf("inst = %+v", inst)
	}
}
