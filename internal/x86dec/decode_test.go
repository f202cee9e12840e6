package x86dec

import "testing"

func TestDecodeMovImmThenRet(t *testing.T) {
	// mov eax, 0x2A ; ret
	data := []byte{0xB8, 0x2A, 0x00, 0x00, 0x00, 0xC3}
	insts := Disassemble(data, 0)
	if len(insts) != 2 {
		t.Fatalf("got %d instructions, want 2", len(insts))
	}
	if insts[0].Mnemonic != "mov" || insts[0].String() != "mov eax, 0x2a" {
		t.Fatalf("first = %+v (%s)", insts[0], insts[0].String())
	}
	if insts[1].Mnemonic != "ret" {
		t.Fatalf("second = %+v", insts[1])
	}
	total := 0
	for _, in := range insts {
		total += in.Length
	}
	if total != len(data) {
		t.Fatalf("total length %d, want %d", total, len(data))
	}
}

func TestDecodeIdempotence(t *testing.T) {
	data := []byte{0x8B, 0x45, 0x08} // mov eax, [ebp+8]
	inst, err := Decode(data, 0, 0x1000)
	if err != nil {
		t.Fatal(err)
	}
	if inst.Length != len(data) {
		t.Fatalf("length = %d, want %d", inst.Length, len(data))
	}
	if len(inst.Raw) != inst.Length {
		t.Fatalf("raw length %d != reported length %d", len(inst.Raw), inst.Length)
	}
}

func TestDecodeSIBMemoryOperand(t *testing.T) {
	// mov eax, [ecx + edx*4 + 0x10]: 8B 44 91 10
	data := []byte{0x8B, 0x44, 0x91, 0x10}
	inst, err := Decode(data, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if inst.Length != 4 {
		t.Fatalf("length = %d, want 4", inst.Length)
	}
	mem := inst.Operands[1]
	if mem.Kind != OperandKindMemory || !mem.HasBase || !mem.HasIndex || mem.Scale != 4 || mem.Disp != 0x10 {
		t.Fatalf("mem operand = %+v", mem)
	}
}

func TestDecodeCallRelative(t *testing.T) {
	// call rel32 where rel32 = 0x10, at address 0x1000: target = 0x1000 + 5 + 0x10
	data := []byte{0xE8, 0x10, 0x00, 0x00, 0x00}
	inst, err := Decode(data, 0, 0x1000)
	if err != nil {
		t.Fatal(err)
	}
	want := int64(0x1000 + 5 + 0x10)
	if inst.Operands[0].Imm != want {
		t.Fatalf("target = 0x%x, want 0x%x", inst.Operands[0].Imm, want)
	}
}

func TestDecodeDeclinesBadIncDecRegField(t *testing.T) {
	// 0xFF with ModR/M reg field = 2 (neither inc nor dec): mod=11 reg=010 rm=000 -> 0xD0
	data := []byte{0xFF, 0xD0}
	inst, err := Decode(data, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if inst.Op != OpUnknown {
		t.Fatalf("expected decode to decline reg field 2 for 0xFF as inc/dec, got %+v", inst)
	}
}

func TestDecodeUnknownOpcodeResyncsOneByte(t *testing.T) {
	data := []byte{0x0F} // two-byte opcode escape, unhandled here
	inst, err := Decode(data, 0, 0)
	if err != nil {
		t.Fatalf("unknown opcode should not error at the Decode boundary: %v", err)
	}
	if inst.Length != 1 || inst.Op != OpUnknown {
		t.Fatalf("inst = %+v", inst)
	}
}
