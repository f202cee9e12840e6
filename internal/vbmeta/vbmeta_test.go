package vbmeta

import (
	"encoding/binary"
	"testing"

	"vbdecompile/internal/peimg"
	"vbdecompile/internal/vbfmt"
)

const imageBase = 0x400000

// fakeImage lays out a complete, minimal VB metadata tree inside a
// single section so Extract can be exercised without a real PE file.
func fakeImage(t *testing.T) *peimg.Image {
	t.Helper()
	buf := make([]byte, 0x2000)
	put32 := func(off uint32, v uint32) { binary.LittleEndian.PutUint32(buf[off:], v) }
	put16 := func(off uint32, v uint16) { binary.LittleEndian.PutUint16(buf[off:], v) }
	putStr := func(off uint32, s string) { copy(buf[off:], s); buf[off+uint32(len(s))] = 0 }

	const (
		rvaHeader   = 0x1000
		rvaProjInfo = 0x1100
		rvaObjTable = 0x1200
		rvaObjArray = 0x1300
		rvaName     = 0x1400
		rvaObjInfo  = 0x1500
		rvaMethods  = 0x1600
		rvaNames    = 0x1700
		rvaMethName = 0x1800
	)
	va := func(rva uint32) uint32 { return imageBase + rva }

	// Header.
	copy(buf[rvaHeader:], Signature)
	put32(rvaHeader+headerOffLpSubMain, 0)
	put32(rvaHeader+headerOffLpProjInfo, va(rvaProjInfo))
	put16(rvaHeader+headerOffFormCount, 1)
	put32(rvaHeader+headerOffThreadFlags, 0)

	// Project info.
	put32(rvaProjInfo+projInfoOffObjTable, va(rvaObjTable))
	put32(rvaProjInfo+projInfoOffNativeCode, 0)

	// Object table.
	put16(rvaObjTable+objTableOffCount, 1)
	put32(rvaObjTable+objTableOffArray, va(rvaObjArray))

	// Object descriptor.
	put32(rvaObjArray+objDescOffName, va(rvaName))
	buf[rvaObjArray+objDescOffType] = flagForm
	put32(rvaObjArray+objDescOffInfo, va(rvaObjInfo))
	putStr(rvaName, "Form1")

	// Object info.
	put16(rvaObjInfo+objInfoOffMethCount, 1)
	put32(rvaObjInfo+objInfoOffMethods, va(rvaMethods))
	put32(rvaObjInfo+objInfoOffNameCount, 1)
	put32(rvaObjInfo+objInfoOffNameArray, va(rvaNames))

	// Method names array: one (name_ptr, flags) pair.
	put32(rvaNames+0, va(rvaMethName))
	put32(rvaNames+4, 0)
	putStr(rvaMethName, "Form_Load")

	// Method body: VBProcDescInfo (4 bytes) + 4 bytes of code.
	put16(rvaMethods+0, 4)
	copy(buf[rvaMethods+procDescSize:], []byte{0x11, 0x00, 0x0A, 0x00}) // arbitrary P-Code bytes

	return &peimg.Image{
		ImageBase: imageBase,
		Sections: []peimg.Section{
			{Name: ".data", VA: 0x1000, VirtSize: 0x1000, RawOffset: 0x400, RawSize: 0x1000, Raw: buf[0x1000:]},
		},
	}
}

func TestExtractRoundTrip(t *testing.T) {
	img := fakeImage(t)
	proj, err := Extract(img, vbfmt.Options{})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if proj.Info.IsNative() {
		t.Error("expected P-Code project")
	}
	if len(proj.Objects) != 1 {
		t.Fatalf("objects = %d, want 1", len(proj.Objects))
	}
	obj := proj.Objects[0]
	if obj.Name != "Form1" {
		t.Errorf("object name = %q, want Form1", obj.Name)
	}
	if !obj.IsForm() {
		t.Error("expected Form object")
	}
	if len(obj.Methods) != 1 {
		t.Fatalf("methods = %d, want 1", len(obj.Methods))
	}
	m := obj.Methods[0]
	if m.MethodName != "Form_Load" {
		t.Errorf("method name = %q, want Form_Load", m.MethodName)
	}
	if m.Kind != PCode {
		t.Errorf("kind = %v, want PCode", m.Kind)
	}
	if len(m.CodeBytes) != 4 {
		t.Fatalf("code bytes = %d, want 4", len(m.CodeBytes))
	}
	want := []byte{0x11, 0x00, 0x0A, 0x00}
	for i, b := range want {
		if m.CodeBytes[i] != b {
			t.Errorf("code[%d] = 0x%x, want 0x%x", i, m.CodeBytes[i], b)
		}
	}
}

func TestExtractSignatureNotFound(t *testing.T) {
	img := &peimg.Image{
		ImageBase: imageBase,
		Sections:  []peimg.Section{{Name: ".text", VA: 0x1000, VirtSize: 0x100, Raw: make([]byte, 0x100)}},
	}
	if _, err := Extract(img, vbfmt.Options{}); err != ErrSignatureNotFound {
		t.Fatalf("err = %v, want ErrSignatureNotFound", err)
	}
}
