package peimg

import "testing"

func testImage() *Image {
	return &Image{
		ImageBase: 0x400000,
		Sections: []Section{
			{Name: ".text", VA: 0x1000, VirtSize: 0x2000, RawOffset: 0x400, RawSize: 0x2000, Raw: make([]byte, 0x2000)},
			{Name: ".data", VA: 0x3000, VirtSize: 0x1000, RawOffset: 0x2400, RawSize: 0x1000, Raw: make([]byte, 0x1000)},
		},
	}
}

func TestRVAToFileOffsetRoundTrip(t *testing.T) {
	img := testImage()
	for _, s := range img.Sections {
		for k := uint32(0); k < s.VirtSize; k += 0x333 {
			got, err := img.RVAToFileOffset(s.VA + k)
			if err != nil {
				t.Fatalf("RVAToFileOffset(0x%x): %v", s.VA+k, err)
			}
			want := s.RawOffset + k
			if got != want {
				t.Errorf("RVAToFileOffset(0x%x) = 0x%x, want 0x%x", s.VA+k, got, want)
			}
		}
	}
}

func TestFindSectionByRVAOutOfRange(t *testing.T) {
	img := testImage()
	if _, ok := img.FindSectionByRVA(0x10000); ok {
		t.Fatal("expected no section for out-of-range RVA")
	}
	if _, err := img.RVAToFileOffset(0x10000); err == nil {
		t.Fatal("expected error for out-of-range RVA")
	}
}

func TestVAToRVA(t *testing.T) {
	img := testImage()
	if got := img.VAToRVA(0x401000); got != 0x1000 {
		t.Errorf("VAToRVA = 0x%x, want 0x1000", got)
	}
}

func TestFindBytes(t *testing.T) {
	img := testImage()
	copy(img.Sections[1].Raw[0x10:], []byte("VB5!"))
	rva, ok := img.FindBytes([]byte("VB5!"))
	if !ok {
		t.Fatal("expected to find VB5! signature")
	}
	if rva != 0x3010 {
		t.Errorf("rva = 0x%x, want 0x3010", rva)
	}
}

func TestFindBytesNotPresent(t *testing.T) {
	img := testImage()
	if _, ok := img.FindBytes([]byte("VB5!")); ok {
		t.Fatal("expected not to find signature")
	}
}

func TestReadAtRVAClampsToSection(t *testing.T) {
	img := testImage()
	copy(img.Sections[0].Raw[0x1ffc:], []byte{1, 2, 3, 4})
	b, err := img.ReadAtRVA(0x1000+0x1ffc, 16)
	if err != nil {
		t.Fatalf("ReadAtRVA: %v", err)
	}
	if len(b) != 4 {
		t.Fatalf("len(b) = %d, want 4 (clamped)", len(b))
	}
}
