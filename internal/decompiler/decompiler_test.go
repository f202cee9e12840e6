package decompiler

import (
	"strings"
	"testing"

	"vbdecompile/internal/vbmeta"
)

func TestDecompileMethodPCodeProducesSource(t *testing.T) {
	// LitI4 10; LitI4 20; AddI4; Ret
	code := []byte{
		0x11, 0x0a, 0x00, 0x00, 0x00,
		0x11, 0x14, 0x00, 0x00, 0x00,
		0x40,
		0x03,
	}
	m := vbmeta.Method{
		ObjectName:   "Form1",
		MethodName:   "Form_Load",
		Kind:         vbmeta.PCode,
		CodeBytes:    code,
		StartAddress: 0x1000,
	}

	d := New()
	ms := d.decompileMethod("Form1", m)
	if ms.Kind != vbmeta.PCode {
		t.Fatalf("kind = %v, want PCode", ms.Kind)
	}
	if ms.Source == "" {
		t.Fatal("expected non-empty source")
	}
	if !strings.Contains(ms.Source, "Return ") {
		t.Errorf("expected a Return statement in emitted source, got:\n%s", ms.Source)
	}
	if !strings.Contains(ms.Source, "10 + 20") {
		t.Errorf("expected the lifted add expression in emitted source, got:\n%s", ms.Source)
	}
}

func TestDecompileMethodNativeProducesDisassembly(t *testing.T) {
	// push ebp; mov ebp, esp; pop ebp; ret
	code := []byte{0x55, 0x89, 0xe5, 0x5d, 0xc3}
	m := vbmeta.Method{
		ObjectName:   "Module1",
		MethodName:   "Main",
		Kind:         vbmeta.Native,
		CodeBytes:    code,
		StartAddress: 0x2000,
	}

	d := New()
	ms := d.decompileMethod("Module1", m)
	if ms.Kind != vbmeta.Native {
		t.Fatalf("kind = %v, want Native", ms.Kind)
	}
	if !strings.Contains(ms.Source, "native x86") {
		t.Errorf("expected a native-disassembly header, got:\n%s", ms.Source)
	}
	if !strings.Contains(ms.Source, "00002000") {
		t.Errorf("expected the start address in the listing, got:\n%s", ms.Source)
	}
}

func TestDecompileMethodBadPCodeStillReturnsSource(t *testing.T) {
	// AddI4 with nothing pushed: lift should recover, not abort the file.
	code := []byte{0x40, 0x03}
	m := vbmeta.Method{
		ObjectName:   "Form1",
		MethodName:   "Broken",
		Kind:         vbmeta.PCode,
		CodeBytes:    code,
		StartAddress: 0,
	}

	d := New()
	ms := d.decompileMethod("Form1", m)
	if ms.Diags.Len() == 0 {
		t.Fatal("expected diagnostics recorded for a bad procedure")
	}
	if ms.Source == "" {
		t.Fatal("expected best-effort source even from a partial lift")
	}
}

func TestProjectNameStripsDirAndExtension(t *testing.T) {
	cases := map[string]string{
		`C:\apps\Project1.exe`: "Project1",
		"/tmp/foo.exe":         "foo",
		"noext":                "noext",
	}
	for in, want := range cases {
		if got := projectName(in); got != want {
			t.Errorf("projectName(%q) = %q, want %q", in, got, want)
		}
	}
}
