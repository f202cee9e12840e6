package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"vbdecompile/internal/decompiler"
	"vbdecompile/internal/vbmeta"
)

func TestWriteObjectsJSON(t *testing.T) {
	dir := t.TempDir()
	proj := &vbmeta.Project{
		Objects: []vbmeta.Object{
			{
				Name: "Form1",
				Methods: []vbmeta.Method{
					{MethodName: "Form_Load", Kind: vbmeta.PCode, StartAddress: 0x1000, CodeBytes: []byte{1, 2, 3}},
				},
			},
		},
	}
	if err := WriteObjectsJSON(dir, proj); err != nil {
		t.Fatalf("WriteObjectsJSON: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "objects.json"))
	if err != nil {
		t.Fatalf("read objects.json: %v", err)
	}
	var got []ObjectSummary
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Form1" {
		t.Fatalf("got = %+v", got)
	}
	if len(got[0].Methods) != 1 || got[0].Methods[0].CodeBytes != 3 {
		t.Fatalf("methods = %+v", got[0].Methods)
	}
}

func TestWriteDecompileResult(t *testing.T) {
	dir := t.TempDir()
	proj := &vbmeta.Project{
		Objects: []vbmeta.Object{{Name: "Form1"}},
	}
	out := &decompiler.Output{
		Methods: []decompiler.MethodSource{
			{ObjectName: "Form1", MethodName: "Form_Load", Source: "Sub Form_Load()\nEnd Sub\n"},
		},
		SourceText: "' Form1.Form_Load\nSub Form_Load()\nEnd Sub\n\n",
	}
	if err := WriteDecompileResult(dir, proj, out); err != nil {
		t.Fatalf("WriteDecompileResult: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "objects.json")); err != nil {
		t.Errorf("objects.json missing: %v", err)
	}
	srcPath := filepath.Join(dir, "src", "Form1", "Form_Load.txt")
	data, err := os.ReadFile(srcPath)
	if err != nil {
		t.Fatalf("read method source: %v", err)
	}
	if string(data) != out.Methods[0].Source {
		t.Errorf("method source mismatch: %q", data)
	}
	if _, err := os.Stat(filepath.Join(dir, "source.txt")); err != nil {
		t.Errorf("source.txt missing: %v", err)
	}
}
