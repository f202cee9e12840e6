// Package output writes decompiler results to files: object/method
// metadata as JSON, and per-method VB6 source or disassembly listings
// as text, grouped into directories the way the teacher's asm/<name>
// layout grouped per-function disassembly.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"vbdecompile/internal/decompiler"
	"vbdecompile/internal/vbmeta"
)

// ObjectSummary is one VB object's metadata for objects.json.
type ObjectSummary struct {
	Name    string          `json:"name"`
	Kind    string          `json:"kind"`
	Methods []MethodSummary `json:"methods"`
}

// MethodSummary is one method's metadata for objects.json.
type MethodSummary struct {
	Name         string `json:"name"`
	Kind         string `json:"kind"`
	StartAddress uint32 `json:"start_address"`
	CodeBytes    int    `json:"code_bytes"`
}

// WriteObjectsJSON writes a project's object/method tree to
// objects.json.
func WriteObjectsJSON(dir string, proj *vbmeta.Project) error {
	summaries := make([]ObjectSummary, 0, len(proj.Objects))
	for _, obj := range proj.Objects {
		s := ObjectSummary{Name: obj.Name, Kind: objectKind(obj)}
		for _, m := range obj.Methods {
			s.Methods = append(s.Methods, MethodSummary{
				Name:         m.MethodName,
				Kind:         methodKind(m.Kind),
				StartAddress: m.StartAddress,
				CodeBytes:    len(m.CodeBytes),
			})
		}
		summaries = append(summaries, s)
	}
	return writeJSON(filepath.Join(dir, "objects.json"), summaries)
}

func objectKind(obj vbmeta.Object) string {
	switch {
	case obj.IsForm():
		return "form"
	case obj.IsClass():
		return "class"
	case obj.IsModule():
		return "module"
	default:
		return "unknown"
	}
}

func methodKind(k vbmeta.CodeKind) string {
	if k == vbmeta.Native {
		return "native"
	}
	return "pcode"
}

// WriteSource writes one method's decompiled or disassembled text to
// src/<Object>/<Method>.txt.
func WriteSource(dir, objectName, methodName, text string) error {
	path := filepath.Join(dir, "src", objectName, methodName+".txt")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("output: mkdir src: %w", err)
	}
	return os.WriteFile(path, []byte(text), 0644)
}

// WriteSourceSingle writes a whole project's concatenated source to
// source.txt.
func WriteSourceSingle(dir string, text string) error {
	return os.WriteFile(filepath.Join(dir, "source.txt"), []byte(text), 0644)
}

// WriteDecompileResult writes both the objects.json manifest and every
// method's source under src/, mirroring what `vbdecompile decompile`
// prints when given an --out directory instead of stdout.
func WriteDecompileResult(dir string, proj *vbmeta.Project, out *decompiler.Output) error {
	if err := WriteObjectsJSON(dir, proj); err != nil {
		return err
	}
	for _, m := range out.Methods {
		if err := WriteSource(dir, m.ObjectName, m.MethodName, m.Source); err != nil {
			return err
		}
	}
	return WriteSourceSingle(dir, out.SourceText)
}

// WriteDiags writes a decompiler run's accumulated diagnostics to
// diags.json.
func WriteDiags(dir string, out *decompiler.Output) error {
	return writeJSON(filepath.Join(dir, "diags.json"), out.Diags.Items())
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output: create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("output: encode %s: %w", path, err)
	}
	return nil
}
