package main

import (
	"fmt"
	"strings"

	"vbdecompile/internal/vbmeta"
)

// projectName derives a display name from the input path's base name,
// the same way internal/decompiler names Output.ProjectName.
func projectName(path string) string {
	base := path
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return base
}

// findMethod locates one method by object and method name.
func findMethod(proj *vbmeta.Project, objectName, methodName string) (*vbmeta.Object, *vbmeta.Method, error) {
	for i := range proj.Objects {
		obj := &proj.Objects[i]
		if obj.Name != objectName {
			continue
		}
		for j := range obj.Methods {
			m := &obj.Methods[j]
			if m.MethodName == methodName {
				return obj, m, nil
			}
		}
		return nil, nil, fmt.Errorf("object %q has no method %q", objectName, methodName)
	}
	return nil, nil, fmt.Errorf("no object named %q", objectName)
}

// sanitizeFilename converts a name to a safe filename, matching the
// teacher's cmd/unflutter disasm.go convention.
func sanitizeFilename(name string) string {
	r := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)
	s := r.Replace(name)
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
