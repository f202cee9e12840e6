// Package decompiler wires the pipeline stages — PE loading, VB
// metadata extraction, P-Code or x86 decoding, lifting, type recovery,
// structuring, and emission — into the single Decompile operation the
// CLI and C API both call. It is the thin composition root; each stage
// it calls owns its own algorithm and tests.
package decompiler

import (
	"context"
	"fmt"
	"strings"

	"vbdecompile/internal/emit"
	"vbdecompile/internal/lift"
	"vbdecompile/internal/pcode"
	"vbdecompile/internal/peimg"
	"vbdecompile/internal/structurer"
	"vbdecompile/internal/typeinfer"
	"vbdecompile/internal/vbfmt"
	"vbdecompile/internal/vbmeta"
	"vbdecompile/internal/x86dec"
)

// maxInferPasses bounds the type-recovery fixed-point loop; VB6
// procedures are small enough to converge well within this. A variable
// assigned two conflicting concrete types never converges (each pass
// re-specializes it and falls back to Variant again), so this bound is
// what ends the loop in that case.
const maxInferPasses = 8

// Decompiler holds no state beyond options; New exists so the C API can
// hand out per-caller instances the way §6 describes, and so options
// could later vary per instance without a global.
type Decompiler struct {
	Options vbfmt.Options
}

// New creates a decompiler with best-effort diagnostics, per §7's
// default mode: a single bad procedure should not abort a whole file.
func New() *Decompiler {
	return &Decompiler{Options: vbfmt.Options{Mode: vbfmt.ModeBestEffort}}
}

// MethodSource is the decompiled or disassembled text for one method.
type MethodSource struct {
	ObjectName string
	MethodName string
	Kind       vbmeta.CodeKind
	Source     string // VB6 source for PCode, a disassembly listing for Native
	Diags      vbfmt.Diags
}

// Output is the full result of decompiling one executable.
type Output struct {
	ProjectName   string
	IsPCode       bool
	ObjectCount   int
	MethodCount   int
	Methods       []MethodSource
	SourceText    string // all method sources concatenated, in table order
	Diags         vbfmt.Diags
}

// DecompileFile runs the full pipeline against path.
func (d *Decompiler) DecompileFile(ctx context.Context, path string) (*Output, error) {
	img, err := peimg.Open(path)
	if err != nil {
		return nil, fmt.Errorf("decompiler: open: %w", err)
	}
	defer img.Close()

	proj, err := vbmeta.Extract(img, d.Options)
	if err != nil {
		return nil, fmt.Errorf("decompiler: extract metadata: %w", err)
	}

	out := &Output{
		ProjectName: projectName(path),
		IsPCode:     !proj.Info.IsNative(),
		ObjectCount: len(proj.Objects),
		Diags:       proj.Diags,
	}

	var b strings.Builder
	for _, obj := range proj.Objects {
		for _, m := range obj.Methods {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
			ms := d.decompileMethod(obj.Name, m)
			out.Methods = append(out.Methods, ms)
			out.Diags.Merge(ms.Diags)
			fmt.Fprintf(&b, "' %s.%s\n%s\n", obj.Name, m.MethodName, ms.Source)
		}
	}
	out.MethodCount = len(out.Methods)
	out.SourceText = b.String()

	return out, nil
}

func (d *Decompiler) decompileMethod(objectName string, m vbmeta.Method) MethodSource {
	ms := MethodSource{ObjectName: objectName, MethodName: m.MethodName, Kind: m.Kind}

	if m.Kind == vbmeta.Native {
		insts := x86dec.Disassemble(m.CodeBytes, m.StartAddress)
		var b strings.Builder
		fmt.Fprintf(&b, "' native x86, %d instruction(s)\n", len(insts))
		for _, in := range insts {
			fmt.Fprintf(&b, "'   %08x  %s\n", in.Address, in.String())
		}
		ms.Source = b.String()
		return ms
	}

	insts, diags := pcode.DecodeProcedure(m.CodeBytes, m.StartAddress, d.Options)
	ms.Diags = diags

	res := lift.Lift(m.MethodName, m.StartAddress, insts, nil)
	ms.Diags.Merge(res.Diags)
	if res.Partial {
		ms.Diags.Addf(m.StartAddress, vbfmt.DiagPartial, "lift for %s.%s completed only partially", objectName, m.MethodName)
	}

	fn := res.Func
	for i := 0; i < maxInferPasses; i++ {
		if typeinfer.Infer(fn) == 0 {
			break
		}
	}

	nodes := structurer.Structure(fn)
	ms.Source = emit.Function(fn, nodes)
	return ms
}

// projectName derives a display name from the input path's base name,
// the way the runtime derives App.EXEName from the executable itself.
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
