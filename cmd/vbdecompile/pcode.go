package main

import (
	"flag"
	"fmt"
	"os"

	"vbdecompile/internal/emit"
	"vbdecompile/internal/lift"
	"vbdecompile/internal/pcode"
	"vbdecompile/internal/peimg"
	"vbdecompile/internal/structurer"
	"vbdecompile/internal/typeinfer"
	"vbdecompile/internal/vbfmt"
	"vbdecompile/internal/vbmeta"
)

// maxInferPasses mirrors internal/decompiler's type-recovery loop bound.
const maxInferPasses = 8

func cmdPCode(args []string) error {
	fs := flag.NewFlagSet("pcode", flag.ExitOnError)
	in := fs.String("in", "", "path to the target PE executable")
	object := fs.String("object", "", "VB object name")
	method := fs.String("method", "", "VB method name")
	decompile := fs.Bool("decompile", false, "lift and emit VB6 source instead of a raw listing")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" || *object == "" || *method == "" {
		return fmt.Errorf("--in, --object and --method are required")
	}

	img, err := peimg.Open(*in)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer img.Close()

	opts := vbfmt.Options{Mode: vbfmt.ModeBestEffort}
	proj, err := vbmeta.Extract(img, opts)
	if err != nil {
		return fmt.Errorf("extract VB metadata: %w", err)
	}

	_, m, err := findMethod(proj, *object, *method)
	if err != nil {
		return err
	}
	if m.Kind != vbmeta.PCode {
		return fmt.Errorf("%s.%s is a native x86 method; use the disasm subcommand", *object, *method)
	}

	insts, diags := pcode.DecodeProcedure(m.CodeBytes, m.StartAddress, opts)
	for _, d := range diags.Items() {
		fmt.Fprintf(os.Stderr, "%s\n", d)
	}

	if !*decompile {
		fmt.Print(pcode.Format(insts, m.CodeBytes, m.StartAddress))
		return nil
	}

	res := lift.Lift(m.MethodName, m.StartAddress, insts, nil)
	for _, d := range res.Diags.Items() {
		fmt.Fprintf(os.Stderr, "%s\n", d)
	}
	for i := 0; i < maxInferPasses; i++ {
		if typeinfer.Infer(res.Func) == 0 {
			break
		}
	}
	nodes := structurer.Structure(res.Func)
	fmt.Print(emit.Function(res.Func, nodes))
	return nil
}
