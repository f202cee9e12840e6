package main

import (
	"flag"
	"fmt"

	"vbdecompile/internal/peimg"
	"vbdecompile/internal/vbfmt"
	"vbdecompile/internal/vbmeta"
	"vbdecompile/internal/x86dec"
)

func cmdDisasm(args []string) error {
	fs := flag.NewFlagSet("disasm", flag.ExitOnError)
	in := fs.String("in", "", "path to the target PE executable")
	object := fs.String("object", "", "VB object name")
	method := fs.String("method", "", "VB method name")

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

	proj, err := vbmeta.Extract(img, vbfmt.Options{Mode: vbfmt.ModeBestEffort})
	if err != nil {
		return fmt.Errorf("extract VB metadata: %w", err)
	}

	_, m, err := findMethod(proj, *object, *method)
	if err != nil {
		return err
	}
	if m.Kind != vbmeta.Native {
		return fmt.Errorf("%s.%s is a P-Code method; use the pcode subcommand", *object, *method)
	}

	insts := x86dec.Disassemble(m.CodeBytes, m.StartAddress)
	for _, in := range insts {
		fmt.Printf("%08x  %s\n", in.Address, in.String())
	}
	return nil
}
