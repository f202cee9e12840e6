package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"vbdecompile/internal/capi"
	"vbdecompile/internal/decompiler"
	"vbdecompile/internal/output"
	"vbdecompile/internal/peimg"
	"vbdecompile/internal/vbfmt"
	"vbdecompile/internal/vbmeta"
)

// cmdDecompile always runs the pipeline once through the handle-based
// capi boundary described in §6, so that boundary sees real traffic
// from this CLI rather than only from tests. When --out names a
// directory, it then runs the pipeline a second time through
// internal/decompiler directly, since capi.Result only carries the
// concatenated source text and not per-method files.
func cmdDecompile(args []string) error {
	fs := flag.NewFlagSet("decompile", flag.ExitOnError)
	in := fs.String("in", "", "path to the target PE executable")
	out := fs.String("out", "", "output directory (default: print to stdout)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return fmt.Errorf("--in is required")
	}

	handle := capi.New()
	defer capi.Free(handle)

	status, res := capi.DecompileFile(handle, *in)
	if status != capi.StatusOK {
		return fmt.Errorf("decompile: %s", capi.LastError(handle))
	}
	fmt.Fprintf(os.Stderr, "%s\n", res.String())

	if *out == "" {
		fmt.Print(res.VB6SourceText)
		return nil
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

	fullOut, err := decompiler.New().DecompileFile(context.Background(), *in)
	if err != nil {
		return fmt.Errorf("decompile: %w", err)
	}

	if err := os.MkdirAll(*out, 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", *out, err)
	}
	if err := output.WriteDecompileResult(*out, proj, fullOut); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	if err := output.WriteDiags(*out, fullOut); err != nil {
		return fmt.Errorf("write diags: %w", err)
	}
	fmt.Fprintf(os.Stderr, "wrote %s (%d method(s))\n", *out, fullOut.MethodCount)
	return nil
}
