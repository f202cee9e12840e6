package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"vbdecompile/internal/batch"
	"vbdecompile/internal/decompiler"
	"vbdecompile/internal/output"
	"vbdecompile/internal/peimg"
	"vbdecompile/internal/vbfmt"
	"vbdecompile/internal/vbmeta"
)

func cmdBatch(args []string) error {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	dir := fs.String("dir", "", "directory of executables to decompile")
	out := fs.String("out", "", "output directory (one subdirectory per input file)")
	workers := fs.Int("workers", 0, "worker count (0 = NumCPU)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dir == "" || *out == "" {
		return fmt.Errorf("--dir and --out are required")
	}

	entries, err := os.ReadDir(*dir)
	if err != nil {
		return fmt.Errorf("read dir: %w", err)
	}

	var jobs []batch.Job
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".exe") {
			continue
		}
		path := filepath.Join(*dir, e.Name())
		jobs = append(jobs, batch.Job{Path: path, Run: decompileOneFile})
	}
	if len(jobs) == 0 {
		return fmt.Errorf("no .exe files found in %s", *dir)
	}

	results := batch.Run(context.Background(), jobs, batch.Options{Workers: *workers})
	batch.SortByPath(results)

	if err := os.MkdirAll(*out, 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", *out, err)
	}

	failures := 0
	for _, r := range results {
		name := projectName(r.Path)
		if r.Err != nil {
			fmt.Fprintf(os.Stderr, "%s: FAILED: %v\n", name, r.Err)
			failures++
			continue
		}
		fileOut := r.Value.(*decompiler.Output)
		dstDir := filepath.Join(*out, name)
		if err := os.MkdirAll(dstDir, 0755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dstDir, err)
		}
		proj, err := reExtract(r.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: FAILED: re-extract metadata for output: %v\n", name, err)
			failures++
			continue
		}
		if err := output.WriteDecompileResult(dstDir, proj, fileOut); err != nil {
			return fmt.Errorf("%s: write result: %w", name, err)
		}
		fmt.Fprintf(os.Stderr, "%s: OK (%d method(s))\n", name, fileOut.MethodCount)
	}

	fmt.Fprintf(os.Stderr, "\n%d/%d succeeded\n", len(results)-failures, len(results))
	if failures > 0 {
		return fmt.Errorf("%d file(s) failed", failures)
	}
	return nil
}

func decompileOneFile(ctx context.Context, path string) (interface{}, error) {
	return decompiler.New().DecompileFile(ctx, path)
}

// reExtract re-parses a file's VB metadata for the object/method manifest
// output.WriteDecompileResult needs; decompiler.Output alone doesn't carry
// the vbmeta.Project tree.
func reExtract(path string) (*vbmeta.Project, error) {
	img, err := peimg.Open(path)
	if err != nil {
		return nil, err
	}
	defer img.Close()
	return vbmeta.Extract(img, vbfmt.Options{Mode: vbfmt.ModeBestEffort})
}
