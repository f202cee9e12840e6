package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"vbdecompile/internal/peimg"
	"vbdecompile/internal/vbfmt"
	"vbdecompile/internal/vbmeta"
)

type scanSummary struct {
	Project      string `json:"project"`
	ImageBase    uint64 `json:"image_base"`
	Sections     int    `json:"sections"`
	Native       bool   `json:"native"`
	Thread       string `json:"thread_model"`
	FormCount    int    `json:"form_count"`
	ObjectCount  int    `json:"object_count"`
	MethodCount  int    `json:"method_count"`
	DiagCount    int    `json:"diag_count"`
}

func cmdScan(args []string) error {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	in := fs.String("in", "", "path to the target PE executable")
	strict := fs.Bool("strict", false, "fail on first structural error")
	jsonOut := fs.Bool("json", false, "output as JSON")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return fmt.Errorf("--in is required")
	}

	opts := vbfmt.Options{Mode: vbfmt.ModeBestEffort}
	if *strict {
		opts.Mode = vbfmt.ModeStrict
	}

	img, err := peimg.Open(*in)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer img.Close()

	fmt.Fprintf(os.Stderr, "PE: %d bytes, image base 0x%x, %d section(s)\n",
		fileSize(*in), img.ImageBase, len(img.Sections))
	for _, s := range img.Sections {
		fmt.Fprintf(os.Stderr, "  %-8s VA=0x%08x VirtSize=0x%08x RawOff=0x%08x RawSize=0x%08x\n",
			s.Name, s.VA, s.VirtSize, s.RawOffset, s.RawSize)
	}

	proj, err := vbmeta.Extract(img, opts)
	if err != nil {
		return fmt.Errorf("extract VB metadata: %w", err)
	}

	methodCount := 0
	for _, o := range proj.Objects {
		methodCount += len(o.Methods)
	}

	summary := scanSummary{
		Project:     projectName(*in),
		ImageBase:   img.ImageBase,
		Sections:    len(img.Sections),
		Native:      proj.Info.IsNative(),
		Thread:      proj.Header.Thread().String(),
		FormCount:   int(proj.Header.FormCount),
		ObjectCount: len(proj.Objects),
		MethodCount: methodCount,
		DiagCount:   proj.Diags.Len(),
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	fmt.Printf("\nVB5! project: %s\n", summary.Project)
	fmt.Printf("  Code kind:    %s\n", codeKindString(summary.Native))
	fmt.Printf("  Thread model: %s\n", summary.Thread)
	fmt.Printf("  Form count:   %d\n", summary.FormCount)
	fmt.Printf("  Objects:      %d\n", summary.ObjectCount)
	fmt.Printf("  Methods:      %d\n", summary.MethodCount)
	if summary.DiagCount > 0 {
		fmt.Printf("  Diagnostics:  %d\n", summary.DiagCount)
		for _, d := range proj.Diags.Items() {
			fmt.Printf("    %s\n", d)
		}
	}

	return nil
}

func codeKindString(native bool) string {
	if native {
		return "native x86"
	}
	return "P-Code"
}

func fileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}
