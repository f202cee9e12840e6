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

type objectRecord struct {
	Name        string          `json:"name"`
	Kind        string          `json:"kind"`
	ControlCount int            `json:"control_count,omitempty"`
	EventCount  int             `json:"event_count,omitempty"`
	Methods     []methodRecord  `json:"methods"`
}

type methodRecord struct {
	Name         string `json:"name"`
	Kind         string `json:"kind"`
	StartAddress uint32 `json:"start_address"`
	CodeBytes    int    `json:"code_bytes"`
}

func cmdObjects(args []string) error {
	fs := flag.NewFlagSet("objects", flag.ExitOnError)
	in := fs.String("in", "", "path to the target PE executable")
	jsonOut := fs.Bool("json", false, "output as JSON")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return fmt.Errorf("--in is required")
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

	records := make([]objectRecord, 0, len(proj.Objects))
	for _, obj := range proj.Objects {
		rec := objectRecord{
			Name:         obj.Name,
			Kind:         objectKindString(obj),
			ControlCount: len(obj.Controls),
			EventCount:   obj.EventCount,
		}
		for _, m := range obj.Methods {
			rec.Methods = append(rec.Methods, methodRecord{
				Name:         m.MethodName,
				Kind:         m.Kind.String(),
				StartAddress: m.StartAddress,
				CodeBytes:    len(m.CodeBytes),
			})
		}
		records = append(records, rec)
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	for _, rec := range records {
		fmt.Printf("%s [%s]", rec.Name, rec.Kind)
		if rec.ControlCount > 0 || rec.EventCount > 0 {
			fmt.Printf("  (%d control(s), %d event(s))", rec.ControlCount, rec.EventCount)
		}
		fmt.Println()
		for _, m := range rec.Methods {
			fmt.Printf("  %-24s %-6s addr=0x%08x  %d byte(s)\n", m.Name, m.Kind, m.StartAddress, m.CodeBytes)
		}
	}

	return nil
}

func objectKindString(obj vbmeta.Object) string {
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
