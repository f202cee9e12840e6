package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"vbdecompile/internal/callgraph"
	"vbdecompile/internal/lift"
	"vbdecompile/internal/pcode"
	"vbdecompile/internal/peimg"
	"vbdecompile/internal/render"
	"vbdecompile/internal/typeinfer"
	"vbdecompile/internal/vbfmt"
	"vbdecompile/internal/vbmeta"
)

func cmdRender(args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	in := fs.String("in", "", "path to the target PE executable")
	out := fs.String("out", "", "output directory")
	title := fs.String("title", "", "title for callgraph and HTML (defaults to the project name)")
	maxNodes := fs.Int("max-nodes", 0, "max function nodes in callgraph DOT (0 = all)")
	noDot := fs.Bool("no-dot", false, "skip SVG generation (requires graphviz dot)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" || *out == "" {
		return fmt.Errorf("--in and --out are required")
	}
	if *title == "" {
		*title = projectName(*in)
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

	funcs, funcRecords := liftAllMethods(proj)

	if err := os.MkdirAll(*out, 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", *out, err)
	}

	edges := buildCallEdges(funcs)
	fmt.Fprintf(os.Stderr, "lifted %d method(s), %d call edge(s)\n", len(funcs), len(edges))

	dot := render.CallgraphDOT(funcRecords, edges, *title, render.NASA, *maxNodes)
	dotPath := filepath.Join(*out, "callgraph.dot")
	if err := os.WriteFile(dotPath, []byte(dot), 0644); err != nil {
		return fmt.Errorf("write callgraph.dot: %w", err)
	}

	hasCallgraphSVG := false
	if !*noDot {
		svgPath := filepath.Join(*out, "callgraph.svg")
		if err := runDot(dotPath, svgPath); err != nil {
			fmt.Fprintf(os.Stderr, "warning: callgraph SVG failed: %v (dot must be on PATH)\n", err)
		} else {
			hasCallgraphSVG = true
		}
	}

	cfgDir := filepath.Join(*out, "cfg")
	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		return fmt.Errorf("mkdir cfg: %w", err)
	}
	cfgCount := 0
	for _, f := range funcs {
		cfgDOT := render.CFGDOT(f.Name, f.Fn, render.NASA)
		if cfgDOT == "" {
			continue
		}
		safeName := sanitizeFilename(f.Name)
		cfgPath := filepath.Join(cfgDir, safeName+".dot")
		if err := os.WriteFile(cfgPath, []byte(cfgDOT), 0644); err != nil {
			return fmt.Errorf("write %s: %w", cfgPath, err)
		}
		if !*noDot {
			svgPath := filepath.Join(cfgDir, safeName+".svg")
			if err := runDot(cfgPath, svgPath); err != nil {
				fmt.Fprintf(os.Stderr, "  warning: CFG SVG failed for %s: %v\n", f.Name, err)
			}
		}
		cfgCount++
	}

	stats := render.ComputeStats(funcRecords, edges)
	htmlPath := filepath.Join(*out, "index.html")
	htmlFile, err := os.Create(htmlPath)
	if err != nil {
		return fmt.Errorf("create index.html: %w", err)
	}
	render.WriteIndexHTML(htmlFile, stats, *title, hasCallgraphSVG, cfgCount)
	if err := htmlFile.Close(); err != nil {
		return fmt.Errorf("close index.html: %w", err)
	}

	fmt.Fprintf(os.Stderr, "wrote %s (%d CFG(s))\n", *out, cfgCount)
	return nil
}

// liftAllMethods lifts every P-Code method to IR for rendering purposes.
// Native methods have no IR and are omitted from CFG/callgraph output —
// there is nothing to structure without a lifted body.
func liftAllMethods(proj *vbmeta.Project) ([]callgraph.FuncInfo, []render.FuncRecord) {
	var funcs []callgraph.FuncInfo
	var records []render.FuncRecord
	opts := vbfmt.Options{Mode: vbfmt.ModeBestEffort}

	for _, obj := range proj.Objects {
		for _, m := range obj.Methods {
			qualified := obj.Name + "." + m.MethodName
			records = append(records, render.FuncRecord{Name: qualified, Owner: obj.Name})
			if m.Kind != vbmeta.PCode {
				continue
			}
			insts, _ := pcode.DecodeProcedure(m.CodeBytes, m.StartAddress, opts)
			res := lift.Lift(m.MethodName, m.StartAddress, insts, nil)
			for i := 0; i < maxInferPasses; i++ {
				if typeinfer.Infer(res.Func) == 0 {
					break
				}
			}
			funcs = append(funcs, callgraph.FuncInfo{Name: qualified, Fn: res.Func})
		}
	}
	return funcs, records
}

// buildCallEdges converts each function's lifted call sites into
// render.CallEdgeRecord. A vtable-indexed call site (callgraph.CalleesOf
// names it func_vtblN, per internal/lift's callName convention) is the
// P-Code analog of a late-bound call through an Object reference; a
// resolved or address-based call is direct.
func buildCallEdges(funcs []callgraph.FuncInfo) []render.CallEdgeRecord {
	var edges []render.CallEdgeRecord
	for _, f := range funcs {
		for _, callee := range callgraph.CalleesOf(f.Fn) {
			if strings.HasPrefix(callee, "func_vtbl") {
				edges = append(edges, render.CallEdgeRecord{FromFunc: f.Name, Via: callee, Kind: "latebound"})
				continue
			}
			edges = append(edges, render.CallEdgeRecord{FromFunc: f.Name, Target: callee, Kind: "direct"})
		}
	}
	return edges
}

func runDot(dotPath, outPath string) error {
	cmd := exec.Command("dot", "-Tsvg", "-o", outPath, dotPath)
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
