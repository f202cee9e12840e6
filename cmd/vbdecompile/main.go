package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "scan":
		err = cmdScan(os.Args[2:])
	case "objects":
		err = cmdObjects(os.Args[2:])
	case "pcode":
		err = cmdPCode(os.Args[2:])
	case "disasm":
		err = cmdDisasm(os.Args[2:])
	case "decompile":
		err = cmdDecompile(os.Args[2:])
	case "render":
		err = cmdRender(os.Args[2:])
	case "batch":
		err = cmdBatch(os.Args[2:])
	case "help", "-h", "--help":
		usage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `vbdecompile — VB5/6 executable decompiler

Usage:
  vbdecompile scan       --in <exe>                Parse PE+VB headers, print summary
  vbdecompile objects    --in <exe> [--json]        List VB objects and methods
  vbdecompile pcode      --in <exe> --object <o> --method <m>   Disassemble one P-Code method
  vbdecompile disasm     --in <exe> --object <o> --method <m>   Disassemble one native x86 method
  vbdecompile decompile  --in <exe> [--out <dir>]   Full pipeline: all methods -> VB6 source
  vbdecompile render     --in <exe> --out <dir>     CFG/call-graph DOT+HTML for all methods
  vbdecompile batch      --dir <dir> --out <dir>    Decompile every exe in a directory

Flags:
  --in <exe>            Path to the target PE executable
  --dir <dir>           Directory of executables (batch)
  --out <dir>           Output directory
  --object <name>       VB object (form/class/module) name
  --method <name>       VB method name within --object
  --json                Emit JSON instead of text
  --strict              Fail on first structural error (default: best-effort)
  --max-nodes <n>       Cap function nodes in callgraph DOT (0 = all)
  --no-dot              Skip SVG generation via graphviz dot
  --workers <n>         Worker count for batch (0 = NumCPU)
`)
}
