package render

import (
	"fmt"
	"strings"

	"vbdecompile/internal/emit"
	"vbdecompile/internal/ir"
)

// CFGDOT renders one function's basic-block CFG as DOT. Each block is a
// node holding its statements' text; edges represent control flow, with
// a Branch's two successors labeled T/F. Where the teacher's version
// listed raw ARM64 instructions per block, this lists the statement
// text emit.StmtText produces for each IR statement.
func CFGDOT(name string, fn *ir.Function, t Theme) string {
	if fn == nil || len(fn.Blocks) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("digraph cfg {\n")
	b.WriteString("  rankdir=TB;\n")
	b.WriteString("  nodesep=0.3;\n")
	b.WriteString("  ranksep=0.4;\n")
	fmt.Fprintf(&b, "  bgcolor=%q;\n", t.Background)
	fmt.Fprintf(&b, "  node [shape=rect, style=filled, fillcolor=%q, color=%q, penwidth=0.5, fontname=\"Courier,monospace\", fontsize=8, fontcolor=%q, margin=\"0.08,0.04\"];\n",
		t.NodeFill, t.NodeBorder, t.TextColor)
	fmt.Fprintf(&b, "  edge [penwidth=0.7, arrowsize=0.5, arrowhead=vee];\n")
	fmt.Fprintf(&b, "  labelloc=t;\n  labeljust=l;\n")
	fmt.Fprintf(&b, "  label=<<font face=\"Helvetica Neue,Helvetica\" point-size=\"9\" color=\"%s\">%s</font>>;\n",
		t.TextColor, dotEscape(name))
	b.WriteByte('\n')

	for _, id := range fn.BlockIDs() {
		blk := fn.Blocks[id]
		nodeID := fmt.Sprintf("bb%d", blk.ID)

		var lines []string
		for _, s := range blk.Stmts {
			line := emit.StmtText(s)
			if line == "" {
				continue
			}
			lines = append(lines, dotEscape(line))
		}
		if len(lines) > 12 {
			kept := append(append([]string{}, lines[:5]...), fmt.Sprintf("... (%d more)", len(lines)-10))
			lines = append(kept, lines[len(lines)-5:]...)
		}
		label := strings.Join(lines, "<br align=\"left\"/>")
		if label != "" {
			label += "<br align=\"left\"/>"
		}

		attrs := ""
		if blk.ID == fn.EntryBlock {
			attrs = fmt.Sprintf(", penwidth=1.5, color=%q", t.EdgeTHR)
		}
		if term := blk.Terminator(); term != nil && term.Kind == ir.StmtReturn {
			attrs += fmt.Sprintf(", fillcolor=%q", t.StubFill)
		}
		fmt.Fprintf(&b, "  %s [label=<%s>%s];\n", nodeID, label, attrs)
	}
	b.WriteByte('\n')

	for _, id := range fn.BlockIDs() {
		blk := fn.Blocks[id]
		from := fmt.Sprintf("bb%d", blk.ID)
		term := blk.Terminator()
		for _, succ := range blk.SortedSuccs() {
			to := fmt.Sprintf("bb%d", succ)
			switch {
			case term != nil && term.Kind == ir.StmtBranch && succ == term.TargetBlock:
				fmt.Fprintf(&b, "  %s -> %s [color=%q, label=<<font point-size=\"7\" color=\"%s\">T</font>>];\n",
					from, to, t.EdgeTHR, t.EdgeTHR)
			case term != nil && term.Kind == ir.StmtBranch:
				fmt.Fprintf(&b, "  %s -> %s [color=%q, label=<<font point-size=\"7\" color=\"%s\">F</font>>];\n",
					from, to, t.EdgeUnresolved, t.EdgeUnresolved)
			default:
				fmt.Fprintf(&b, "  %s -> %s [color=%q];\n", from, to, t.EdgeDirect)
			}
		}
	}

	b.WriteString("}\n")
	return b.String()
}
