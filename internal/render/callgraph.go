package render

import (
	"fmt"
	"strings"
)

// FuncRecord is one function/method for callgraph rendering purposes.
// Owner is the containing VB object (form, class, or standard module)
// name, used to cluster methods the way the teacher clustered ARM64
// functions by their Dart class owner.
type FuncRecord struct {
	Name  string
	Owner string
}

// CallEdgeRecord is one resolved or partially-resolved call edge.
// Kind distinguishes a direct call to a named project routine from a
// late-bound call reached through an Object-typed reference — the VB6
// analog of the teacher's direct-BL vs indirect-BLR distinction.
type CallEdgeRecord struct {
	FromFunc string
	Target   string // resolved callee name, or "" if unresolved
	Via      string // member-access text for a late-bound call, e.g. "obj.Method"
	Kind     string // "direct" or "latebound"
}

// Call edge provenance categories.
const (
	ProvRuntime    = "runtime"    // MSVBVM60 runtime helper (__vba*, rtc*)
	ProvDirect     = "direct"     // call to a named project Sub/Function
	ProvLateBound  = "latebound"  // call through an Object-typed member access
	ProvUnresolved = "unresolved" // callee could not be resolved
)

// ClassifyEdgeProv returns the provenance category for a call edge.
func ClassifyEdgeProv(e CallEdgeRecord) string {
	if e.Kind == "latebound" {
		return ProvLateBound
	}
	target := e.Target
	if strings.HasPrefix(target, "__vba") || strings.HasPrefix(target, "rtc") {
		return ProvRuntime
	}
	if target == "" {
		return ProvUnresolved
	}
	return ProvDirect
}

// edgeColor returns the DOT color for an edge provenance category.
func edgeColor(prov string, t Theme) string {
	switch prov {
	case ProvRuntime:
		return t.EdgeTHR
	case ProvLateBound:
		return t.EdgeObject
	case ProvDirect:
		return t.EdgeDirect
	case ProvUnresolved:
		return t.EdgeUnresolved
	default:
		return t.EdgeDirect
	}
}

// edgeStyle returns dot style attributes for provenance.
func edgeStyle(prov string) string {
	switch prov {
	case ProvLateBound:
		return "dotted"
	case ProvUnresolved:
		return "dashed"
	default:
		return "solid"
	}
}

// CallgraphDOT renders a callgraph from functions and call edges as DOT.
// Only edges between known functions are rendered as solid internal
// edges; unresolved and runtime targets appear as external plaintext
// nodes. maxNodes limits the number of function nodes rendered (0 = all).
func CallgraphDOT(funcs []FuncRecord, edges []CallEdgeRecord, title string, t Theme, maxNodes int) string {
	funcSet := make(map[string]bool, len(funcs))
	for _, f := range funcs {
		funcSet[f.Name] = true
	}

	type edgeKey struct {
		from, to, prov string
	}
	dedupEdges := make(map[edgeKey]int)

	for _, e := range edges {
		prov := ClassifyEdgeProv(e)
		target := e.Target
		if prov == ProvLateBound {
			target = e.Via
		}
		if target == "" {
			target = "unresolved_call"
		}
		k := edgeKey{e.FromFunc, target, prov}
		dedupEdges[k]++
	}

	refNodes := make(map[string]bool)
	for k := range dedupEdges {
		refNodes[k.from] = true
		refNodes[k.to] = true
	}

	var renderFuncs []FuncRecord
	for _, f := range funcs {
		if refNodes[f.Name] {
			renderFuncs = append(renderFuncs, f)
		}
	}
	if maxNodes > 0 && len(renderFuncs) > maxNodes {
		renderFuncs = renderFuncs[:maxNodes]
		funcSet = make(map[string]bool, len(renderFuncs))
		for _, f := range renderFuncs {
			funcSet[f.Name] = true
		}
	}

	externalNodes := make(map[string]bool)
	for k := range dedupEdges {
		if !funcSet[k.from] {
			continue
		}
		if !funcSet[k.to] {
			externalNodes[k.to] = true
		}
	}

	ownerFuncs := make(map[string][]FuncRecord)
	var noOwner []FuncRecord
	for _, f := range renderFuncs {
		if f.Owner != "" {
			ownerFuncs[f.Owner] = append(ownerFuncs[f.Owner], f)
		} else {
			noOwner = append(noOwner, f)
		}
	}

	var b strings.Builder
	b.WriteString("digraph callgraph {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  compound=true;\n")
	b.WriteString("  splines=true;\n")
	b.WriteString("  nodesep=0.4;\n")
	b.WriteString("  ranksep=0.6;\n")
	fmt.Fprintf(&b, "  bgcolor=%q;\n", t.Background)
	fmt.Fprintf(&b, "  node [shape=rect, style=filled, fillcolor=%q, color=%q, penwidth=0.5, fontname=\"Helvetica Neue,Helvetica,Arial\", fontsize=9, fontcolor=%q, height=0.3, margin=\"0.12,0.06\"];\n",
		t.NodeFill, t.NodeBorder, t.TextColor)
	fmt.Fprintf(&b, "  edge [penwidth=0.5, arrowsize=0.5, arrowhead=vee];\n")
	if title != "" {
		fmt.Fprintf(&b, "  labelloc=t;\n  labeljust=l;\n")
		fmt.Fprintf(&b, "  label=<<font face=\"Helvetica Neue,Helvetica\" point-size=\"8\" color=\"%s\">%s</font>>;\n",
			t.TextColor, dotEscape(title))
	}
	b.WriteByte('\n')

	for owner, funcsInOwner := range ownerFuncs {
		if len(funcsInOwner) < 2 {
			noOwner = append(noOwner, funcsInOwner...)
			continue
		}
		clusterID := "cluster_" + dotID(owner)
		fmt.Fprintf(&b, "  subgraph %s {\n", clusterID)
		fmt.Fprintf(&b, "    label=<<font point-size=\"8\" color=\"%s\">%s</font>>;\n",
			t.ClusterLabel, dotEscape(owner))
		fmt.Fprintf(&b, "    style=dotted; color=%q; penwidth=0.3;\n", t.ClusterBorder)
		for _, f := range funcsInOwner {
			id := dotID(f.Name)
			label := stripMethodName(f.Name, owner)
			label = truncLabel(label, 50)
			if strings.HasPrefix(f.Name, "func_") {
				fmt.Fprintf(&b, "    %s [label=%q, fillcolor=%q];\n", id, label, t.StubFill)
			} else {
				fmt.Fprintf(&b, "    %s [label=%q];\n", id, label)
			}
		}
		fmt.Fprintf(&b, "  }\n")
	}

	for _, f := range noOwner {
		id := dotID(f.Name)
		label := truncLabel(f.Name, 60)
		if strings.HasPrefix(f.Name, "func_") {
			fmt.Fprintf(&b, "  %s [label=%q, fillcolor=%q];\n", id, label, t.StubFill)
		} else {
			fmt.Fprintf(&b, "  %s [label=%q];\n", id, label)
		}
	}
	b.WriteByte('\n')

	for name := range externalNodes {
		id := dotID(name)
		label := truncLabel(name, 50)
		fmt.Fprintf(&b, "  %s [label=%q, shape=plaintext, style=\"\", fillcolor=none, fontcolor=%q, fontsize=8];\n",
			id, label, t.ExternalText)
	}
	b.WriteByte('\n')

	for k, count := range dedupEdges {
		if !funcSet[k.from] && !externalNodes[k.from] {
			continue
		}
		fromID := dotID(k.from)
		toID := dotID(k.to)
		color := edgeColor(k.prov, t)
		style := edgeStyle(k.prov)

		attrs := fmt.Sprintf("color=%q, style=%q", color, style)
		if count > 1 {
			attrs += fmt.Sprintf(", penwidth=%.1f", 0.5+float64(count)*0.1)
			if count > 2 {
				attrs += fmt.Sprintf(", label=<<font point-size=\"7\" color=\"%s\">%dx</font>>", color, count)
			}
		}
		fmt.Fprintf(&b, "  %s -> %s [%s];\n", fromID, toID, attrs)
	}

	b.WriteString("}\n")
	return b.String()
}

// CallgraphStats computes summary statistics from edges.
type CallgraphStats struct {
	TotalFunctions int
	TotalEdges     int
	DirectEdges    int
	LateBoundEdges int
	RuntimeEdges   int
	UniqueOwners   int
	ProvCounts     map[string]int
	TopCallers     []NameCount
	TopCallees     []NameCount
	TopOwners      []NameCount
}

// NameCount pairs a name with a count.
type NameCount struct {
	Name  string
	Count int
}

// ComputeStats computes callgraph statistics from the same records
// CallgraphDOT renders.
func ComputeStats(funcs []FuncRecord, edges []CallEdgeRecord) CallgraphStats {
	stats := CallgraphStats{
		TotalFunctions: len(funcs),
		TotalEdges:     len(edges),
		ProvCounts:     make(map[string]int),
	}

	callerCount := make(map[string]int)
	calleeCount := make(map[string]int)

	for _, e := range edges {
		prov := ClassifyEdgeProv(e)
		stats.ProvCounts[prov]++
		callerCount[e.FromFunc]++
		switch prov {
		case ProvDirect:
			stats.DirectEdges++
			if e.Target != "" {
				calleeCount[e.Target]++
			}
		case ProvLateBound:
			stats.LateBoundEdges++
			if e.Via != "" {
				calleeCount[e.Via]++
			}
		case ProvRuntime:
			stats.RuntimeEdges++
			calleeCount[e.Target]++
		}
	}

	ownerCount := make(map[string]int)
	for _, f := range funcs {
		if f.Owner != "" {
			ownerCount[f.Owner]++
		}
	}
	stats.UniqueOwners = len(ownerCount)

	stats.TopCallers = topNMap(callerCount, 20)
	stats.TopCallees = topNMap(calleeCount, 20)
	stats.TopOwners = topNMap(ownerCount, 30)
	return stats
}

// topNMap returns the top N entries from a map, sorted descending.
func topNMap(m map[string]int, n int) []NameCount {
	entries := make([]NameCount, 0, len(m))
	for name, count := range m {
		entries = append(entries, NameCount{name, count})
	}
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			if entries[j].Count > entries[i].Count {
				entries[i], entries[j] = entries[j], entries[i]
			}
		}
	}
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}
