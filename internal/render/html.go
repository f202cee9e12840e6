package render

import (
	"fmt"
	"io"
	"strings"
)

// WriteIndexHTML writes a small HTML page summarizing one project's
// render output: edge provenance, top classes, callers, and callees,
// with links to the generated SVGs. Trimmed from the teacher's version,
// which also covered Dart-specific reachability and class-hierarchy
// graphs with no VB6 analog.
func WriteIndexHTML(w io.Writer, stats CallgraphStats, title string, hasCallgraphSVG bool, cfgCount int) {
	fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: "Helvetica Neue", Helvetica, Arial, sans-serif; font-size: 14px; color: #1A1A1A; background: #F5F5F5; margin: 2em; max-width: 900px; }
h1 { font-size: 18px; font-weight: 600; margin-bottom: 0.5em; }
h2 { font-size: 14px; font-weight: 600; margin-top: 1.5em; border-bottom: 1px solid #ddd; padding-bottom: 4px; }
table { border-collapse: collapse; margin: 0.5em 0; }
th, td { text-align: left; padding: 3px 12px 3px 0; font-size: 13px; }
th { font-weight: 600; }
td.num { text-align: right; font-variant-numeric: tabular-nums; }
.prov { display: inline-block; width: 10px; height: 10px; border-radius: 2px; margin-right: 4px; vertical-align: middle; }
a { color: #0B3D91; }
.bar { height: 8px; border-radius: 2px; display: inline-block; vertical-align: middle; }
.mbar { height: 6px; border-radius: 2px; display: inline-block; vertical-align: middle; background: #0B3D91; }
</style>
</head>
<body>
`, htmlEscape(title))

	fmt.Fprintf(w, "<h1>%s</h1>\n", htmlEscape(title))

	fmt.Fprintln(w, "<h2>Summary</h2>")
	fmt.Fprintln(w, "<table>")
	fmt.Fprintf(w, "<tr><td>Methods</td><td class=\"num\">%d</td></tr>\n", stats.TotalFunctions)
	fmt.Fprintf(w, "<tr><td>Objects (forms/classes/modules)</td><td class=\"num\">%d</td></tr>\n", stats.UniqueOwners)
	fmt.Fprintf(w, "<tr><td>Total call edges</td><td class=\"num\">%d</td></tr>\n", stats.TotalEdges)
	fmt.Fprintf(w, "<tr><td>Direct calls</td><td class=\"num\">%d</td></tr>\n", stats.DirectEdges)
	fmt.Fprintf(w, "<tr><td>Late-bound calls</td><td class=\"num\">%d</td></tr>\n", stats.LateBoundEdges)
	fmt.Fprintf(w, "<tr><td>Runtime helper calls</td><td class=\"num\">%d</td></tr>\n", stats.RuntimeEdges)
	if cfgCount > 0 {
		fmt.Fprintf(w, "<tr><td>CFGs generated</td><td class=\"num\">%d</td></tr>\n", cfgCount)
	}
	fmt.Fprintln(w, "</table>")

	fmt.Fprintln(w, "<h2>Edge Provenance</h2>")
	fmt.Fprintln(w, "<table>")
	fmt.Fprintln(w, "<tr><th></th><th>Category</th><th>Count</th><th></th></tr>")
	provOrder := []string{ProvDirect, ProvRuntime, ProvLateBound, ProvUnresolved}
	provLabels := map[string]string{
		ProvDirect:     "Direct call",
		ProvRuntime:    "Runtime helper (__vba/rtc)",
		ProvLateBound:  "Late-bound (Object)",
		ProvUnresolved: "Unresolved",
	}
	nasa := NASA
	provColors := map[string]string{
		ProvDirect:     nasa.EdgeDirect,
		ProvRuntime:    nasa.EdgeTHR,
		ProvLateBound:  nasa.EdgeObject,
		ProvUnresolved: nasa.EdgeUnresolved,
	}
	for _, prov := range provOrder {
		count := stats.ProvCounts[prov]
		if count == 0 {
			continue
		}
		color := provColors[prov]
		barW := 0
		if stats.TotalEdges > 0 {
			barW = count * 200 / stats.TotalEdges
			if barW < 2 {
				barW = 2
			}
		}
		fmt.Fprintf(w, "<tr><td><span class=\"prov\" style=\"background:%s\"></span></td><td>%s</td><td class=\"num\">%d</td><td><span class=\"bar\" style=\"width:%dpx;background:%s\"></span></td></tr>\n",
			color, provLabels[prov], count, barW, color)
	}
	fmt.Fprintln(w, "</table>")

	fmt.Fprintln(w, "<h2>Graphs</h2>")
	fmt.Fprint(w, "<p>")
	var links []string
	if hasCallgraphSVG {
		links = append(links, `<a href="callgraph.svg">Function-level graph</a>`)
	}
	if cfgCount > 0 {
		links = append(links, `<a href="cfg/">Per-method CFGs</a>`)
	}
	if len(links) == 0 {
		fmt.Fprint(w, `<span style="color:#9E9E9E">Run without --no-dot to generate SVGs</span>`)
	} else {
		for i, link := range links {
			if i > 0 {
				fmt.Fprint(w, " | ")
			}
			fmt.Fprint(w, link)
		}
	}
	fmt.Fprintln(w, "</p>")

	if len(stats.TopOwners) > 0 {
		fmt.Fprintln(w, "<h2>Top Objects</h2>")
		fmt.Fprintln(w, "<table>")
		fmt.Fprintln(w, "<tr><th>Object</th><th>Methods</th><th></th></tr>")
		limit := 20
		if len(stats.TopOwners) < limit {
			limit = len(stats.TopOwners)
		}
		maxCount := stats.TopOwners[0].Count
		for _, nc := range stats.TopOwners[:limit] {
			barW := nc.Count * 120 / maxCount
			if barW < 2 {
				barW = 2
			}
			fmt.Fprintf(w, "<tr><td>%s</td><td class=\"num\">%d</td><td><span class=\"mbar\" style=\"width:%dpx\"></span></td></tr>\n",
				htmlEscape(nc.Name), nc.Count, barW)
		}
		fmt.Fprintln(w, "</table>")
	}

	if len(stats.TopCallers) > 0 {
		fmt.Fprintln(w, "<h2>Top Callers</h2>")
		fmt.Fprintln(w, "<table>")
		fmt.Fprintln(w, "<tr><th>Method</th><th>Outgoing</th></tr>")
		limit := 15
		if len(stats.TopCallers) < limit {
			limit = len(stats.TopCallers)
		}
		for _, nc := range stats.TopCallers[:limit] {
			fmt.Fprintf(w, "<tr><td>%s</td><td class=\"num\">%d</td></tr>\n", htmlEscape(nc.Name), nc.Count)
		}
		fmt.Fprintln(w, "</table>")
	}

	if len(stats.TopCallees) > 0 {
		fmt.Fprintln(w, "<h2>Top Callees</h2>")
		fmt.Fprintln(w, "<table>")
		fmt.Fprintln(w, "<tr><th>Method</th><th>Incoming</th></tr>")
		limit := 15
		if len(stats.TopCallees) < limit {
			limit = len(stats.TopCallees)
		}
		for _, nc := range stats.TopCallees[:limit] {
			fmt.Fprintf(w, "<tr><td>%s</td><td class=\"num\">%d</td></tr>\n", htmlEscape(nc.Name), nc.Count)
		}
		fmt.Fprintln(w, "</table>")
	}

	fmt.Fprintln(w, "</body></html>")
}

func htmlEscape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	return s
}

// safeFuncNameHTML converts a function name to a safe filename, matching
// the sanitizer cmd/vbdecompile's render subcommand uses for per-method
// CFG file names.
func safeFuncNameHTML(name string) string {
	r := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)
	s := r.Replace(name)
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
