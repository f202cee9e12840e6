package render

// Theme holds colors for callgraph and CFG rendering.
type Theme struct {
	Background string
	NodeFill   string
	NodeBorder string
	TextColor  string

	// Edge colors by provenance category.
	EdgeTHR        string // MSVBVM60 runtime helper calls (__vba*, rtc*)
	EdgeObject     string // late-bound calls through an Object reference
	EdgeDirect     string // direct calls to a named project routine
	EdgeUnresolved string // unresolved callee, and CFG false-branch edges

	// Node accents.
	StubFill     string // unresolved callee stubs (func_xxx) and Return blocks
	ExternalText string // external / unresolved targets

	// Cluster styling.
	ClusterBorder string // subgraph cluster border
	ClusterLabel  string // subgraph cluster label text
}

// NASA is the NASA/Bauhaus theme: geometric, monochrome, sparse color.
var NASA = Theme{
	Background: "#F5F5F5",
	NodeFill:   "white",
	NodeBorder: "#1A1A1A",
	TextColor:  "#1A1A1A",

	EdgeTHR:        "#0B3D91", // NASA blue
	EdgeObject:     "#E65100", // deep orange
	EdgeDirect:     "#424242", // dark gray
	EdgeUnresolved: "#FC3D21", // NASA red

	StubFill:     "#ECEFF1", // blue-gray 50
	ExternalText: "#9E9E9E",

	ClusterBorder: "#BDBDBD",
	ClusterLabel:  "#757575",
}
