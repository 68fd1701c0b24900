// Package layeng is the layered-graph layout oracle: it places nodes
// into left-to-right layers, orders each layer to tame crossings, assigns
// integer grid coordinates, and routes every edge as an orthogonal
// polyline between its ports.
//
// The engine is deliberately generic: it knows node boxes, port offsets,
// and pin hints, nothing about components or nets. The layout bridge owns
// the translation in both directions.
package layeng

import "github.com/liquidhelium/verilog-target-turing-complete/pkg/grid"

// Side is the node edge a port sits on.
type Side uint8

const (
	// SideWest places the port on the left edge.
	SideWest Side = iota
	// SideEast places the port on the right edge.
	SideEast
)

// PinHint forces a node into the first or last layer.
type PinHint uint8

const (
	// PinNone lets layering place the node freely.
	PinNone PinHint = iota
	// PinFirst pins the node to the leftmost layer (module inputs).
	PinFirst
	// PinLast pins the node to the rightmost layer (module outputs).
	PinLast
)

// Port is a connection point on a node at a vertical offset from the
// node's top edge.
type Port struct {
	ID     string
	Side   Side
	Offset int
}

// Node is one layout element with its box dimensions in grid cells.
type Node struct {
	ID     string
	Width  int
	Height int
	Ports  []Port
	Pin    PinHint
}

// PortRef addresses one port of one node.
type PortRef struct {
	Node string
	Port string
}

// Edge is a source-to-sink connection to route.
type Edge struct {
	ID   string
	From PortRef
	To   PortRef
}

// Request is the full layout problem.
type Request struct {
	Nodes []Node
	Edges []Edge
}

// Placement is one node's solved position. Pos is the top-left grid cell
// of the node box; PortPos maps port ids to absolute grid coordinates.
type Placement struct {
	Pos     grid.Point
	Width   int
	Height  int
	PortPos map[string]grid.Point
}

// Result is the solved layout: placements by node id and polylines by
// edge id. Every polyline starts at the source port and ends at the sink
// port.
type Result struct {
	Nodes map[string]*Placement
	Edges map[string][]grid.Point
}
