package layeng

import (
	"context"

	"github.com/liquidhelium/verilog-target-turing-complete/pkg/errors"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/grid"
)

// Spacing constants, in grid cells.
const (
	// layerGap separates adjacent layers horizontally.
	layerGap = 8
	// nodeGap separates stacked nodes within a layer.
	nodeGap = 3
)

// Engine is the default layout oracle.
type Engine struct{}

// New creates an engine.
func New() *Engine { return &Engine{} }

// Layout solves the request: layering, ordering, coordinates, routing.
func (e *Engine) Layout(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeLayoutFailed, err, "layout cancelled")
	}
	if len(req.Nodes) == 0 {
		return &Result{
			Nodes: map[string]*Placement{},
			Edges: map[string][]grid.Point{},
		}, nil
	}

	g := buildGraph(req)
	g.breakCycles()
	g.assignLayers()
	layers := g.layers()
	g.orderLayers(layers)

	res := &Result{
		Nodes: make(map[string]*Placement, len(req.Nodes)),
		Edges: make(map[string][]grid.Point, len(req.Edges)),
	}
	e.place(g, layers, res)

	for _, edge := range req.Edges {
		poly, err := route(res, edge)
		if err != nil {
			return nil, err
		}
		res.Edges[edge.ID] = poly
	}
	return res, nil
}

// place assigns coordinates: each layer becomes a column whose width is
// its widest node; nodes stack downward inside the column.
func (e *Engine) place(g *graph, layers [][]string, res *Result) {
	x := 0
	for _, ids := range layers {
		colWidth := 1
		for _, id := range ids {
			if w := g.nodes[id].Width; w > colWidth {
				colWidth = w
			}
		}
		y := 0
		for _, id := range ids {
			n := g.nodes[id]
			p := &Placement{
				Pos:    grid.Pt(x, y),
				Width:  n.Width,
				Height: n.Height,
			}
			p.PortPos = portPositions(n.Node, p.Pos)
			res.Nodes[id] = p
			y += n.Height + nodeGap
		}
		x += colWidth + layerGap
	}
}

// portPositions computes absolute port coordinates for a node at pos.
func portPositions(n Node, pos grid.Point) map[string]grid.Point {
	out := make(map[string]grid.Point, len(n.Ports))
	for _, p := range n.Ports {
		x := pos.X
		if p.Side == SideEast {
			x = pos.X + n.Width - 1
		}
		out[p.ID] = grid.Pt(x, pos.Y+p.Offset)
	}
	return out
}

// route produces an orthogonal polyline from the edge's source port to
// its sink port: horizontally to the midpoint column (at least one cell
// out of the source), vertically along it, then horizontally into the
// sink. Ports on the same row get a single straight segment. Crossing
// minimization is out of scope; correctness of endpoints is not.
func route(res *Result, edge Edge) ([]grid.Point, error) {
	from, err := portPoint(res, edge.From)
	if err != nil {
		return nil, err
	}
	to, err := portPoint(res, edge.To)
	if err != nil {
		return nil, err
	}

	if from.Y == to.Y {
		return []grid.Point{from, to}, nil
	}
	midX := (from.X + to.X) / 2
	if midX == from.X {
		midX++
	}
	return []grid.Point{
		from,
		grid.Pt(midX, from.Y),
		grid.Pt(midX, to.Y),
		to,
	}, nil
}

func portPoint(res *Result, ref PortRef) (grid.Point, error) {
	p, ok := res.Nodes[ref.Node]
	if !ok {
		return grid.Point{}, errors.New(errors.ErrCodeNoPlacement, "no placement for node %s", ref.Node)
	}
	pt, ok := p.PortPos[ref.Port]
	if !ok {
		return grid.Point{}, errors.New(errors.ErrCodeUnknownTarget, "node %s has no port %s", ref.Node, ref.Port)
	}
	return pt, nil
}
