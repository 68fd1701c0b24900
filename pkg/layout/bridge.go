// Package layout drives the layered layout oracle for a netlist: it
// builds the layout request, consumes placements and polylines, and runs
// the post passes (IO alignment, optional compact packing, centering).
package layout

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/liquidhelium/verilog-target-turing-complete/pkg/errors"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/grid"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/layeng"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/library"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/netlist"
)

// ioMargin is the horizontal gap inserted between the IO columns and the
// rest of the schematic.
const ioMargin = 10

// Oracle is the layout collaborator. layeng.Engine is the default
// implementation.
type Oracle interface {
	Layout(ctx context.Context, req layeng.Request) (*layeng.Result, error)
}

// Options configures the bridge.
type Options struct {
	// Compact repacks components into dense columns and replaces routed
	// wires with teleport wires.
	Compact bool
	// Logger receives structured progress. Nil discards.
	Logger *log.Logger
}

// Placement is a component's solved position: the top-left grid cell of
// its bounding box.
type Placement struct {
	Pos    grid.Point
	Width  int
	Height int
}

// Edge is one routed source-to-sink connection.
type Edge struct {
	Net      string
	From, To netlist.PortRef
	Points   []grid.Point
	// Teleport marks compact-mode wires whose body is the teleport
	// marker; Points then holds exactly the two endpoints.
	Teleport bool
}

// Layout is the placed-and-routed result the wire encoder and the save
// writer consume. Immutable once Build returns.
type Layout struct {
	Components map[int]*Placement
	Edges      []Edge
}

// Build runs the oracle over the netlist and applies the post passes.
func Build(ctx context.Context, nl *netlist.Netlist, oracle Oracle, opts Options) (*Layout, error) {
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	req := buildRequest(nl)
	res, err := oracle.Layout(ctx, req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeLayoutFailed, err, "layout oracle")
	}

	l := &Layout{Components: make(map[int]*Placement, nl.Len())}
	for _, c := range nl.Components() {
		p, ok := res.Nodes[nodeID(c)]
		if !ok {
			return nil, errors.New(errors.ErrCodeNoPlacement, "layout returned no placement for component %d", c.ID)
		}
		l.Components[c.ID] = &Placement{Pos: p.Pos, Width: p.Width, Height: p.Height}
	}

	for _, e := range edgeList(nl) {
		points := res.Edges[e.id]
		if len(points) == 0 {
			return nil, errors.New(errors.ErrCodeLayoutFailed, "layout returned no route for net %s", e.net)
		}
		l.Edges = append(l.Edges, Edge{
			Net:    e.net,
			From:   e.from,
			To:     e.to,
			Points: append([]grid.Point(nil), points...),
		})
	}

	alignIO(l, nl)
	if opts.Compact {
		compactPack(l, nl)
	}
	center(l)

	opts.Logger.Debug("layout complete",
		"components", len(l.Components),
		"edges", len(l.Edges),
		"compact", opts.Compact)
	return l, nil
}

func nodeID(c *netlist.Component) string { return strconv.Itoa(c.ID) }

// buildRequest translates components into layout nodes (inputs on the
// west, outputs on the east, IO pinned to the outer layers) and nets into
// source-to-sink edges.
func buildRequest(nl *netlist.Netlist) layeng.Request {
	var req layeng.Request
	for _, c := range nl.Components() {
		box := c.Box()
		n := layeng.Node{
			ID:     nodeID(c),
			Width:  box.Width(),
			Height: box.Height(),
		}
		if c.IsInput() {
			n.Pin = layeng.PinFirst
		} else if c.IsOutput() {
			n.Pin = layeng.PinLast
		}
		for _, p := range c.PortLayout() {
			side := layeng.SideWest
			if p.Dir == library.Out {
				side = layeng.SideEast
			}
			n.Ports = append(n.Ports, layeng.Port{
				ID:     p.ID,
				Side:   side,
				Offset: p.Pos.Y - box.MinY,
			})
		}
		req.Nodes = append(req.Nodes, n)
	}
	for _, e := range edgeList(nl) {
		req.Edges = append(req.Edges, layeng.Edge{
			ID:   e.id,
			From: layeng.PortRef{Node: strconv.Itoa(e.from.Component), Port: e.from.Port},
			To:   layeng.PortRef{Node: strconv.Itoa(e.to.Component), Port: e.to.Port},
		})
	}
	return req
}

// netEdge is one source-to-sink pair of a net.
type netEdge struct {
	id       string
	net      string
	from, to netlist.PortRef
}

// edgeList enumerates every net's fan-out pairs in deterministic order.
func edgeList(nl *netlist.Netlist) []netEdge {
	var out []netEdge
	for _, n := range nl.UniqueNets() {
		if n.Source == nil {
			continue
		}
		for i, sink := range n.Sinks {
			out = append(out, netEdge{
				id:   fmt.Sprintf("%s#%d", n.ID, i),
				net:  n.ID,
				from: *n.Source,
				to:   sink,
			})
		}
	}
	return out
}

// alignIO pushes the input column left and the output column right by
// the margin, dragging the attached wire endpoints in lockstep.
func alignIO(l *Layout, nl *netlist.Netlist) {
	minInputX, maxOutputX := 0, 0
	haveIn, haveOut := false, false
	for _, c := range nl.Components() {
		p := l.Components[c.ID]
		if c.IsInput() {
			if !haveIn || p.Pos.X < minInputX {
				minInputX = p.Pos.X
				haveIn = true
			}
		}
		if c.IsOutput() {
			if !haveOut || p.Pos.X > maxOutputX {
				maxOutputX = p.Pos.X
				haveOut = true
			}
		}
	}

	for _, c := range nl.Components() {
		p := l.Components[c.ID]
		var dx int
		switch {
		case haveIn && c.IsInput():
			dx = (minInputX - ioMargin) - p.Pos.X
		case haveOut && c.IsOutput():
			dx = (maxOutputX + ioMargin) - p.Pos.X
		default:
			continue
		}
		if dx == 0 {
			continue
		}
		p.Pos.X += dx
		shiftEdgeEndpoints(l, c.ID, dx)
	}
}

// shiftEdgeEndpoints moves the endpoints of wires attached to a component
// by dx, keeping routes connected after the node moved.
func shiftEdgeEndpoints(l *Layout, compID, dx int) {
	for i := range l.Edges {
		e := &l.Edges[i]
		if e.From.Component == compID && len(e.Points) > 0 {
			e.Points[0].X += dx
		}
		if e.To.Component == compID && len(e.Points) > 0 {
			e.Points[len(e.Points)-1].X += dx
		}
	}
}

// center translates everything so the bounding box over nodes and wire
// points straddles the origin.
func center(l *Layout) {
	var box grid.Rect
	first := true
	extend := func(r grid.Rect) {
		if first {
			box = r
			first = false
			return
		}
		box = box.Union(r)
	}

	for _, p := range l.Components {
		extend(grid.Rect{
			MinX: p.Pos.X, MinY: p.Pos.Y,
			MaxX: p.Pos.X + p.Width - 1, MaxY: p.Pos.Y + p.Height - 1,
		})
	}
	for _, e := range l.Edges {
		for _, pt := range e.Points {
			extend(grid.RectAround(pt))
		}
	}
	if first {
		return
	}

	dx := -(box.MinX + box.MaxX) / 2
	dy := -(box.MinY + box.MaxY) / 2
	if dx == 0 && dy == 0 {
		return
	}
	for _, p := range l.Components {
		p.Pos.X += dx
		p.Pos.Y += dy
	}
	for i := range l.Edges {
		for j := range l.Edges[i].Points {
			l.Edges[i].Points[j].X += dx
			l.Edges[i].Points[j].Y += dy
		}
	}
}
