package layout

import (
	"context"
	"testing"

	"github.com/liquidhelium/verilog-target-turing-complete/pkg/grid"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/layeng"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/library"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/netlist"
)

// chainNetlist builds Input -> NOT -> Output.
func chainNetlist(t *testing.T) *netlist.Netlist {
	t.Helper()
	nl := netlist.New()
	in := nl.Add(library.MustLookup("Input_1"))
	in.IO = &netlist.IOPort{Name: "a", Dir: netlist.IOInput}
	gate := nl.Add(library.MustLookup("NOT_1"))
	out := nl.Add(library.MustLookup("Output_1"))
	out.IO = &netlist.IOPort{Name: "y", Dir: netlist.IOOutput}

	if err := nl.BindSource(in, "out", "n1"); err != nil {
		t.Fatal(err)
	}
	nl.BindSink(gate, "in", "n1")
	if err := nl.BindSource(gate, "out", "n2"); err != nil {
		t.Fatal(err)
	}
	nl.BindSink(out, "in", "n2")
	return nl
}

func TestBuildPlacesEveryComponent(t *testing.T) {
	nl := chainNetlist(t)
	l, err := Build(context.Background(), nl, layeng.New(), Options{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(l.Components) != 3 {
		t.Fatalf("placements = %d, want 3", len(l.Components))
	}
	if len(l.Edges) != 2 {
		t.Fatalf("edges = %d, want 2", len(l.Edges))
	}
	for _, e := range l.Edges {
		if len(e.Points) < 2 {
			t.Errorf("edge %s has %d points", e.Net, len(e.Points))
		}
		if e.Teleport {
			t.Errorf("edge %s is teleport in routed mode", e.Net)
		}
	}
}

func TestBuildAlignsIO(t *testing.T) {
	nl := chainNetlist(t)
	l, err := Build(context.Background(), nl, layeng.New(), Options{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	var in, gate, out *Placement
	for _, c := range nl.Components() {
		switch {
		case c.IsInput():
			in = l.Components[c.ID]
		case c.IsOutput():
			out = l.Components[c.ID]
		default:
			gate = l.Components[c.ID]
		}
	}
	if in.Pos.X+ioMargin > gate.Pos.X {
		t.Errorf("input x=%d not at least %d cells left of gate x=%d", in.Pos.X, ioMargin, gate.Pos.X)
	}
	if gate.Pos.X+ioMargin > out.Pos.X {
		t.Errorf("output x=%d not at least %d cells right of gate x=%d", out.Pos.X, ioMargin, gate.Pos.X)
	}
}

func TestBuildCentersAroundOrigin(t *testing.T) {
	nl := chainNetlist(t)
	l, err := Build(context.Background(), nl, layeng.New(), Options{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	box := layoutBounds(l)
	cx := (box.MinX + box.MaxX) / 2
	cy := (box.MinY + box.MaxY) / 2
	if cx < -1 || cx > 1 || cy < -1 || cy > 1 {
		t.Errorf("layout center = (%d,%d), want origin up to rounding", cx, cy)
	}
}

func TestCenteringIdempotent(t *testing.T) {
	nl := chainNetlist(t)
	l, err := Build(context.Background(), nl, layeng.New(), Options{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	before := map[int]grid.Point{}
	for id, p := range l.Components {
		before[id] = p.Pos
	}
	center(l)
	for id, p := range l.Components {
		if p.Pos != before[id] {
			t.Errorf("component %d moved on second centering: %v -> %v", id, before[id], p.Pos)
		}
	}
}

func TestCompactModeTeleports(t *testing.T) {
	nl := chainNetlist(t)
	l, err := Build(context.Background(), nl, layeng.New(), Options{Compact: true})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	for _, e := range l.Edges {
		if !e.Teleport {
			t.Errorf("edge %s not teleport in compact mode", e.Net)
		}
		if len(e.Points) != 2 {
			t.Errorf("teleport edge %s has %d points, want 2", e.Net, len(e.Points))
		}
	}

	// Teleport endpoints must sit on the packed port coordinates.
	for _, e := range l.Edges {
		src, _ := nl.Component(e.From.Component)
		want := src.PortCoord(l.Components[src.ID].Pos, e.From.Port)
		if e.Points[0] != want {
			t.Errorf("edge %s start %v, want port %v", e.Net, e.Points[0], want)
		}
	}
}

func TestCompactGroupsOrdered(t *testing.T) {
	nl := chainNetlist(t)
	l, err := Build(context.Background(), nl, layeng.New(), Options{Compact: true})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	var in, gate, out *Placement
	for _, c := range nl.Components() {
		switch {
		case c.IsInput():
			in = l.Components[c.ID]
		case c.IsOutput():
			out = l.Components[c.ID]
		default:
			gate = l.Components[c.ID]
		}
	}
	if !(in.Pos.X < gate.Pos.X && gate.Pos.X < out.Pos.X) {
		t.Errorf("compact group order wrong: in=%d gate=%d out=%d", in.Pos.X, gate.Pos.X, out.Pos.X)
	}
}

func TestBuildSkipsDriverlessNets(t *testing.T) {
	// A sink-only net never reaches layout; the oracle sees only
	// driver+sink pairs, so an undriven net yields no edge at all.
	nl := netlist.New()
	out := nl.Add(library.MustLookup("Output_1"))
	nl.BindSink(out, "in", "orphan")

	l, err := Build(context.Background(), nl, layeng.New(), Options{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(l.Edges) != 0 {
		t.Errorf("driverless net produced %d edges", len(l.Edges))
	}
}

// layoutBounds folds the bounding box over placements and edge points.
func layoutBounds(l *Layout) grid.Rect {
	var box grid.Rect
	first := true
	for _, p := range l.Components {
		r := grid.Rect{MinX: p.Pos.X, MinY: p.Pos.Y, MaxX: p.Pos.X + p.Width - 1, MaxY: p.Pos.Y + p.Height - 1}
		if first {
			box, first = r, false
		} else {
			box = box.Union(r)
		}
	}
	for _, e := range l.Edges {
		for _, pt := range e.Points {
			box = box.Extend(pt)
		}
	}
	return box
}
