package layeng

import (
	"context"
	"testing"
)

func simpleRequest() Request {
	return Request{
		Nodes: []Node{
			{ID: "in", Width: 3, Height: 3, Pin: PinFirst,
				Ports: []Port{{ID: "out", Side: SideEast, Offset: 1}}},
			{ID: "gate", Width: 3, Height: 3,
				Ports: []Port{
					{ID: "a", Side: SideWest, Offset: 0},
					{ID: "out", Side: SideEast, Offset: 1},
				}},
			{ID: "outp", Width: 3, Height: 3, Pin: PinLast,
				Ports: []Port{{ID: "in", Side: SideWest, Offset: 1}}},
		},
		Edges: []Edge{
			{ID: "e1", From: PortRef{"in", "out"}, To: PortRef{"gate", "a"}},
			{ID: "e2", From: PortRef{"gate", "out"}, To: PortRef{"outp", "in"}},
		},
	}
}

func TestLayoutLayersLeftToRight(t *testing.T) {
	res, err := New().Layout(context.Background(), simpleRequest())
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}

	in := res.Nodes["in"]
	gate := res.Nodes["gate"]
	outp := res.Nodes["outp"]
	if in == nil || gate == nil || outp == nil {
		t.Fatal("missing placements")
	}
	if !(in.Pos.X < gate.Pos.X && gate.Pos.X < outp.Pos.X) {
		t.Errorf("layer x order wrong: in=%d gate=%d out=%d", in.Pos.X, gate.Pos.X, outp.Pos.X)
	}
}

func TestLayoutPolylinesTouchPorts(t *testing.T) {
	res, err := New().Layout(context.Background(), simpleRequest())
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}

	e1 := res.Edges["e1"]
	if len(e1) < 2 {
		t.Fatalf("e1 polyline too short: %v", e1)
	}
	if e1[0] != res.Nodes["in"].PortPos["out"] {
		t.Errorf("e1 start %v != source port %v", e1[0], res.Nodes["in"].PortPos["out"])
	}
	if e1[len(e1)-1] != res.Nodes["gate"].PortPos["a"] {
		t.Errorf("e1 end %v != sink port %v", e1[len(e1)-1], res.Nodes["gate"].PortPos["a"])
	}

	// Every segment must be axis-aligned.
	for _, poly := range res.Edges {
		for i := 1; i < len(poly); i++ {
			dx := poly[i].X - poly[i-1].X
			dy := poly[i].Y - poly[i-1].Y
			if dx != 0 && dy != 0 {
				t.Errorf("diagonal segment %v -> %v", poly[i-1], poly[i])
			}
		}
	}
}

func TestLayoutPortSides(t *testing.T) {
	res, err := New().Layout(context.Background(), simpleRequest())
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}
	gate := res.Nodes["gate"]
	if got := gate.PortPos["a"].X; got != gate.Pos.X {
		t.Errorf("west port x = %d, want %d", got, gate.Pos.X)
	}
	if got := gate.PortPos["out"].X; got != gate.Pos.X+gate.Width-1 {
		t.Errorf("east port x = %d, want %d", got, gate.Pos.X+gate.Width-1)
	}
}

func TestLayoutToleratesFeedbackCycle(t *testing.T) {
	req := Request{
		Nodes: []Node{
			{ID: "a", Width: 3, Height: 3,
				Ports: []Port{{ID: "in", Side: SideWest, Offset: 1}, {ID: "out", Side: SideEast, Offset: 1}}},
			{ID: "b", Width: 3, Height: 3,
				Ports: []Port{{ID: "in", Side: SideWest, Offset: 1}, {ID: "out", Side: SideEast, Offset: 1}}},
		},
		Edges: []Edge{
			{ID: "fwd", From: PortRef{"a", "out"}, To: PortRef{"b", "in"}},
			{ID: "back", From: PortRef{"b", "out"}, To: PortRef{"a", "in"}},
		},
	}
	res, err := New().Layout(context.Background(), req)
	if err != nil {
		t.Fatalf("Layout failed on cycle: %v", err)
	}
	if len(res.Edges) != 2 {
		t.Errorf("routed %d edges, want 2 (back edges still route)", len(res.Edges))
	}
}

func TestLayoutEmptyRequest(t *testing.T) {
	res, err := New().Layout(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Layout failed on empty request: %v", err)
	}
	if len(res.Nodes) != 0 || len(res.Edges) != 0 {
		t.Error("empty request produced placements")
	}
}

func TestLayoutUnknownPortFails(t *testing.T) {
	req := Request{
		Nodes: []Node{{ID: "a", Width: 1, Height: 1}},
		Edges: []Edge{{ID: "e", From: PortRef{"a", "ghost"}, To: PortRef{"a", "ghost"}}},
	}
	if _, err := New().Layout(context.Background(), req); err == nil {
		t.Fatal("unknown port accepted")
	}
}
