package route

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/liquidhelium/verilog-target-turing-complete/pkg/grid"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/layout"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/library"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/netlist"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/save"
)

func TestDensifyOrthogonal(t *testing.T) {
	poly := []grid.Point{grid.Pt(0, 0), grid.Pt(3, 0), grid.Pt(3, 2)}
	dense := Densify(poly)
	want := []grid.Point{
		grid.Pt(0, 0), grid.Pt(1, 0), grid.Pt(2, 0), grid.Pt(3, 0),
		grid.Pt(3, 1), grid.Pt(3, 2),
	}
	if diff := cmp.Diff(want, dense); diff != "" {
		t.Errorf("dense polyline mismatch (-want +got):\n%s", diff)
	}
}

func TestDensifyBreaksDiagonals(t *testing.T) {
	poly := []grid.Point{grid.Pt(0, 0), grid.Pt(2, 3)}
	dense := Densify(poly)

	// The diagonal splits at the horizontally-aligned midpoint (2,0).
	want := []grid.Point{
		grid.Pt(0, 0), grid.Pt(1, 0), grid.Pt(2, 0),
		grid.Pt(2, 1), grid.Pt(2, 2), grid.Pt(2, 3),
	}
	if diff := cmp.Diff(want, dense); diff != "" {
		t.Errorf("dense polyline mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		poly []grid.Point
	}{
		{"straight east", []grid.Point{grid.Pt(0, 0), grid.Pt(5, 0)}},
		{"L shape", []grid.Point{grid.Pt(-2, 1), grid.Pt(4, 1), grid.Pt(4, -3)}},
		{"diagonal", []grid.Point{grid.Pt(0, 0), grid.Pt(3, 4)}},
		{"long run", []grid.Point{grid.Pt(0, 0), grid.Pt(100, 0)}},
		{"west then north", []grid.Point{grid.Pt(10, 10), grid.Pt(-10, 10), grid.Pt(-10, -5)}},
		{"single point", []grid.Point{grid.Pt(7, 7)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := EncodeBody(tt.poly)
			if err != nil {
				t.Fatalf("EncodeBody failed: %v", err)
			}
			if body[len(body)-1] != 0 {
				t.Fatalf("body not zero-terminated: %v", body)
			}
			dense := Densify(tt.poly)
			decoded, err := DecodeBody(tt.poly[0], body)
			if err != nil {
				t.Fatalf("DecodeBody failed: %v", err)
			}
			if diff := cmp.Diff(dense, decoded); diff != "" {
				t.Errorf("round trip mismatch (-dense +decoded):\n%s", diff)
			}
		})
	}
}

func TestEncodeSplitsRunsAt31(t *testing.T) {
	body, err := EncodeBody([]grid.Point{grid.Pt(0, 0), grid.Pt(40, 0)})
	if err != nil {
		t.Fatalf("EncodeBody failed: %v", err)
	}
	// 40 east steps: one run of 31, one of 9, terminator.
	want := []byte{byte(grid.East)<<5 | 31, byte(grid.East)<<5 | 9, 0}
	if diff := cmp.Diff(want, body); diff != "" {
		t.Errorf("body mismatch (-want +got):\n%s", diff)
	}
}

func TestDirectionBits(t *testing.T) {
	// South run of 2 encodes direction index 2 in the top three bits.
	body, err := EncodeBody([]grid.Point{grid.Pt(0, 0), grid.Pt(0, 2)})
	if err != nil {
		t.Fatalf("EncodeBody failed: %v", err)
	}
	if body[0] != byte(grid.South)<<5|2 {
		t.Errorf("body[0] = %#x, want %#x", body[0], byte(grid.South)<<5|2)
	}
}

func TestDecodeRejectsTruncatedBody(t *testing.T) {
	if _, err := DecodeBody(grid.Pt(0, 0), []byte{byte(grid.East)<<5 | 3}); err == nil {
		t.Fatal("unterminated body accepted")
	}
}

func TestWiresFromLayout(t *testing.T) {
	nl := netlist.New()
	in := nl.Add(library.MustLookup("Input_8"))
	out := nl.Add(library.MustLookup("Output_8"))
	if err := nl.BindSource(in, "out", "n1"); err != nil {
		t.Fatal(err)
	}
	nl.BindSink(out, "in", "n1")

	l := &layout.Layout{
		Components: map[int]*layout.Placement{
			in.ID:  {Pos: grid.Pt(0, 0), Width: 3, Height: 3},
			out.ID: {Pos: grid.Pt(10, 0), Width: 3, Height: 3},
		},
		Edges: []layout.Edge{{
			Net:  "n1",
			From: netlist.PortRef{Component: in.ID, Port: "out"},
			To:   netlist.PortRef{Component: out.ID, Port: "in"},
			// Deliberately drifted endpoints; encoding must force them
			// back onto the ports.
			Points: []grid.Point{grid.Pt(3, 0), grid.Pt(9, 1)},
		}},
	}

	wires, err := Wires(nl, l, Options{Color: 2})
	if err != nil {
		t.Fatalf("Wires failed: %v", err)
	}
	if len(wires) != 1 {
		t.Fatalf("wire count = %d, want 1", len(wires))
	}
	w := wires[0]
	if w.Kind != save.Wk8 {
		t.Errorf("wire kind = %v, want Wk8", w.Kind)
	}
	if w.Color != 2 {
		t.Errorf("wire color = %d, want 2", w.Color)
	}
	wantStart := in.PortCoord(grid.Pt(0, 0), "out")
	if w.Start != wantStart {
		t.Errorf("wire start = %v, want forced port %v", w.Start, wantStart)
	}

	dense, err := DecodeBody(w.Start, w.Body)
	if err != nil {
		t.Fatalf("DecodeBody failed: %v", err)
	}
	wantEnd := out.PortCoord(grid.Pt(10, 0), "in")
	if got := dense[len(dense)-1]; got != wantEnd {
		t.Errorf("wire ends at %v, want forced port %v", got, wantEnd)
	}
}

func TestTeleportWire(t *testing.T) {
	nl := netlist.New()
	in := nl.Add(library.MustLookup("Input_1"))
	out := nl.Add(library.MustLookup("Output_1"))
	if err := nl.BindSource(in, "out", "n1"); err != nil {
		t.Fatal(err)
	}
	nl.BindSink(out, "in", "n1")

	l := &layout.Layout{
		Components: map[int]*layout.Placement{
			in.ID:  {Pos: grid.Pt(0, 0), Width: 3, Height: 3},
			out.ID: {Pos: grid.Pt(30, 40), Width: 3, Height: 3},
		},
		Edges: []layout.Edge{{
			Net:      "n1",
			From:     netlist.PortRef{Component: in.ID, Port: "out"},
			To:       netlist.PortRef{Component: out.ID, Port: "in"},
			Points:   []grid.Point{grid.Pt(2, 1), grid.Pt(30, 41)},
			Teleport: true,
		}},
	}
	wires, err := Wires(nl, l, Options{})
	if err != nil {
		t.Fatalf("Wires failed: %v", err)
	}
	w := wires[0]
	if len(w.Body) != 1 || w.Body[0] != save.TeleportMarker {
		t.Errorf("teleport body = %v, want single marker byte", w.Body)
	}
	if w.End == nil {
		t.Fatal("teleport wire missing end point")
	}
	wantEnd := out.PortCoord(grid.Pt(30, 40), "in")
	if *w.End != wantEnd {
		t.Errorf("teleport end = %v, want %v", *w.End, wantEnd)
	}
}

func TestWireKindClassification(t *testing.T) {
	tests := []struct {
		width int
		want  save.WireKind
	}{
		{1, save.Wk1}, {8, save.Wk8}, {16, save.Wk16},
		{32, save.Wk32}, {64, save.Wk64}, {5, save.Wk1},
	}
	for _, tt := range tests {
		if got := save.WireKindFor(tt.width); got != tt.want {
			t.Errorf("WireKindFor(%d) = %v, want %v", tt.width, got, tt.want)
		}
	}
}

func TestSplitterOutputWidthIsOne(t *testing.T) {
	nl := netlist.New()
	sp := nl.Add(library.MustLookup("Splitter_8"))
	if got := sp.PortWidth("out3"); got != 1 {
		t.Errorf("Splitter_8 out3 width = %d, want 1", got)
	}
	if got := sp.PortWidth("in"); got != 8 {
		t.Errorf("Splitter_8 in width = %d, want 8", got)
	}

	wide := nl.Add(library.MustLookup("Splitter_64"))
	if got := wide.PortWidth("out0"); got != 8 {
		t.Errorf("Splitter_64 out0 width = %d, want 8", got)
	}
}

func TestPortCoordOffsets(t *testing.T) {
	nl := netlist.New()
	in := nl.Add(library.MustLookup("Input_8"))
	// Bounds (-1,-1)..(1,1), out at (1,0): placed at (10,20) the port
	// sits at (10+2, 20+1).
	got := in.PortCoord(grid.Pt(10, 20), "out")
	if got != grid.Pt(12, 21) {
		t.Errorf("PortCoord = %v, want (12,21)", got)
	}
}
