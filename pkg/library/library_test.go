package library

import (
	"testing"

	"github.com/liquidhelium/verilog-target-turing-complete/pkg/grid"
)

func TestLookupKnownTemplates(t *testing.T) {
	ids := []string{
		"Off", "On", "NOT_1", "AND_1", "OR_1", "XOR_1", "XNOR_1",
		"AND_8", "AND_64", "Input_1", "Output_64", "Const_32",
		"Mux_8", "Maker_8", "Splitter_64", "Add_8", "Mul_16",
		"Shl_8", "Shr_32", "AshR_64", "Neg_8",
		"Equal_8", "LessU_16", "LessS_64", "Reg_8", "BitMemory", "Custom",
	}
	for _, id := range ids {
		if _, err := Lookup(id); err != nil {
			t.Errorf("Lookup(%q) failed: %v", id, err)
		}
	}
}

func TestLookupUnknown(t *testing.T) {
	if _, err := Lookup("AND_128"); err == nil {
		t.Error("Lookup(AND_128) succeeded, want error")
	}
}

func TestForDispatch(t *testing.T) {
	tests := []struct {
		base  Base
		width int
		want  string
	}{
		{BaseAnd, 1, "AND_1"},
		{BaseAnd, 8, "AND_8"},
		{BaseReg, 1, "BitMemory"},
		{BaseReg, 32, "Reg_32"},
		{BaseInput, 64, "Input_64"},
		{BaseSplitter, 16, "Splitter_16"},
	}
	for _, tt := range tests {
		tpl, err := For(tt.base, tt.width)
		if err != nil {
			t.Errorf("For(%q, %d) failed: %v", tt.base, tt.width, err)
			continue
		}
		if tpl.ID != tt.want {
			t.Errorf("For(%q, %d) = %q, want %q", tt.base, tt.width, tpl.ID, tt.want)
		}
	}

	if _, err := For(BaseAnd, 7); err == nil {
		t.Error("For(AND, 7) succeeded, want error")
	}
	if _, err := For(BaseConst, 1); err == nil {
		t.Error("For(Const, 1) succeeded, want error (use Off/On)")
	}
}

func TestGatePortLayout(t *testing.T) {
	and := MustLookup("AND_1")
	a, _ := and.Port("a")
	b, _ := and.Port("b")
	out, _ := and.Port("out")

	if a.Pos.X != and.Bounds.MinX || b.Pos.X != and.Bounds.MinX {
		t.Error("gate inputs must sit on the west edge")
	}
	if out.Pos.X != and.Bounds.MaxX {
		t.Error("gate output must sit on the east edge")
	}
	if a.Dir != In || out.Dir != Out {
		t.Error("port directions wrong on AND_1")
	}
}

func TestMakerSplitterPins(t *testing.T) {
	tests := []struct {
		id       string
		pins     int
		pinWidth int
	}{
		{"Maker_8", 8, 1},
		{"Maker_16", 2, 8},
		{"Maker_64", 8, 8},
		{"Splitter_8", 8, 1},
		{"Splitter_32", 4, 8},
	}
	for _, tt := range tests {
		tpl := MustLookup(tt.id)
		var pins []Port
		if tpl.Kind >= KindSplitter8 && tpl.Kind <= KindSplitter64 {
			pins = tpl.Outputs()
		} else {
			pins = tpl.Inputs()
		}
		if len(pins) != tt.pins {
			t.Errorf("%s has %d pins, want %d", tt.id, len(pins), tt.pins)
			continue
		}
		for _, p := range pins {
			if p.Width != tt.pinWidth {
				t.Errorf("%s pin %s width = %d, want %d", tt.id, p.ID, p.Width, tt.pinWidth)
			}
		}

		// Pins are vertical, center-aligned around y=0.
		sum := 0
		for _, p := range pins {
			sum += p.Pos.Y
		}
		if tt.pins%2 == 0 && sum != -tt.pins/2 {
			t.Errorf("%s pin ys sum to %d, want %d (centered)", tt.id, sum, -tt.pins/2)
		}
	}
}

func TestAdderPorts(t *testing.T) {
	add := MustLookup("Add_8")
	want := map[string]grid.Point{
		"carry_in":  grid.Pt(-1, -1),
		"a":         grid.Pt(-1, 0),
		"b":         grid.Pt(-1, 1),
		"sum":       grid.Pt(1, -1),
		"carry_out": grid.Pt(1, 0),
	}
	for id, pos := range want {
		p, ok := add.Port(id)
		if !ok {
			t.Errorf("Add_8 missing port %q", id)
			continue
		}
		if p.Pos != pos {
			t.Errorf("Add_8 port %q at %v, want %v", id, p.Pos, pos)
		}
	}
	ci, _ := add.Port("carry_in")
	co, _ := add.Port("carry_out")
	if ci.Width != 1 || co.Width != 1 {
		t.Error("adder carries must be single-bit")
	}
}

func TestRegisterPorts(t *testing.T) {
	reg := MustLookup("Reg_8")
	for _, id := range []string{"load", "save", "value", "out"} {
		if _, ok := reg.Port(id); !ok {
			t.Errorf("Reg_8 missing port %q", id)
		}
	}

	ff := MustLookup("BitMemory")
	if _, ok := ff.Port("load"); ok {
		t.Error("BitMemory must not have a load port")
	}
	save, _ := ff.Port("save")
	value, _ := ff.Port("value")
	if save.Pos.Y != -1 || value.Pos.Y != 1 {
		t.Errorf("BitMemory save/value at y=%d/%d, want -1/+1", save.Pos.Y, value.Pos.Y)
	}
}

func TestKindsAreUnique(t *testing.T) {
	seen := map[Kind]string{}
	for _, tpl := range All() {
		if prev, dup := seen[tpl.Kind]; dup {
			t.Errorf("kind %d shared by %s and %s", tpl.Kind, prev, tpl.ID)
		}
		seen[tpl.Kind] = tpl.ID
	}
}

func TestChunking(t *testing.T) {
	tests := []struct {
		width, count, chunk int
	}{
		{1, 1, 1}, {8, 8, 1}, {16, 2, 8}, {32, 4, 8}, {64, 8, 8},
	}
	for _, tt := range tests {
		if got := ChunkCount(tt.width); got != tt.count {
			t.Errorf("ChunkCount(%d) = %d, want %d", tt.width, got, tt.count)
		}
		if got := ChunkWidth(tt.width); got != tt.chunk {
			t.Errorf("ChunkWidth(%d) = %d, want %d", tt.width, got, tt.chunk)
		}
	}
}
