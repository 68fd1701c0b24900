package yosys

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecodeBitRefs(t *testing.T) {
	data := []byte(`{
		"modules": {
			"top": {
				"ports": {
					"a": {"direction": "input", "bits": [2]},
					"y": {"direction": "output", "bits": [3, "0", "1", "x"]}
				},
				"cells": {
					"g1": {
						"type": "$and",
						"parameters": {"A_WIDTH": 1, "Y_WIDTH": "00000001"},
						"connections": {"A": [2], "B": [4], "Y": [3]}
					}
				}
			}
		}
	}`)

	d, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	m, err := d.Module("top")
	if err != nil {
		t.Fatal(err)
	}

	wantBits := []BitRef{{Net: 3}, {Literal: "0"}, {Literal: "1"}, {Literal: "x"}}
	if diff := cmp.Diff(wantBits, m.Ports["y"].Bits); diff != "" {
		t.Errorf("port bits mismatch (-want +got):\n%s", diff)
	}

	cell := m.Cells["g1"]
	if cell.Type != "$and" {
		t.Errorf("cell type = %q", cell.Type)
	}
	if got := cell.ParamInt("A_WIDTH", 0); got != 1 {
		t.Errorf("A_WIDTH = %d, want 1", got)
	}
	if got := cell.ParamInt("Y_WIDTH", 0); got != 1 {
		t.Errorf("Y_WIDTH (bit string) = %d, want 1", got)
	}
	if got := cell.ParamInt("MISSING", 7); got != 7 {
		t.Errorf("missing param = %d, want default 7", got)
	}
}

func TestDecodeRejectsBadLiteral(t *testing.T) {
	data := []byte(`{"modules": {"m": {"ports": {"p": {"direction": "input", "bits": ["q"]}}}}}`)
	if _, err := Decode(data); err == nil {
		t.Fatal("Decode accepted invalid bit literal")
	}
}

func TestModuleLookupError(t *testing.T) {
	d := &Design{Modules: map[string]*Module{"a": {}}}
	if _, err := d.Module("missing"); err == nil {
		t.Fatal("Module(missing) succeeded")
	}
}

func TestParamBits(t *testing.T) {
	// Bit-string form is MSB first; Bits() returns LSB first.
	p := ParamFromString("00000110")
	got := p.Bits(8)
	want := []bool{false, true, true, false, false, false, false, false}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Bits mismatch (-want +got):\n%s", diff)
	}

	n := ParamFromInt(5)
	got = n.Bits(4)
	want = []bool{true, false, true, false}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("numeric Bits mismatch (-want +got):\n%s", diff)
	}
}

func TestScriptAssembly(t *testing.T) {
	s := script("in.v", "out.json", Options{Top: "alu", Flatten: true})
	want := "read_verilog -sv in.v; hierarchy -top alu; proc; flatten; opt; write_json out.json"
	if s != want {
		t.Errorf("script = %q, want %q", s, want)
	}

	s = script("in.v", "out.json", Options{Top: "alu"})
	if s != "read_verilog -sv in.v; hierarchy -top alu; proc; opt; write_json out.json" {
		t.Errorf("no-flatten script = %q", s)
	}
}
