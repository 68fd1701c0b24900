package netlist

import (
	"testing"

	"github.com/liquidhelium/verilog-target-turing-complete/pkg/errors"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/library"
)

func TestAddAssignsSequentialIDs(t *testing.T) {
	nl := New()
	a := nl.Add(library.MustLookup("AND_1"))
	b := nl.Add(library.MustLookup("OR_1"))

	if a.ID == b.ID {
		t.Fatal("components share an id")
	}
	if nl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", nl.Len())
	}
	if got := nl.Components()[0]; got != a {
		t.Error("insertion order not preserved")
	}
}

func TestBindSourceRejectsSecondDriver(t *testing.T) {
	nl := New()
	a := nl.Add(library.MustLookup("Input_1"))
	b := nl.Add(library.MustLookup("Input_1"))

	if err := nl.BindSource(a, "out", "n1"); err != nil {
		t.Fatalf("first BindSource failed: %v", err)
	}
	// Binding the same driver again is a no-op.
	if err := nl.BindSource(a, "out", "n1"); err != nil {
		t.Fatalf("re-binding same driver failed: %v", err)
	}
	err := nl.BindSource(b, "out", "n1")
	if err == nil {
		t.Fatal("second driver accepted")
	}
	if !errors.Is(err, errors.ErrCodeDriverConflict) {
		t.Errorf("error code = %v, want DRIVER_CONFLICT", errors.GetCode(err))
	}
}

func TestFanOut(t *testing.T) {
	nl := New()
	src := nl.Add(library.MustLookup("Input_1"))
	s1 := nl.Add(library.MustLookup("Output_1"))
	s2 := nl.Add(library.MustLookup("Output_1"))

	if err := nl.BindSource(src, "out", "n1"); err != nil {
		t.Fatal(err)
	}
	nl.BindSink(s1, "in", "n1")
	nl.BindSink(s2, "in", "n1")

	n := nl.Net("n1")
	if len(n.Sinks) != 2 {
		t.Fatalf("sinks = %d, want 2", len(n.Sinks))
	}
	if err := nl.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestRemoveSeversReferences(t *testing.T) {
	nl := New()
	src := nl.Add(library.MustLookup("Input_1"))
	gate := nl.Add(library.MustLookup("NOT_1"))
	dst := nl.Add(library.MustLookup("Output_1"))

	if err := nl.BindSource(src, "out", "n1"); err != nil {
		t.Fatal(err)
	}
	nl.BindSink(gate, "in", "n1")
	if err := nl.BindSource(gate, "out", "n2"); err != nil {
		t.Fatal(err)
	}
	nl.BindSink(dst, "in", "n2")

	nl.Remove(gate)

	if _, ok := nl.Component(gate.ID); ok {
		t.Fatal("removed component still resolvable")
	}
	if n := nl.Net("n1"); len(n.Sinks) != 0 {
		t.Error("n1 still has sinks after removal")
	}
	if n := nl.Net("n2"); n.Source != nil {
		t.Error("n2 still has a driver after removal")
	}
	if nl.Len() != 2 {
		t.Errorf("Len() = %d, want 2", nl.Len())
	}
}

func TestValidateCatchesMissingDriver(t *testing.T) {
	nl := New()
	dst := nl.Add(library.MustLookup("Output_1"))
	nl.BindSink(dst, "in", "orphan")

	err := nl.Validate()
	if err == nil {
		t.Fatal("Validate accepted a sink-only net")
	}
	if !errors.Is(err, errors.ErrCodeMissingDriver) {
		t.Errorf("error code = %v, want MISSING_DRIVER", errors.GetCode(err))
	}
}

func TestPortWidthOverride(t *testing.T) {
	nl := New()
	c := nl.Add(library.MustLookup("Custom"))
	c.CustomPorts = []library.Port{
		{ID: "data", Dir: library.In, Width: 8},
	}
	c.PortWidths = map[string]int{"data": 16}

	if got := c.PortWidth("data"); got != 16 {
		t.Errorf("PortWidth(data) = %d, want 16 (override wins)", got)
	}
	if got := c.PortWidth("unknown"); got != 1 {
		t.Errorf("PortWidth(unknown) = %d, want 1", got)
	}
}
