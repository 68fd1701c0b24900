package library

import "github.com/liquidhelium/verilog-target-turing-complete/pkg/grid"

// CustomMeta describes a compiled child schematic as an opaque block for
// use by parent schematics: its bounding box in units of 8 grid cells and
// its exported ports.
//
// Port positions are stored in grid cells with the host's -16 origin
// offset already applied, so a parent netlist can use them directly as
// the instance's port layout. BoundsUnits carries the 8-cell-unit box the
// save payload needs.
type CustomMeta struct {
	// ID is the child's stable 63-bit identifier.
	ID uint64

	// BoundsUnits is the grid-aligned bounding box in 8-cell units.
	BoundsUnits grid.Rect

	// Ports is the ordered exported port list, cell-domain positions.
	Ports []Port
}

// CellBounds returns the instance bounding box in grid cells.
func (m *CustomMeta) CellBounds() grid.Rect {
	return grid.Rect{
		MinX: m.BoundsUnits.MinX * 8,
		MinY: m.BoundsUnits.MinY * 8,
		MaxX: (m.BoundsUnits.MaxX+1)*8 - 1,
		MaxY: (m.BoundsUnits.MaxY+1)*8 - 1,
	}
}

// PortWidths returns the per-port width override map a parent instance
// inherits.
func (m *CustomMeta) PortWidths() map[string]int {
	out := make(map[string]int, len(m.Ports))
	for _, p := range m.Ports {
		out[p.ID] = p.Width
	}
	return out
}
