package hierarchy

import (
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/grid"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/layout"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/library"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/netlist"
)

// metaOriginOffset is the host's origin shift on exported coordinates in
// child metadata. ExtractMeta subtracts it from exported port positions
// only; BoundsUnits is stored without it. A constant of the target
// format; its sibling is the -32 instance displacement the save writer
// applies.
const metaOriginOffset = 16

// ExtractMeta derives the custom-component metadata of a compiled child:
// the bounding box over its placed components in 8-cell units, and its
// module ports exported at 8-cell-aligned positions with the origin
// offset applied. Parents feed the result back into lowering so Custom
// instances inherit port layout and widths.
func ExtractMeta(id uint64, nl *netlist.Netlist, l *layout.Layout) *library.CustomMeta {
	meta := &library.CustomMeta{ID: id}

	var box grid.Rect
	first := true
	for _, c := range nl.Components() {
		p, ok := l.Components[c.ID]
		if !ok {
			continue
		}
		r := grid.Rect{
			MinX: p.Pos.X, MinY: p.Pos.Y,
			MaxX: p.Pos.X + p.Width - 1, MaxY: p.Pos.Y + p.Height - 1,
		}
		if first {
			box = r
			first = false
		} else {
			box = box.Union(r)
		}
	}
	if first {
		box = grid.Rect{}
	}
	meta.BoundsUnits = grid.Rect{
		MinX: floorDiv(box.MinX, 8),
		MinY: floorDiv(box.MinY, 8),
		MaxX: floorDiv(box.MaxX, 8),
		MaxY: floorDiv(box.MaxY, 8),
	}

	for _, c := range nl.Components() {
		if c.IO == nil {
			continue
		}
		p, ok := l.Components[c.ID]
		if !ok {
			continue
		}

		var pinID string
		var dir library.PortDir
		if c.IsInput() {
			pinID, dir = "out", library.In
		} else {
			pinID, dir = "in", library.Out
		}
		pos := c.PortCoord(p.Pos, pinID)
		tplPort, _ := c.Port(pinID)

		meta.Ports = append(meta.Ports, library.Port{
			ID:  c.IO.Name,
			Dir: dir,
			Pos: grid.Pt(
				align8(pos.X)-metaOriginOffset,
				align8(pos.Y)-metaOriginOffset,
			),
			Width: tplPort.Width,
		})
	}
	return meta
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(v, d int) int {
	q := v / d
	if v%d != 0 && (v < 0) != (d < 0) {
		q--
	}
	return q
}

// align8 snaps a coordinate to the nearest multiple of 8.
func align8(v int) int {
	if v >= 0 {
		return (v + 4) / 8 * 8
	}
	return -((-v + 4) / 8 * 8)
}
