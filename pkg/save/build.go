package save

import (
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/errors"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/grid"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/layout"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/library"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/netlist"
)

// BuildComponents converts placed netlist components into payload
// records. Permanent ids are assigned as 1-based indices in netlist
// insertion order, so determinism of the output hangs on deterministic
// cell enumeration upstream.
//
// The stored position is the placed top-left cell minus the bounding-box
// origin; hierarchical instances take the host's extra displacement on
// top.
func BuildComponents(nl *netlist.Netlist, l *layout.Layout) ([]Component, error) {
	out := make([]Component, 0, nl.Len())
	for i, c := range nl.Components() {
		p, ok := l.Components[c.ID]
		if !ok {
			return nil, errors.New(errors.ErrCodeNoPlacement, "component %d has no placement", c.ID)
		}
		box := c.Box()
		pos := grid.Pt(p.Pos.X-box.MinX, p.Pos.Y-box.MinY)

		rec := Component{
			Kind:        uint16(c.Template.Kind),
			Position:    pos,
			Rotation:    c.Template.Rotation,
			PermanentID: uint64(i + 1),
			Label:       c.Label,
			Setting1:    c.Setting,
		}
		if c.Template.Kind.IsCustom() {
			rec.Position = grid.Pt(pos.X-CustomDisplacement, pos.Y-CustomDisplacement)
			rec.CustomID = c.CustomID
		}
		out = append(out, rec)
	}
	return out, nil
}

// DependencyIDs collects the distinct custom ids referenced by the
// components, in first-use order, for the header's dependency list.
func DependencyIDs(comps []Component) []uint64 {
	seen := make(map[uint64]bool)
	var out []uint64
	for _, c := range comps {
		if !library.Kind(c.Kind).IsCustom() || c.CustomID == 0 {
			continue
		}
		if !seen[c.CustomID] {
			seen[c.CustomID] = true
			out = append(out, c.CustomID)
		}
	}
	return out
}
