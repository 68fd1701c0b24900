package layout

import (
	"math"
	"sort"

	"github.com/liquidhelium/verilog-target-turing-complete/pkg/grid"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/netlist"
)

// Compact packing constants, in grid cells.
const (
	// ioSlotHeight is the fixed vertical pitch of IO components in
	// compact mode, so bus pins line up between columns. Tuned
	// empirically; part of the visual contract, not the correctness
	// contract.
	ioSlotHeight = 10
	// compactGap separates packed columns and stacked nodes.
	compactGap = 1
	// groupGap separates the input, logic, and output column groups.
	groupGap = 4
)

// compactPack reinterprets the oracle's output as a linearization in x
// order and repacks it into dense vertical columns: inputs, then logic,
// then outputs. Routed polylines are discarded; every wire becomes a
// teleport wire between its two port coordinates.
func compactPack(l *Layout, nl *netlist.Netlist) {
	var inputs, logic, outputs []*netlist.Component
	for _, c := range nl.Components() {
		switch {
		case c.IsInput():
			inputs = append(inputs, c)
		case c.IsOutput():
			outputs = append(outputs, c)
		default:
			logic = append(logic, c)
		}
	}

	// Linearize by the oracle's x, then y, then id for stability.
	byPosition := func(comps []*netlist.Component) {
		sort.SliceStable(comps, func(i, j int) bool {
			pi, pj := l.Components[comps[i].ID], l.Components[comps[j].ID]
			if pi.Pos.X != pj.Pos.X {
				return pi.Pos.X < pj.Pos.X
			}
			if pi.Pos.Y != pj.Pos.Y {
				return pi.Pos.Y < pj.Pos.Y
			}
			return comps[i].ID < comps[j].ID
		})
	}
	byPosition(inputs)
	byPosition(logic)
	byPosition(outputs)

	colHeight := targetColumnHeight(l, inputs, logic, outputs)

	x := 0
	x = packGroup(l, inputs, x, colHeight, true)
	x += groupGap
	x = packGroup(l, logic, x, colHeight, false)
	x += groupGap
	packGroup(l, outputs, x, colHeight, true)

	// Teleport wires replace routing entirely.
	for i := range l.Edges {
		e := &l.Edges[i]
		from := portCoord(l, nl, e.From)
		to := portCoord(l, nl, e.To)
		e.Points = []grid.Point{from, to}
		e.Teleport = true
	}
}

// targetColumnHeight approximates sqrt of the packed area, floored at the
// tallest element so every node fits in some column. IO components count
// with their fixed slot pitch.
func targetColumnHeight(l *Layout, inputs, logic, outputs []*netlist.Component) int {
	area, tallest := 0, 1
	for _, c := range logic {
		p := l.Components[c.ID]
		area += p.Width * p.Height
		if p.Height > tallest {
			tallest = p.Height
		}
	}
	for _, group := range [][]*netlist.Component{inputs, outputs} {
		for _, c := range group {
			p := l.Components[c.ID]
			area += p.Width * ioSlotHeight
			if ioSlotHeight > tallest {
				tallest = ioSlotHeight
			}
		}
	}
	h := int(math.Ceil(math.Sqrt(float64(area))))
	if h < tallest {
		h = tallest
	}
	return h
}

// packGroup stacks the components into columns of at most colHeight,
// returning the x coordinate just past the group. IO groups use the
// fixed slot pitch instead of natural heights.
func packGroup(l *Layout, comps []*netlist.Component, x, colHeight int, ioSlots bool) int {
	if len(comps) == 0 {
		return x
	}
	y := 0
	colWidth := 0
	for _, c := range comps {
		p := l.Components[c.ID]
		step := p.Height + compactGap
		if ioSlots {
			step = ioSlotHeight
		}
		if y > 0 && y+p.Height > colHeight {
			x += colWidth + compactGap
			colWidth = 0
			y = 0
		}
		p.Pos.X = x
		p.Pos.Y = y
		y += step
		if p.Width > colWidth {
			colWidth = p.Width
		}
	}
	return x + colWidth
}

// portCoord resolves a port reference to its absolute grid coordinate
// from the packed placement.
func portCoord(l *Layout, nl *netlist.Netlist, ref netlist.PortRef) grid.Point {
	c, _ := nl.Component(ref.Component)
	p := l.Components[ref.Component]
	return c.PortCoord(p.Pos, ref.Port)
}
