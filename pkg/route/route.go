// Package route turns routed polylines into wire records: it computes
// exact port coordinates from placements, densifies polylines into unit
// moves, run-length encodes them as direction bytes, and classifies each
// wire's width to a discrete wire kind.
package route

import (
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/errors"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/grid"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/layout"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/netlist"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/save"
)

// maxRun is the largest run length one body byte can carry.
const maxRun = 31

// Options configures wire record generation.
type Options struct {
	// Color is written into every wire record.
	Color uint8
}

// Wires produces the payload wire list from the placed layout. Polyline
// endpoints are forced onto the exact port coordinates before encoding,
// eliminating any drift introduced by grid snapping.
func Wires(nl *netlist.Netlist, l *layout.Layout, opts Options) ([]save.Wire, error) {
	var out []save.Wire
	for _, e := range l.Edges {
		src, ok := nl.Component(e.From.Component)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvariant, "wire source component %d missing", e.From.Component)
		}
		dst, ok := nl.Component(e.To.Component)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvariant, "wire sink component %d missing", e.To.Component)
		}
		if _, ok := src.Port(e.From.Port); !ok {
			return nil, errors.New(errors.ErrCodeUnknownTarget, "component %d has no port %s", src.ID, e.From.Port)
		}
		if _, ok := dst.Port(e.To.Port); !ok {
			return nil, errors.New(errors.ErrCodeUnknownTarget, "component %d has no port %s", dst.ID, e.To.Port)
		}

		from := src.PortCoord(l.Components[src.ID].Pos, e.From.Port)
		to := dst.PortCoord(l.Components[dst.ID].Pos, e.To.Port)
		kind := save.WireKindFor(wireWidth(src, e.From.Port))

		if e.Teleport {
			end := to
			out = append(out, save.Wire{
				Kind:  kind,
				Color: opts.Color,
				Start: from,
				Body:  []byte{save.TeleportMarker},
				End:   &end,
			})
			continue
		}

		points := append([]grid.Point(nil), e.Points...)
		points[0] = from
		points[len(points)-1] = to
		body, err := EncodeBody(points)
		if err != nil {
			return nil, err
		}
		out = append(out, save.Wire{
			Kind:  kind,
			Color: opts.Color,
			Start: from,
			Body:  body,
		})
	}
	return out, nil
}

// wireWidth derives the bus width of the driving port. Splitter per-bit
// outputs are single wires; per-port overrides on custom instances win
// over template widths.
func wireWidth(c *netlist.Component, portID string) int {
	return c.PortWidth(portID)
}

// Densify expands a polyline into unit moves: diagonal segments break at
// the horizontally-aligned midpoint, then every segment becomes a run of
// single-cell steps.
func Densify(points []grid.Point) []grid.Point {
	if len(points) == 0 {
		return nil
	}
	dense := []grid.Point{points[0]}
	for i := 1; i < len(points); i++ {
		a := dense[len(dense)-1]
		b := points[i]
		if a.X != b.X && a.Y != b.Y {
			mid := grid.Pt(b.X, a.Y)
			dense = appendUnitSteps(dense, mid)
			dense = appendUnitSteps(dense, b)
			continue
		}
		dense = appendUnitSteps(dense, b)
	}
	return dense
}

// appendUnitSteps walks from the last dense point to b one cell at a time.
func appendUnitSteps(dense []grid.Point, b grid.Point) []grid.Point {
	a := dense[len(dense)-1]
	dx := sign(b.X - a.X)
	dy := sign(b.Y - a.Y)
	for a != b {
		a = grid.Pt(a.X+dx, a.Y+dy)
		dense = append(dense, a)
	}
	return dense
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// EncodeBody run-length encodes a polyline as direction bytes: the high
// three bits carry the compass direction, the low five the run length
// (1..31), terminated by a single zero byte.
func EncodeBody(points []grid.Point) ([]byte, error) {
	dense := Densify(points)
	var body []byte

	var runDir grid.Direction
	runLen := 0
	flush := func() {
		for runLen > 0 {
			n := min(runLen, maxRun)
			body = append(body, byte(runDir)<<5|byte(n))
			runLen -= n
		}
	}

	for i := 1; i < len(dense); i++ {
		dir, ok := grid.DirectionOf(dense[i-1], dense[i])
		if !ok {
			return nil, errors.New(errors.ErrCodeInvariant,
				"non-unit move %v -> %v in dense polyline", dense[i-1], dense[i])
		}
		if runLen > 0 && dir == runDir {
			runLen++
			continue
		}
		flush()
		runDir = dir
		runLen = 1
	}
	flush()

	return append(body, 0), nil
}

// DecodeBody expands a run-length body back into the dense unit-move
// polyline starting at start. The inverse of EncodeBody; used by tests
// and debug tooling.
func DecodeBody(start grid.Point, body []byte) ([]grid.Point, error) {
	dense := []grid.Point{start}
	pos := start
	for i, b := range body {
		if b == 0 {
			if i != len(body)-1 {
				return nil, errors.New(errors.ErrCodeInvariant, "terminator mid-body at byte %d", i)
			}
			return dense, nil
		}
		dir := grid.Direction(b >> 5)
		n := int(b & 0x1f)
		if n == 0 {
			return nil, errors.New(errors.ErrCodeInvariant, "zero-length run byte %#x", b)
		}
		d := dir.Delta()
		for ; n > 0; n-- {
			pos = pos.Add(d)
			dense = append(dense, pos)
		}
	}
	return nil, errors.New(errors.ErrCodeInvariant, "body missing terminator")
}
