// Package grid provides the integer grid geometry shared by the whole
// compiler: points, rectangles, and compass directions.
//
// The coordinate convention matches the target sandbox: positive x grows
// right, positive y grows down. All placement, routing, and serialization
// happens on this grid.
package grid

import "fmt"

// Point is an integer grid coordinate.
type Point struct {
	X int
	Y int
}

// Pt is shorthand for Point{x, y}.
func Pt(x, y int) Point { return Point{X: x, Y: y} }

// Add returns p translated by q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns p translated by the negation of q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// String implements fmt.Stringer.
func (p Point) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

// Rect is an inclusive integer bounding box.
type Rect struct {
	MinX, MinY int
	MaxX, MaxY int
}

// Width returns the number of grid cells spanned horizontally.
func (r Rect) Width() int { return r.MaxX - r.MinX + 1 }

// Height returns the number of grid cells spanned vertically.
func (r Rect) Height() int { return r.MaxY - r.MinY + 1 }

// Min returns the top-left corner.
func (r Rect) Min() Point { return Point{r.MinX, r.MinY} }

// Contains reports whether p lies inside r.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.MinX && p.X <= r.MaxX && p.Y >= r.MinY && p.Y <= r.MaxY
}

// Union returns the smallest rectangle covering both r and s.
func (r Rect) Union(s Rect) Rect {
	return Rect{
		MinX: min(r.MinX, s.MinX),
		MinY: min(r.MinY, s.MinY),
		MaxX: max(r.MaxX, s.MaxX),
		MaxY: max(r.MaxY, s.MaxY),
	}
}

// Extend grows r to cover p.
func (r Rect) Extend(p Point) Rect {
	return Rect{
		MinX: min(r.MinX, p.X),
		MinY: min(r.MinY, p.Y),
		MaxX: max(r.MaxX, p.X),
		MaxY: max(r.MaxY, p.Y),
	}
}

// RectAround returns a degenerate rectangle covering only p,
// suitable as a seed for Extend/Union folds.
func RectAround(p Point) Rect {
	return Rect{MinX: p.X, MinY: p.Y, MaxX: p.X, MaxY: p.Y}
}

// Direction is a compass direction index as used by the wire body
// encoding: the cardinal and ordinal directions in clockwise order
// starting east.
type Direction uint8

// Compass directions. The numeric values are part of the save format:
// each wire body byte stores the direction in its top three bits.
const (
	East Direction = iota
	SouthEast
	South
	SouthWest
	West
	NorthWest
	North
	NorthEast
)

// deltas maps a Direction to its unit step.
var deltas = [8]Point{
	{1, 0},   // East
	{1, 1},   // SouthEast
	{0, 1},   // South
	{-1, 1},  // SouthWest
	{-1, 0},  // West
	{-1, -1}, // NorthWest
	{0, -1},  // North
	{1, -1},  // NorthEast
}

// Delta returns the unit step for d.
func (d Direction) Delta() Point { return deltas[d] }

// DirectionOf returns the compass direction of the unit step from a to b,
// and false when the step is not one of the eight unit moves.
func DirectionOf(a, b Point) (Direction, bool) {
	step := b.Sub(a)
	for d, delta := range deltas {
		if step == delta {
			return Direction(d), true
		}
	}
	return 0, false
}

func (d Direction) String() string {
	names := [8]string{"E", "SE", "S", "SW", "W", "NW", "N", "NE"}
	if int(d) < len(names) {
		return names[d]
	}
	return fmt.Sprintf("Direction(%d)", uint8(d))
}
