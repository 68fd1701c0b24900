// Package save serializes a placed schematic into the sandbox's binary
// container: a little-endian payload of header, components, and wires,
// Snappy-compressed behind a one-byte format version.
//
// Every field width and offset here is part of the on-disk contract; a
// single byte off renders the output unloadable by the host.
package save

import "github.com/liquidhelium/verilog-target-turing-complete/pkg/grid"

// FormatVersion is the container version byte the host expects.
const FormatVersion = 6

// TeleportMarker is the single-byte wire body of an unrouted wire. The
// value encodes direction SE with run length 0, a combination the run
// encoder never produces, so it is unambiguous in a body stream.
const TeleportMarker = 0x20

// CustomDisplacement is the extra origin offset the host applies to
// hierarchical instances; the writer subtracts it from their stored
// positions.
const CustomDisplacement = 32

// WireKind classifies a wire's bus width.
type WireKind uint8

// Wire kinds in payload order.
const (
	Wk1 WireKind = iota
	Wk8
	Wk16
	Wk32
	Wk64
)

// WireKindFor maps a bus width in bits to its wire kind. Unknown widths
// fall back to Wk1.
func WireKindFor(width int) WireKind {
	switch width {
	case 8:
		return Wk8
	case 16:
		return Wk16
	case 32:
		return Wk32
	case 64:
		return Wk64
	}
	return Wk1
}

// Component is one component record of the payload.
type Component struct {
	Kind        uint16
	Position    grid.Point
	Rotation    uint8
	PermanentID uint64
	Label       string
	Setting1    uint64
	Setting2    uint64
	UIOrder     int16

	// Custom-kind extension.
	CustomID           uint64
	CustomDisplacement grid.Point

	// Program-kind extension, sorted ascending by ID at write time.
	Programs []ProgramRef
}

// ProgramRef selects one program on a programmable component.
type ProgramRef struct {
	ID   uint64
	Name string
}

// Wire is one wire record: a direction-run body from Start, or a
// teleport body with an explicit End.
type Wire struct {
	Kind    WireKind
	Color   uint8
	Comment string
	Start   grid.Point
	// Body is the direction-run stream, terminated by a zero byte, or
	// the single teleport marker byte.
	Body []byte
	// End is present exactly when the last body byte is the teleport
	// marker.
	End *grid.Point
}

// Header carries the payload metadata preceding the component block.
type Header struct {
	SaveID         uint64
	HubID          uint32
	GateCount      uint64
	Delay          uint64
	MenuVisible    bool
	ClockSpeed     uint32
	Dependencies   []uint64
	Description    string
	CameraX        int16
	CameraY        int16
	Synced         uint8
	CampaignBound  bool
	PlayerData     []byte
	HubDescription string
}

// Payload is the full uncompressed save body.
type Payload struct {
	Header     Header
	Components []Component
	Wires      []Wire
}
