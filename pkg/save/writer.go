package save

import (
	"bytes"
	"encoding/binary"
	"math"
	"sort"

	"github.com/liquidhelium/verilog-target-turing-complete/pkg/errors"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/grid"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/library"
)

// writer accumulates the little-endian payload in memory. Nothing is
// emitted until every byte is computed, so a failed encode leaves no
// partial output.
type writer struct {
	buf bytes.Buffer
	err error
}

func (w *writer) u8(v uint8) {
	if w.err != nil {
		return
	}
	w.buf.WriteByte(v)
}

func (w *writer) flag(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

func (w *writer) u16(v uint16) {
	if w.err != nil {
		return
	}
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) u32(v uint32) {
	if w.err != nil {
		return
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) u64(v uint64) {
	if w.err != nil {
		return
	}
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) i16(v int) {
	if w.err != nil {
		return
	}
	if v < math.MinInt16 || v > math.MaxInt16 {
		w.err = errors.New(errors.ErrCodeEncodingOverflow, "value %d outside int16 range", v)
		return
	}
	w.u16(uint16(int16(v)))
}

// point writes a grid point as two signed 16-bit coordinates.
func (w *writer) point(p grid.Point) {
	w.i16(p.X)
	w.i16(p.Y)
}

// str writes a 16-bit length-prefixed UTF-8 string.
func (w *writer) str(s string) {
	if w.err != nil {
		return
	}
	if len(s) > math.MaxUint16 {
		w.err = errors.New(errors.ErrCodeEncodingOverflow, "string of %d bytes exceeds 65535", len(s))
		return
	}
	w.u16(uint16(len(s)))
	w.buf.WriteString(s)
}

func (w *writer) raw(b []byte) {
	if w.err != nil {
		return
	}
	w.buf.Write(b)
}

// EncodePayload produces the uncompressed payload bytes.
func EncodePayload(p *Payload) ([]byte, error) {
	w := &writer{}

	h := &p.Header
	w.u64(h.SaveID)
	w.u32(h.HubID)
	w.u64(h.GateCount)
	w.u64(h.Delay)
	w.flag(h.MenuVisible)
	w.u32(h.ClockSpeed)

	if len(h.Dependencies) > math.MaxUint16 {
		return nil, errors.New(errors.ErrCodeEncodingOverflow, "%d dependencies exceed 65535", len(h.Dependencies))
	}
	w.u16(uint16(len(h.Dependencies)))
	for _, dep := range h.Dependencies {
		w.u64(dep)
	}

	w.str(h.Description)
	w.i16(int(h.CameraX))
	w.i16(int(h.CameraY))
	w.u8(h.Synced)
	w.flag(h.CampaignBound)
	w.u16(0) // reserved

	if len(h.PlayerData) > math.MaxUint16 {
		return nil, errors.New(errors.ErrCodeEncodingOverflow, "player data of %d bytes exceeds 65535", len(h.PlayerData))
	}
	w.u16(uint16(len(h.PlayerData)))
	w.raw(h.PlayerData)
	w.str(h.HubDescription)

	w.u64(uint64(len(p.Components)))
	for i := range p.Components {
		writeComponent(w, &p.Components[i])
	}

	w.u64(uint64(len(p.Wires)))
	for i := range p.Wires {
		writeWire(w, &p.Wires[i])
	}

	if w.err != nil {
		return nil, w.err
	}
	return w.buf.Bytes(), nil
}

func writeComponent(w *writer, c *Component) {
	w.u16(c.Kind)
	w.point(c.Position)
	w.u8(c.Rotation)
	w.u64(c.PermanentID)
	w.str(c.Label)
	w.u64(c.Setting1)
	w.u64(c.Setting2)
	w.i16(int(c.UIOrder))

	kind := library.Kind(c.Kind)
	if kind.IsCustom() {
		w.u64(c.CustomID)
		w.point(c.CustomDisplacement)
	}
	if kind.IsProgram() {
		progs := append([]ProgramRef(nil), c.Programs...)
		sort.Slice(progs, func(i, j int) bool { return progs[i].ID < progs[j].ID })
		if len(progs) > math.MaxUint16 {
			w.err = errors.New(errors.ErrCodeEncodingOverflow, "%d programs exceed 65535", len(progs))
			return
		}
		w.u16(uint16(len(progs)))
		for _, pr := range progs {
			w.u64(pr.ID)
			w.str(pr.Name)
		}
	}
}

func writeWire(w *writer, wire *Wire) {
	if w.err != nil {
		return
	}
	if len(wire.Body) == 0 {
		w.err = errors.New(errors.ErrCodeInvariant, "wire with empty body")
		return
	}
	last := wire.Body[len(wire.Body)-1]
	if last != 0 && last != TeleportMarker {
		w.err = errors.New(errors.ErrCodeInvariant, "wire body ends in %#x, want terminator or teleport marker", last)
		return
	}
	if last == TeleportMarker && wire.End == nil {
		w.err = errors.New(errors.ErrCodeInvariant, "teleport wire without end point")
		return
	}

	w.u8(uint8(wire.Kind))
	w.u8(wire.Color)
	w.str(wire.Comment)
	w.point(wire.Start)
	w.raw(wire.Body)
	if last == TeleportMarker {
		w.point(*wire.End)
	}
}
