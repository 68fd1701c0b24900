package yosys

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Design is the decoded synthesizer output: the module dictionary of a
// write_json dump. Only ports and cells are consumed; everything else in
// the dump is ignored.
type Design struct {
	Modules map[string]*Module `json:"modules"`
}

// Module returns the named module, or an error listing what is present.
func (d *Design) Module(name string) (*Module, error) {
	m, ok := d.Modules[name]
	if !ok {
		names := make([]string, 0, len(d.Modules))
		for n := range d.Modules {
			names = append(names, n)
		}
		return nil, fmt.Errorf("module %q not in synthesis output (have %s)", name, strings.Join(names, ", "))
	}
	return m, nil
}

// Module is one synthesized module: ports and cells.
type Module struct {
	Ports map[string]Port  `json:"ports"`
	Cells map[string]*Cell `json:"cells"`
}

// Port is a module-level port with a direction and its bit list.
type Port struct {
	Direction string   `json:"direction"` // "input" or "output"
	Bits      []BitRef `json:"bits"`
}

// Cell is a synthesized cell: a type string, parameters, and the
// connection dictionary from cell port name to bit list.
type Cell struct {
	Type        string              `json:"type"`
	Parameters  map[string]Param    `json:"parameters"`
	Connections map[string][]BitRef `json:"connections"`
}

// Conn returns the bit list connected to the named cell port.
func (c *Cell) Conn(port string) ([]BitRef, error) {
	bits, ok := c.Connections[port]
	if !ok {
		return nil, fmt.Errorf("cell %s missing connection %q", c.Type, port)
	}
	return bits, nil
}

// ParamInt returns the named parameter as an integer, or def when absent.
func (c *Cell) ParamInt(name string, def int64) int64 {
	p, ok := c.Parameters[name]
	if !ok {
		return def
	}
	return p.Int(def)
}

// BitRef is one bit reference in a connection or port: either a numeric
// net id or one of the literal strings "0", "1", "x", "z".
type BitRef struct {
	Net     int
	Literal string // set for constant bits; Net is meaningless then
}

// IsLiteral reports whether the bit is a constant literal.
func (b BitRef) IsLiteral() bool { return b.Literal != "" }

// IsOne reports whether the bit is the literal "1". Every other literal
// ("0", "x", "z") lowers to constant zero.
func (b BitRef) IsOne() bool { return b.Literal == "1" }

// UnmarshalJSON accepts either a JSON number or a literal string.
func (b *BitRef) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		switch s {
		case "0", "1", "x", "z":
			b.Literal = s
			return nil
		}
		return fmt.Errorf("invalid bit literal %q", s)
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid bit reference: %w", err)
	}
	b.Net = n
	return nil
}

// MarshalJSON is the inverse of UnmarshalJSON, used by tests and the
// synthesis cache.
func (b BitRef) MarshalJSON() ([]byte, error) {
	if b.IsLiteral() {
		return json.Marshal(b.Literal)
	}
	return json.Marshal(b.Net)
}

// Param is a cell parameter. Yosys writes parameters either as JSON
// numbers or as binary bit strings ("00000110").
type Param struct {
	raw json.RawMessage
}

// UnmarshalJSON retains the raw value for lazy interpretation.
func (p *Param) UnmarshalJSON(data []byte) error {
	p.raw = append(p.raw[:0], data...)
	return nil
}

// MarshalJSON round-trips the raw value.
func (p Param) MarshalJSON() ([]byte, error) {
	if p.raw == nil {
		return []byte("null"), nil
	}
	return p.raw, nil
}

// Int interprets the parameter as an integer. Binary bit strings parse
// most-significant-bit first, with "x"/"z" bits treated as zero.
func (p Param) Int(def int64) int64 {
	if p.raw == nil {
		return def
	}
	var n int64
	if err := json.Unmarshal(p.raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(p.raw, &s); err != nil {
		return def
	}
	var v int64
	for _, c := range s {
		v <<= 1
		if c == '1' {
			v |= 1
		}
	}
	return v
}

// Bits interprets the parameter as a bit string, least significant bit
// first (matching the order of connection bit lists). Numeric parameters
// are expanded to width bits.
func (p Param) Bits(width int) []bool {
	out := make([]bool, width)
	if p.raw == nil {
		return out
	}
	var s string
	if err := json.Unmarshal(p.raw, &s); err == nil {
		// String form is MSB first.
		for i := 0; i < width && i < len(s); i++ {
			out[i] = s[len(s)-1-i] == '1'
		}
		return out
	}
	var n int64
	if err := json.Unmarshal(p.raw, &n); err == nil {
		for i := 0; i < width; i++ {
			out[i] = (n>>uint(i))&1 == 1
		}
	}
	return out
}

// ParamFromInt builds a numeric parameter, used by tests constructing
// synthetic cells.
func ParamFromInt(v int64) Param {
	return Param{raw: json.RawMessage(strconv.FormatInt(v, 10))}
}

// ParamFromString builds a bit-string parameter.
func ParamFromString(s string) Param {
	data, _ := json.Marshal(s)
	return Param{raw: data}
}
