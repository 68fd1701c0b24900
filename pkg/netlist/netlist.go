// Package netlist holds the in-memory component graph the lowering pass
// builds and the placement layer consumes: component instances carrying
// metadata, plus nets keyed by bit identifier with one driver and many
// sinks.
//
// Components and nets never hold pointers to each other; every edge is
// indirected through net identifiers, so deleting a component only has to
// sever the identifier references. Insertion order of components is
// load-bearing: the save writer assigns permanent ids as 1-based indices
// in that order.
package netlist

import (
	"fmt"
	"sort"

	"github.com/liquidhelium/verilog-target-turing-complete/pkg/errors"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/grid"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/library"
)

// PortRef identifies one pin of one component instance.
type PortRef struct {
	Component int
	Port      string
}

// Net is a signal shared by one driver and any number of sinks.
type Net struct {
	ID     string
	Source *PortRef
	Sinks  []PortRef
}

// HasDriver reports whether the net has a source bound.
func (n *Net) HasDriver() bool { return n.Source != nil }

// IODir marks whether a module-port component consumes or produces.
type IODir uint8

const (
	IONone IODir = iota
	IOInput
	IOOutput
)

// IOPort describes the module port a component was lowered from.
type IOPort struct {
	Name string
	Bit  int
	Dir  IODir
}

// Component is one instance of a library template in the graph.
type Component struct {
	ID       int
	Template *library.Template

	// Pins maps a template port identifier to the net it is attached to.
	Pins map[string]string

	// Optional metadata.
	Label    string
	IO       *IOPort
	Setting  uint64 // constant value, register init, etc.
	CustomID uint64 // 63-bit child schematic id, Custom instances only

	// Custom instances override the template's port layout and box with
	// the compiled child's exported geometry.
	CustomPorts  []library.Port
	CustomBounds *grid.Rect

	// PortWidths overrides per-port bit widths (Custom instances inherit
	// these from child metadata).
	PortWidths map[string]int
}

// PortLayout returns the instance's effective port list.
func (c *Component) PortLayout() []library.Port {
	if c.CustomPorts != nil {
		return c.CustomPorts
	}
	return c.Template.Ports
}

// Box returns the instance's effective bounding box.
func (c *Component) Box() grid.Rect {
	if c.CustomBounds != nil {
		return *c.CustomBounds
	}
	return c.Template.Bounds
}

// Port resolves a port by identifier from the effective layout.
func (c *Component) Port(id string) (library.Port, bool) {
	for _, p := range c.PortLayout() {
		if p.ID == id {
			return p, true
		}
	}
	return library.Port{}, false
}

// PortCoord computes the absolute grid coordinate of a port for an
// instance placed with its box top-left at pos: the placement position
// plus the port's offset, corrected by the bounding-box origin. Unknown
// ports resolve to pos itself; callers that must distinguish check
// Port first.
func (c *Component) PortCoord(pos grid.Point, portID string) grid.Point {
	p, ok := c.Port(portID)
	if !ok {
		return pos
	}
	box := c.Box()
	return grid.Pt(pos.X+p.Pos.X-box.MinX, pos.Y+p.Pos.Y-box.MinY)
}

// PortWidth returns the bus width of the given port, honoring overrides.
func (c *Component) PortWidth(id string) int {
	if w, ok := c.PortWidths[id]; ok {
		return w
	}
	if p, ok := c.Port(id); ok {
		return p.Width
	}
	return 1
}

// IsInput reports whether the component is a module input pin.
func (c *Component) IsInput() bool { return c.IO != nil && c.IO.Dir == IOInput }

// IsOutput reports whether the component is a module output pin.
func (c *Component) IsOutput() bool { return c.IO != nil && c.IO.Dir == IOOutput }

// Netlist is the ordered component list plus the net table.
type Netlist struct {
	comps  []*Component
	byID   map[int]*Component
	nets   map[string]*Net
	nextID int
}

// New creates an empty netlist.
func New() *Netlist {
	return &Netlist{
		byID: make(map[int]*Component),
		nets: make(map[string]*Net),
	}
}

// Add instantiates a template and appends it to the component order.
func (nl *Netlist) Add(tpl *library.Template) *Component {
	nl.nextID++
	c := &Component{
		ID:       nl.nextID,
		Template: tpl,
		Pins:     make(map[string]string),
	}
	nl.comps = append(nl.comps, c)
	nl.byID[c.ID] = c
	return c
}

// Component resolves a component by its identifier.
func (nl *Netlist) Component(id int) (*Component, bool) {
	c, ok := nl.byID[id]
	return c, ok
}

// Components returns the live components in insertion order.
func (nl *Netlist) Components() []*Component { return nl.comps }

// Len returns the number of live components.
func (nl *Netlist) Len() int { return len(nl.comps) }

// Net returns the net with the given id, creating it lazily.
func (nl *Netlist) Net(id string) *Net {
	n, ok := nl.nets[id]
	if !ok {
		n = &Net{ID: id}
		nl.nets[id] = n
	}
	return n
}

// PeekNet returns the net with the given id without creating it.
func (nl *Netlist) PeekNet(id string) (*Net, bool) {
	n, ok := nl.nets[id]
	return n, ok
}

// Nets returns the net table. Callers must not add or remove entries.
func (nl *Netlist) Nets() map[string]*Net { return nl.nets }

// DeleteNet removes a net from the table entirely.
func (nl *Netlist) DeleteNet(id string) { delete(nl.nets, id) }

// BindSource assigns c's port as the unique driver of the net.
// It fails when the net already has a different driver.
func (nl *Netlist) BindSource(c *Component, port, netID string) error {
	n := nl.Net(netID)
	ref := PortRef{Component: c.ID, Port: port}
	if n.Source != nil {
		if *n.Source == ref {
			return nil
		}
		return errors.New(errors.ErrCodeDriverConflict,
			"net %s already driven by component %d port %s", netID, n.Source.Component, n.Source.Port)
	}
	n.Source = &ref
	c.Pins[port] = netID
	return nil
}

// BindSink appends c's port to the net's sinks.
func (nl *Netlist) BindSink(c *Component, port, netID string) {
	n := nl.Net(netID)
	n.Sinks = append(n.Sinks, PortRef{Component: c.ID, Port: port})
	c.Pins[port] = netID
}

// Alias merges two net ids into one net. Both ids resolve to the merged
// net afterwards. At most one of the nets may have a driver; the merged
// net keeps it.
func (nl *Netlist) Alias(a, b string) error {
	na, nb := nl.Net(a), nl.Net(b)
	if na == nb {
		return nil
	}
	if na.Source != nil && nb.Source != nil {
		return errors.New(errors.ErrCodeDriverConflict,
			"cannot alias nets %s and %s: both driven", na.ID, nb.ID)
	}
	dst, src := na, nb
	if nb.Source != nil {
		dst, src = nb, na
	}
	dst.Sinks = append(dst.Sinks, src.Sinks...)
	for id, n := range nl.nets {
		if n == src {
			nl.nets[id] = dst
		}
	}
	return nil
}

// RewireSinks moves every sink of one net onto another, updating the
// affected components' pin references.
func (nl *Netlist) RewireSinks(from, to string) {
	nf, nt := nl.Net(from), nl.Net(to)
	if nf == nt {
		return
	}
	for _, s := range nf.Sinks {
		if c, ok := nl.byID[s.Component]; ok {
			c.Pins[s.Port] = nt.ID
		}
		nt.Sinks = append(nt.Sinks, s)
	}
	nf.Sinks = nil
}

// UniqueNets returns the distinct nets sorted by canonical id. Aliasing
// can leave several table keys pointing at one net; serialization and
// layout iterate this list instead of the raw table.
func (nl *Netlist) UniqueNets() []*Net {
	seen := make(map[*Net]bool, len(nl.nets))
	out := make([]*Net, 0, len(nl.nets))
	for _, n := range nl.nets {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Remove deletes a component and severs all of its net references.
func (nl *Netlist) Remove(c *Component) {
	for port, netID := range c.Pins {
		n, ok := nl.nets[netID]
		if !ok {
			continue
		}
		ref := PortRef{Component: c.ID, Port: port}
		if n.Source != nil && *n.Source == ref {
			n.Source = nil
		}
		kept := n.Sinks[:0]
		for _, s := range n.Sinks {
			if s != ref {
				kept = append(kept, s)
			}
		}
		n.Sinks = kept
	}
	delete(nl.byID, c.ID)
	for i, cc := range nl.comps {
		if cc == c {
			nl.comps = append(nl.comps[:i], nl.comps[i+1:]...)
			break
		}
	}
}

// Validate checks the final-netlist invariants: every net with a sink has
// exactly one driver, and every port reference points at a live component.
func (nl *Netlist) Validate() error {
	for id, n := range nl.nets {
		if len(n.Sinks) > 0 && n.Source == nil {
			return errors.New(errors.ErrCodeMissingDriver, "net %s has %d sinks but no driver", id, len(n.Sinks))
		}
		if n.Source != nil {
			if _, ok := nl.byID[n.Source.Component]; !ok {
				return errors.New(errors.ErrCodeInvariant, "net %s driven by dead component %d", id, n.Source.Component)
			}
		}
		for _, s := range n.Sinks {
			if _, ok := nl.byID[s.Component]; !ok {
				return errors.New(errors.ErrCodeInvariant, "net %s sinks into dead component %d", id, s.Component)
			}
		}
	}
	for _, c := range nl.comps {
		for port, netID := range c.Pins {
			if _, ok := nl.nets[netID]; !ok {
				return errors.New(errors.ErrCodeInvariant,
					"component %d port %s references missing net %s", c.ID, port, netID)
			}
		}
	}
	return nil
}

// String summarizes the graph for debug logging.
func (nl *Netlist) String() string {
	return fmt.Sprintf("netlist{components: %d, nets: %d}", len(nl.comps), len(nl.nets))
}
