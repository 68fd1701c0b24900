// Package lower translates a synthesized module into the component
// netlist: module ports become IO components, cells become gate, register,
// arithmetic, and comparison sub-circuits, and bus traffic is packed and
// unpacked through maker and splitter components.
//
// The pass runs in three phases: bit normalization and IO lowering, cell
// lowering in deterministic (sorted) cell order, and the optimization
// sweep (constant folding, redundant splitter/maker merging, dead pin
// cleanup). Component insertion order is preserved end to end because the
// save writer derives permanent ids from it.
package lower

import (
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/liquidhelium/verilog-target-turing-complete/pkg/errors"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/library"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/netlist"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/yosys"
)

// Options configures one lowering run.
type Options struct {
	// CustomIDs maps submodule names to their stable 63-bit identifiers.
	CustomIDs map[string]uint64
	// CustomMeta maps submodule names to their compiled metadata.
	CustomMeta map[string]*library.CustomMeta
	// Logger receives structured progress. Nil discards.
	Logger *log.Logger
}

// Lower runs the full pass over one synthesized module.
func Lower(mod *yosys.Module, opts Options) (*netlist.Netlist, error) {
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	l := &lowerer{
		nl:        netlist.New(),
		mod:       mod,
		opts:      opts,
		constBit:  make(map[string]bool),
		constWide: make(map[string]uint64),
	}
	if err := l.lowerPorts(); err != nil {
		return nil, err
	}
	if err := l.lowerCells(); err != nil {
		return nil, err
	}
	l.optimize()
	if err := l.nl.Validate(); err != nil {
		return nil, err
	}
	opts.Logger.Debug("lowered module",
		"components", l.nl.Len(),
		"nets", len(l.nl.Nets()))
	return l.nl, nil
}

// lowerer carries the pass state.
type lowerer struct {
	nl   *netlist.Netlist
	mod  *yosys.Module
	opts Options

	fresh int // counter for minted net ids

	// constBit records single-bit constant nets and their value. The
	// driver component is created lazily on first use as an input.
	constBit map[string]bool

	// constWide records the value of nets driven by per-width constant
	// components, for the zero-folding pass.
	constWide map[string]uint64

	// zeroNets collects canonical ids of nets known to carry zero,
	// populated by the folding passes.
	zeroNets map[string]bool
}

// netOf maps a synthesizer bit reference to an internal net id. Literal
// bits mint a fresh constant net each time; sharing constants would break
// the driver-uniqueness invariant later.
func (l *lowerer) netOf(b yosys.BitRef) string {
	if b.IsLiteral() {
		id := l.mintNet()
		l.constBit[id] = b.IsOne()
		return id
	}
	return fmt.Sprintf("n%d", b.Net)
}

// mintNet returns a fresh internal net id.
func (l *lowerer) mintNet() string {
	l.fresh++
	return fmt.Sprintf("$w%d", l.fresh)
}

// mintZero mints a fresh constant-0 bit net.
func (l *lowerer) mintZero() string {
	id := l.mintNet()
	l.constBit[id] = false
	return id
}

// mintConst mints a fresh constant bit net with the given value.
func (l *lowerer) mintConst(one bool) string {
	id := l.mintNet()
	l.constBit[id] = one
	return id
}

// sink attaches a component input to a net, materializing a constant
// driver first when the net is a constant bit without one.
func (l *lowerer) sink(c *netlist.Component, port, netID string) error {
	if err := l.ensureDriven(netID); err != nil {
		return err
	}
	l.nl.BindSink(c, port, netID)
	return nil
}

// ensureDriven creates the Off/On driver for a constant bit net that is
// about to be consumed. Already-driven nets are left alone.
func (l *lowerer) ensureDriven(netID string) error {
	one, isConst := l.constBit[netID]
	if !isConst {
		return nil
	}
	if n, ok := l.nl.PeekNet(netID); ok && n.HasDriver() {
		return nil
	}
	id := library.TemplateOff
	if one {
		id = library.TemplateOn
	}
	c := l.nl.Add(library.MustLookup(id))
	if one {
		c.Setting = 1
	}
	return l.nl.BindSource(c, "out", netID)
}

// loweredSize maps a bit count to the library width that accommodates it.
func loweredSize(n int) (int, error) {
	switch {
	case n <= 0:
		return 0, errors.New(errors.ErrCodeInvalidWidth, "empty bit list")
	case n == 1:
		return 1, nil
	case n <= 8:
		return 8, nil
	case n <= 16:
		return 16, nil
	case n <= 32:
		return 32, nil
	case n <= 64:
		return 64, nil
	}
	return 0, errors.New(errors.ErrCodeInvalidWidth, "width %d exceeds 64 bits", n)
}

// lowerPorts turns module ports into IO components. Ports are processed
// in name order so component numbering is deterministic.
func (l *lowerer) lowerPorts() error {
	names := make([]string, 0, len(l.mod.Ports))
	for name := range l.mod.Ports {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		port := l.mod.Ports[name]
		bits := make([]string, len(port.Bits))
		for i, b := range port.Bits {
			bits[i] = l.netOf(b)
		}
		size, err := loweredSize(len(bits))
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidWidth, err, "port %s", name)
		}

		switch port.Direction {
		case "input":
			tpl, err := library.For(library.BaseInput, size)
			if err != nil {
				return errors.Wrap(errors.ErrCodeInvalidWidth, err, "port %s", name)
			}
			c := l.nl.Add(tpl)
			c.Label = name
			c.IO = &netlist.IOPort{Name: name, Dir: netlist.IOInput}
			if size == 1 {
				if err := l.nl.BindSource(c, "out", bits[0]); err != nil {
					return err
				}
				continue
			}
			bus := l.mintNet()
			if err := l.nl.BindSource(c, "out", bus); err != nil {
				return err
			}
			if err := l.unpackInto(bus, bits, size); err != nil {
				return err
			}

		case "output":
			tpl, err := library.For(library.BaseOutput, size)
			if err != nil {
				return errors.Wrap(errors.ErrCodeInvalidWidth, err, "port %s", name)
			}
			c := l.nl.Add(tpl)
			c.Label = name
			c.IO = &netlist.IOPort{Name: name, Dir: netlist.IOOutput}
			bus, err := l.pack(bits, size)
			if err != nil {
				return err
			}
			if err := l.sink(c, "in", bus); err != nil {
				return err
			}

		default:
			return errors.New(errors.ErrCodeInvalidModule, "port %s has direction %q", name, port.Direction)
		}
	}
	return nil
}

// lowerCells dispatches every cell through the lowering table, in name
// order for determinism.
func (l *lowerer) lowerCells() error {
	names := make([]string, 0, len(l.mod.Cells))
	for name := range l.mod.Cells {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cell := l.mod.Cells[name]
		if err := l.lowerCell(name, cell); err != nil {
			return err
		}
	}
	return nil
}

// conn resolves a cell connection to internal net ids.
func (l *lowerer) conn(cell *yosys.Cell, port string) ([]string, error) {
	bits, err := cell.Conn(port)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPort, err, "resolve connection")
	}
	out := make([]string, len(bits))
	for i, b := range bits {
		out[i] = l.netOf(b)
	}
	return out, nil
}

// driveBits connects a lowered result net to the cell's target bits:
// single-bit results are forwarded by net aliasing, wider ones unpack
// through a splitter tree.
func (l *lowerer) driveBits(result string, bits []string, size int) error {
	if size == 1 {
		return l.aliasNets(bits[0], result)
	}
	return l.unpackInto(result, bits, size)
}

// aliasNets merges two net ids and propagates constant knowledge to the
// surviving key.
func (l *lowerer) aliasNets(target, src string) error {
	if target == src {
		return nil
	}
	if err := l.nl.Alias(target, src); err != nil {
		return err
	}
	if one, ok := l.constBit[src]; ok {
		l.constBit[target] = one
	} else if one, ok := l.constBit[target]; ok {
		l.constBit[src] = one
	}
	if v, ok := l.constWide[src]; ok {
		l.constWide[target] = v
	}
	// A constant that was aliased onto an already-consumed net still
	// needs its driver materialized.
	if n, ok := l.nl.PeekNet(target); ok && len(n.Sinks) > 0 && !n.HasDriver() {
		if _, isConst := l.constBit[target]; isConst {
			return l.ensureDriven(target)
		}
	}
	return nil
}
