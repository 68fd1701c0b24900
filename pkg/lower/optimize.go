package lower

import (
	"fmt"

	"github.com/liquidhelium/verilog-target-turing-complete/pkg/library"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/netlist"
)

// optimize runs the post-lowering sweep: zero-constant folding (twice,
// the second pass catches gates exposed by the first), the redundant
// splitter/maker merge, dead pin cleanup, and finally the repair pass
// that re-materializes constant drivers for zero nets that survived with
// sinks attached.
func (l *lowerer) optimize() {
	l.zeroNets = make(map[string]bool)
	l.foldZero()
	l.foldZero()
	l.mergeSplitterMaker()
	l.cleanup()
	l.repairZeroNets()
	l.dropEmptyNets()
}

// canon resolves a net id to its canonical id after aliasing.
func (l *lowerer) canon(id string) string {
	if n, ok := l.nl.PeekNet(id); ok {
		return n.ID
	}
	return id
}

// foldZero removes components whose output is known zero and the 1-bit
// AND gates they feed, cascading until a fixed point.
func (l *lowerer) foldZero() {
	// Seed with constant-zero drivers and unmaterialized zero literals.
	for id, one := range l.constBit {
		if !one {
			l.zeroNets[l.canon(id)] = true
		}
	}
	for _, c := range snapshot(l.nl) {
		out, ok := c.Pins["out"]
		if !ok {
			continue
		}
		zero := false
		switch {
		case c.Template.Kind == library.KindOff:
			zero = true
		case isWideConst(c.Template.Kind) && c.Setting == 0:
			zero = true
		}
		if zero {
			l.zeroNets[l.canon(out)] = true
			l.nl.Remove(c)
		}
	}

	for changed := true; changed; {
		changed = false
		for _, c := range snapshot(l.nl) {
			if c.Template.ID != "AND_1" {
				continue
			}
			a := l.canon(c.Pins["a"])
			b := l.canon(c.Pins["b"])
			if !l.zeroNets[a] && !l.zeroNets[b] {
				continue
			}
			if out, ok := c.Pins["out"]; ok {
				l.zeroNets[l.canon(out)] = true
			}
			l.nl.Remove(c)
			changed = true
		}
	}
}

// mergeSplitterMaker erases maker-immediately-after-splitter round trips:
// when a maker's pins consume, in order, the full output of one splitter,
// the maker's downstream sinks rewire to the splitter's input net.
func (l *lowerer) mergeSplitterMaker() {
	for _, maker := range snapshot(l.nl) {
		if !isMaker(maker.Template.Kind) {
			continue
		}
		splitter := l.matchedSplitter(maker)
		if splitter == nil {
			continue
		}
		busIn, ok1 := splitter.Pins["in"]
		makerOut, ok2 := maker.Pins["out"]
		if !ok1 || !ok2 {
			continue
		}
		l.nl.Remove(maker)
		l.nl.RewireSinks(makerOut, busIn)
	}
}

// matchedSplitter returns the splitter whose outputs feed the maker's
// pins in order, or nil when the pattern does not hold.
func (l *lowerer) matchedSplitter(maker *netlist.Component) *netlist.Component {
	ins := maker.Template.Inputs()
	var splitter *netlist.Component
	for i, pin := range ins {
		netID, ok := maker.Pins[pin.ID]
		if !ok {
			return nil
		}
		n, ok := l.nl.PeekNet(netID)
		if !ok || n.Source == nil {
			return nil
		}
		c, ok := l.nl.Component(n.Source.Component)
		if !ok {
			return nil
		}
		if splitter == nil {
			if !isSplitter(c.Template.Kind) {
				return nil
			}
			splitter = c
		} else if c != splitter {
			return nil
		}
		if n.Source.Port != fmt.Sprintf("out%d", i) {
			return nil
		}
	}
	if splitter == nil || len(ins) != len(splitter.Template.Outputs()) {
		return nil
	}
	makerOut, _ := maker.Template.Port("out")
	splitterIn, _ := splitter.Template.Port("in")
	if makerOut.Width != splitterIn.Width {
		return nil
	}
	return splitter
}

// cleanup iteratively deletes splitters, makers, and constant drivers
// whose outputs feed nothing.
func (l *lowerer) cleanup() {
	for changed := true; changed; {
		changed = false
		for _, c := range snapshot(l.nl) {
			k := c.Template.Kind
			if !isSplitter(k) && !isMaker(k) && !isConstKind(k) {
				continue
			}
			if l.hasLiveOutput(c) {
				continue
			}
			l.nl.Remove(c)
			changed = true
		}
	}
}

// hasLiveOutput reports whether any bound output net of c has sinks.
func (l *lowerer) hasLiveOutput(c *netlist.Component) bool {
	for _, p := range c.Template.Outputs() {
		netID, ok := c.Pins[p.ID]
		if !ok {
			continue
		}
		if n, ok := l.nl.PeekNet(netID); ok && len(n.Sinks) > 0 {
			return true
		}
	}
	return false
}

// repairZeroNets gives every surviving zero net with sinks a fresh
// constant driver sized to its first sink.
func (l *lowerer) repairZeroNets() {
	for _, n := range l.nl.UniqueNets() {
		if n.Source != nil || len(n.Sinks) == 0 {
			continue
		}
		if !l.zeroNets[n.ID] {
			if one, ok := l.constBit[n.ID]; !ok || !one {
				continue
			}
			// Constant-one net that lost its driver: recreate On.
			c := l.nl.Add(library.MustLookup(library.TemplateOn))
			c.Setting = 1
			_ = l.nl.BindSource(c, "out", n.ID)
			continue
		}
		width := 1
		if sc, ok := l.nl.Component(n.Sinks[0].Component); ok {
			width = sc.PortWidth(n.Sinks[0].Port)
		}
		if width == 1 {
			c := l.nl.Add(library.MustLookup(library.TemplateOff))
			_ = l.nl.BindSource(c, "out", n.ID)
			continue
		}
		c := l.nl.Add(library.MustLookup(fmt.Sprintf("Const_%d", width)))
		_ = l.nl.BindSource(c, "out", n.ID)
	}
}

// dropEmptyNets removes nets with neither driver nor sinks from the
// table so later stages never see them.
func (l *lowerer) dropEmptyNets() {
	for id, n := range l.nl.Nets() {
		if n.Source == nil && len(n.Sinks) == 0 {
			l.nl.DeleteNet(id)
		}
	}
}

// snapshot copies the live component list so passes can delete while
// iterating.
func snapshot(nl *netlist.Netlist) []*netlist.Component {
	out := make([]*netlist.Component, nl.Len())
	copy(out, nl.Components())
	return out
}

func isWideConst(k library.Kind) bool {
	return k >= library.KindConst8 && k <= library.KindConst64
}

func isConstKind(k library.Kind) bool {
	return k == library.KindOff || k == library.KindOn || isWideConst(k)
}
