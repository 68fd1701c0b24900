package lower

import (
	"fmt"

	"github.com/liquidhelium/verilog-target-turing-complete/pkg/library"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/netlist"
)

// pack returns a net id carrying the given bits as a size-wide bus.
//
// The short-circuits, in order: a single bit passes through; an
// all-constant bit list becomes a per-width constant component; bits that
// come in order from one splitter collapse back to the splitter's input
// bus; wider packs recurse through 8-bit chunks; everything else gets a
// fresh maker.
func (l *lowerer) pack(bits []string, size int) (string, error) {
	if size == 1 {
		return bits[0], nil
	}

	if value, ok := l.constValue(bits); ok {
		return l.packConst(value, size)
	}

	if bus, ok := l.splitterRoundTrip(bits, size); ok {
		return bus, nil
	}

	if size > 8 {
		chunks := library.ChunkCount(size)
		tpl := library.MustLookup(fmt.Sprintf("Maker_%d", size))
		maker := l.nl.Add(tpl)
		for i := 0; i < chunks; i++ {
			lo := i * 8
			hi := min(lo+8, len(bits))
			var slice []string
			if lo < len(bits) {
				slice = bits[lo:hi]
			}
			chunk, err := l.packSlice(slice, 8)
			if err != nil {
				return "", err
			}
			if err := l.sink(maker, fmt.Sprintf("in%d", i), chunk); err != nil {
				return "", err
			}
		}
		out := l.mintNet()
		if err := l.nl.BindSource(maker, "out", out); err != nil {
			return "", err
		}
		return out, nil
	}

	tpl := library.MustLookup(fmt.Sprintf("Maker_%d", size))
	maker := l.nl.Add(tpl)
	for i := 0; i < size; i++ {
		bit := l.mintZero()
		if i < len(bits) {
			bit = bits[i]
		}
		if err := l.sink(maker, fmt.Sprintf("in%d", i), bit); err != nil {
			return "", err
		}
	}
	out := l.mintNet()
	if err := l.nl.BindSource(maker, "out", out); err != nil {
		return "", err
	}
	return out, nil
}

// packSlice packs a possibly-short or empty slice, padding with zeros.
func (l *lowerer) packSlice(bits []string, size int) (string, error) {
	if len(bits) == 0 {
		return l.packConst(0, size)
	}
	if size == 1 {
		return bits[0], nil
	}
	return l.pack(bits, size)
}

// constValue interprets an all-constant bit list as an integer,
// LSB first. Returns false when any bit is non-constant.
func (l *lowerer) constValue(bits []string) (uint64, bool) {
	var v uint64
	for i, bit := range bits {
		one, ok := l.constBit[bit]
		if !ok {
			return 0, false
		}
		if one {
			v |= 1 << uint(i)
		}
	}
	return v, true
}

// packConst materializes a per-width constant component carrying value.
func (l *lowerer) packConst(value uint64, size int) (string, error) {
	if size == 1 {
		return l.mintConst(value&1 == 1), nil
	}
	tpl := library.MustLookup(fmt.Sprintf("Const_%d", size))
	c := l.nl.Add(tpl)
	c.Setting = value
	out := l.mintNet()
	if err := l.nl.BindSource(c, "out", out); err != nil {
		return "", err
	}
	l.constWide[out] = value
	return out, nil
}

// splitterRoundTrip detects bits that come in order from one splitter of
// the same size whose input is itself driven, and erases the round trip
// by returning that input net.
func (l *lowerer) splitterRoundTrip(bits []string, size int) (string, bool) {
	var splitter *netlist.Component
	for i, bit := range bits {
		net, ok := l.nl.PeekNet(bit)
		if !ok || net.Source == nil {
			return "", false
		}
		c, ok := l.nl.Component(net.Source.Component)
		if !ok {
			return "", false
		}
		if splitter == nil {
			if !isSplitter(c.Template.Kind) {
				return "", false
			}
			splitter = c
		} else if c != splitter {
			return "", false
		}
		if net.Source.Port != fmt.Sprintf("out%d", i) {
			return "", false
		}
	}
	if splitter == nil {
		return "", false
	}
	in, ok := splitter.Port("in")
	if !ok || in.Width != size || len(bits) != len(splitter.Template.Outputs()) {
		return "", false
	}
	busID, ok := splitter.Pins["in"]
	if !ok {
		return "", false
	}
	bus, ok := l.nl.PeekNet(busID)
	if !ok || bus.Source == nil {
		return "", false
	}
	return busID, true
}

func isSplitter(k library.Kind) bool {
	return k >= library.KindSplitter8 && k <= library.KindSplitter64
}

func isMaker(k library.Kind) bool {
	return k >= library.KindMaker8 && k <= library.KindMaker64
}

// unpackInto fans a freshly driven bus net out into the target bits. For
// widths above 8 the splitter tree is hierarchical, one level per 8-bit
// chunk; chunks with no targets are skipped and cleaned up later.
func (l *lowerer) unpackInto(bus string, bits []string, size int) error {
	tpl := library.MustLookup(fmt.Sprintf("Splitter_%d", size))
	splitter := l.nl.Add(tpl)
	if err := l.sink(splitter, "in", bus); err != nil {
		return err
	}

	if size > 8 {
		chunks := library.ChunkCount(size)
		for i := 0; i < chunks; i++ {
			lo := i * 8
			if lo >= len(bits) {
				break
			}
			hi := min(lo+8, len(bits))
			slice := bits[lo:hi]
			chunk := l.mintNet()
			if err := l.nl.BindSource(splitter, fmt.Sprintf("out%d", i), chunk); err != nil {
				return err
			}
			if err := l.unpackInto(chunk, slice, 8); err != nil {
				return err
			}
		}
		return nil
	}

	for i, bit := range bits {
		if i >= size {
			break
		}
		if err := l.nl.BindSource(splitter, fmt.Sprintf("out%d", i), bit); err != nil {
			return err
		}
	}
	return nil
}

// notNet returns a net carrying the inversion of the given 1-bit net.
func (l *lowerer) notNet(in string) (string, error) {
	gate := l.nl.Add(library.MustLookup("NOT_1"))
	if err := l.sink(gate, "in", in); err != nil {
		return "", err
	}
	out := l.mintNet()
	if err := l.nl.BindSource(gate, "out", out); err != nil {
		return "", err
	}
	return out, nil
}

// gateNet instantiates a 1-bit binary gate over two nets.
func (l *lowerer) gateNet(id, a, b string) (string, error) {
	gate := l.nl.Add(library.MustLookup(id))
	if err := l.sink(gate, "a", a); err != nil {
		return "", err
	}
	if err := l.sink(gate, "b", b); err != nil {
		return "", err
	}
	out := l.mintNet()
	if err := l.nl.BindSource(gate, "out", out); err != nil {
		return "", err
	}
	return out, nil
}

// muxNet selects between two size-wide buses: sel=0 passes a, sel=1
// passes b. Single-bit muxes decompose to (a & !sel) | (b & sel) with
// constant-aware short-circuits; wider ones use the mux template.
func (l *lowerer) muxNet(a, b, sel string, size int) (string, error) {
	if size == 1 {
		return l.muxBit(a, b, sel)
	}
	tpl := library.MustLookup(fmt.Sprintf("Mux_%d", size))
	mux := l.nl.Add(tpl)
	if err := l.sink(mux, "S", sel); err != nil {
		return "", err
	}
	if err := l.sink(mux, "A", a); err != nil {
		return "", err
	}
	if err := l.sink(mux, "B", b); err != nil {
		return "", err
	}
	out := l.mintNet()
	if err := l.nl.BindSource(mux, "out", out); err != nil {
		return "", err
	}
	return out, nil
}

// muxBit lowers a 1-bit multiplexer to gates. The constant-aware
// short-circuits keep trivially-selected terms out of the netlist.
func (l *lowerer) muxBit(a, b, sel string) (string, error) {
	var term1, term2 string // empty means known-zero
	var err error

	if one, isConst := l.constBit[a]; isConst {
		if one {
			if term1, err = l.notNet(sel); err != nil {
				return "", err
			}
		}
	} else {
		notSel, err := l.notNet(sel)
		if err != nil {
			return "", err
		}
		if term1, err = l.gateNet("AND_1", a, notSel); err != nil {
			return "", err
		}
	}

	if one, isConst := l.constBit[b]; isConst {
		if one {
			term2 = sel
		}
	} else {
		if term2, err = l.gateNet("AND_1", b, sel); err != nil {
			return "", err
		}
	}

	switch {
	case term1 == "" && term2 == "":
		return l.mintZero(), nil
	case term1 == "":
		return term2, nil
	case term2 == "":
		return term1, nil
	}
	return l.gateNet("OR_1", term1, term2)
}
