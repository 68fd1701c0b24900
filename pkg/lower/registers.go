package lower

import (
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/library"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/netlist"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/yosys"
)

// dffShape carries the pieces common to the whole flip-flop family: the
// (possibly inverted) clock, the data bits, and the output bits.
type dffShape struct {
	clk  string
	d    []string
	q    []string
	size int
}

func (l *lowerer) dffShape(cell *yosys.Cell) (dffShape, error) {
	clkBits, err := l.conn(cell, "CLK")
	if err != nil {
		return dffShape{}, err
	}
	d, err := l.conn(cell, "D")
	if err != nil {
		return dffShape{}, err
	}
	q, err := l.conn(cell, "Q")
	if err != nil {
		return dffShape{}, err
	}
	size, err := loweredSize(len(d))
	if err != nil {
		return dffShape{}, err
	}

	clk := clkBits[0]
	if cell.ParamInt("CLK_POLARITY", 1) == 0 {
		if clk, err = l.notNet(clk); err != nil {
			return dffShape{}, err
		}
	}
	return dffShape{clk: clk, d: d, q: q, size: size}, nil
}

// enableNet resolves the EN connection, inverting on negative polarity.
func (l *lowerer) enableNet(cell *yosys.Cell) (string, error) {
	enBits, err := l.conn(cell, "EN")
	if err != nil {
		return "", err
	}
	en := enBits[0]
	if cell.ParamInt("EN_POLARITY", 1) == 0 {
		return l.notNet(en)
	}
	return en, nil
}

// resetParts resolves the SRST connection and the reset value constant.
func (l *lowerer) resetParts(cell *yosys.Cell, size int) (srst, rstVal string, err error) {
	srstBits, err := l.conn(cell, "SRST")
	if err != nil {
		return "", "", err
	}
	srst = srstBits[0]
	if cell.ParamInt("SRST_POLARITY", 1) == 0 {
		if srst, err = l.notNet(srst); err != nil {
			return "", "", err
		}
	}
	value := uint64(cell.ParamInt("SRST_VALUE", 0))
	rstVal, err = l.packConst(value, size)
	if err != nil {
		return "", "", err
	}
	return srst, rstVal, nil
}

// buildRegister places the storage element and wires save and out.
// The returned component still needs its value input; qNet is the net its
// output drives (the target bit for single-bit registers, a fresh bus
// otherwise, already unpacked into the q bits).
func (l *lowerer) buildRegister(sh dffShape) (*netlist.Component, string, error) {
	if sh.size == 1 {
		ff := l.nl.Add(library.MustLookup("BitMemory"))
		if err := l.sink(ff, "save", sh.clk); err != nil {
			return nil, "", err
		}
		if err := l.nl.BindSource(ff, "out", sh.q[0]); err != nil {
			return nil, "", err
		}
		return ff, sh.q[0], nil
	}

	tpl, err := library.For(library.BaseReg, sh.size)
	if err != nil {
		return nil, "", err
	}
	reg := l.nl.Add(tpl)
	if err := l.sink(reg, "load", l.mintConst(true)); err != nil {
		return nil, "", err
	}
	if err := l.sink(reg, "save", sh.clk); err != nil {
		return nil, "", err
	}
	out := l.mintNet()
	if err := l.nl.BindSource(reg, "out", out); err != nil {
		return nil, "", err
	}
	if err := l.unpackInto(out, sh.q, sh.size); err != nil {
		return nil, "", err
	}
	return reg, out, nil
}

// lowerDff lowers a plain D flip-flop: save=CLK, value=D.
func (l *lowerer) lowerDff(cell *yosys.Cell) error {
	sh, err := l.dffShape(cell)
	if err != nil {
		return err
	}
	reg, _, err := l.buildRegister(sh)
	if err != nil {
		return err
	}
	value, err := l.pack(sh.d, sh.size)
	if err != nil {
		return err
	}
	return l.sink(reg, "value", value)
}

// lowerDffe lowers an enabled flip-flop: value holds Q until EN selects D.
func (l *lowerer) lowerDffe(cell *yosys.Cell) error {
	sh, err := l.dffShape(cell)
	if err != nil {
		return err
	}
	en, err := l.enableNet(cell)
	if err != nil {
		return err
	}
	reg, qNet, err := l.buildRegister(sh)
	if err != nil {
		return err
	}
	d, err := l.pack(sh.d, sh.size)
	if err != nil {
		return err
	}
	value, err := l.muxNet(qNet, d, en, sh.size)
	if err != nil {
		return err
	}
	return l.sink(reg, "value", value)
}

// lowerSdff lowers a synchronously-reset flip-flop: SRST selects the
// reset constant over D.
func (l *lowerer) lowerSdff(cell *yosys.Cell) error {
	sh, err := l.dffShape(cell)
	if err != nil {
		return err
	}
	srst, rstVal, err := l.resetParts(cell, sh.size)
	if err != nil {
		return err
	}
	reg, _, err := l.buildRegister(sh)
	if err != nil {
		return err
	}
	d, err := l.pack(sh.d, sh.size)
	if err != nil {
		return err
	}
	value, err := l.muxNet(d, rstVal, srst, sh.size)
	if err != nil {
		return err
	}
	return l.sink(reg, "value", value)
}

// lowerSdffe lowers the reset+enable flip-flop with two nested muxes:
// the inner selects D over Q on EN, the outer the reset value on SRST.
func (l *lowerer) lowerSdffe(cell *yosys.Cell) error {
	sh, err := l.dffShape(cell)
	if err != nil {
		return err
	}
	en, err := l.enableNet(cell)
	if err != nil {
		return err
	}
	srst, rstVal, err := l.resetParts(cell, sh.size)
	if err != nil {
		return err
	}
	reg, qNet, err := l.buildRegister(sh)
	if err != nil {
		return err
	}
	d, err := l.pack(sh.d, sh.size)
	if err != nil {
		return err
	}
	inner, err := l.muxNet(qNet, d, en, sh.size)
	if err != nil {
		return err
	}
	outer, err := l.muxNet(inner, rstVal, srst, sh.size)
	if err != nil {
		return err
	}
	return l.sink(reg, "value", outer)
}
