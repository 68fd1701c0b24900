package lower

import (
	"sort"
	"strings"

	"github.com/liquidhelium/verilog-target-turing-complete/pkg/errors"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/library"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/yosys"
)

// lowerCell dispatches one cell through the lowering table.
func (l *lowerer) lowerCell(name string, cell *yosys.Cell) error {
	switch cell.Type {
	case "$and", "$_AND_":
		return l.lowerBinaryGate(cell, library.BaseAnd)
	case "$or", "$_OR_":
		return l.lowerBinaryGate(cell, library.BaseOr)
	case "$xor", "$_XOR_":
		return l.lowerBinaryGate(cell, library.BaseXor)
	case "$xnor", "$_XNOR_":
		return l.lowerBinaryGate(cell, library.BaseXnor)
	case "$not", "$_NOT_":
		return l.lowerNot(cell)

	case "$mux", "$_MUX_":
		return l.lowerMux(cell)
	case "$pmux":
		return l.lowerPmux(cell)

	case "$dff":
		return l.lowerDff(cell)
	case "$dffe":
		return l.lowerDffe(cell)
	case "$sdff":
		return l.lowerSdff(cell)
	case "$sdffe":
		return l.lowerSdffe(cell)

	case "$eq":
		return l.lowerEq(cell, false)
	case "$ne":
		return l.lowerEq(cell, true)
	case "$reduce_or", "$reduce_bool":
		return l.lowerReduceOr(cell)
	case "$reduce_and":
		return l.lowerReduceAnd(cell)
	case "$logic_not":
		return l.lowerLogicNot(cell)
	case "$logic_and":
		return l.lowerLogicBin(cell, "AND_1")
	case "$logic_or":
		return l.lowerLogicBin(cell, "OR_1")

	case "$add":
		return l.lowerAdd(cell)
	case "$sub":
		return l.lowerSub(cell)
	case "$mul":
		return l.lowerBinaryOp(cell, library.BaseMul)
	case "$shl", "$sshl":
		return l.lowerShift(cell, library.BaseShl)
	case "$shr":
		return l.lowerShift(cell, library.BaseShr)
	case "$sshr":
		return l.lowerSshr(cell)
	case "$neg":
		return l.lowerNeg(cell)

	case "$lt", "$gt", "$le", "$ge":
		return l.lowerCompare(cell)
	}

	if strings.HasPrefix(cell.Type, "$") {
		return errors.New(errors.ErrCodeInvalidCell, "unknown cell type %q (cell %s)", cell.Type, name)
	}
	return l.lowerCustom(name, cell)
}

// abSize resolves the operand width for a two-input cell.
func (l *lowerer) abSize(a, b []string) (int, error) {
	return loweredSize(max(len(a), len(b)))
}

// tieZero marks a target bit as constant zero and materializes its driver
// if something already consumes it. Cells whose result is narrower than
// their output bit list zero-extend this way.
func (l *lowerer) tieZero(netID string) error {
	if _, known := l.constBit[netID]; !known {
		l.constBit[netID] = false
	}
	if n, ok := l.nl.PeekNet(netID); ok && len(n.Sinks) > 0 && !n.HasDriver() {
		return l.ensureDriven(netID)
	}
	return nil
}

// driveSingle forwards a 1-bit result onto bits[0] and zero-extends the
// rest of the bit list.
func (l *lowerer) driveSingle(result string, bits []string) error {
	if err := l.aliasNets(bits[0], result); err != nil {
		return err
	}
	for _, rest := range bits[1:] {
		if err := l.tieZero(rest); err != nil {
			return err
		}
	}
	return nil
}

func (l *lowerer) lowerBinaryGate(cell *yosys.Cell, base library.Base) error {
	a, err := l.conn(cell, "A")
	if err != nil {
		return err
	}
	b, err := l.conn(cell, "B")
	if err != nil {
		return err
	}
	y, err := l.conn(cell, "Y")
	if err != nil {
		return err
	}
	size, err := loweredSize(max(len(a), len(b), len(y)))
	if err != nil {
		return err
	}

	pa, err := l.pack(a, size)
	if err != nil {
		return err
	}
	pb, err := l.pack(b, size)
	if err != nil {
		return err
	}
	tpl, err := library.For(base, size)
	if err != nil {
		return err
	}
	gate := l.nl.Add(tpl)
	if err := l.sink(gate, "a", pa); err != nil {
		return err
	}
	if err := l.sink(gate, "b", pb); err != nil {
		return err
	}
	out := l.mintNet()
	if err := l.nl.BindSource(gate, "out", out); err != nil {
		return err
	}
	return l.driveBits(out, y, size)
}

// lowerBinaryOp is lowerBinaryGate for cells whose output may be wider
// than the library width (multiplication); excess target bits zero-extend.
func (l *lowerer) lowerBinaryOp(cell *yosys.Cell, base library.Base) error {
	a, err := l.conn(cell, "A")
	if err != nil {
		return err
	}
	b, err := l.conn(cell, "B")
	if err != nil {
		return err
	}
	y, err := l.conn(cell, "Y")
	if err != nil {
		return err
	}
	size, err := l.abSize(a, b)
	if err != nil {
		return err
	}

	pa, err := l.pack(a, size)
	if err != nil {
		return err
	}
	pb, err := l.pack(b, size)
	if err != nil {
		return err
	}
	tpl, err := library.For(base, size)
	if err != nil {
		return err
	}
	op := l.nl.Add(tpl)
	if err := l.sink(op, "a", pa); err != nil {
		return err
	}
	if err := l.sink(op, "b", pb); err != nil {
		return err
	}
	out := l.mintNet()
	if err := l.nl.BindSource(op, "out", out); err != nil {
		return err
	}

	n := min(len(y), size)
	if err := l.driveBits(out, y[:n], size); err != nil {
		return err
	}
	for _, rest := range y[n:] {
		if err := l.tieZero(rest); err != nil {
			return err
		}
	}
	return nil
}

func (l *lowerer) lowerNot(cell *yosys.Cell) error {
	a, err := l.conn(cell, "A")
	if err != nil {
		return err
	}
	y, err := l.conn(cell, "Y")
	if err != nil {
		return err
	}
	size, err := loweredSize(max(len(a), len(y)))
	if err != nil {
		return err
	}

	pa, err := l.pack(a, size)
	if err != nil {
		return err
	}
	out, err := l.notSized(pa, size)
	if err != nil {
		return err
	}
	return l.driveBits(out, y, size)
}

// notSized inverts a bus of the given width.
func (l *lowerer) notSized(in string, size int) (string, error) {
	if size == 1 {
		return l.notNet(in)
	}
	tpl, err := library.For(library.BaseNot, size)
	if err != nil {
		return "", err
	}
	gate := l.nl.Add(tpl)
	if err := l.sink(gate, "in", in); err != nil {
		return "", err
	}
	out := l.mintNet()
	if err := l.nl.BindSource(gate, "out", out); err != nil {
		return "", err
	}
	return out, nil
}

func (l *lowerer) lowerMux(cell *yosys.Cell) error {
	a, err := l.conn(cell, "A")
	if err != nil {
		return err
	}
	b, err := l.conn(cell, "B")
	if err != nil {
		return err
	}
	s, err := l.conn(cell, "S")
	if err != nil {
		return err
	}
	y, err := l.conn(cell, "Y")
	if err != nil {
		return err
	}
	size, err := loweredSize(len(y))
	if err != nil {
		return err
	}

	pa, err := l.pack(a, size)
	if err != nil {
		return err
	}
	pb, err := l.pack(b, size)
	if err != nil {
		return err
	}
	out, err := l.muxNet(pa, pb, s[0], size)
	if err != nil {
		return err
	}
	return l.driveBits(out, y, size)
}

func (l *lowerer) lowerPmux(cell *yosys.Cell) error {
	a, err := l.conn(cell, "A")
	if err != nil {
		return err
	}
	b, err := l.conn(cell, "B")
	if err != nil {
		return err
	}
	s, err := l.conn(cell, "S")
	if err != nil {
		return err
	}
	y, err := l.conn(cell, "Y")
	if err != nil {
		return err
	}
	width := len(a)
	size, err := loweredSize(width)
	if err != nil {
		return err
	}

	cur, err := l.pack(a, size)
	if err != nil {
		return err
	}
	for i, sel := range s {
		lo := i * width
		if lo >= len(b) {
			break
		}
		hi := min(lo+width, len(b))
		slot, err := l.pack(b[lo:hi], size)
		if err != nil {
			return err
		}
		cur, err = l.muxNet(cur, slot, sel, size)
		if err != nil {
			return err
		}
	}
	return l.driveBits(cur, y, size)
}

func (l *lowerer) lowerEq(cell *yosys.Cell, negate bool) error {
	a, err := l.conn(cell, "A")
	if err != nil {
		return err
	}
	b, err := l.conn(cell, "B")
	if err != nil {
		return err
	}
	y, err := l.conn(cell, "Y")
	if err != nil {
		return err
	}
	size, err := l.abSize(a, b)
	if err != nil {
		return err
	}

	pa, err := l.pack(a, size)
	if err != nil {
		return err
	}
	pb, err := l.pack(b, size)
	if err != nil {
		return err
	}
	out, err := l.equalNet(pa, pb, size)
	if err != nil {
		return err
	}
	if negate {
		if out, err = l.notNet(out); err != nil {
			return err
		}
	}
	return l.driveSingle(out, y)
}

// equalNet compares two buses for equality, yielding a 1-bit net.
func (l *lowerer) equalNet(a, b string, size int) (string, error) {
	tpl, err := library.For(library.BaseEqual, size)
	if err != nil {
		return "", err
	}
	eq := l.nl.Add(tpl)
	if err := l.sink(eq, "a", a); err != nil {
		return "", err
	}
	if err := l.sink(eq, "b", b); err != nil {
		return "", err
	}
	out := l.mintNet()
	if err := l.nl.BindSource(eq, "out", out); err != nil {
		return "", err
	}
	return out, nil
}

// reduceNonzero yields a 1-bit net that is high when any input bit is.
func (l *lowerer) reduceNonzero(bits []string) (string, error) {
	size, err := loweredSize(len(bits))
	if err != nil {
		return "", err
	}
	if size == 1 {
		return bits[0], nil
	}
	packed, err := l.pack(bits, size)
	if err != nil {
		return "", err
	}
	zero, err := l.packConst(0, size)
	if err != nil {
		return "", err
	}
	eq, err := l.equalNet(packed, zero, size)
	if err != nil {
		return "", err
	}
	return l.notNet(eq)
}

func (l *lowerer) lowerReduceOr(cell *yosys.Cell) error {
	a, err := l.conn(cell, "A")
	if err != nil {
		return err
	}
	y, err := l.conn(cell, "Y")
	if err != nil {
		return err
	}
	out, err := l.reduceNonzero(a)
	if err != nil {
		return err
	}
	return l.driveSingle(out, y)
}

func (l *lowerer) lowerReduceAnd(cell *yosys.Cell) error {
	a, err := l.conn(cell, "A")
	if err != nil {
		return err
	}
	y, err := l.conn(cell, "Y")
	if err != nil {
		return err
	}
	size, err := loweredSize(len(a))
	if err != nil {
		return err
	}
	if size == 1 {
		return l.driveSingle(a[0], y)
	}

	packed, err := l.pack(a, size)
	if err != nil {
		return err
	}
	mask := uint64(1)<<uint(len(a)) - 1
	ones, err := l.packConst(mask, size)
	if err != nil {
		return err
	}
	out, err := l.equalNet(packed, ones, size)
	if err != nil {
		return err
	}
	return l.driveSingle(out, y)
}

func (l *lowerer) lowerLogicNot(cell *yosys.Cell) error {
	a, err := l.conn(cell, "A")
	if err != nil {
		return err
	}
	y, err := l.conn(cell, "Y")
	if err != nil {
		return err
	}
	size, err := loweredSize(len(a))
	if err != nil {
		return err
	}

	var out string
	if size == 1 {
		out, err = l.notNet(a[0])
	} else {
		var packed, zero string
		if packed, err = l.pack(a, size); err != nil {
			return err
		}
		if zero, err = l.packConst(0, size); err != nil {
			return err
		}
		out, err = l.equalNet(packed, zero, size)
	}
	if err != nil {
		return err
	}
	return l.driveSingle(out, y)
}

func (l *lowerer) lowerLogicBin(cell *yosys.Cell, gateID string) error {
	a, err := l.conn(cell, "A")
	if err != nil {
		return err
	}
	b, err := l.conn(cell, "B")
	if err != nil {
		return err
	}
	y, err := l.conn(cell, "Y")
	if err != nil {
		return err
	}

	ra, err := l.reduceNonzero(a)
	if err != nil {
		return err
	}
	rb, err := l.reduceNonzero(b)
	if err != nil {
		return err
	}
	out, err := l.gateNet(gateID, ra, rb)
	if err != nil {
		return err
	}
	return l.driveSingle(out, y)
}

func (l *lowerer) lowerAdd(cell *yosys.Cell) error {
	a, err := l.conn(cell, "A")
	if err != nil {
		return err
	}
	b, err := l.conn(cell, "B")
	if err != nil {
		return err
	}
	y, err := l.conn(cell, "Y")
	if err != nil {
		return err
	}

	size, err := l.abSize(a, b)
	if err != nil {
		return err
	}
	carryOut := len(y) == size+1
	if !carryOut && len(y) > size {
		if size, err = loweredSize(len(y)); err != nil {
			return err
		}
	}

	// A single-bit operand feeds the carry input instead of being
	// widened; the adder computes wide + 0 + carry.
	carryIn := l.mintZero()
	if len(a) == 1 && len(b) > 1 {
		carryIn, a = a[0], b
		b = nil
	} else if len(b) == 1 && len(a) > 1 {
		carryIn = b[0]
		b = nil
	}

	pa, err := l.pack(a, size)
	if err != nil {
		return err
	}
	var pb string
	if b == nil {
		if pb, err = l.packConst(0, size); err != nil {
			return err
		}
	} else if pb, err = l.pack(b, size); err != nil {
		return err
	}
	tpl, err := library.For(library.BaseAdd, size)
	if err != nil {
		return err
	}
	add := l.nl.Add(tpl)
	if err := l.sink(add, "carry_in", carryIn); err != nil {
		return err
	}
	if err := l.sink(add, "a", pa); err != nil {
		return err
	}
	if err := l.sink(add, "b", pb); err != nil {
		return err
	}
	sum := l.mintNet()
	if err := l.nl.BindSource(add, "sum", sum); err != nil {
		return err
	}
	n := min(len(y), size)
	if err := l.driveBits(sum, y[:n], size); err != nil {
		return err
	}
	if carryOut {
		co := l.mintNet()
		if err := l.nl.BindSource(add, "carry_out", co); err != nil {
			return err
		}
		if err := l.aliasNets(y[size], co); err != nil {
			return err
		}
	}
	return nil
}

func (l *lowerer) lowerSub(cell *yosys.Cell) error {
	a, err := l.conn(cell, "A")
	if err != nil {
		return err
	}
	b, err := l.conn(cell, "B")
	if err != nil {
		return err
	}
	y, err := l.conn(cell, "Y")
	if err != nil {
		return err
	}
	size, err := loweredSize(max(len(a), len(b), len(y)))
	if err != nil {
		return err
	}

	pb, err := l.pack(b, size)
	if err != nil {
		return err
	}
	negB, err := l.negSized(pb, size)
	if err != nil {
		return err
	}
	pa, err := l.pack(a, size)
	if err != nil {
		return err
	}

	tpl, err := library.For(library.BaseAdd, size)
	if err != nil {
		return err
	}
	add := l.nl.Add(tpl)
	if err := l.sink(add, "carry_in", l.mintZero()); err != nil {
		return err
	}
	if err := l.sink(add, "a", pa); err != nil {
		return err
	}
	if err := l.sink(add, "b", negB); err != nil {
		return err
	}
	sum := l.mintNet()
	if err := l.nl.BindSource(add, "sum", sum); err != nil {
		return err
	}
	n := min(len(y), size)
	if err := l.driveBits(sum, y[:n], size); err != nil {
		return err
	}
	for _, rest := range y[n:] {
		if err := l.tieZero(rest); err != nil {
			return err
		}
	}
	return nil
}

// negSized two's-complements a bus.
func (l *lowerer) negSized(in string, size int) (string, error) {
	tpl, err := library.For(library.BaseNeg, size)
	if err != nil {
		return "", err
	}
	neg := l.nl.Add(tpl)
	if err := l.sink(neg, "in", in); err != nil {
		return "", err
	}
	out := l.mintNet()
	if err := l.nl.BindSource(neg, "out", out); err != nil {
		return "", err
	}
	return out, nil
}

func (l *lowerer) lowerNeg(cell *yosys.Cell) error {
	a, err := l.conn(cell, "A")
	if err != nil {
		return err
	}
	y, err := l.conn(cell, "Y")
	if err != nil {
		return err
	}
	size, err := loweredSize(max(len(a), len(y)))
	if err != nil {
		return err
	}

	pa, err := l.pack(a, size)
	if err != nil {
		return err
	}
	out, err := l.negSized(pa, size)
	if err != nil {
		return err
	}
	return l.driveBits(out, y, size)
}

func (l *lowerer) lowerShift(cell *yosys.Cell, base library.Base) error {
	a, err := l.conn(cell, "A")
	if err != nil {
		return err
	}
	b, err := l.conn(cell, "B")
	if err != nil {
		return err
	}
	y, err := l.conn(cell, "Y")
	if err != nil {
		return err
	}
	size, err := loweredSize(max(len(a), len(y)))
	if err != nil {
		return err
	}

	out, err := l.shiftNet(base, a, b, size)
	if err != nil {
		return err
	}
	return l.driveBits(out, y, size)
}

// shiftNet instantiates a shift component over packed operands.
func (l *lowerer) shiftNet(base library.Base, a, b []string, size int) (string, error) {
	pa, err := l.pack(a, size)
	if err != nil {
		return "", err
	}
	return l.shiftPacked(base, pa, b, size)
}

func (l *lowerer) shiftPacked(base library.Base, packed string, b []string, size int) (string, error) {
	pb, err := l.pack(b, size)
	if err != nil {
		return "", err
	}
	tpl, err := library.For(base, size)
	if err != nil {
		return "", err
	}
	sh := l.nl.Add(tpl)
	if err := l.sink(sh, "a", packed); err != nil {
		return "", err
	}
	if err := l.sink(sh, "shift", pb); err != nil {
		return "", err
	}
	out := l.mintNet()
	if err := l.nl.BindSource(sh, "out", out); err != nil {
		return "", err
	}
	return out, nil
}

// lowerSshr lowers an arithmetic right shift: the logical shift ORed
// with a sign-extension mask selected by the operand's top bit.
func (l *lowerer) lowerSshr(cell *yosys.Cell) error {
	a, err := l.conn(cell, "A")
	if err != nil {
		return err
	}
	b, err := l.conn(cell, "B")
	if err != nil {
		return err
	}
	y, err := l.conn(cell, "Y")
	if err != nil {
		return err
	}
	size, err := loweredSize(max(len(a), len(y)))
	if err != nil {
		return err
	}
	if size == 1 {
		// Shifting a single bit right arithmetically is the identity.
		return l.driveSingle(a[0], y)
	}

	logical, err := l.shiftNet(library.BaseShr, a, b, size)
	if err != nil {
		return err
	}

	allOnes := ^uint64(0) >> uint(64-size)
	ones, err := l.packConst(allOnes, size)
	if err != nil {
		return err
	}
	shifted, err := l.shiftPacked(library.BaseShr, ones, b, size)
	if err != nil {
		return err
	}
	mask, err := l.notSized(shifted, size)
	if err != nil {
		return err
	}

	zero, err := l.packConst(0, size)
	if err != nil {
		return err
	}
	sign := a[len(a)-1]
	ext, err := l.muxNet(zero, mask, sign, size)
	if err != nil {
		return err
	}

	tpl, err := library.For(library.BaseOr, size)
	if err != nil {
		return err
	}
	or := l.nl.Add(tpl)
	if err := l.sink(or, "a", logical); err != nil {
		return err
	}
	if err := l.sink(or, "b", ext); err != nil {
		return err
	}
	out := l.mintNet()
	if err := l.nl.BindSource(or, "out", out); err != nil {
		return err
	}
	return l.driveBits(out, y, size)
}

func (l *lowerer) lowerCompare(cell *yosys.Cell) error {
	a, err := l.conn(cell, "A")
	if err != nil {
		return err
	}
	b, err := l.conn(cell, "B")
	if err != nil {
		return err
	}
	y, err := l.conn(cell, "Y")
	if err != nil {
		return err
	}
	size, err := l.abSize(a, b)
	if err != nil {
		return err
	}

	base := library.BaseLessU
	if cell.ParamInt("A_SIGNED", 0) != 0 {
		base = library.BaseLessS
	}

	// gt and le compare with swapped operands; ge and le invert.
	lhs, rhs := a, b
	if cell.Type == "$gt" || cell.Type == "$le" {
		lhs, rhs = b, a
	}
	invert := cell.Type == "$ge" || cell.Type == "$le"

	pl, err := l.pack(lhs, size)
	if err != nil {
		return err
	}
	pr, err := l.pack(rhs, size)
	if err != nil {
		return err
	}
	tpl, err := library.For(base, size)
	if err != nil {
		return err
	}
	less := l.nl.Add(tpl)
	if err := l.sink(less, "a", pl); err != nil {
		return err
	}
	if err := l.sink(less, "b", pr); err != nil {
		return err
	}
	out := l.mintNet()
	if err := l.nl.BindSource(less, "out", out); err != nil {
		return err
	}
	if invert {
		if out, err = l.notNet(out); err != nil {
			return err
		}
	}
	return l.driveSingle(out, y)
}

// lowerCustom instantiates a hierarchical submodule as an opaque block
// using the metadata its compile exported.
func (l *lowerer) lowerCustom(name string, cell *yosys.Cell) error {
	meta, ok := l.opts.CustomMeta[cell.Type]
	if !ok {
		return errors.New(errors.ErrCodeModuleNotFound,
			"cell %s instantiates unknown module %q", name, cell.Type)
	}
	id, ok := l.opts.CustomIDs[cell.Type]
	if !ok {
		return errors.New(errors.ErrCodeModuleNotFound,
			"module %q has no assigned identifier", cell.Type)
	}

	inst := l.nl.Add(library.MustLookup(library.TemplateCustom))
	inst.Label = name
	inst.CustomID = id
	inst.CustomPorts = meta.Ports
	bounds := meta.CellBounds()
	inst.CustomBounds = &bounds
	inst.PortWidths = meta.PortWidths()

	ports := make([]string, 0, len(cell.Connections))
	for p := range cell.Connections {
		ports = append(ports, p)
	}
	sort.Strings(ports)

	for _, portName := range ports {
		port, ok := inst.Port(portName)
		if !ok {
			return errors.New(errors.ErrCodeInvalidPort,
				"module %q exports no port %q", cell.Type, portName)
		}
		bits, err := l.conn(cell, portName)
		if err != nil {
			return err
		}
		w := port.Width

		if port.Dir == library.In {
			packed, err := l.pack(bits, w)
			if err != nil {
				return err
			}
			if err := l.sink(inst, portName, packed); err != nil {
				return err
			}
			continue
		}

		if w == 1 {
			if err := l.nl.BindSource(inst, portName, bits[0]); err != nil {
				return err
			}
			continue
		}
		out := l.mintNet()
		if err := l.nl.BindSource(inst, portName, out); err != nil {
			return err
		}
		if err := l.unpackInto(out, bits, w); err != nil {
			return err
		}
	}
	return nil
}
