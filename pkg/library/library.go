// Package library is the static catalogue of component templates the
// compiler can place: primitive kinds, grid bounds, port positions, port
// directions, and rotations.
//
// Templates are registered once at package initialization and never
// mutated. The adapter resolves templates either by string identifier
// (Lookup) or through the typed API (For), which makes the closed set of
// (base, width) pairs total and keeps width dispatch out of string
// concatenation at call sites.
package library

import (
	"fmt"
	"sort"

	"github.com/liquidhelium/verilog-target-turing-complete/pkg/grid"
)

// PortDir is the direction of a template port.
type PortDir uint8

const (
	// In marks a port that consumes a signal.
	In PortDir = iota
	// Out marks a port that drives a signal.
	Out
)

// Port describes one pin of a template: its identifier, direction,
// grid-relative position inside the bounding box, and bus width in bits.
type Port struct {
	ID    string
	Dir   PortDir
	Pos   grid.Point
	Width int
}

// Template is the static record for one component kind.
type Template struct {
	ID       string
	Kind     Kind
	Rotation uint8 // default rotation, 0..3
	Ports    []Port
	Bounds   grid.Rect
}

// Port returns the port with the given identifier, or false.
func (t *Template) Port(id string) (Port, bool) {
	for _, p := range t.Ports {
		if p.ID == id {
			return p, true
		}
	}
	return Port{}, false
}

// Inputs returns the template's input ports in declaration order.
func (t *Template) Inputs() []Port {
	var out []Port
	for _, p := range t.Ports {
		if p.Dir == In {
			out = append(out, p)
		}
	}
	return out
}

// Outputs returns the template's output ports in declaration order.
func (t *Template) Outputs() []Port {
	var out []Port
	for _, p := range t.Ports {
		if p.Dir == Out {
			out = append(out, p)
		}
	}
	return out
}

// Base names for the typed template API. A base combined with a width
// (For) resolves to a registered template identifier.
type Base string

const (
	BaseAnd      Base = "AND"
	BaseOr       Base = "OR"
	BaseXor      Base = "XOR"
	BaseXnor     Base = "XNOR"
	BaseNot      Base = "NOT"
	BaseInput    Base = "Input"
	BaseOutput   Base = "Output"
	BaseConst    Base = "Const"
	BaseMux      Base = "Mux"
	BaseMaker    Base = "Maker"
	BaseSplitter Base = "Splitter"
	BaseAdd      Base = "Add"
	BaseMul      Base = "Mul"
	BaseShl      Base = "Shl"
	BaseShr      Base = "Shr"
	BaseAshR     Base = "AshR"
	BaseNeg      Base = "Neg"
	BaseEqual    Base = "Equal"
	BaseLessU    Base = "LessU"
	BaseLessS    Base = "LessS"
	BaseReg      Base = "Reg"
)

// Widths is the closed set of bus widths the target library supports.
var Widths = []int{1, 8, 16, 32, 64}

var registry = map[string]*Template{}

// Lookup resolves a template by its string identifier.
func Lookup(id string) (*Template, error) {
	t, ok := registry[id]
	if !ok {
		return nil, fmt.Errorf("unknown template %q", id)
	}
	return t, nil
}

// For resolves a template by base and width. Width 1 resolves the
// dedicated single-bit templates where they exist (gates, IO, BitMemory
// for registers). BaseConst has no width-1 form and returns an error;
// the 1-bit constants are the Off and On templates.
func For(base Base, width int) (*Template, error) {
	id, err := templateID(base, width)
	if err != nil {
		return nil, err
	}
	return Lookup(id)
}

// MustLookup resolves a template or panics. Reserved for the static
// tables inside this package and for tests.
func MustLookup(id string) *Template {
	t, err := Lookup(id)
	if err != nil {
		panic(err)
	}
	return t
}

// All returns every registered template sorted by identifier.
func All() []*Template {
	out := make([]*Template, 0, len(registry))
	for _, t := range registry {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func templateID(base Base, width int) (string, error) {
	switch width {
	case 1:
		switch base {
		case BaseAnd, BaseOr, BaseXor, BaseXnor, BaseNot:
			return fmt.Sprintf("%s_1", base), nil
		case BaseInput, BaseOutput:
			return fmt.Sprintf("%s_1", base), nil
		case BaseReg:
			return "BitMemory", nil
		case BaseMux, BaseAdd, BaseMul, BaseShl, BaseShr, BaseAshR,
			BaseNeg, BaseEqual, BaseLessU, BaseLessS:
			return fmt.Sprintf("%s_1", base), nil
		}
		return "", fmt.Errorf("no 1-bit template for base %q", base)
	case 8, 16, 32, 64:
		return fmt.Sprintf("%s_%d", base, width), nil
	}
	return "", fmt.Errorf("unsupported width %d for base %q", width, base)
}

// ChunkCount returns the number of maker/splitter pins for a bus width:
// one per bit at width 8 and below, one per 8-bit chunk above.
func ChunkCount(width int) int {
	if width <= 8 {
		return width
	}
	return width / 8
}

// ChunkWidth returns the bit width of one maker/splitter pin.
func ChunkWidth(width int) int {
	if width <= 8 {
		return 1
	}
	return 8
}

// TemplateOff and TemplateOn are the 1-bit constant drivers.
const (
	TemplateOff = "Off"
	TemplateOn  = "On"
	// TemplateCustom is the generic hierarchical instance template.
	TemplateCustom = "Custom"
)

func register(t *Template) {
	if _, dup := registry[t.ID]; dup {
		panic(fmt.Sprintf("duplicate template %q", t.ID))
	}
	registry[t.ID] = t
}

// centeredPins lays out n pins vertically, center-aligned around y=0.
func centeredPins(n int) []int {
	ys := make([]int, n)
	for i := range ys {
		ys[i] = i - n/2
	}
	return ys
}

func binaryGate(id string, kind Kind, width int) *Template {
	return &Template{
		ID:   id,
		Kind: kind,
		Ports: []Port{
			{ID: "a", Dir: In, Pos: grid.Pt(-1, -1), Width: width},
			{ID: "b", Dir: In, Pos: grid.Pt(-1, 1), Width: width},
			{ID: "out", Dir: Out, Pos: grid.Pt(1, 0), Width: width},
		},
		Bounds: grid.Rect{MinX: -1, MinY: -1, MaxX: 1, MaxY: 1},
	}
}

func unaryGate(id string, kind Kind, width int) *Template {
	return &Template{
		ID:   id,
		Kind: kind,
		Ports: []Port{
			{ID: "in", Dir: In, Pos: grid.Pt(-1, 0), Width: width},
			{ID: "out", Dir: Out, Pos: grid.Pt(1, 0), Width: width},
		},
		Bounds: grid.Rect{MinX: -1, MinY: -1, MaxX: 1, MaxY: 1},
	}
}

func ioTemplate(base Base, kind Kind, width int) *Template {
	id, _ := templateID(base, width)
	t := &Template{
		ID:     id,
		Kind:   kind,
		Bounds: grid.Rect{MinX: -1, MinY: -1, MaxX: 1, MaxY: 1},
	}
	if base == BaseInput {
		t.Ports = []Port{{ID: "out", Dir: Out, Pos: grid.Pt(1, 0), Width: width}}
	} else {
		t.Ports = []Port{{ID: "in", Dir: In, Pos: grid.Pt(-1, 0), Width: width}}
	}
	return t
}

func constTemplate(id string, kind Kind, width int) *Template {
	return &Template{
		ID:   id,
		Kind: kind,
		Ports: []Port{
			{ID: "out", Dir: Out, Pos: grid.Pt(1, 0), Width: width},
		},
		Bounds: grid.Rect{MinX: -1, MinY: -1, MaxX: 1, MaxY: 1},
	}
}

func muxTemplate(id string, kind Kind, width int) *Template {
	return &Template{
		ID:   id,
		Kind: kind,
		Ports: []Port{
			{ID: "S", Dir: In, Pos: grid.Pt(-1, -1), Width: 1},
			{ID: "A", Dir: In, Pos: grid.Pt(-1, 0), Width: width},
			{ID: "B", Dir: In, Pos: grid.Pt(-1, 1), Width: width},
			{ID: "out", Dir: Out, Pos: grid.Pt(1, 0), Width: width},
		},
		Bounds: grid.Rect{MinX: -1, MinY: -1, MaxX: 1, MaxY: 1},
	}
}

func makerTemplate(id string, kind Kind, width int) *Template {
	n := ChunkCount(width)
	cw := ChunkWidth(width)
	ys := centeredPins(n)
	ports := make([]Port, 0, n+1)
	for i, y := range ys {
		ports = append(ports, Port{
			ID:    fmt.Sprintf("in%d", i),
			Dir:   In,
			Pos:   grid.Pt(-1, y),
			Width: cw,
		})
	}
	ports = append(ports, Port{ID: "out", Dir: Out, Pos: grid.Pt(1, 0), Width: width})
	return &Template{
		ID:     id,
		Kind:   kind,
		Ports:  ports,
		Bounds: grid.Rect{MinX: -1, MinY: ys[0], MaxX: 1, MaxY: ys[n-1]},
	}
}

func splitterTemplate(id string, kind Kind, width int) *Template {
	n := ChunkCount(width)
	cw := ChunkWidth(width)
	ys := centeredPins(n)
	ports := make([]Port, 0, n+1)
	ports = append(ports, Port{ID: "in", Dir: In, Pos: grid.Pt(-1, 0), Width: width})
	for i, y := range ys {
		ports = append(ports, Port{
			ID:    fmt.Sprintf("out%d", i),
			Dir:   Out,
			Pos:   grid.Pt(1, y),
			Width: cw,
		})
	}
	return &Template{
		ID:     id,
		Kind:   kind,
		Ports:  ports,
		Bounds: grid.Rect{MinX: -1, MinY: ys[0], MaxX: 1, MaxY: ys[n-1]},
	}
}

func adderTemplate(id string, kind Kind, width int) *Template {
	return &Template{
		ID:   id,
		Kind: kind,
		Ports: []Port{
			{ID: "carry_in", Dir: In, Pos: grid.Pt(-1, -1), Width: 1},
			{ID: "a", Dir: In, Pos: grid.Pt(-1, 0), Width: width},
			{ID: "b", Dir: In, Pos: grid.Pt(-1, 1), Width: width},
			{ID: "sum", Dir: Out, Pos: grid.Pt(1, -1), Width: width},
			{ID: "carry_out", Dir: Out, Pos: grid.Pt(1, 0), Width: 1},
		},
		Bounds: grid.Rect{MinX: -1, MinY: -1, MaxX: 1, MaxY: 1},
	}
}

func shiftTemplate(id string, kind Kind, width int) *Template {
	return &Template{
		ID:   id,
		Kind: kind,
		Ports: []Port{
			{ID: "a", Dir: In, Pos: grid.Pt(-1, -1), Width: width},
			{ID: "shift", Dir: In, Pos: grid.Pt(-1, 1), Width: width},
			{ID: "out", Dir: Out, Pos: grid.Pt(1, 0), Width: width},
		},
		Bounds: grid.Rect{MinX: -1, MinY: -1, MaxX: 1, MaxY: 1},
	}
}

func compareTemplate(id string, kind Kind, width int) *Template {
	return &Template{
		ID:   id,
		Kind: kind,
		Ports: []Port{
			{ID: "a", Dir: In, Pos: grid.Pt(-1, -1), Width: width},
			{ID: "b", Dir: In, Pos: grid.Pt(-1, 1), Width: width},
			{ID: "out", Dir: Out, Pos: grid.Pt(1, 0), Width: 1},
		},
		Bounds: grid.Rect{MinX: -1, MinY: -1, MaxX: 1, MaxY: 1},
	}
}

func registerTemplateSet() {
	// 1-bit constants
	register(constTemplate(TemplateOff, KindOff, 1))
	register(constTemplate(TemplateOn, KindOn, 1))

	// Gates
	gateKinds := map[Base][5]Kind{
		BaseNot:  {KindNot, KindNot8, KindNot16, KindNot32, KindNot64},
		BaseAnd:  {KindAnd, KindAnd8, KindAnd16, KindAnd32, KindAnd64},
		BaseOr:   {KindOr, KindOr8, KindOr16, KindOr32, KindOr64},
		BaseXor:  {KindXor, KindXor8, KindXor16, KindXor32, KindXor64},
		BaseXnor: {KindXnor, KindXnor8, KindXnor16, KindXnor32, KindXnor64},
	}
	for base, kinds := range gateKinds {
		for i, w := range Widths {
			id := fmt.Sprintf("%s_%d", base, w)
			if base == BaseNot {
				register(unaryGate(id, kinds[i], w))
			} else {
				register(binaryGate(id, kinds[i], w))
			}
		}
	}

	// IO
	inputKinds := [5]Kind{KindInput1, KindInput8, KindInput16, KindInput32, KindInput64}
	outputKinds := [5]Kind{KindOutput1, KindOutput8, KindOutput16, KindOutput32, KindOutput64}
	for i, w := range Widths {
		register(ioTemplate(BaseInput, inputKinds[i], w))
		register(ioTemplate(BaseOutput, outputKinds[i], w))
	}

	// Wide constants
	constKinds := [4]Kind{KindConst8, KindConst16, KindConst32, KindConst64}
	for i, w := range Widths[1:] {
		register(constTemplate(fmt.Sprintf("Const_%d", w), constKinds[i], w))
	}

	// Multiplexers
	muxKinds := [5]Kind{KindMux1, KindMux8, KindMux16, KindMux32, KindMux64}
	for i, w := range Widths {
		register(muxTemplate(fmt.Sprintf("Mux_%d", w), muxKinds[i], w))
	}

	// Makers and splitters
	makerKinds := [4]Kind{KindMaker8, KindMaker16, KindMaker32, KindMaker64}
	splitterKinds := [4]Kind{KindSplitter8, KindSplitter16, KindSplitter32, KindSplitter64}
	for i, w := range Widths[1:] {
		register(makerTemplate(fmt.Sprintf("Maker_%d", w), makerKinds[i], w))
		register(splitterTemplate(fmt.Sprintf("Splitter_%d", w), splitterKinds[i], w))
	}

	// Arithmetic
	addKinds := [5]Kind{KindAdd1, KindAdd8, KindAdd16, KindAdd32, KindAdd64}
	mulKinds := [5]Kind{KindMul1, KindMul8, KindMul16, KindMul32, KindMul64}
	shlKinds := [5]Kind{KindShl1, KindShl8, KindShl16, KindShl32, KindShl64}
	shrKinds := [5]Kind{KindShr1, KindShr8, KindShr16, KindShr32, KindShr64}
	ashrKinds := [5]Kind{KindAshR1, KindAshR8, KindAshR16, KindAshR32, KindAshR64}
	negKinds := [5]Kind{KindNeg1, KindNeg8, KindNeg16, KindNeg32, KindNeg64}
	for i, w := range Widths {
		register(adderTemplate(fmt.Sprintf("Add_%d", w), addKinds[i], w))
		register(binaryGate(fmt.Sprintf("Mul_%d", w), mulKinds[i], w))
		register(shiftTemplate(fmt.Sprintf("Shl_%d", w), shlKinds[i], w))
		register(shiftTemplate(fmt.Sprintf("Shr_%d", w), shrKinds[i], w))
		register(shiftTemplate(fmt.Sprintf("AshR_%d", w), ashrKinds[i], w))
		register(unaryGate(fmt.Sprintf("Neg_%d", w), negKinds[i], w))
	}

	// Comparisons
	eqKinds := [5]Kind{KindEqual1, KindEqual8, KindEqual16, KindEqual32, KindEqual64}
	luKinds := [5]Kind{KindLessU1, KindLessU8, KindLessU16, KindLessU32, KindLessU64}
	lsKinds := [5]Kind{KindLessS1, KindLessS8, KindLessS16, KindLessS32, KindLessS64}
	for i, w := range Widths {
		register(compareTemplate(fmt.Sprintf("Equal_%d", w), eqKinds[i], w))
		register(compareTemplate(fmt.Sprintf("LessU_%d", w), luKinds[i], w))
		register(compareTemplate(fmt.Sprintf("LessS_%d", w), lsKinds[i], w))
	}

	// Registers
	regKinds := [4]Kind{KindReg8, KindReg16, KindReg32, KindReg64}
	for i, w := range Widths[1:] {
		register(&Template{
			ID:   fmt.Sprintf("Reg_%d", w),
			Kind: regKinds[i],
			Ports: []Port{
				{ID: "load", Dir: In, Pos: grid.Pt(-1, -1), Width: 1},
				{ID: "save", Dir: In, Pos: grid.Pt(-1, 0), Width: 1},
				{ID: "value", Dir: In, Pos: grid.Pt(-1, 1), Width: w},
				{ID: "out", Dir: Out, Pos: grid.Pt(1, 0), Width: w},
			},
			Bounds: grid.Rect{MinX: -1, MinY: -1, MaxX: 1, MaxY: 1},
		})
	}
	register(&Template{
		ID:   "BitMemory",
		Kind: KindBitMemory,
		Ports: []Port{
			{ID: "save", Dir: In, Pos: grid.Pt(-1, -1), Width: 1},
			{ID: "value", Dir: In, Pos: grid.Pt(-1, 1), Width: 1},
			{ID: "out", Dir: Out, Pos: grid.Pt(1, 0), Width: 1},
		},
		Bounds: grid.Rect{MinX: -1, MinY: -1, MaxX: 1, MaxY: 1},
	})

	// Hierarchical instance. Ports are per-instance; the template carries
	// only the kind and a placeholder box that instances override.
	register(&Template{
		ID:     TemplateCustom,
		Kind:   KindCustom,
		Bounds: grid.Rect{MinX: 0, MinY: 0, MaxX: 7, MaxY: 7},
	})
}

func init() {
	registerTemplateSet()
}
