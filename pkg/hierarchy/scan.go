// Package hierarchy discovers submodules in a Verilog source, assigns
// stable 63-bit identifiers, orders compilation bottom-up, and extracts
// the custom-component metadata parents need to treat a compiled child
// as an opaque block.
package hierarchy

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/liquidhelium/verilog-target-turing-complete/pkg/errors"
)

// verilogLexer tokenizes just enough Verilog for a lenient module scan:
// declarations, identifiers, and numbers. Statement structure is ignored.
var verilogLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*|/\*([^*]|\*+[^*/])*\*+/`},
	{Name: "Whitespace", Pattern: `[\s]+`},
	{Name: "String", Pattern: `"(\\.|[^"])*"`},
	{Name: "Number", Pattern: `\d+'[bodhBODH][0-9a-fA-FxzXZ_]+|\d+`},
	{Name: "Ident", Pattern: `[a-zA-Z_$\\][a-zA-Z0-9_$]*`},
	{Name: "Punct", Pattern: `[^\sa-zA-Z0-9_$"]`},
})

// token is one lexed token with its source offset.
type token struct {
	kind  string
	value string
	pos   int
}

func tokenize(source string) ([]token, error) {
	lx, err := verilogLexer.Lex("", strings.NewReader(source))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidModule, err, "lex source")
	}
	symbols := lexer.SymbolsByRune(verilogLexer)

	var out []token
	for {
		t, err := lx.Next()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidModule, err, "lex source")
		}
		if t.EOF() {
			return out, nil
		}
		kind := symbols[t.Type]
		if kind == "Comment" || kind == "Whitespace" {
			continue
		}
		out = append(out, token{kind: kind, value: t.Value, pos: t.Pos.Offset})
	}
}

// Module is one scanned module declaration.
type Module struct {
	Name string
	// Body is the space-joined token text of the whole declaration, from
	// the module keyword through endmodule, used for dependency discovery.
	Body string
	// DeclStart is the byte offset of the module keyword in the source.
	DeclStart int
	// DeclaredID is the numeric CUSTOM_ID parameter, when present.
	DeclaredID uint64
	// HasDeclaredID distinguishes an explicit zero from absence.
	HasDeclaredID bool
}

// Design is the scanned source: modules by name, in declaration order.
type Design struct {
	Source  string
	Modules map[string]*Module
	Order   []string
}

// Scan performs the lenient lexical pass over a Verilog source and
// returns every module declaration found.
func Scan(source string) (*Design, error) {
	toks, err := tokenize(source)
	if err != nil {
		return nil, err
	}

	d := &Design{Source: source, Modules: map[string]*Module{}}
	for i := 0; i < len(toks); i++ {
		if toks[i].kind != "Ident" || toks[i].value != "module" {
			continue
		}
		if i+1 >= len(toks) || toks[i+1].kind != "Ident" {
			return nil, errors.New(errors.ErrCodeInvalidModule, "module keyword without a name at offset %d", toks[i].pos)
		}
		name := toks[i+1].value
		start := i
		end := i + 1
		for end < len(toks) && !(toks[end].kind == "Ident" && toks[end].value == "endmodule") {
			end++
		}
		if end == len(toks) {
			return nil, errors.New(errors.ErrCodeInvalidModule, "module %s missing endmodule", name)
		}

		m := &Module{Name: name, DeclStart: toks[start].pos}
		var body strings.Builder
		for _, t := range toks[start : end+1] {
			body.WriteString(t.value)
			body.WriteByte(' ')
		}
		m.Body = body.String()
		m.DeclaredID, m.HasDeclaredID = scanCustomID(toks[start:end])

		if _, dup := d.Modules[name]; dup {
			return nil, errors.New(errors.ErrCodeInvalidModule, "module %s declared twice", name)
		}
		d.Modules[name] = m
		d.Order = append(d.Order, name)
		i = end
	}
	return d, nil
}

// scanCustomID finds a `parameter CUSTOM_ID = <number>` declaration.
func scanCustomID(toks []token) (uint64, bool) {
	for i := 0; i+3 < len(toks); i++ {
		if toks[i].kind != "Ident" || toks[i].value != "parameter" {
			continue
		}
		// Skip an optional type and scan forward to CUSTOM_ID.
		for j := i + 1; j < len(toks) && j < i+4; j++ {
			if toks[j].value != "CUSTOM_ID" {
				continue
			}
			if j+2 < len(toks) && toks[j+1].value == "=" && toks[j+2].kind == "Number" {
				if v, err := strconv.ParseUint(toks[j+2].value, 10, 64); err == nil {
					return v & idMask, true
				}
			}
		}
	}
	return 0, false
}

// idMask zeroes the top bit: identifiers are 63-bit.
const idMask = 0x7FFFFFFFFFFFFFFF

// AssignID returns the module's stable identifier: the declared
// CUSTOM_ID when present, else the FNV-1a hash of the name with the top
// bit masked off.
func (m *Module) AssignID() uint64 {
	if m.HasDeclaredID {
		return m.DeclaredID
	}
	h := fnv.New64a()
	h.Write([]byte(m.Name))
	return h.Sum64() & idMask
}

// Submodules returns every module except the top.
func (d *Design) Submodules(top string) ([]string, error) {
	if _, ok := d.Modules[top]; !ok {
		return nil, errors.New(errors.ErrCodeModuleNotFound, "top module %q not found in source", top)
	}
	var out []string
	for _, name := range d.Order {
		if name != top {
			out = append(out, name)
		}
	}
	return out, nil
}

// dependsOn reports whether module m textually references other.
func (d *Design) dependsOn(m, other string) bool {
	body := d.Modules[m].Body
	return strings.Contains(body, " "+other+" ")
}

// TopoOrder returns the modules in bottom-up compile order: every
// module appears after all modules it instantiates, with the top last.
// Cycles are rejected.
func (d *Design) TopoOrder(top string) ([]string, error) {
	if _, ok := d.Modules[top]; !ok {
		return nil, errors.New(errors.ErrCodeModuleNotFound, "top module %q not found in source", top)
	}

	const (
		white = iota
		gray
		black
	)
	color := map[string]int{}
	var order []string

	var visit func(name string) error
	visit = func(name string) error {
		color[name] = gray
		for _, dep := range d.Order {
			if dep == name || !d.dependsOn(name, dep) {
				continue
			}
			switch color[dep] {
			case gray:
				return errors.New(errors.ErrCodeHierarchyCycle,
					"module dependency cycle through %s and %s", name, dep)
			case white:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		color[name] = black
		order = append(order, name)
		return nil
	}

	if err := visit(top); err != nil {
		return nil, err
	}
	return order, nil
}

// InjectBlackbox returns the source with a blackbox attribute inserted
// before each named module declaration, so the synthesizer keeps their
// instances as cells instead of flattening them into the parent.
func InjectBlackbox(d *Design, names []string) string {
	mark := map[int]bool{}
	for _, name := range names {
		if m, ok := d.Modules[name]; ok {
			mark[m.DeclStart] = true
		}
	}

	var b strings.Builder
	last := 0
	// Declarations are injected in source order.
	for _, name := range d.Order {
		m := d.Modules[name]
		if !mark[m.DeclStart] {
			continue
		}
		b.WriteString(d.Source[last:m.DeclStart])
		b.WriteString("(* blackbox *)\n")
		last = m.DeclStart
	}
	b.WriteString(d.Source[last:])
	return b.String()
}

// String summarizes the design for debug logging.
func (d *Design) String() string {
	return fmt.Sprintf("design{modules: %d}", len(d.Modules))
}
