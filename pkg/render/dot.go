// Package render draws a netlist as a node-link diagram for inspection:
// components become boxes, nets become edges, and Graphviz does the
// drawing. Debug tooling only; the compile pipeline never depends on it.
package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/liquidhelium/verilog-target-turing-complete/pkg/netlist"
)

// Options configures diagram generation.
type Options struct {
	// Detailed includes net names as edge labels and port names in
	// node tooltips.
	Detailed bool
}

// ToDOT converts a netlist to Graphviz DOT format. IO components are
// highlighted so the module boundary reads at a glance.
func ToDOT(nl *netlist.Netlist, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph netlist {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12];\n")
	buf.WriteString("\n")

	for _, c := range nl.Components() {
		label := c.Template.ID
		if c.Label != "" {
			label = fmt.Sprintf("%s\\n%s", c.Label, c.Template.ID)
		}
		attrs := []string{fmt.Sprintf("label=\"%s\"", label)}
		if c.IsInput() || c.IsOutput() {
			attrs = append(attrs, "fillcolor=lightblue")
		}
		if opts.Detailed {
			ports := make([]string, 0, len(c.PortLayout()))
			for _, p := range c.PortLayout() {
				ports = append(ports, p.ID)
			}
			attrs = append(attrs, fmt.Sprintf("tooltip=\"%s\"", strings.Join(ports, ", ")))
		}
		fmt.Fprintf(&buf, "  c%d [%s];\n", c.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, n := range nl.UniqueNets() {
		if n.Source == nil {
			continue
		}
		for _, sink := range n.Sinks {
			if opts.Detailed {
				fmt.Fprintf(&buf, "  c%d -> c%d [label=\"%s\"];\n",
					n.Source.Component, sink.Component, n.ID)
				continue
			}
			fmt.Fprintf(&buf, "  c%d -> c%d;\n", n.Source.Component, sink.Component)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
