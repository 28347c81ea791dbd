package export

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/san-kum/layoutopt/internal/layout"
)

// GraphToDOT draws the constraint graph of desc: one node per shape and one
// edge per term between consecutive arguments. Constraints are solid,
// objectives dashed. Single-shape terms become self loops.
func GraphToDOT(desc *layout.Description) string {
	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14];\n")
	buf.WriteString("  edge [fontsize=10];\n\n")

	for _, s := range desc.Shapes {
		fmt.Fprintf(&buf, "  %q [label=%q, shape=%s];\n", s.Name, s.Name+"\n"+s.Kind, nodeShape(s.Kind))
	}
	buf.WriteString("\n")

	writeTerms := func(terms []layout.TermDesc, style string) {
		for _, t := range terms {
			label := t.Name
			if len(t.Params) > 0 {
				ps := make([]string, len(t.Params))
				for i, p := range t.Params {
					ps[i] = num(p)
				}
				label += "(" + strings.Join(ps, ", ") + ")"
			}
			switch len(t.Args) {
			case 0:
			case 1:
				fmt.Fprintf(&buf, "  %q -- %q [label=%q, style=%s];\n", t.Args[0], t.Args[0], label, style)
			default:
				for i := 1; i < len(t.Args); i++ {
					fmt.Fprintf(&buf, "  %q -- %q [label=%q, style=%s];\n", t.Args[i-1], t.Args[i], label, style)
				}
			}
		}
	}
	writeTerms(desc.Constraints, "solid")
	writeTerms(desc.Objectives, "dashed")

	buf.WriteString("}\n")
	return buf.String()
}

func nodeShape(kind string) string {
	switch kind {
	case "Circle":
		return "circle"
	case "Ellipse":
		return "ellipse"
	case "Label":
		return "plaintext"
	case "Line":
		return "underline"
	}
	return "box"
}

// RenderDOT renders a DOT graph to SVG with Graphviz.
func RenderDOT(ctx context.Context, dot string) ([]byte, error) {
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
