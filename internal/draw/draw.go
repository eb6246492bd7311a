// Package draw renders graphs in Graphviz dot format for inspection.
// It reads topology only and never mutates the graph.
package draw

import (
	"fmt"
	"io"

	"github.com/lattice-ml/lattice/internal/graph"
)

// Dot writes g to w in Graphviz dot format. Start nodes are bold, accept
// nodes doublecircled. The optional symbol maps translate labels; absent
// labels print numerically and epsilon prints as the empty-set sign.
func Dot(w io.Writer, g *graph.Graph, isymbols, osymbols map[int]string) error {
	label := func(symbols map[int]string, l int) string {
		if s, ok := symbols[l]; ok {
			return s
		}
		if l == graph.Epsilon {
			return "ε"
		}
		return fmt.Sprintf("%d", l)
	}

	if _, err := fmt.Fprintf(w, "digraph FST {\n  margin = 0;\n  rankdir = LR;\n"); err != nil {
		return err
	}
	for n := 0; n < g.NumNodes(); n++ {
		shape := "circle"
		if g.IsAccept(n) {
			shape = "doublecircle"
		}
		style := ""
		if g.IsStart(n) {
			style = ", style = bold"
		}
		if _, err := fmt.Fprintf(w, "  %d [label = \"%d\", shape = %s%s];\n", n, n, shape, style); err != nil {
			return err
		}
	}
	for a := 0; a < g.NumArcs(); a++ {
		il := label(isymbols, g.ILabel(a))
		ol := label(osymbols, g.OLabel(a))
		text := il
		if il != ol {
			text = il + ":" + ol
		}
		if _, err := fmt.Fprintf(w, "  %d -> %d [label = \"%s/%.4g\"];\n",
			g.SrcNode(a), g.DstNode(a), text, g.Weight(a)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "}\n")
	return err
}
