// Copyright 2025 Lattice ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package draw renders graphs in Graphviz dot format.
package draw

import (
	"io"

	"github.com/lattice-ml/lattice/internal/draw"
	"github.com/lattice-ml/lattice/internal/graph"
)

// Dot writes g to w in Graphviz dot format, translating labels through
// the optional input/output symbol maps.
func Dot(w io.Writer, g *graph.Graph, isymbols, osymbols map[int]string) error {
	return draw.Dot(w, g, isymbols, osymbols)
}
