// Copyright 2025 Lattice ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package graph provides the public API for weighted finite-state
// automata and transducers with gradient tracking.
//
// A Graph is a set of nodes (with start/accept flags) and weighted,
// labeled arcs. Graphs built here feed the operations in package
// functions, and gradients of a scalar result flow back onto every arc
// weight via package autodiff.
//
// Example:
//
//	g := graph.New(true)
//	g.AddNode(true, false)
//	g.AddNode(false, true)
//	g.AddWeightedArc(0, 1, 0, 0, 1.5)
package graph

import (
	"github.com/lattice-ml/lattice/internal/graph"
)

// Epsilon is the reserved label meaning "no symbol consumed/produced".
const Epsilon = graph.Epsilon

// Graph is a weighted finite-state acceptor or transducer.
type Graph = graph.Graph

// GradFunc is the backward rule recorded on a derived graph.
type GradFunc = graph.GradFunc

// New creates an empty leaf graph. calcGrad requests gradient tracking.
func New(calcGrad bool) *Graph {
	return graph.New(calcGrad)
}

// NewDerived creates an empty graph derived from inputs with a recorded
// backward rule. Most callers use package functions instead; NewDerived
// is the hook for defining new differentiable operations.
func NewDerived(gradFunc GradFunc, inputs []*Graph) *Graph {
	return graph.NewDerived(gradFunc, inputs)
}

// ScalarGraph creates the two-node, single-arc graph carrying a scalar.
func ScalarGraph(weight float32, calcGrad bool) *Graph {
	return graph.ScalarGraph(weight, calcGrad)
}

// LinearGraph creates a chain of m+1 nodes with n parallel arcs labeled
// 0..n-1 between each consecutive pair.
func LinearGraph(m, n int, calcGrad bool) *Graph {
	return graph.LinearGraph(m, n, calcGrad)
}

// Equal reports whether two graphs are identical, including node and
// arc order.
func Equal(g1, g2 *Graph) bool {
	return graph.Equal(g1, g2)
}

// Isomorphic reports whether two graphs are identical up to a
// renumbering of nodes.
func Isomorphic(g1, g2 *Graph) bool {
	return graph.Isomorphic(g1, g2)
}
