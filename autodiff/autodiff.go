// Copyright 2025 Lattice ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides the backward entry point for graph
// computations.
//
// Forward operations (package functions) record a backward closure and
// input references on every derived graph, forming a derivation DAG.
// Backward walks that DAG from a result graph in reverse topological
// order, invoking each closure exactly once; afterwards every input
// graph that requested gradients holds a per-arc gradient accumulator
// readable via its Grad method.
//
// Example:
//
//	emissions := graph.LinearGraph(4, 10, true)
//	score := functions.ForwardScore(functions.Compose(emissions, target))
//	autodiff.Backward(score, false)
//	grads := emissions.Grad() // same topology, gradients as weights
package autodiff

import (
	"github.com/lattice-ml/lattice/internal/autodiff"
	"github.com/lattice-ml/lattice/internal/graph"
)

// Backward runs the backward pass from root with a delta of 1 per root
// arc. Unless retainGraph is set, the derivation DAG is released as it
// is walked; rerunning Backward then requires rebuilding the forward
// pass.
func Backward(root *graph.Graph, retainGraph bool) {
	autodiff.Backward(root, retainGraph)
}

// BackwardWithDeltas runs the backward pass from root with an explicit
// per-arc output delta, positionally aligned with root's arcs.
func BackwardWithDeltas(root, deltas *graph.Graph, retainGraph bool) {
	autodiff.BackwardWithDeltas(root, deltas, retainGraph)
}
