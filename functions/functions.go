// Copyright 2025 Lattice ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package functions provides the differentiable operations over graphs:
// scalar arithmetic, structural combinators, composition/intersection
// and shortest-distance computations. Every operation records a backward
// rule on its result; run autodiff.Backward on a result to accumulate
// gradients on the inputs.
//
// Example:
//
//	g1 := graph.ScalarGraph(2, true)
//	g2 := graph.ScalarGraph(3, true)
//	sum := functions.Add(g1, g2)
//	autodiff.Backward(sum, false)
//	// g1.Grad() and g2.Grad() now hold the gradients.
package functions

import (
	"github.com/lattice-ml/lattice/internal/functions"
	"github.com/lattice-ml/lattice/internal/graph"
)

// Projection selects how Clone rewrites arc labels.
type Projection = functions.Projection

// Projection values.
const (
	ProjectNone         Projection = functions.ProjectNone
	ProjectInputLabels  Projection = functions.ProjectInputLabels
	ProjectOutputLabels Projection = functions.ProjectOutputLabels
)

// Negate returns the negation of a single-arc scalar graph.
func Negate(g *graph.Graph) *graph.Graph {
	return functions.Negate(g)
}

// Add returns the sum of two single-arc scalar graphs.
func Add(g1, g2 *graph.Graph) *graph.Graph {
	return functions.Add(g1, g2)
}

// Subtract returns the difference of two single-arc scalar graphs.
func Subtract(g1, g2 *graph.Graph) *graph.Graph {
	return functions.Subtract(g1, g2)
}

// Clone returns a topology-preserving copy of g, optionally projecting
// arc labels onto the input or output side.
func Clone(g *graph.Graph, projection Projection) *graph.Graph {
	return functions.Clone(g, projection)
}

// ProjectInput returns a copy of g with both labels set to the input
// label.
func ProjectInput(g *graph.Graph) *graph.Graph {
	return functions.ProjectInput(g)
}

// ProjectOutput returns a copy of g with both labels set to the output
// label.
func ProjectOutput(g *graph.Graph) *graph.Graph {
	return functions.ProjectOutput(g)
}

// Concat concatenates graphs in order, connecting each graph's accept
// nodes to the next graph's start nodes with epsilon arcs.
func Concat(graphs ...*graph.Graph) *graph.Graph {
	return functions.Concat(graphs...)
}

// Closure returns the Kleene star of g.
func Closure(g *graph.Graph) *graph.Graph {
	return functions.Closure(g)
}

// Union returns the disjoint union of the given graphs.
func Union(graphs ...*graph.Graph) *graph.Graph {
	return functions.Union(graphs...)
}

// Remove removes arcs labeled (ilabel, olabel) while preserving
// reachability. Its backward pass is not implemented; see the internal
// documentation for the weight-handling limitation.
func Remove(g *graph.Graph, ilabel, olabel int) *graph.Graph {
	return functions.Remove(g, ilabel, olabel)
}

// Compose builds the product transducer of g1 and g2 over matched
// labels, picking the fastest arc matcher the inputs' cached sortedness
// permits.
func Compose(g1, g2 *graph.Graph) *graph.Graph {
	return functions.Compose(g1, g2)
}

// Intersect builds the product acceptor of two acceptors over shared
// labels.
func Intersect(g1, g2 *graph.Graph) *graph.Graph {
	return functions.Intersect(g1, g2)
}

// ForwardScore returns the log-sum-exp over all start-to-accept path
// weights as a single-arc scalar graph.
func ForwardScore(g *graph.Graph) *graph.Graph {
	return functions.ForwardScore(g)
}

// ViterbiScore returns the maximum start-to-accept path weight as a
// single-arc scalar graph.
func ViterbiScore(g *graph.Graph) *graph.Graph {
	return functions.ViterbiScore(g)
}

// ViterbiPath returns the best-weight path as a linear graph.
func ViterbiPath(g *graph.Graph) *graph.Graph {
	return functions.ViterbiPath(g)
}

// MinimizeAcyclicFST merges equivalent states of an acyclic transducer.
// The result does not track gradients.
func MinimizeAcyclicFST(g *graph.Graph) *graph.Graph {
	return functions.MinimizeAcyclicFST(g)
}
