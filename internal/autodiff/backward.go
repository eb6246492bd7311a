// Package autodiff drives the backward pass over a derivation DAG of
// graphs. The forward operations record a closure and input references
// on every derived graph; Backward walks that DAG in reverse topological
// order and invokes each closure exactly once, leaving accumulated
// per-arc gradients on every tracked graph.
package autodiff

import (
	"fmt"

	"github.com/lattice-ml/lattice/internal/graph"
)

// Backward runs the backward pass from root, seeding every root arc with
// a delta of 1 (the usual case for single-arc scalar results). Gradients
// are then readable from each input graph via Grad. Unless retainGraph
// is set, the recorded closures and input references of all visited
// graphs are released afterwards, so a second backward pass through the
// same derivation needs the forward pass rebuilt.
func Backward(root *graph.Graph, retainGraph bool) {
	deltas := root.WithoutWeights()
	ones := make([]float32, deltas.NumArcs())
	for i := range ones {
		ones[i] = 1
	}
	deltas.SetWeights(ones)
	BackwardWithDeltas(root, deltas, retainGraph)
}

// BackwardWithDeltas runs the backward pass from root with an explicit
// per-arc output delta, positionally aligned with root's arcs.
func BackwardWithDeltas(root, deltas *graph.Graph, retainGraph bool) {
	if !root.CalcGrad() {
		panic("backward: root does not have gradient tracking enabled")
	}
	if deltas.NumArcs() != root.NumArcs() {
		panic(fmt.Sprintf("backward: deltas has %d arcs, root has %d",
			deltas.NumArcs(), root.NumArcs()))
	}

	order := topologicalOrder(root)
	root.AddGrad(deltas)

	// Reverse topological order: every graph's gradient is complete
	// before its closure distributes it to the inputs.
	for i := len(order) - 1; i >= 0; i-- {
		g := order[i]
		if g.CalcGrad() && g.GradFuncRecorded() && g.HasGrad() {
			g.Backward(g.Grad())
			// The accumulator of a derived graph is transient working
			// state. Dropping it once distributed keeps a later retained
			// pass from re-seeding on top of it; only leaves accumulate
			// across passes.
			g.ZeroGrad()
		}
		if !retainGraph {
			g.ClearDerivation()
		}
	}
}

// topologicalOrder returns the derivation DAG of root, inputs before
// consumers, each graph exactly once. Iterative depth-first search;
// operations only ever reference previously constructed graphs, so the
// input references can never form a cycle.
func topologicalOrder(root *graph.Graph) []*graph.Graph {
	var order []*graph.Graph
	done := make(map[*graph.Graph]bool)

	type frame struct {
		g    *graph.Graph
		next int
	}
	stack := []frame{{g: root}}
	done[root] = true
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		inputs := top.g.Inputs()
		if top.next < len(inputs) {
			in := inputs[top.next]
			top.next++
			if !done[in] {
				done[in] = true
				stack = append(stack, frame{g: in})
			}
			continue
		}
		order = append(order, top.g)
		stack = stack[:len(stack)-1]
	}
	return order
}
