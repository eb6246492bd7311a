// Package functions implements the operations of the automaton autodiff
// engine. Each operation pairs a forward construction with a backward
// rule recorded on the result; the backward rules rely on the forward
// pass creating arcs in a fixed, documented order.
package functions

import (
	"fmt"
	"sort"

	"github.com/lattice-ml/lattice/internal/graph"
)

// Projection selects how Clone rewrites arc labels.
type Projection int

const (
	// ProjectNone leaves both labels unchanged.
	ProjectNone Projection = iota
	// ProjectInputLabels copies the input label onto both labels.
	ProjectInputLabels
	// ProjectOutputLabels copies the output label onto both labels.
	ProjectOutputLabels
)

// Negate returns a single-arc scalar graph carrying the negation of g's
// scalar weight. g must have exactly one arc.
//
// Backward: the delta is negated and passed to g.
func Negate(g *graph.Graph) *graph.Graph {
	if g.NumArcs() != 1 {
		panic(fmt.Sprintf("negate: input must have exactly one arc, got %d", g.NumArcs()))
	}
	gradFunc := func(inputs []*graph.Graph, deltas *graph.Graph) {
		inputs[0].AddGrad(Negate(deltas))
	}
	result := graph.NewDerived(gradFunc, []*graph.Graph{g})
	result.AddNode(true, false)
	result.AddNode(false, true)
	result.AddWeightedArc(0, 1, 0, 0, -g.Item())
	return result
}

// Add returns a single-arc scalar graph carrying the sum of the two
// scalar inputs. Both inputs must have exactly one arc.
//
// Backward: the delta passes unchanged to both inputs.
func Add(g1, g2 *graph.Graph) *graph.Graph {
	if g1.NumArcs() != 1 || g2.NumArcs() != 1 {
		panic(fmt.Sprintf("add: inputs must have exactly one arc, got %d and %d",
			g1.NumArcs(), g2.NumArcs()))
	}
	weight := g1.Item() + g2.Item()
	gradFunc := func(inputs []*graph.Graph, deltas *graph.Graph) {
		inputs[0].AddGrad(deltas)
		inputs[1].AddGrad(deltas)
	}
	result := graph.NewDerived(gradFunc, []*graph.Graph{g1, g2})
	result.AddNode(true, false)
	result.AddNode(false, true)
	result.AddWeightedArc(0, 1, 0, 0, weight)
	return result
}

// Subtract returns a single-arc scalar graph carrying g1 - g2. Both
// inputs must have exactly one arc.
//
// Backward: the delta passes unchanged to g1 and negated to g2; the
// negation is skipped entirely when g2 does not request gradients.
func Subtract(g1, g2 *graph.Graph) *graph.Graph {
	if g1.NumArcs() != 1 || g2.NumArcs() != 1 {
		panic(fmt.Sprintf("subtract: inputs must have exactly one arc, got %d and %d",
			g1.NumArcs(), g2.NumArcs()))
	}
	weight := g1.Item() - g2.Item()
	gradFunc := func(inputs []*graph.Graph, deltas *graph.Graph) {
		inputs[0].AddGrad(deltas)
		if inputs[1].CalcGrad() {
			inputs[1].AddGrad(Negate(deltas))
		}
	}
	result := graph.NewDerived(gradFunc, []*graph.Graph{g1, g2})
	result.AddNode(true, false)
	result.AddNode(false, true)
	result.AddWeightedArc(0, 1, 0, 0, weight)
	return result
}

// Clone returns a topology-preserving copy of g. The projection rewrites
// both labels to the input label, both to the output label, or leaves
// them unchanged.
//
// Backward: identity passthrough.
func Clone(g *graph.Graph, projection Projection) *graph.Graph {
	gradFunc := func(inputs []*graph.Graph, deltas *graph.Graph) {
		inputs[0].AddGrad(deltas)
	}
	out := graph.NewDerived(gradFunc, []*graph.Graph{g})
	for n := 0; n < g.NumNodes(); n++ {
		out.AddNode(g.IsStart(n), g.IsAccept(n))
	}
	for a := 0; a < g.NumArcs(); a++ {
		ilabel, olabel := g.ILabel(a), g.OLabel(a)
		switch projection {
		case ProjectInputLabels:
			olabel = ilabel
		case ProjectOutputLabels:
			ilabel = olabel
		}
		out.AddWeightedArc(g.SrcNode(a), g.DstNode(a), ilabel, olabel, g.Weight(a))
	}
	return out
}

// ProjectInput returns a copy of g with both labels set to the input
// label, turning a transducer into an acceptor over its input symbols.
func ProjectInput(g *graph.Graph) *graph.Graph {
	return Clone(g, ProjectInputLabels)
}

// ProjectOutput returns a copy of g with both labels set to the output
// label.
func ProjectOutput(g *graph.Graph) *graph.Graph {
	return Clone(g, ProjectOutputLabels)
}

// Concat concatenates the given graphs in order: every accept node of
// graph i is connected by an epsilon arc to every start node of graph
// i+1, only the first graph's start nodes remain starts and only the
// last graph's accept nodes remain accepts. Concatenating zero graphs
// yields the single start+accept node recognizing the empty string.
//
// Arc order: graph 0's arcs, graph 1's arcs, the 0->1 epsilon
// connectors, graph 2's arcs, the 1->2 connectors, and so on. The
// backward rule slices deltas into per-input spans by arc count and
// skips the connector arcs, through which no gradient flows.
func Concat(graphs ...*graph.Graph) *graph.Graph {
	gradFunc := func(inputs []*graph.Graph, deltas *graph.Graph) {
		grad := deltas.Weights()
		offset := 0
		for i, in := range inputs {
			if in.CalcGrad() {
				in.AddGradWeights(grad[offset : offset+in.NumArcs()])
			}
			offset += in.NumArcs()
			if i > 0 {
				offset += inputs[i-1].NumAccept() * in.NumStart()
			}
		}
	}
	out := graph.NewDerived(gradFunc, graphs)

	// By definition a^0 accepts the empty string.
	if len(graphs) == 0 {
		out.AddNode(true, true)
		return out
	}
	nodeOffset := 0
	for i, g := range graphs {
		for n := 0; n < g.NumNodes(); n++ {
			out.AddNode(i == 0 && g.IsStart(n), i == len(graphs)-1 && g.IsAccept(n))
		}
		for a := 0; a < g.NumArcs(); a++ {
			out.AddWeightedArc(
				nodeOffset+g.SrcNode(a),
				nodeOffset+g.DstNode(a),
				g.ILabel(a),
				g.OLabel(a),
				g.Weight(a))
		}
		if i > 0 {
			prev := graphs[i-1]
			prevOffset := nodeOffset - prev.NumNodes()
			for _, a := range prev.Accept() {
				for _, s := range g.Start() {
					out.AddArc(prevOffset+a, nodeOffset+s, graph.Epsilon)
				}
			}
		}
		nodeOffset += g.NumNodes()
	}
	return out
}

// Closure returns the Kleene star of g: a new node 0 that is both start
// and accept, epsilon arcs from it to every old start node and from
// every old accept node back to it. Old nodes are renumbered by +1 with
// their arcs first and in their original order.
//
// Backward: identity passthrough over g's original arcs; the epsilon
// arcs carry no gradient.
func Closure(g *graph.Graph) *graph.Graph {
	gradFunc := func(inputs []*graph.Graph, deltas *graph.Graph) {
		// The first NumArcs deltas line up with the input's arcs.
		inputs[0].AddGradWeights(deltas.Weights()[:inputs[0].NumArcs()])
	}
	closed := graph.NewDerived(gradFunc, []*graph.Graph{g})
	closed.AddNode(true, true)
	for n := 0; n < g.NumNodes(); n++ {
		closed.AddNode(false, false)
	}
	for a := 0; a < g.NumArcs(); a++ {
		closed.AddWeightedArc(
			g.SrcNode(a)+1,
			g.DstNode(a)+1,
			g.ILabel(a),
			g.OLabel(a),
			g.Weight(a))
	}
	for _, s := range g.Start() {
		closed.AddArc(0, s+1, graph.Epsilon)
	}
	for _, a := range g.Accept() {
		closed.AddArc(a+1, 0, graph.Epsilon)
	}
	return closed
}

// Union returns the disjoint union of the given graphs: nodes and arcs
// renumbered by running offsets, all original start and accept flags
// preserved, no arcs added.
//
// Backward: per-input contiguous slice passthrough.
func Union(graphs ...*graph.Graph) *graph.Graph {
	gradFunc := func(inputs []*graph.Graph, deltas *graph.Graph) {
		grad := deltas.Weights()
		offset := 0
		for _, in := range inputs {
			if in.CalcGrad() {
				in.AddGradWeights(grad[offset : offset+in.NumArcs()])
			}
			offset += in.NumArcs()
		}
	}
	out := graph.NewDerived(gradFunc, graphs)
	nodeOffset := 0
	for _, g := range graphs {
		for n := 0; n < g.NumNodes(); n++ {
			out.AddNode(g.IsStart(n), g.IsAccept(n))
		}
		for a := 0; a < g.NumArcs(); a++ {
			out.AddWeightedArc(
				nodeOffset+g.SrcNode(a),
				nodeOffset+g.DstNode(a),
				g.ILabel(a),
				g.OLabel(a),
				g.Weight(a))
		}
		nodeOffset += g.NumNodes()
	}
	return out
}

// Remove removes every arc whose labels equal (ilabel, olabel) while
// preserving reachability. A node survives iff it is a start node or has
// at least one incoming arc that does not match the removed pair; from
// each surviving node a search follows matching-label arcs transparently
// and reattaches the non-matching arcs it finds to the surviving
// endpoints, propagating accept status along matching chains. Arc
// weights are kept, but weights carried by the removed arcs themselves
// are not redistributed.
//
// Backward is not implemented: requesting a gradient through Remove
// panics rather than silently producing a wrong one.
func Remove(g *graph.Graph, ilabel, olabel int) *graph.Graph {
	gradFunc := func(inputs []*graph.Graph, deltas *graph.Graph) {
		panic("remove: gradient computation not implemented")
	}
	match := func(a int) bool {
		return g.ILabel(a) == ilabel && g.OLabel(a) == olabel
	}

	out := graph.NewDerived(gradFunc, []*graph.Graph{g})
	nodes := make([]int, g.NumNodes())
	for n := range nodes {
		nodes[n] = -1
	}
	for n := 0; n < g.NumNodes(); n++ {
		keep := g.IsStart(n)
		for _, a := range g.In(n) {
			if !match(a) {
				keep = true
				break
			}
		}
		if keep {
			nodes[n] = out.AddNode(g.IsStart(n), false)
		}
	}

	reachable := make(map[int]bool)
	for n := 0; n < g.NumNodes(); n++ {
		curr := nodes[n]
		if curr < 0 {
			continue
		}
		queue := []int{n}
		reachable[n] = true
		for len(queue) > 0 {
			next := queue[0]
			queue = queue[1:]
			if g.IsAccept(next) {
				out.MakeAccept(curr)
			}
			for _, a := range g.Out(next) {
				dn := g.DstNode(a)
				if match(a) {
					if !reachable[dn] {
						queue = append(queue, dn)
						reachable[dn] = true
					}
				} else {
					out.AddWeightedArc(curr, nodes[dn], g.ILabel(a), g.OLabel(a), g.Weight(a))
				}
			}
		}
		for k := range reachable {
			delete(reachable, k)
		}
	}
	return out
}

// MinimizeAcyclicFST merges equivalent states of an acyclic transducer,
// Moore style, working backwards from the zero-out-degree states: those
// are bucketed into at most 4 classes by (start, accept) and merged; then
// any state whose every outgoing arc leads to an already processed state
// is a candidate, and candidates are merged when they share start/accept
// flags, out-degree and a positional bijection of out-arcs on (ilabel,
// olabel, mapped destination).
//
// Minimization is not differentiable: the result is a fresh graph with no
// gradient tracking, and merging keeps a single representative's arc
// weights. Cyclic input is rejected with a panic.
func MinimizeAcyclicFST(g *graph.Graph) *graph.Graph {
	out := graph.New(false)
	oldToNew := make([]int, g.NumNodes())
	for n := range oldToNew {
		oldToNew[n] = -1
	}
	processed := make([]bool, g.NumNodes())
	numProcessed := 0
	predecessors := make(map[int]bool)

	addPredecessors := func(n int) {
		for _, a := range g.In(n) {
			predecessors[g.SrcNode(a)] = true
		}
	}
	mergeable := func(n1, n2 int) bool {
		if g.IsStart(n1) != g.IsStart(n2) ||
			g.IsAccept(n1) != g.IsAccept(n2) ||
			g.NumOut(n1) != g.NumOut(n2) {
			return false
		}
		out1, out2 := g.Out(n1), g.Out(n2)
		for i := range out1 {
			a1, a2 := out1[i], out2[i]
			if g.ILabel(a1) != g.ILabel(a2) ||
				g.OLabel(a1) != g.OLabel(a2) ||
				oldToNew[g.DstNode(a1)] != oldToNew[g.DstNode(a2)] {
				return false
			}
		}
		return true
	}

	// Zero-out-degree states merge into at most one node per
	// (start, accept) class.
	classNodes := [2][2]int{{-1, -1}, {-1, -1}}
	boolIdx := func(b bool) int {
		if b {
			return 1
		}
		return 0
	}
	for n := 0; n < g.NumNodes(); n++ {
		if g.NumOut(n) != 0 {
			continue
		}
		s, a := boolIdx(g.IsStart(n)), boolIdx(g.IsAccept(n))
		if classNodes[s][a] < 0 {
			classNodes[s][a] = out.AddNode(g.IsStart(n), g.IsAccept(n))
		}
		oldToNew[n] = classNodes[s][a]
		addPredecessors(n)
		processed[n] = true
		numProcessed++
	}

	for len(predecessors) > 0 {
		// Deterministic sweep order over the current predecessor set.
		cands := make([]int, 0, len(predecessors))
		for n := range predecessors {
			cands = append(cands, n)
		}
		sort.Ints(cands)

		var classes [][]int
		for _, n := range cands {
			if processed[n] {
				continue
			}
			ready := true
			for _, a := range g.Out(n) {
				if !processed[g.DstNode(a)] {
					ready = false
					break
				}
			}
			if !ready {
				continue
			}
			placed := false
			for i := range classes {
				if mergeable(classes[i][0], n) {
					classes[i] = append(classes[i], n)
					placed = true
					break
				}
			}
			if !placed {
				classes = append(classes, []int{n})
			}
		}

		for k := range predecessors {
			delete(predecessors, k)
		}
		if len(classes) == 0 {
			break
		}
		for _, class := range classes {
			rep := class[0]
			merged := out.AddNode(g.IsStart(rep), g.IsAccept(rep))
			for _, n := range class {
				addPredecessors(n)
				processed[n] = true
				numProcessed++
				oldToNew[n] = merged
			}
			for _, a := range g.Out(rep) {
				out.AddWeightedArc(
					merged,
					oldToNew[g.DstNode(a)],
					g.ILabel(a),
					g.OLabel(a),
					g.Weight(a))
			}
		}
	}

	if numProcessed < g.NumNodes() {
		panic("minimizeAcyclicFST: input graph must be acyclic")
	}
	return out
}
