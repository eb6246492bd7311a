// Package graph implements the weighted finite-state automaton core:
// node and arc storage, start/accept sets, per-arc gradient accumulation
// and the recorded backward closure that links a derived graph to its
// inputs in the derivation DAG.
package graph

import (
	"fmt"
	"sort"
)

// Epsilon is the reserved label meaning "no symbol consumed/produced".
const Epsilon = -1

// GradFunc is the backward rule recorded on a derived graph. It receives
// the graphs the forward construction consumed and a deltas graph whose
// arc i carries the gradient of the result with respect to the derived
// graph's own arc i. Arc order in deltas is exactly the order the forward
// construction created arcs; every GradFunc relies on that positionally.
type GradFunc func(inputs []*Graph, deltas *Graph)

type arc struct {
	src    int
	dst    int
	ilabel int
	olabel int
}

// Graph is a weighted finite-state acceptor or transducer. A graph may
// have multiple start and multiple accept nodes. Node indices are dense
// and assigned at creation; arc insertion order is part of the contract
// (backward closures slice gradient vectors positionally).
type Graph struct {
	startFlags  []bool
	acceptFlags []bool
	start       []int // start node indices, insertion order
	accept      []int // accept node indices, insertion order
	in          [][]int
	out         [][]int
	arcs        []arc
	weights     []float32

	ilabelSorted bool
	olabelSorted bool

	calcGrad bool
	grad     []float32 // lazily allocated, summed across uses
	gradFunc GradFunc
	inputs   []*Graph
}

// New creates an empty leaf graph. calcGrad requests gradient tracking;
// graphs that do not need differentiation should pass false so that no
// gradient work is ever done for them.
func New(calcGrad bool) *Graph {
	return &Graph{calcGrad: calcGrad}
}

// NewDerived creates an empty graph produced by an operation on inputs.
// The gradFunc is recorded for the backward pass and gradient tracking is
// requested iff any input requests it.
func NewDerived(gradFunc GradFunc, inputs []*Graph) *Graph {
	calcGrad := false
	for _, in := range inputs {
		if in.calcGrad {
			calcGrad = true
			break
		}
	}
	g := &Graph{calcGrad: calcGrad}
	if calcGrad {
		g.gradFunc = gradFunc
		g.inputs = inputs
	}
	return g
}

// AddNode adds a node, optionally marking it start and/or accept, and
// returns its index.
func (g *Graph) AddNode(start, accept bool) int {
	n := len(g.startFlags)
	g.startFlags = append(g.startFlags, start)
	g.acceptFlags = append(g.acceptFlags, accept)
	g.in = append(g.in, nil)
	g.out = append(g.out, nil)
	if start {
		g.start = append(g.start, n)
	}
	if accept {
		g.accept = append(g.accept, n)
	}
	return n
}

// MakeAccept marks an existing node as an accept node.
func (g *Graph) MakeAccept(n int) {
	g.checkNode(n)
	if !g.acceptFlags[n] {
		g.acceptFlags[n] = true
		g.accept = append(g.accept, n)
	}
}

// AddArc adds an acceptor arc with olabel equal to ilabel and weight 0,
// returning its index.
func (g *Graph) AddArc(src, dst, label int) int {
	return g.AddWeightedArc(src, dst, label, label, 0)
}

// AddWeightedArc adds an arc and returns its index. Endpoints must be
// valid node indices; a failing call leaves the graph unchanged.
func (g *Graph) AddWeightedArc(src, dst, ilabel, olabel int, weight float32) int {
	g.checkNode(src)
	g.checkNode(dst)
	a := len(g.arcs)
	g.arcs = append(g.arcs, arc{src: src, dst: dst, ilabel: ilabel, olabel: olabel})
	g.weights = append(g.weights, weight)
	g.out[src] = append(g.out[src], a)
	g.in[dst] = append(g.in[dst], a)
	// Sorted-arc caches are invalidated by any insertion.
	g.ilabelSorted = false
	g.olabelSorted = false
	return a
}

func (g *Graph) checkNode(n int) {
	if n < 0 || n >= len(g.startFlags) {
		panic(fmt.Sprintf("graph: node index %d out of range [0, %d)", n, len(g.startFlags)))
	}
}

func (g *Graph) checkArc(a int) {
	if a < 0 || a >= len(g.arcs) {
		panic(fmt.Sprintf("graph: arc index %d out of range [0, %d)", a, len(g.arcs)))
	}
}

// NumNodes returns the number of nodes.
func (g *Graph) NumNodes() int { return len(g.startFlags) }

// NumStart returns the number of start nodes.
func (g *Graph) NumStart() int { return len(g.start) }

// NumAccept returns the number of accept nodes.
func (g *Graph) NumAccept() int { return len(g.accept) }

// NumArcs returns the number of arcs.
func (g *Graph) NumArcs() int { return len(g.arcs) }

// Start returns the start node indices in insertion order. The slice is
// owned by the graph and must not be modified.
func (g *Graph) Start() []int { return g.start }

// Accept returns the accept node indices in insertion order. The slice is
// owned by the graph and must not be modified.
func (g *Graph) Accept() []int { return g.accept }

// IsStart reports whether node n is a start node.
func (g *Graph) IsStart(n int) bool {
	g.checkNode(n)
	return g.startFlags[n]
}

// IsAccept reports whether node n is an accept node.
func (g *Graph) IsAccept(n int) bool {
	g.checkNode(n)
	return g.acceptFlags[n]
}

// In returns the indices of arcs entering node n.
func (g *Graph) In(n int) []int {
	g.checkNode(n)
	return g.in[n]
}

// Out returns the indices of arcs leaving node n.
func (g *Graph) Out(n int) []int {
	g.checkNode(n)
	return g.out[n]
}

// NumIn returns the in-degree of node n.
func (g *Graph) NumIn(n int) int {
	g.checkNode(n)
	return len(g.in[n])
}

// NumOut returns the out-degree of node n.
func (g *Graph) NumOut(n int) int {
	g.checkNode(n)
	return len(g.out[n])
}

// SrcNode returns the source node of arc a.
func (g *Graph) SrcNode(a int) int {
	g.checkArc(a)
	return g.arcs[a].src
}

// DstNode returns the destination node of arc a.
func (g *Graph) DstNode(a int) int {
	g.checkArc(a)
	return g.arcs[a].dst
}

// ILabel returns the input label of arc a.
func (g *Graph) ILabel(a int) int {
	g.checkArc(a)
	return g.arcs[a].ilabel
}

// OLabel returns the output label of arc a.
func (g *Graph) OLabel(a int) int {
	g.checkArc(a)
	return g.arcs[a].olabel
}

// Weight returns the weight of arc a.
func (g *Graph) Weight(a int) float32 {
	g.checkArc(a)
	return g.weights[a]
}

// SetWeight sets the weight of arc a.
func (g *Graph) SetWeight(a int, w float32) {
	g.checkArc(a)
	g.weights[a] = w
}

// Weights returns the per-arc weights in arc order. The slice is owned by
// the graph and must not be modified.
func (g *Graph) Weights() []float32 { return g.weights }

// SetWeights replaces all arc weights. The length must match NumArcs.
func (g *Graph) SetWeights(w []float32) {
	if len(w) != len(g.weights) {
		panic(fmt.Sprintf("graph: SetWeights got %d weights for %d arcs", len(w), len(g.weights)))
	}
	copy(g.weights, w)
}

// Item returns the weight of a single-arc scalar graph. It panics for any
// other shape; use it on the results of scalar operations and the
// shortest-distance scores.
func (g *Graph) Item() float32 {
	if len(g.arcs) != 1 {
		panic(fmt.Sprintf("graph: Item requires exactly one arc, graph has %d", len(g.arcs)))
	}
	return g.weights[0]
}

// ArcSort sorts every node's incoming and outgoing arc lists by ilabel,
// or by olabel when olabel is true, and caches the sortedness so compose
// can pick a faster matcher.
func (g *Graph) ArcSort(olabel bool) {
	label := g.ILabel
	if olabel {
		label = g.OLabel
	}
	for n := range g.out {
		sort.SliceStable(g.out[n], func(i, j int) bool {
			return label(g.out[n][i]) < label(g.out[n][j])
		})
		sort.SliceStable(g.in[n], func(i, j int) bool {
			return label(g.in[n][i]) < label(g.in[n][j])
		})
	}
	if olabel {
		g.olabelSorted = true
	} else {
		g.ilabelSorted = true
	}
}

// MarkArcSorted records that the graph's arcs are already sorted by
// ilabel (or olabel) without sorting. The caller is responsible for the
// claim being true.
func (g *Graph) MarkArcSorted(olabel bool) {
	if olabel {
		g.olabelSorted = true
	} else {
		g.ilabelSorted = true
	}
}

// ILabelSorted reports whether arc lists are sorted by input label.
func (g *Graph) ILabelSorted() bool { return g.ilabelSorted }

// OLabelSorted reports whether arc lists are sorted by output label.
func (g *Graph) OLabelSorted() bool { return g.olabelSorted }

// CalcGrad reports whether gradient tracking was requested. Every
// operation checks it before doing gradient-related work.
func (g *Graph) CalcGrad() bool { return g.calcGrad }

// SetCalcGrad turns gradient tracking on or off. Turning it off also
// drops any accumulated gradient and the recorded backward closure.
func (g *Graph) SetCalcGrad(calcGrad bool) {
	g.calcGrad = calcGrad
	if !calcGrad {
		g.grad = nil
		g.gradFunc = nil
		g.inputs = nil
	}
}

// GradFuncRecorded reports whether a backward closure is recorded.
func (g *Graph) GradFuncRecorded() bool { return g.gradFunc != nil }

// Inputs returns the graphs this graph was derived from, nil for leaves.
// The slice is owned by the graph and must not be modified.
func (g *Graph) Inputs() []*Graph { return g.inputs }

// HasGrad reports whether a gradient has been accumulated.
func (g *Graph) HasGrad() bool { return g.grad != nil }

// Grad returns the accumulated gradient as a graph sharing this graph's
// topology with the gradient values as weights. It panics if no gradient
// has been accumulated.
func (g *Graph) Grad() *Graph {
	if g.grad == nil {
		panic("graph: gradient not available (was backward run with calcGrad set?)")
	}
	out := g.WithoutWeights()
	out.SetWeights(g.grad)
	return out
}

// AddGrad accumulates a gradient contribution given as a graph with one
// weight per arc. Contributions sum across all uses of the graph; calls
// are no-ops when gradient tracking is off.
func (g *Graph) AddGrad(other *Graph) {
	if !g.calcGrad {
		return
	}
	g.AddGradWeights(other.Weights())
}

// AddGradWeights accumulates a per-arc gradient contribution.
func (g *Graph) AddGradWeights(values []float32) {
	if !g.calcGrad {
		return
	}
	if len(values) != len(g.arcs) {
		panic(fmt.Sprintf("graph: AddGrad got %d values for %d arcs", len(values), len(g.arcs)))
	}
	// A graph with no arcs has no per-arc gradient; allocating an empty
	// accumulator would make HasGrad report a gradient that isn't there.
	if len(g.arcs) == 0 {
		return
	}
	if g.grad == nil {
		g.grad = make([]float32, len(g.arcs))
	}
	for i, v := range values {
		g.grad[i] += v
	}
}

// ZeroGrad drops the accumulated gradient.
func (g *Graph) ZeroGrad() { g.grad = nil }

// ClearDerivation drops the recorded backward closure and input
// references, detaching the graph from its derivation DAG. The autodiff
// driver calls this after a non-retaining backward pass.
func (g *Graph) ClearDerivation() {
	g.gradFunc = nil
	g.inputs = nil
}

// Backward invokes the recorded backward closure exactly once with the
// input list and a deltas graph whose arc i gradient corresponds
// positionally to this graph's arc i.
func (g *Graph) Backward(deltas *Graph) {
	if g.gradFunc == nil {
		return
	}
	if deltas.NumArcs() != g.NumArcs() {
		panic(fmt.Sprintf("graph: Backward got deltas with %d arcs for graph with %d",
			deltas.NumArcs(), g.NumArcs()))
	}
	g.gradFunc(g.inputs, deltas)
}

// WithoutWeights returns a structural copy: same nodes, arcs and
// topology, weights zeroed and no gradient tracking. Useful for reusing
// a graph's topology as a fresh untracked leaf.
func (g *Graph) WithoutWeights() *Graph {
	out := &Graph{
		startFlags:   append([]bool(nil), g.startFlags...),
		acceptFlags:  append([]bool(nil), g.acceptFlags...),
		start:        append([]int(nil), g.start...),
		accept:       append([]int(nil), g.accept...),
		in:           make([][]int, len(g.in)),
		out:          make([][]int, len(g.out)),
		arcs:         append([]arc(nil), g.arcs...),
		weights:      make([]float32, len(g.weights)),
		ilabelSorted: g.ilabelSorted,
		olabelSorted: g.olabelSorted,
	}
	for n := range g.in {
		out.in[n] = append([]int(nil), g.in[n]...)
		out.out[n] = append([]int(nil), g.out[n]...)
	}
	return out
}
