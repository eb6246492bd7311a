package functions

import (
	"math"

	"github.com/lattice-ml/lattice/internal/graph"
)

var negInf = float32(math.Inf(-1))

// logAdd combines two log-domain scores: log(exp(a) + exp(b)).
func logAdd(a, b float32) float32 {
	if a == negInf {
		return b
	}
	if b == negInf {
		return a
	}
	hi, lo := a, b
	if lo > hi {
		hi, lo = lo, hi
	}
	return hi + float32(math.Log1p(math.Exp(float64(lo-hi))))
}

// nodeScores runs the single topological pass shared by the shortest
// distance and path computations: each node's score combines
// (predecessor score + arc weight) over all incoming arcs, seeded with 0
// at start nodes, using log-sum-exp or max. For the max semiring it also
// records, per node, the incoming arc of the best path. The graph must
// be acyclic; a cycle leaves nodes unfinalized and is rejected.
func nodeScores(g *graph.Graph, tropical bool) (scores []float32, backptr []int) {
	n := g.NumNodes()
	scores = make([]float32, n)
	for i := range scores {
		scores[i] = negInf
	}
	for _, s := range g.Start() {
		scores[s] = 0
	}
	if tropical {
		backptr = make([]int, n)
		for i := range backptr {
			backptr[i] = -1
		}
	}

	degrees := make([]int, n)
	var queue []int
	for i := 0; i < n; i++ {
		degrees[i] = g.NumIn(i)
		if degrees[i] == 0 {
			queue = append(queue, i)
		}
	}
	finalized := 0
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		finalized++
		for _, a := range g.Out(node) {
			dst := g.DstNode(a)
			score := scores[node] + g.Weight(a)
			if tropical {
				if score > scores[dst] {
					scores[dst] = score
					backptr[dst] = a
				}
			} else {
				scores[dst] = logAdd(scores[dst], score)
			}
			degrees[dst]--
			if degrees[dst] == 0 {
				queue = append(queue, dst)
			}
		}
	}
	if finalized != n {
		panic("shortestDistance: input graph must be acyclic")
	}
	return scores, backptr
}

// shortestDistance aggregates the weight of all start-to-accept paths
// under log-sum-exp (tropical false) or max (tropical true) and returns
// it as a single-arc scalar graph.
func shortestDistance(g *graph.Graph, tropical bool) *graph.Graph {
	scores, backptr := nodeScores(g, tropical)
	total := negInf
	for _, a := range g.Accept() {
		if tropical {
			if scores[a] > total {
				total = scores[a]
			}
		} else {
			total = logAdd(total, scores[a])
		}
	}

	var gradFunc graph.GradFunc
	if tropical {
		gradFunc = func(inputs []*graph.Graph, deltas *graph.Graph) {
			viterbiGrad(inputs[0], scores, backptr, total, deltas.Item())
		}
	} else {
		gradFunc = func(inputs []*graph.Graph, deltas *graph.Graph) {
			forwardGrad(inputs[0], scores, total, deltas.Item())
		}
	}
	result := graph.NewDerived(gradFunc, []*graph.Graph{g})
	result.AddNode(true, false)
	result.AddNode(false, true)
	result.AddWeightedArc(0, 1, 0, 0, total)
	return result
}

// forwardGrad distributes the output delta over all arcs: in reverse
// topological order, each arc receives the softmax share
// exp(score(src) + w - score(dst)) of its destination's gradient.
func forwardGrad(g *graph.Graph, scores []float32, total float32, delta float32) {
	n := g.NumNodes()
	nodeGrads := make([]float64, n)
	arcGrads := make([]float32, g.NumArcs())
	if total != negInf {
		for _, a := range g.Accept() {
			if scores[a] != negInf {
				nodeGrads[a] = math.Exp(float64(scores[a] - total))
			}
		}
	}

	degrees := make([]int, n)
	var queue []int
	for i := 0; i < n; i++ {
		degrees[i] = g.NumOut(i)
		if degrees[i] == 0 {
			queue = append(queue, i)
		}
	}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, a := range g.In(node) {
			src := g.SrcNode(a)
			if scores[node] != negInf && scores[src] != negInf {
				share := math.Exp(float64(scores[src] + g.Weight(a) - scores[node]))
				contrib := nodeGrads[node] * share
				arcGrads[a] = float32(contrib) * delta
				nodeGrads[src] += contrib
			}
			degrees[src]--
			if degrees[src] == 0 {
				queue = append(queue, src)
			}
		}
	}
	g.AddGradWeights(arcGrads)
}

// viterbiGrad sends the output delta along the single recorded argmax
// path; every other arc gets zero.
func viterbiGrad(g *graph.Graph, scores []float32, backptr []int, total float32, delta float32) {
	arcGrads := make([]float32, g.NumArcs())
	best := bestAccept(g, scores, total)
	if best >= 0 {
		for node := best; backptr[node] >= 0; {
			a := backptr[node]
			arcGrads[a] = delta
			node = g.SrcNode(a)
		}
	}
	g.AddGradWeights(arcGrads)
}

// bestAccept returns the first accept node whose score equals the total,
// or -1 when no accepting path exists.
func bestAccept(g *graph.Graph, scores []float32, total float32) int {
	if total == negInf {
		return -1
	}
	for _, a := range g.Accept() {
		if scores[a] == total {
			return a
		}
	}
	return -1
}

// ForwardScore returns the log-sum-exp over all start-to-accept path
// weights of g as a single-arc scalar graph, so the result composes with
// the scalar operations.
func ForwardScore(g *graph.Graph) *graph.Graph {
	return shortestDistance(g, false)
}

// ViterbiScore returns the maximum start-to-accept path weight of g as a
// single-arc scalar graph.
func ViterbiScore(g *graph.Graph) *graph.Graph {
	return shortestDistance(g, true)
}

// ViterbiPath reconstructs the single best-weight path of g as a linear
// graph carrying the path's arcs with their labels and weights. It
// panics when g has no accepting path.
//
// Backward: each path arc's delta is added to the corresponding arc of
// g; gradient flows only along the argmax path.
func ViterbiPath(g *graph.Graph) *graph.Graph {
	scores, backptr := nodeScores(g, true)
	total := negInf
	for _, a := range g.Accept() {
		if scores[a] > total {
			total = scores[a]
		}
	}
	best := bestAccept(g, scores, total)
	if best < 0 {
		panic("viterbiPath: input graph has no accepting path")
	}

	var pathArcs []int
	for node := best; backptr[node] >= 0; {
		a := backptr[node]
		pathArcs = append(pathArcs, a)
		node = g.SrcNode(a)
	}
	// Arcs were collected destination-first.
	for i, j := 0, len(pathArcs)-1; i < j; i, j = i+1, j-1 {
		pathArcs[i], pathArcs[j] = pathArcs[j], pathArcs[i]
	}

	gradFunc := func(inputs []*graph.Graph, deltas *graph.Graph) {
		grad := make([]float32, inputs[0].NumArcs())
		for k, a := range pathArcs {
			grad[a] += deltas.Weight(k)
		}
		inputs[0].AddGradWeights(grad)
	}
	out := graph.NewDerived(gradFunc, []*graph.Graph{g})
	out.AddNode(true, len(pathArcs) == 0)
	for k, a := range pathArcs {
		out.AddNode(false, k == len(pathArcs)-1)
		out.AddWeightedArc(k, k+1, g.ILabel(a), g.OLabel(a), g.Weight(a))
	}
	return out
}
