package functions

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-ml/lattice/internal/autodiff"
	"github.com/lattice-ml/lattice/internal/graph"
)

func parallelArcs(w1, w2 float32, calcGrad bool) *graph.Graph {
	g := graph.New(calcGrad)
	g.AddNode(true, false)
	g.AddNode(false, true)
	g.AddWeightedArc(0, 1, 0, 0, w1)
	g.AddWeightedArc(0, 1, 1, 1, w2)
	return g
}

// TestForwardScore tests log-sum-exp over two parallel one-arc paths.
func TestForwardScore(t *testing.T) {
	g := parallelArcs(1, 2, false)
	want := math.Log(math.Exp(1) + math.Exp(2))
	assert.InDelta(t, want, float64(ForwardScore(g).Item()), 1e-6)
}

// TestForwardScore_Chain tests that weights add along a path.
func TestForwardScore_Chain(t *testing.T) {
	g := graph.New(false)
	g.AddNode(true, false)
	g.AddNode(false, false)
	g.AddNode(false, true)
	g.AddWeightedArc(0, 1, 0, 0, 1)
	g.AddWeightedArc(1, 2, 1, 1, 2)
	assert.InDelta(t, 3, float64(ForwardScore(g).Item()), 1e-6)
}

// TestForwardScore_NoAcceptingPath tests the negative-infinity score of
// a graph whose accept nodes are unreachable.
func TestForwardScore_NoAcceptingPath(t *testing.T) {
	g := graph.New(false)
	g.AddNode(true, false)
	g.AddNode(false, true) // never reached
	g.AddNode(false, false)
	g.AddWeightedArc(0, 2, 0, 0, 1)
	assert.True(t, math.IsInf(float64(ForwardScore(g).Item()), -1))
}

// TestForwardScore_Gradient tests the softmax path shares of the two
// parallel arcs.
func TestForwardScore_Gradient(t *testing.T) {
	g := parallelArcs(1, 2, true)
	score := ForwardScore(g)
	autodiff.Backward(score, false)

	denom := math.Exp(1) + math.Exp(2)
	grad := g.Grad().Weights()
	require.Len(t, grad, 2)
	assert.InDelta(t, math.Exp(1)/denom, float64(grad[0]), 1e-6)
	assert.InDelta(t, math.Exp(2)/denom, float64(grad[1]), 1e-6)
}

// TestViterbiScore tests the max-path score and its indicator gradient.
func TestViterbiScore(t *testing.T) {
	g := parallelArcs(1, 2, true)
	score := ViterbiScore(g)
	assert.Equal(t, float32(2), score.Item())

	autodiff.Backward(score, false)
	assert.Equal(t, []float32{0, 1}, g.Grad().Weights())
}

// TestViterbiScore_Tie tests that ties resolve to the first-seen arc so
// repeated runs agree.
func TestViterbiScore_Tie(t *testing.T) {
	g := parallelArcs(2, 2, true)
	score := ViterbiScore(g)
	assert.Equal(t, float32(2), score.Item())

	autodiff.Backward(score, false)
	assert.Equal(t, []float32{1, 0}, g.Grad().Weights())
}

// TestViterbiPath tests extraction of the best path as a linear graph
// with the winning arcs' labels and weights.
func TestViterbiPath(t *testing.T) {
	g := graph.New(true)
	g.AddNode(true, false)
	g.AddNode(false, false)
	g.AddNode(false, true)
	g.AddWeightedArc(0, 1, 1, 1, 1)
	g.AddWeightedArc(1, 2, 2, 2, 3)
	g.AddWeightedArc(0, 2, 3, 3, 2)

	p := ViterbiPath(g)
	require.Equal(t, 3, p.NumNodes())
	require.Equal(t, 2, p.NumArcs())
	assert.Equal(t, 1, p.ILabel(0))
	assert.Equal(t, 2, p.ILabel(1))
	assert.Equal(t, float32(1), p.Weight(0))
	assert.Equal(t, float32(3), p.Weight(1))

	autodiff.Backward(p, false)
	assert.Equal(t, []float32{1, 1, 0}, g.Grad().Weights())
}

// TestViterbiPath_NoAcceptingPath tests the explicit rejection when no
// accept node is reachable.
func TestViterbiPath_NoAcceptingPath(t *testing.T) {
	g := graph.New(false)
	g.AddNode(true, false)
	g.AddNode(false, true)
	g.AddNode(false, false)
	g.AddArc(0, 2, 0)
	assert.Panics(t, func() { ViterbiPath(g) })
}

// TestShortestDistance_Cyclic tests that cyclic input is rejected rather
// than iterated.
func TestShortestDistance_Cyclic(t *testing.T) {
	g := graph.New(false)
	g.AddNode(true, false)
	g.AddNode(false, true)
	g.AddArc(0, 1, 0)
	g.AddArc(1, 0, 1)
	assert.Panics(t, func() { ForwardScore(g) })
	assert.Panics(t, func() { ViterbiScore(g) })
}

// TestForwardScore_MultipleStartsAndAccepts tests score pooling across
// several start and accept nodes.
func TestForwardScore_MultipleStartsAndAccepts(t *testing.T) {
	g := graph.New(false)
	g.AddNode(true, false)
	g.AddNode(true, false)
	g.AddNode(false, true)
	g.AddNode(false, true)
	g.AddWeightedArc(0, 2, 0, 0, 1)
	g.AddWeightedArc(1, 3, 1, 1, 2)

	want := math.Log(math.Exp(1) + math.Exp(2))
	assert.InDelta(t, want, float64(ForwardScore(g).Item()), 1e-6)
	assert.Equal(t, float32(2), ViterbiScore(g).Item())
}
