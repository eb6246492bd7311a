package graph

import "fmt"

// ScalarGraph creates the two-node, single-arc graph used to carry scalar
// results. The arc weight is the scalar value.
func ScalarGraph(weight float32, calcGrad bool) *Graph {
	g := New(calcGrad)
	g.AddNode(true, false)
	g.AddNode(false, true)
	g.AddWeightedArc(0, 1, 0, 0, weight)
	return g
}

// LinearGraph creates a chain of m+1 nodes with n parallel arcs, labeled
// 0..n-1, between each consecutive pair. It is the usual starting point
// for emission lattices: m positions over an n-symbol alphabet, all
// weights zero.
func LinearGraph(m, n int, calcGrad bool) *Graph {
	if m < 0 || n < 1 {
		panic(fmt.Sprintf("graph: LinearGraph requires m >= 0 and n >= 1, got m=%d n=%d", m, n))
	}
	g := New(calcGrad)
	g.AddNode(true, m == 0)
	for i := 1; i <= m; i++ {
		g.AddNode(false, i == m)
	}
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			g.AddArc(i, i+1, j)
		}
	}
	g.MarkArcSorted(false)
	g.MarkArcSorted(true)
	return g
}
