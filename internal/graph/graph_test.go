package graph

import (
	"math"
	"testing"
)

// TestGraph_AddNode tests node creation and start/accept bookkeeping.
func TestGraph_AddNode(t *testing.T) {
	g := New(false)
	if n := g.AddNode(true, false); n != 0 {
		t.Errorf("first node index = %d, want 0", n)
	}
	if n := g.AddNode(false, false); n != 1 {
		t.Errorf("second node index = %d, want 1", n)
	}
	if n := g.AddNode(true, true); n != 2 {
		t.Errorf("third node index = %d, want 2", n)
	}

	if g.NumNodes() != 3 {
		t.Errorf("NumNodes = %d, want 3", g.NumNodes())
	}
	if g.NumStart() != 2 || g.NumAccept() != 1 {
		t.Errorf("NumStart, NumAccept = %d, %d, want 2, 1", g.NumStart(), g.NumAccept())
	}
	if !g.IsStart(0) || g.IsAccept(0) {
		t.Error("node 0 should be start only")
	}
	if !g.IsStart(2) || !g.IsAccept(2) {
		t.Error("node 2 should be start and accept")
	}

	wantStart := []int{0, 2}
	for i, s := range g.Start() {
		if s != wantStart[i] {
			t.Errorf("Start()[%d] = %d, want %d", i, s, wantStart[i])
		}
	}
}

// TestGraph_MakeAccept tests late accept marking.
func TestGraph_MakeAccept(t *testing.T) {
	g := New(false)
	g.AddNode(true, false)
	g.AddNode(false, false)

	g.MakeAccept(1)
	if !g.IsAccept(1) || g.NumAccept() != 1 {
		t.Error("MakeAccept(1) did not register")
	}
	// Idempotent: the accept list must not grow.
	g.MakeAccept(1)
	if g.NumAccept() != 1 {
		t.Errorf("NumAccept after double MakeAccept = %d, want 1", g.NumAccept())
	}
}

// TestGraph_AddArc tests arc creation, defaults and adjacency.
func TestGraph_AddArc(t *testing.T) {
	g := New(false)
	g.AddNode(true, false)
	g.AddNode(false, false)
	g.AddNode(false, true)

	a0 := g.AddArc(0, 1, 4)
	a1 := g.AddWeightedArc(1, 2, 5, 6, 2.5)
	if a0 != 0 || a1 != 1 {
		t.Errorf("arc indices = %d, %d, want 0, 1", a0, a1)
	}

	if g.ILabel(0) != 4 || g.OLabel(0) != 4 || g.Weight(0) != 0 {
		t.Errorf("AddArc defaults wrong: ilabel=%d olabel=%d weight=%v",
			g.ILabel(0), g.OLabel(0), g.Weight(0))
	}
	if g.SrcNode(1) != 1 || g.DstNode(1) != 2 || g.ILabel(1) != 5 || g.OLabel(1) != 6 || g.Weight(1) != 2.5 {
		t.Error("AddWeightedArc stored wrong arc")
	}

	if g.NumOut(0) != 1 || g.NumIn(1) != 1 || g.NumOut(1) != 1 || g.NumIn(2) != 1 {
		t.Error("adjacency lists wrong")
	}
	if g.Out(1)[0] != 1 || g.In(2)[0] != 1 {
		t.Error("arc index missing from adjacency lists")
	}
}

// TestGraph_AddArc_BadEndpoint tests eager endpoint validation.
func TestGraph_AddArc_BadEndpoint(t *testing.T) {
	g := New(false)
	g.AddNode(true, true)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for out-of-range node index")
		}
		if g.NumArcs() != 0 {
			t.Error("failed AddArc left a partial arc behind")
		}
	}()
	g.AddArc(0, 3, 0)
}

// TestGraph_Weights tests weight accessors, including infinities.
func TestGraph_Weights(t *testing.T) {
	g := New(false)
	g.AddNode(true, false)
	g.AddNode(false, true)
	g.AddWeightedArc(0, 1, 0, 0, 1)
	g.AddWeightedArc(0, 1, 1, 1, float32(math.Inf(-1)))

	if !math.IsInf(float64(g.Weight(1)), -1) {
		t.Error("negative infinity is a legal weight and must round-trip")
	}

	g.SetWeight(0, 7)
	if g.Weight(0) != 7 {
		t.Errorf("SetWeight: got %v, want 7", g.Weight(0))
	}
	g.SetWeights([]float32{2, 3})
	if g.Weight(0) != 2 || g.Weight(1) != 3 {
		t.Error("SetWeights did not replace weights")
	}
}

// TestGraph_Item tests the scalar accessor precondition.
func TestGraph_Item(t *testing.T) {
	g := ScalarGraph(4.25, false)
	if g.Item() != 4.25 {
		t.Errorf("Item = %v, want 4.25", g.Item())
	}

	multi := New(false)
	multi.AddNode(true, false)
	multi.AddNode(false, true)
	multi.AddArc(0, 1, 0)
	multi.AddArc(0, 1, 1)
	defer func() {
		if recover() == nil {
			t.Fatal("Item on a two-arc graph must panic")
		}
	}()
	multi.Item()
}

// TestGraph_Grad tests gradient accumulation semantics.
func TestGraph_Grad(t *testing.T) {
	g := New(true)
	g.AddNode(true, false)
	g.AddNode(false, true)
	g.AddWeightedArc(0, 1, 0, 0, 1)
	g.AddWeightedArc(0, 1, 1, 1, 2)

	if g.HasGrad() {
		t.Error("gradient buffer must be lazily allocated")
	}
	g.AddGradWeights([]float32{1, 2})
	g.AddGradWeights([]float32{10, 20})
	grad := g.Grad()
	if grad.Weight(0) != 11 || grad.Weight(1) != 22 {
		t.Errorf("gradients must sum across uses, got %v, %v", grad.Weight(0), grad.Weight(1))
	}

	g.ZeroGrad()
	if g.HasGrad() {
		t.Error("ZeroGrad must drop the accumulator")
	}
}

// TestGraph_Grad_NoArcs tests that an empty contribution to an arcless
// graph leaves HasGrad false: there is no per-arc gradient to hold.
func TestGraph_Grad_NoArcs(t *testing.T) {
	g := New(true)
	g.AddNode(true, true)

	g.AddGradWeights(nil)
	if g.HasGrad() {
		t.Error("an arcless graph must not allocate an accumulator")
	}
}

// TestGraph_Grad_CalcGradOff tests that untracked graphs ignore
// gradient contributions.
func TestGraph_Grad_CalcGradOff(t *testing.T) {
	g := New(false)
	g.AddNode(true, false)
	g.AddNode(false, true)
	g.AddArc(0, 1, 0)

	g.AddGradWeights([]float32{5})
	if g.HasGrad() {
		t.Error("AddGrad must be a no-op when calcGrad is off")
	}
}

// TestGraph_WithoutWeights tests the structural copy contract.
func TestGraph_WithoutWeights(t *testing.T) {
	g := New(true)
	g.AddNode(true, false)
	g.AddNode(false, true)
	g.AddWeightedArc(0, 1, 3, 4, 9)

	c := g.WithoutWeights()
	if c.NumNodes() != 2 || c.NumArcs() != 1 {
		t.Fatal("copy lost topology")
	}
	if c.ILabel(0) != 3 || c.OLabel(0) != 4 {
		t.Error("copy lost labels")
	}
	if c.Weight(0) != 0 {
		t.Errorf("copy weight = %v, want 0", c.Weight(0))
	}
	if c.CalcGrad() {
		t.Error("copy must not track gradients")
	}

	// The copy is independent of the original.
	c.AddNode(false, false)
	c.SetWeight(0, 5)
	if g.NumNodes() != 2 || g.Weight(0) != 9 {
		t.Error("mutating the copy changed the original")
	}
}

// TestGraph_ArcSort tests label sorting and the sortedness cache.
func TestGraph_ArcSort(t *testing.T) {
	g := New(false)
	g.AddNode(true, false)
	g.AddNode(false, true)
	g.AddArc(0, 1, 3)
	g.AddArc(0, 1, 1)
	g.AddArc(0, 1, 2)

	if g.ILabelSorted() || g.OLabelSorted() {
		t.Error("fresh graph must not claim sortedness")
	}
	g.ArcSort(false)
	if !g.ILabelSorted() {
		t.Error("ArcSort(false) must set ILabelSorted")
	}
	want := []int{1, 2, 3}
	for i, a := range g.Out(0) {
		if g.ILabel(a) != want[i] {
			t.Errorf("out arc %d has label %d, want %d", i, g.ILabel(a), want[i])
		}
	}
	for i, a := range g.In(1) {
		if g.ILabel(a) != want[i] {
			t.Errorf("in arc %d has label %d, want %d", i, g.ILabel(a), want[i])
		}
	}

	// Any insertion invalidates the cache.
	g.AddArc(0, 1, 0)
	if g.ILabelSorted() {
		t.Error("AddArc must clear sortedness flags")
	}
}

// TestLinearGraph tests the emission-lattice constructor.
func TestLinearGraph(t *testing.T) {
	g := LinearGraph(3, 2, false)
	if g.NumNodes() != 4 || g.NumArcs() != 6 {
		t.Fatalf("LinearGraph(3, 2): %d nodes, %d arcs, want 4, 6", g.NumNodes(), g.NumArcs())
	}
	if !g.IsStart(0) || g.IsAccept(0) || !g.IsAccept(3) {
		t.Error("LinearGraph start/accept flags wrong")
	}
	if !g.ILabelSorted() || !g.OLabelSorted() {
		t.Error("LinearGraph arcs are created sorted and must say so")
	}

	empty := LinearGraph(0, 1, false)
	if empty.NumNodes() != 1 || !empty.IsStart(0) || !empty.IsAccept(0) || empty.NumArcs() != 0 {
		t.Error("LinearGraph(0, n) must accept exactly the empty string")
	}
}

// TestNewDerived tests gradient-tracking propagation from inputs.
func TestNewDerived(t *testing.T) {
	tracked := New(true)
	untracked := New(false)

	d1 := NewDerived(func([]*Graph, *Graph) {}, []*Graph{untracked, tracked})
	if !d1.CalcGrad() || !d1.GradFuncRecorded() {
		t.Error("derived graph with a tracked input must track gradients")
	}

	d2 := NewDerived(func([]*Graph, *Graph) {}, []*Graph{untracked})
	if d2.CalcGrad() || d2.GradFuncRecorded() {
		t.Error("derived graph with no tracked input must not record a closure")
	}
}
