package graph

// Equal reports whether two graphs are identical: same node indices with
// the same start/accept flags and the same arcs, in the same order, with
// the same labels and weights.
func Equal(g1, g2 *Graph) bool {
	if g1.NumNodes() != g2.NumNodes() || g1.NumArcs() != g2.NumArcs() {
		return false
	}
	if g1.NumStart() != g2.NumStart() || g1.NumAccept() != g2.NumAccept() {
		return false
	}
	for n := 0; n < g1.NumNodes(); n++ {
		if g1.IsStart(n) != g2.IsStart(n) || g1.IsAccept(n) != g2.IsAccept(n) {
			return false
		}
		out1, out2 := g1.Out(n), g2.Out(n)
		if len(out1) != len(out2) {
			return false
		}
		for i := range out1 {
			a1, a2 := out1[i], out2[i]
			if g1.DstNode(a1) != g2.DstNode(a2) ||
				g1.ILabel(a1) != g2.ILabel(a2) ||
				g1.OLabel(a1) != g2.OLabel(a2) ||
				g1.Weight(a1) != g2.Weight(a2) {
				return false
			}
		}
	}
	return true
}

// Isomorphic reports whether two graphs are identical up to a renumbering
// of nodes. It runs a backtracking search and is intended for testing on
// small graphs, not for production-sized inputs.
func Isomorphic(g1, g2 *Graph) bool {
	if g1.NumNodes() != g2.NumNodes() || g1.NumArcs() != g2.NumArcs() {
		return false
	}
	if g1.NumStart() != g2.NumStart() || g1.NumAccept() != g2.NumAccept() {
		return false
	}
	m := &isoMatcher{
		g1:  g1,
		g2:  g2,
		fwd: make([]int, g1.NumNodes()),
		rev: make([]int, g2.NumNodes()),
	}
	for i := range m.fwd {
		m.fwd[i] = -1
		m.rev[i] = -1
	}
	return m.matchStarts(0)
}

type isoMatcher struct {
	g1, g2 *Graph
	fwd    []int // g1 node -> g2 node, -1 unset
	rev    []int // g2 node -> g1 node, -1 unset
}

// matchStarts pairs each start node of g1 with some start node of g2,
// backtracking over the possible pairings.
func (m *isoMatcher) matchStarts(i int) bool {
	starts1 := m.g1.Start()
	if i == len(starts1) {
		return true
	}
	s1 := starts1[i]
	for _, s2 := range m.g2.Start() {
		undo := m.snapshot()
		if m.matchNodes(s1, s2) && m.matchStarts(i+1) {
			return true
		}
		m.restore(undo)
	}
	return false
}

// matchNodes tries to extend the mapping with n1 -> n2, recursively
// pairing their outgoing arcs.
func (m *isoMatcher) matchNodes(n1, n2 int) bool {
	if m.fwd[n1] >= 0 || m.rev[n2] >= 0 {
		return m.fwd[n1] == n2
	}
	if m.g1.IsStart(n1) != m.g2.IsStart(n2) || m.g1.IsAccept(n1) != m.g2.IsAccept(n2) {
		return false
	}
	if m.g1.NumOut(n1) != m.g2.NumOut(n2) || m.g1.NumIn(n1) != m.g2.NumIn(n2) {
		return false
	}
	m.fwd[n1] = n2
	m.rev[n2] = n1
	used := make([]bool, m.g1.NumOut(n1))
	if m.matchArcs(n1, n2, 0, used) {
		return true
	}
	m.fwd[n1] = -1
	m.rev[n2] = -1
	return false
}

// matchArcs finds a bijection between the out-arcs of a paired node,
// requiring matching labels and weights and recursively compatible
// destinations.
func (m *isoMatcher) matchArcs(n1, n2, i int, used []bool) bool {
	out1 := m.g1.Out(n1)
	if i == len(out1) {
		return true
	}
	a1 := out1[i]
	for j, a2 := range m.g2.Out(n2) {
		if used[j] {
			continue
		}
		if m.g1.ILabel(a1) != m.g2.ILabel(a2) ||
			m.g1.OLabel(a1) != m.g2.OLabel(a2) ||
			m.g1.Weight(a1) != m.g2.Weight(a2) {
			continue
		}
		used[j] = true
		undo := m.snapshot()
		if m.matchNodes(m.g1.DstNode(a1), m.g2.DstNode(a2)) && m.matchArcs(n1, n2, i+1, used) {
			return true
		}
		m.restore(undo)
		used[j] = false
	}
	return false
}

type isoState struct {
	fwd []int
	rev []int
}

func (m *isoMatcher) snapshot() isoState {
	return isoState{
		fwd: append([]int(nil), m.fwd...),
		rev: append([]int(nil), m.rev...),
	}
}

func (m *isoMatcher) restore(s isoState) {
	copy(m.fwd, s.fwd)
	copy(m.rev, s.rev)
}
