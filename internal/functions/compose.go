package functions

import (
	"sort"

	"github.com/lattice-ml/lattice/internal/graph"
)

// arcMatcher enumerates arc pairs (a1 out of n1, a2 out of n2) whose
// matching labels agree: the output label of g1's arc equals the input
// label of g2's arc. matchIn switches to incoming arcs for the reverse
// reachability pass. Matcher choice is a pure performance decision and
// never changes the set of pairs produced.
type arcMatcher interface {
	match(n1, n2 int, matchIn bool)
	next() (a1, a2 int, ok bool)
}

// unsortedMatcher compares every arc pair, cost O(numOut1 * numOut2).
type unsortedMatcher struct {
	g1, g2 *graph.Graph
	a1, a2 []int
	i, j   int
}

func newUnsortedMatcher(g1, g2 *graph.Graph) *unsortedMatcher {
	return &unsortedMatcher{g1: g1, g2: g2}
}

func (m *unsortedMatcher) arcs(n1, n2 int, matchIn bool) ([]int, []int) {
	if matchIn {
		return m.g1.In(n1), m.g2.In(n2)
	}
	return m.g1.Out(n1), m.g2.Out(n2)
}

func (m *unsortedMatcher) match(n1, n2 int, matchIn bool) {
	m.a1, m.a2 = m.arcs(n1, n2, matchIn)
	m.i, m.j = 0, 0
}

func (m *unsortedMatcher) next() (int, int, bool) {
	for ; m.i < len(m.a1); m.i++ {
		for ; m.j < len(m.a2); m.j++ {
			if m.g1.OLabel(m.a1[m.i]) == m.g2.ILabel(m.a2[m.j]) {
				a1, a2 := m.a1[m.i], m.a2[m.j]
				m.j++
				return a1, a2, true
			}
		}
		m.j = 0
	}
	return 0, 0, false
}

// singlySortedMatcher binary-searches the sorted side for each arc of
// the unsorted side. searchFirst is true when g1 is the sorted side.
type singlySortedMatcher struct {
	g1, g2      *graph.Graph
	searchFirst bool

	searched, iterated []int // sorted side arcs, unsorted side arcs
	i                  int   // position in iterated
	lo, hi             int   // current equal-label run in searched
	pos                int   // position within the run
}

func newSinglySortedMatcher(g1, g2 *graph.Graph, searchFirst bool) *singlySortedMatcher {
	return &singlySortedMatcher{g1: g1, g2: g2, searchFirst: searchFirst}
}

func (m *singlySortedMatcher) searchLabel(a int) int {
	if m.searchFirst {
		return m.g1.OLabel(a)
	}
	return m.g2.ILabel(a)
}

func (m *singlySortedMatcher) iterLabel(a int) int {
	if m.searchFirst {
		return m.g2.ILabel(a)
	}
	return m.g1.OLabel(a)
}

func (m *singlySortedMatcher) match(n1, n2 int, matchIn bool) {
	var a1, a2 []int
	if matchIn {
		a1, a2 = m.g1.In(n1), m.g2.In(n2)
	} else {
		a1, a2 = m.g1.Out(n1), m.g2.Out(n2)
	}
	if m.searchFirst {
		m.searched, m.iterated = a1, a2
	} else {
		m.searched, m.iterated = a2, a1
	}
	m.i = 0
	m.lo, m.hi, m.pos = 0, 0, 0
}

func (m *singlySortedMatcher) next() (int, int, bool) {
	for {
		if m.pos < m.hi {
			s, it := m.searched[m.pos], m.iterated[m.i]
			m.pos++
			if m.pos == m.hi {
				m.i++
				m.lo, m.hi = 0, 0
			}
			if m.searchFirst {
				return s, it, true
			}
			return it, s, true
		}
		if m.i >= len(m.iterated) {
			return 0, 0, false
		}
		label := m.iterLabel(m.iterated[m.i])
		m.lo = sort.Search(len(m.searched), func(k int) bool {
			return m.searchLabel(m.searched[k]) >= label
		})
		m.hi = m.lo
		for m.hi < len(m.searched) && m.searchLabel(m.searched[m.hi]) == label {
			m.hi++
		}
		m.pos = m.lo
		if m.lo == m.hi {
			m.i++
		}
	}
}

// doublySortedMatcher merges two label-sorted arc lists with two
// pointers, amortized linear in the combined out-degree.
type doublySortedMatcher struct {
	g1, g2 *graph.Graph
	a1, a2 []int

	i, j     int // run starts
	e1, e2   int // run ends (exclusive)
	p1, p2   int // cross-product cursor within the runs
	inRun    bool
}

func newDoublySortedMatcher(g1, g2 *graph.Graph) *doublySortedMatcher {
	return &doublySortedMatcher{g1: g1, g2: g2}
}

func (m *doublySortedMatcher) match(n1, n2 int, matchIn bool) {
	if matchIn {
		m.a1, m.a2 = m.g1.In(n1), m.g2.In(n2)
	} else {
		m.a1, m.a2 = m.g1.Out(n1), m.g2.Out(n2)
	}
	m.i, m.j = 0, 0
	m.inRun = false
}

func (m *doublySortedMatcher) next() (int, int, bool) {
	for {
		if m.inRun {
			a1, a2 := m.a1[m.p1], m.a2[m.p2]
			m.p2++
			if m.p2 == m.e2 {
				m.p2 = m.j
				m.p1++
				if m.p1 == m.e1 {
					m.i, m.j = m.e1, m.e2
					m.inRun = false
				}
			}
			return a1, a2, true
		}
		if m.i >= len(m.a1) || m.j >= len(m.a2) {
			return 0, 0, false
		}
		l1 := m.g1.OLabel(m.a1[m.i])
		l2 := m.g2.ILabel(m.a2[m.j])
		switch {
		case l1 < l2:
			m.i++
		case l1 > l2:
			m.j++
		default:
			m.e1 = m.i
			for m.e1 < len(m.a1) && m.g1.OLabel(m.a1[m.e1]) == l1 {
				m.e1++
			}
			m.e2 = m.j
			for m.e2 < len(m.a2) && m.g2.ILabel(m.a2[m.e2]) == l2 {
				m.e2++
			}
			m.p1, m.p2 = m.i, m.j
			m.inRun = true
		}
	}
}

// Epsilon filter states for the product exploration. A product state
// remembers which side was last advanced by a lone epsilon arc so that
// epsilon-epsilon interleavings are counted exactly once (the classical
// three-state filter).
const (
	filterAny    = 0 // both sides free to move
	filterFirst  = 1 // only g1-side epsilon moves (or a match) allowed
	filterSecond = 2 // only g2-side epsilon moves (or a match) allowed
)

// Compose builds the product transducer of g1 and g2 over matched labels:
// a path through the result maps a g1 input sequence to a g2 output
// sequence whenever g1's output matches g2's input, with path weight the
// sum of the matched weights. The fastest matcher the inputs' cached
// sortedness permits is selected automatically.
//
// Backward: each product arc's delta is added unchanged to both
// contributing arcs, one per input side for epsilon-only moves.
func Compose(g1, g2 *graph.Graph) *graph.Graph {
	var m arcMatcher
	g1Sorted, g2Sorted := g1.OLabelSorted(), g2.ILabelSorted()
	switch {
	case g1Sorted && g2Sorted:
		m = newDoublySortedMatcher(g1, g2)
	case g1Sorted || g2Sorted:
		m = newSinglySortedMatcher(g1, g2, g1Sorted)
	default:
		m = newUnsortedMatcher(g1, g2)
	}
	return composeWithMatcher(g1, g2, m)
}

// Intersect builds the product acceptor of two acceptors over their
// shared labels. Inputs are expected to carry equal input and output
// labels per arc; the result keeps the shared label on both sides.
func Intersect(g1, g2 *graph.Graph) *graph.Graph {
	var m arcMatcher
	g1Sorted := g1.ILabelSorted() || g1.OLabelSorted()
	g2Sorted := g2.ILabelSorted() || g2.OLabelSorted()
	switch {
	case g1Sorted && g2Sorted:
		m = newDoublySortedMatcher(g1, g2)
	case g1Sorted || g2Sorted:
		m = newSinglySortedMatcher(g1, g2, g1Sorted)
	default:
		m = newUnsortedMatcher(g1, g2)
	}
	return composeWithMatcher(g1, g2, m)
}

type productState struct {
	n1, n2 int
	fs     int
}

func composeWithMatcher(g1, g2 *graph.Graph, m arcMatcher) *graph.Graph {
	numNodes2 := g2.NumNodes()

	// Reverse pass from the accept pairs: only co-accessible node pairs
	// are worth materializing.
	reachable := make([]bool, g1.NumNodes()*numNodes2)
	var queue []productState
	push := func(n1, n2 int) {
		if !reachable[n1*numNodes2+n2] {
			reachable[n1*numNodes2+n2] = true
			queue = append(queue, productState{n1: n1, n2: n2})
		}
	}
	for _, a1 := range g1.Accept() {
		for _, a2 := range g2.Accept() {
			push(a1, a2)
		}
	}
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		m.match(curr.n1, curr.n2, true)
		for {
			i, j, ok := m.next()
			if !ok {
				break
			}
			push(g1.SrcNode(i), g2.SrcNode(j))
		}
		for _, i := range g1.In(curr.n1) {
			if g1.OLabel(i) == graph.Epsilon {
				push(g1.SrcNode(i), curr.n2)
			}
		}
		for _, j := range g2.In(curr.n2) {
			if g2.ILabel(j) == graph.Epsilon {
				push(curr.n1, g2.SrcNode(j))
			}
		}
	}

	// Per product arc, the contributing arc on each side (-1 when that
	// side did not move).
	var first, second []int
	gradFunc := func(inputs []*graph.Graph, deltas *graph.Graph) {
		if inputs[0].CalcGrad() {
			grad := make([]float32, inputs[0].NumArcs())
			for k, i := range first {
				if i >= 0 {
					grad[i] += deltas.Weight(k)
				}
			}
			inputs[0].AddGradWeights(grad)
		}
		if inputs[1].CalcGrad() {
			grad := make([]float32, inputs[1].NumArcs())
			for k, j := range second {
				if j >= 0 {
					grad[j] += deltas.Weight(k)
				}
			}
			inputs[1].AddGradWeights(grad)
		}
	}
	out := graph.NewDerived(gradFunc, []*graph.Graph{g1, g2})

	// Forward pass: breadth-first over (n1, n2, filter-state) triples,
	// each materialized as a new node exactly once.
	newNodes := make([]int, g1.NumNodes()*numNodes2*3)
	for i := range newNodes {
		newNodes[i] = -1
	}
	var explore []productState
	node := func(s productState, start bool) int {
		idx := (s.n1*numNodes2+s.n2)*3 + s.fs
		if newNodes[idx] < 0 {
			accept := g1.IsAccept(s.n1) && g2.IsAccept(s.n2)
			newNodes[idx] = out.AddNode(start, accept)
			explore = append(explore, s)
		}
		return newNodes[idx]
	}
	for _, s1 := range g1.Start() {
		for _, s2 := range g2.Start() {
			if reachable[s1*numNodes2+s2] {
				node(productState{n1: s1, n2: s2, fs: filterAny}, true)
			}
		}
	}

	for len(explore) > 0 {
		curr := explore[0]
		explore = explore[1:]
		currNode := newNodes[(curr.n1*numNodes2+curr.n2)*3+curr.fs]

		m.match(curr.n1, curr.n2, false)
		for {
			i, j, ok := m.next()
			if !ok {
				break
			}
			// A matched epsilon-epsilon pair advances both sides at
			// once and is only legal before either side strays alone.
			if g1.OLabel(i) == graph.Epsilon && curr.fs != filterAny {
				continue
			}
			dn1, dn2 := g1.DstNode(i), g2.DstNode(j)
			if !reachable[dn1*numNodes2+dn2] {
				continue
			}
			dst := node(productState{n1: dn1, n2: dn2, fs: filterAny}, false)
			out.AddWeightedArc(currNode, dst, g1.ILabel(i), g2.OLabel(j), g1.Weight(i)+g2.Weight(j))
			first = append(first, i)
			second = append(second, j)
		}
		if curr.fs != filterSecond {
			for _, i := range g1.Out(curr.n1) {
				if g1.OLabel(i) != graph.Epsilon {
					continue
				}
				dn1 := g1.DstNode(i)
				if !reachable[dn1*numNodes2+curr.n2] {
					continue
				}
				dst := node(productState{n1: dn1, n2: curr.n2, fs: filterFirst}, false)
				out.AddWeightedArc(currNode, dst, g1.ILabel(i), graph.Epsilon, g1.Weight(i))
				first = append(first, i)
				second = append(second, -1)
			}
		}
		if curr.fs != filterFirst {
			for _, j := range g2.Out(curr.n2) {
				if g2.ILabel(j) != graph.Epsilon {
					continue
				}
				dn2 := g2.DstNode(j)
				if !reachable[curr.n1*numNodes2+dn2] {
					continue
				}
				dst := node(productState{n1: curr.n1, n2: dn2, fs: filterSecond}, false)
				out.AddWeightedArc(currNode, dst, graph.Epsilon, g2.OLabel(j), g2.Weight(j))
				first = append(first, -1)
				second = append(second, j)
			}
		}
	}
	return out
}
