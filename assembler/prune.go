package assembler

import (
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Prune runs the nine-step pruning protocol spec.md §4.1 describes before
// variant extraction. It returns false if the graph became structurally
// unusable and was cleared; true otherwise (including the degenerate case
// where the reference has been entirely pruned away).
func (a *Assembler) Prune(minWeight uint32) bool {
	if !a.verifyReferencePath() {
		a.Clear()
		return false
	}

	a.removeTrivialSelfLoops()
	a.reindexIfChanged(a.removeLowWeightEdges(minWeight))
	a.reindexIfChanged(a.removeZeroDegreeVertices())
	a.reindexIfChanged(a.removeUnreachableFromHead())
	a.reindexIfChanged(a.removeReachablePastTail())
	a.reindexIfChanged(a.removeCannotReachTail())

	if !a.verifyReferencePath() {
		a.Clear()
		return false
	}

	if ok := a.pruneReferenceFlanks(); !ok {
		a.Clear()
		return false
	}

	if len(a.g.refWalk) == 0 {
		a.Clear()
		return true
	}

	a.state = StatePruned
	return true
}

// verifyReferencePath checks invariant A2: the reference k-mers form a
// unique path from head to tail, exactly one out-reference-edge per
// non-tail reference vertex and none from the tail.
func (a *Assembler) verifyReferencePath() bool {
	if len(a.g.refWalk) == 0 {
		return true
	}
	for i, v := range a.g.refWalk {
		if i == len(a.g.refWalk)-1 {
			continue
		}
		nextRefOut := 0
		var nextRef *vertex
		for _, e := range v.out {
			if e.reference {
				nextRefOut++
				nextRef = e.to
			}
		}
		if nextRefOut != 1 || nextRef != a.g.refWalk[i+1] {
			return false
		}
	}
	tail := a.g.refWalk[len(a.g.refWalk)-1]
	for _, e := range tail.out {
		if e.reference {
			return false
		}
	}
	return true
}

// removeTrivialSelfLoops deletes non-reference edges from a vertex to
// itself.
func (a *Assembler) removeTrivialSelfLoops() {
	for _, v := range append([]*vertex(nil), a.g.vertices...) {
		for _, e := range append([]*edge(nil), v.out...) {
			if e.to == v && !e.reference {
				a.g.removeEdge(e)
			}
		}
	}
}

// isLowWeight implements spec.md's rule 3: a non-reference edge e is
// removed if its weight is below minWeight AND either the sum of its
// source's in-edge weights is below minWeight, or the combined flow through
// source-in + e + target-out is below 3*minWeight. The rule preserves
// edges sitting in strong surrounding flow even when individually light.
func isLowWeight(e *edge, minWeight uint32) bool {
	if e.reference || e.weight >= minWeight {
		return false
	}
	sourceIn := e.from.sumInWeight()
	if sourceIn < minWeight {
		return true
	}
	targetOut := e.to.sumOutWeight()
	return sourceIn+e.weight+targetOut < 3*minWeight
}

func (a *Assembler) removeLowWeightEdges(minWeight uint32) bool {
	changed := false
	for _, v := range append([]*vertex(nil), a.g.vertices...) {
		for _, e := range append([]*edge(nil), v.out...) {
			if isLowWeight(e, minWeight) {
				a.g.removeEdge(e)
				changed = true
			}
		}
	}
	return changed
}

func (a *Assembler) removeZeroDegreeVertices() bool {
	changed := false
	for _, v := range append([]*vertex(nil), a.g.vertices...) {
		if v.outDegree() == 0 && v.inDegree() == 0 && v != a.g.refHead && v != a.g.refTail {
			a.g.removeVertex(v)
			changed = true
		}
	}
	return changed
}

// bfsReachable returns the set of vertices reachable from start following
// forward edges.
func bfsReachable(start *vertex) map[*vertex]bool {
	seen := map[*vertex]bool{start: true}
	queue := []*vertex{start}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, e := range v.out {
			if !seen[e.to] {
				seen[e.to] = true
				queue = append(queue, e.to)
			}
		}
	}
	return seen
}

// bfsReachableReverse returns the set of vertices that can reach start
// following edges backward.
func bfsReachableReverse(start *vertex) map[*vertex]bool {
	seen := map[*vertex]bool{start: true}
	queue := []*vertex{start}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, e := range v.in {
			if !seen[e.from] {
				seen[e.from] = true
				queue = append(queue, e.from)
			}
		}
	}
	return seen
}

func (a *Assembler) removeUnreachableFromHead() bool {
	if a.g.refHead == nil {
		return false
	}
	reachable := bfsReachable(a.g.refHead)
	changed := false
	for _, v := range append([]*vertex(nil), a.g.vertices...) {
		if !reachable[v] {
			a.removeVertexAndEdges(v)
			changed = true
		}
	}
	return changed
}

func (a *Assembler) removeCannotReachTail() bool {
	if a.g.refTail == nil {
		return false
	}
	canReach := bfsReachableReverse(a.g.refTail)
	changed := false
	for _, v := range append([]*vertex(nil), a.g.vertices...) {
		if !canReach[v] {
			a.removeVertexAndEdges(v)
			changed = true
		}
	}
	return changed
}

// removeReachablePastTail removes vertices reachable by walking forward past
// reference_tail that cannot loop back to it: a full forward BFS from tail,
// after which every reached vertex that can still reach tail (one lying on
// a cycle back through tail) is kept and every other one is removed.
func (a *Assembler) removeReachablePastTail() bool {
	if a.g.refTail == nil {
		return false
	}
	pastTail := bfsReachable(a.g.refTail)
	delete(pastTail, a.g.refTail)
	canReturnToTail := bfsReachableReverse(a.g.refTail)

	changed := false
	for v := range pastTail {
		if canReturnToTail[v] {
			continue // lies on a cycle back through tail; keep it.
		}
		a.removeVertexAndEdges(v)
		changed = true
	}
	return changed
}

func (a *Assembler) removeVertexAndEdges(v *vertex) {
	if v == a.g.refHead || v == a.g.refTail {
		return
	}
	a.g.removeVertex(v)
}

func (a *Assembler) reindexIfChanged(changed bool) {
	if changed {
		a.g.reindex()
	}
}

// pruneReferenceFlanks pops reference k-mers off the head and tail of the
// walk while the head has in-degree 0 and exactly one out-edge (to the next
// reference vertex), and symmetrically at the tail, per spec.md's
// reference-flank-pruning rule. It validates the graph is a DAG via
// topological sort as a side effect (the same gonum-topo.Sort validation
// the real assembler gets from its flank-pruning implementation), and
// returns false if it is not.
func (a *Assembler) pruneReferenceFlanks() bool {
	if len(a.g.refWalk) == 0 {
		return true
	}
	if !a.isDAG() {
		return false
	}

	for len(a.g.refWalk) > 1 {
		head := a.g.refWalk[0]
		if head.inDegree() != 0 || head.outDegree() != 1 {
			break
		}
		e := head.out[0]
		a.g.removeEdge(e)
		a.g.removeVertex(head)
		a.g.refWalk = a.g.refWalk[1:]
		a.g.refHead = a.g.refWalk[0]
		a.refHeadPos++
	}
	for len(a.g.refWalk) > 1 {
		tail := a.g.refWalk[len(a.g.refWalk)-1]
		if tail.outDegree() != 0 || tail.inDegree() != 1 {
			break
		}
		e := tail.in[0]
		a.g.removeEdge(e)
		a.g.removeVertex(tail)
		a.g.refWalk = a.g.refWalk[:len(a.g.refWalk)-1]
		a.g.refTail = a.g.refWalk[len(a.g.refWalk)-1]
	}
	a.g.reindex()
	return true
}

// isDAG reports whether the current graph is acyclic, via gonum's
// topological sort: Sort returns a non-nil Unorderable error when the
// graph has a cycle.
func (a *Assembler) isDAG() bool {
	dg := a.toGonumDirected()
	_, err := topo.Sort(dg)
	return err == nil
}

// toGonumDirected builds a gonum simple.DirectedGraph mirroring the current
// graph's structure, the adapter variant extraction's dominator-tree and
// topological-sort calls need since gonum's graph algorithms operate on its
// own graph.Directed interface rather than ours.
func (a *Assembler) toGonumDirected() *simple.DirectedGraph {
	dg := simple.NewDirectedGraph()
	for _, v := range a.g.vertices {
		dg.AddNode(simple.Node(v.index))
	}
	for _, v := range a.g.vertices {
		for _, e := range v.out {
			dg.SetEdge(dg.NewEdge(simple.Node(v.index), simple.Node(e.to.index)))
		}
	}
	return dg
}
