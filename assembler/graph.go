package assembler

import (
	"github.com/dgryski/go-farm"
)

// blockedScore marks an edge as unusable by find_shortest_scoring_paths
// without removing it from the graph, so a later iteration can still
// discover the edge was the graph's only path and give up cleanly.
const blockedScore = 1 << 30

// maxScore is the transition score assigned to an edge with zero weight:
// "infinitely unlikely" but still finite, so shortest-path search treats it
// as a worst case rather than an unusable one.
const maxScore = 100

// vertex is one k-mer occurrence in the assembly graph. Several vertices may
// carry the same k-mer (see addReferenceVertex and freshVertex), so a vertex
// can have more than 4 out or in edges. Edges are kept in slices rather than
// a map for deterministic iteration order.
type vertex struct {
	kmer Kmer
	out  []*edge
	in   []*edge

	// reference is true if this vertex lies on the inserted reference walk.
	reference bool
	// index is this vertex's position in the graph's vertex arena, used as
	// a dense id for gonum graph algorithms.
	index int64
}

// edge is a directed transition between two vertices sharing a (k-1)-base
// overlap.
type edge struct {
	from, to *vertex
	weight   uint32
	// reference is true if this edge lies on the inserted reference walk.
	reference bool
	// transitionScore is set by setOutEdgeTransitionScores ahead of a
	// shortest-path search; it is meaningless until then.
	transitionScore float64
}

func (e *edge) isBlocked() bool { return e.transitionScore >= blockedScore }
func (e *edge) block()          { e.transitionScore = blockedScore }

// graph is the de Bruijn k-mer graph itself: an arena of vertices indexed by
// k-mer, plus the directed edges between them.
type graph struct {
	k         int
	mask      Kmer
	vertices  []*vertex
	byKmer    map[uint64]*vertex
	refHead   *vertex
	refTail   *vertex
	// refWalk is the sequence of vertices the inserted reference visited,
	// in order; empty until a reference has been inserted.
	refWalk []*vertex
}

func newGraph(k int) *graph {
	return &graph{
		k:      k,
		mask:   kmerMask(k),
		byKmer: make(map[uint64]*vertex),
	}
}

func farmKey(km Kmer) uint64 {
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(km >> uint(8*i))
	}
	return farm.Hash64WithSeed(b[:], 0)
}

// getOrAddVertex returns the vertex for km, creating it if it doesn't yet
// exist.
func (g *graph) getOrAddVertex(km Kmer) *vertex {
	key := farmKey(km)
	if v, ok := g.byKmer[key]; ok {
		return v
	}
	v := g.newVertex(km)
	g.byKmer[key] = v
	return v
}

// addReferenceVertex always creates a fresh vertex for a reference k-mer
// position, registering it in the content lookup only if no vertex for
// this k-mer is cached yet. A repetitive reference window (period shorter
// than k) therefore still gives the reference walk a vertex per position
// instead of collapsing into a cycle, preserving invariant A2; the first
// occurrence of a repeated k-mer remains the one reads can bind onto.
func (g *graph) addReferenceVertex(km Kmer) *vertex {
	v := g.newVertex(km)
	key := farmKey(km)
	if _, ok := g.byKmer[key]; !ok {
		g.byKmer[key] = v
	}
	return v
}

// freshVertex creates a vertex for km without registering it in the
// content lookup, for a read occurrence of a k-mer the read has already
// used earlier in its own walk; binding to the earlier vertex again would
// close a cycle, so this occurrence gets one nothing else will find.
func (g *graph) freshVertex(km Kmer) *vertex {
	return g.newVertex(km)
}

func (g *graph) newVertex(km Kmer) *vertex {
	v := &vertex{kmer: km, index: int64(len(g.vertices))}
	g.vertices = append(g.vertices, v)
	return v
}

// addEdge returns the edge from->to, creating it with weight 0 if it
// doesn't yet exist, and always bumps its weight by 1.
func (g *graph) addEdge(from, to *vertex, isReference bool) *edge {
	for _, e := range from.out {
		if e.to == to {
			e.weight++
			if isReference {
				e.reference = true
			}
			return e
		}
	}
	e := &edge{from: from, to: to, weight: 1, reference: isReference}
	from.out = append(from.out, e)
	to.in = append(to.in, e)
	return e
}

// removeEdge deletes e from the graph entirely.
func (g *graph) removeEdge(e *edge) {
	e.from.out = removeEdgeFromSlice(e.from.out, e)
	e.to.in = removeEdgeFromSlice(e.to.in, e)
}

func removeEdgeFromSlice(s []*edge, e *edge) []*edge {
	for i, x := range s {
		if x == e {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

// removeVertex deletes v and all its incident edges from the graph. v must
// have no remaining edges to any vertex other than itself.
func (g *graph) removeVertex(v *vertex) {
	for _, e := range append([]*edge(nil), v.out...) {
		g.removeEdge(e)
	}
	for _, e := range append([]*edge(nil), v.in...) {
		g.removeEdge(e)
	}
	key := farmKey(v.kmer)
	delete(g.byKmer, key)
	for i, x := range g.vertices {
		if x == v {
			g.vertices = append(g.vertices[:i], g.vertices[i+1:]...)
			break
		}
	}
}

func (v *vertex) outDegree() int { return len(v.out) }
func (v *vertex) inDegree() int  { return len(v.in) }

func (v *vertex) sumOutWeight() uint32 {
	var s uint32
	for _, e := range v.out {
		s += e.weight
	}
	return s
}

func (v *vertex) sumInWeight() uint32 {
	var s uint32
	for _, e := range v.in {
		s += e.weight
	}
	return s
}

// reindex renumbers g.vertices' dense indices after structural mutation, the
// step the real assembler performs before rebuilding its dominator tree.
func (g *graph) reindex() {
	for i, v := range g.vertices {
		v.index = int64(i)
	}
}
