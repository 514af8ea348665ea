package assembler

import (
	"math"
	"sort"

	"github.com/grailbio/variantcore/allele"
)

// maxBlockings caps the number of times variant extraction will block an
// edge and retry, the safety valve spec.md's open question calls out:
// termination of the blocking strategy is not proven, so this cap exists
// purely to stop a pathological graph from looping forever.
const maxBlockings = 50

// ExtractVariants returns up to max variant bubbles out of the graph,
// sorted by (begin, |ref|, alt) and deduplicated on (begin, alt), per
// spec.md §4.1. It is idempotent on an empty or all-reference graph.
func (a *Assembler) ExtractVariants(contig string, max int) []allele.Variant {
	if a.state == StateEmpty || a.IsAllReference() {
		return nil
	}
	a.setAllEdgeTransitionScores()
	vs := a.extractBubblePaths(contig, max)
	sort.Slice(vs, func(i, j int) bool {
		bi, bj := vs[i].Alt.Region.Begin, vs[j].Alt.Region.Begin
		if bi != bj {
			return bi < bj
		}
		if len(vs[i].Ref.Sequence) != len(vs[j].Ref.Sequence) {
			return len(vs[i].Ref.Sequence) < len(vs[j].Ref.Sequence)
		}
		return vs[i].Alt.Sequence < vs[j].Alt.Sequence
	})
	out := vs[:0]
	for i, v := range vs {
		if i == 0 || v.Alt.Region.Begin != vs[i-1].Alt.Region.Begin || v.Alt.Sequence != vs[i-1].Alt.Sequence {
			out = append(out, v)
		}
	}
	return out
}

func (a *Assembler) setAllEdgeTransitionScores() {
	for _, v := range a.g.vertices {
		a.setOutEdgeTransitionScores(v)
	}
}

func computeTransitionScore(weight, totalOutWeight uint32) float64 {
	if totalOutWeight == 0 {
		return 0
	}
	if weight == 0 {
		return maxScore
	}
	return math.Abs(math.Log(float64(weight) / float64(totalOutWeight)))
}

func (a *Assembler) setOutEdgeTransitionScores(v *vertex) {
	total := v.sumOutWeight()
	for _, e := range v.out {
		e.transitionScore = computeTransitionScore(e.weight, total)
	}
}

func findEdge(from, to *vertex) *edge {
	for _, e := range from.out {
		if e.to == to {
			return e
		}
	}
	return nil
}

// dominatorTree maps every vertex reachable from from to its immediate
// dominator, computed via the standard iterative (Cooper/Harvey/Kennedy)
// algorithm over a reverse postorder of the graph: gonum is already used
// for topological sort (prune.go) and is the heavier alternative here, but
// its dominator-analysis API isn't part of the version this module is
// grounded on, so dominance is computed directly, the same CFG-dominance
// technique the original assembler gets from Boost's Lengauer-Tarjan
// implementation, just iterative instead of the faster near-linear variant.
func (a *Assembler) dominatorTree(from *vertex) map[*vertex]*vertex {
	order := reversePostorder(from)
	rpoIndex := make(map[*vertex]int, len(order))
	for i, v := range order {
		rpoIndex[v] = i
	}

	idom := map[*vertex]*vertex{from: from}
	changed := true
	for changed {
		changed = false
		for _, v := range order {
			if v == from {
				continue
			}
			var newIdom *vertex
			for _, e := range v.in {
				pred := e.from
				if idom[pred] == nil {
					continue
				}
				if newIdom == nil {
					newIdom = pred
					continue
				}
				newIdom = intersectDominators(newIdom, pred, idom, rpoIndex)
			}
			if newIdom != nil && idom[v] != newIdom {
				idom[v] = newIdom
				changed = true
			}
		}
	}
	delete(idom, from) // matches the original dropping the null-dominator entry for the root.
	return idom
}

func intersectDominators(x, y *vertex, idom map[*vertex]*vertex, rpoIndex map[*vertex]int) *vertex {
	for x != y {
		for rpoIndex[x] > rpoIndex[y] {
			x = idom[x]
		}
		for rpoIndex[y] > rpoIndex[x] {
			y = idom[y]
		}
	}
	return x
}

func reversePostorder(from *vertex) []*vertex {
	var order []*vertex
	visited := map[*vertex]bool{}
	var dfs func(v *vertex)
	dfs = func(v *vertex) {
		visited[v] = true
		for _, e := range v.out {
			if !visited[e.to] {
				dfs(e.to)
			}
		}
		order = append(order, v)
	}
	dfs(from)
	// order is postorder; reverse for reverse-postorder.
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}

// extractNondominantReference returns every reference vertex, other than
// the tail, that does not itself dominate any other vertex in domTree.
func (a *Assembler) extractNondominantReference(domTree map[*vertex]*vertex) []*vertex {
	dominators := map[*vertex]bool{}
	for _, d := range domTree {
		dominators[d] = true
	}
	var result []*vertex
	for v := range domTree {
		if v.reference && v != a.g.refTail && !dominators[v] {
			result = append(result, v)
		}
	}
	return result
}

func allInEdgesBlocked(v *vertex) bool {
	for _, e := range v.in {
		if !e.isBlocked() {
			return false
		}
	}
	return true
}

func blockAllInEdges(v *vertex) {
	for _, e := range v.in {
		e.block()
	}
}

func allVerticesBlocked(vs []*vertex) bool {
	for _, v := range vs {
		if !allInEdgesBlocked(v) {
			return false
		}
	}
	return true
}

func blockAllVertices(vs []*vertex) {
	for _, v := range vs {
		blockAllInEdges(v)
	}
}

// shortestScoringPaths runs Dijkstra from `from` using each edge's
// transitionScore as its cost, returning a predecessor map. The source
// maps to itself, matching count_unreachables' convention in the original:
// exactly one entry (the source) should ever satisfy predecessors[v] == v.
func shortestScoringPaths(from *vertex) map[*vertex]*vertex {
	const inf = math.MaxFloat64
	dist := map[*vertex]float64{from: 0}
	pred := map[*vertex]*vertex{from: from}
	visited := map[*vertex]bool{}

	for {
		var u *vertex
		best := inf
		for v, d := range dist {
			if !visited[v] && d < best {
				best, u = d, v
			}
		}
		if u == nil {
			break
		}
		visited[u] = true
		for _, e := range u.out {
			nd := dist[u] + e.transitionScore
			if cur, ok := dist[e.to]; !ok || nd < cur {
				dist[e.to] = nd
				pred[e.to] = u
			}
		}
	}
	return pred
}

func countUnreachables(pred map[*vertex]*vertex) int {
	n := 0
	for v, p := range pred {
		if v == p {
			n++
		}
	}
	return n
}

// isOnPath reports whether target is reachable from reference_head via
// pred without leaving the subgraph rooted at reference_tail's backtrack,
// i.e. whether target lies on the predecessor chain from `to` back to
// `from`.
func isOnPath(target *vertex, pred map[*vertex]*vertex, to *vertex) bool {
	v, ok := pred[to]
	if !ok {
		return false
	}
	cur := to
	for {
		if cur == target {
			return true
		}
		if v == cur {
			return false // reached the source; self-mapped.
		}
		cur = v
		v, ok = pred[cur]
		if !ok {
			return false
		}
	}
}

// backtrackUntilNonReference walks pred backward from `from` (typically
// reference_tail) while the edges it crosses are reference edges, stopping
// either at reference_head or at the first non-reference edge. It returns
// (alt, ref, count): ref is the reference vertex the walk stopped at (the
// bubble's right-hand rejoin point, or reference_tail itself if the whole
// walk was reference), alt is the vertex one hop further back (either
// reference_head, or the last vertex of the alt path), and count is the
// number of reference vertices visited.
func backtrackUntilNonReference(pred map[*vertex]*vertex, from *vertex, head *vertex) (alt, ref *vertex, count int) {
	v := pred[from]
	count = 1
	for v != head {
		e := findEdge(v, from)
		if e == nil || !e.reference {
			break
		}
		from = v
		v = pred[from]
		count++
	}
	return v, from, count
}

// extractNonReferencePath collects the contiguous run of non-reference
// vertices on pred's chain ending at (and including) from.
func extractNonReferencePath(pred map[*vertex]*vertex, from *vertex) []*vertex {
	path := []*vertex{from}
	cur := pred[from]
	for !cur.reference {
		path = append([]*vertex{cur}, path...)
		cur = pred[cur]
	}
	return path
}

func isBridge(v *vertex) bool { return v.inDegree() == 1 && v.outDegree() == 1 }

// isBridgeUntil returns the index of the first non-bridge vertex in path,
// or len(path) if every vertex is a bridge.
func isBridgeUntil(path []*vertex) int {
	for i, v := range path {
		if !isBridge(v) {
			return i
		}
	}
	return len(path)
}

func joinsReferenceOnly(v *vertex) bool {
	return v.outDegree() == 1 && v.out[0].reference
}

func isSimpleDeletion(e *edge) bool {
	return !e.reference && e.from.reference && e.to.reference
}

func isOnAltPath(e *edge, path []*vertex) bool {
	for i := 0; i+1 < len(path); i++ {
		if path[i] == e.from && path[i+1] == e.to {
			return true
		}
	}
	return false
}

func connectsToAltPath(e *edge, path []*vertex) bool {
	if len(path) == 0 {
		return false
	}
	front, back := path[0], path[len(path)-1]
	if len(front.in) > 0 && front.in[0] == e {
		return true
	}
	if len(back.out) > 0 && back.out[0] == e {
		return true
	}
	return false
}

func isDependentOnAltPath(e *edge, path []*vertex) bool {
	return connectsToAltPath(e, path) || isOnAltPath(e, path)
}

// isDominatedByPath reports whether vertex's dominator appears somewhere in
// path[:last], searching from the end since the closer dominator is
// more likely to be found there.
func isDominatedByPath(vertex *vertex, path []*vertex, last int, domTree map[*vertex]*vertex) bool {
	dom := domTree[vertex]
	for i := last - 1; i >= 0; i-- {
		if path[i] == dom {
			return true
		}
	}
	return false
}

func nextReference(v *vertex) *vertex {
	for _, e := range v.out {
		if e.reference {
			return e.to
		}
	}
	return nil
}

// makeReference builds the reference sequence spanning from..to inclusive,
// walking forward along reference edges.
func (a *Assembler) makeReference(from, to *vertex) string {
	if from == to {
		return ""
	}
	buf := []byte(decodeKmer(from.kmer, a.k))
	cur := nextReference(from)
	for cur != to {
		buf = append(buf, kmerToASCII[lastBase(cur.kmer)])
		cur = nextReference(cur)
	}
	buf = append(buf, kmerToASCII[lastBase(to.kmer)])
	return string(buf)
}

// makeSequence concatenates path's k-mers into a single sequence: the first
// k-mer in full, then each subsequent vertex's trailing base.
func (a *Assembler) makeSequence(path []*vertex) string {
	buf := []byte(decodeKmer(path[0].kmer, a.k))
	for _, v := range path[1:] {
		buf = append(buf, kmerToASCII[lastBase(v.kmer)])
	}
	return string(buf)
}

// removePath deletes every vertex in path and its incident edges. path is
// assumed to be a bridge chain: every interior vertex has in-degree and
// out-degree 1, so the endpoints' single outward-facing edges are removed
// along with the chain's internal edges.
func (a *Assembler) removePath(path []*vertex) {
	if len(path) == 1 {
		a.g.removeVertex(path[0])
		return
	}
	front := path[0]
	if len(front.in) > 0 {
		a.g.removeEdge(front.in[0])
	}
	for i := 0; i+1 < len(path); i++ {
		if e := findEdge(path[i], path[i+1]); e != nil {
			a.g.removeEdge(e)
		}
	}
	back := path[len(path)-1]
	if len(back.out) > 0 {
		a.g.removeEdge(back.out[0])
	}
	for _, v := range path {
		a.g.removeVertex(v)
	}
}

func countKmers(seq string, k int) int {
	n := len(seq) - k + 1
	if n < 0 {
		return 0
	}
	return n
}

// extractBubblePaths is the Go translation of the original assembler's
// extract_k_highest_scoring_bubble_paths: it repeatedly finds the
// transition-score-cheapest path from reference_head to reference_tail,
// and whenever that path diverges from the reference, extracts the
// divergence as a variant and removes or blocks it so the next iteration
// finds a different path.
func (a *Assembler) extractBubblePaths(contig string, k int) []allele.Variant {
	head, tail := a.g.refHead, a.g.refTail
	domTree := a.dominatorTree(head)
	numRemainingAlt := len(a.g.vertices) - a.numReferenceVertices()

	var blockedEdge *edge
	var result []allele.Variant
	blockingsLeft := maxBlockings

	for k > 0 && numRemainingAlt > 0 {
		pred := shortestScoringPaths(head)

		if blockedEdge != nil {
			if blockingsLeft == 0 {
				return result
			}
			blockingsLeft--
			if !isOnPath(blockedEdge.to, pred, tail) {
				a.setOutEdgeTransitionScores(blockedEdge.from)
				blockedEdge = nil
			} else if allOutEdgesBlocked(blockedEdge.to) {
				return result
			}
		}

		alt, ref, rhsKmerCount := backtrackUntilNonReference(pred, tail, head)

		if alt == head {
			nondominant := a.extractNondominantReference(domTree)
			if allVerticesBlocked(nondominant) {
				return result
			}
			blockAllVertices(nondominant)
			continue
		}

		for alt != head {
			altPath := extractNonReferencePath(pred, alt)
			refBeforeBubble := pred[altPath[0]]

			refSeq := a.makeReference(refBeforeBubble, ref)
			fullAlt := append([]*vertex{refBeforeBubble}, altPath...)
			altSeq := a.makeSequence(fullAlt)

			rhsKmerCount += countKmers(refSeq, a.k)
			pos := a.refHeadPos + a.referenceSize() - sequenceLength(rhsKmerCount, a.k)
			result = append(result, alleleFromPositions(contig, pos, refSeq, altSeq))
			rhsKmerCount--

			edgeToAlt := findEdge(alt, ref)

			if len(altPath) == 1 && edgeToAlt != nil && isSimpleDeletion(edgeToAlt) {
				if blockedEdge != nil && blockedEdge.from == altPath[0] && blockedEdge.to == ref {
					blockedEdge = nil
				}
				if e := findEdge(altPath[0], ref); e != nil {
					a.g.removeEdge(e)
				}
				a.setOutEdgeTransitionScores(altPath[0])
			} else {
				vertexBeforeBridge := refBeforeBubble
				for len(altPath) > 0 {
					bi := isBridgeUntil(altPath)
					switch {
					case bi == len(altPath):
						if blockedEdge != nil && isDependentOnAltPath(blockedEdge, altPath) {
							blockedEdge = nil
						}
						a.removePath(altPath)
						a.g.reindex()
						a.setOutEdgeTransitionScores(vertexBeforeBridge)
						for _, v := range altPath {
							delete(domTree, v)
						}
						numRemainingAlt -= len(altPath)
						altPath = nil
					case joinsReferenceOnly(altPath[bi]):
						altPath = altPath[:bi]
						if blockedEdge != nil && isDependentOnAltPath(blockedEdge, altPath) {
							blockedEdge = nil
						}
						a.removePath(altPath)
						a.g.reindex()
						a.setOutEdgeTransitionScores(vertexBeforeBridge)
						for _, v := range altPath {
							delete(domTree, v)
						}
						numRemainingAlt -= len(altPath)
						altPath = nil
					case isDominatedByPath(altPath[bi], altPath, bi, domTree):
						vertexBeforeBridge = altPath[bi]
						altPath = altPath[bi+1:]
					default:
						if bi != 0 {
							if e := findEdge(altPath[bi-1], altPath[bi]); e != nil {
								e.block()
								blockedEdge = e
							}
						} else {
							blockAllInEdges(altPath[0])
						}
						altPath = nil
					}
				}
			}

			var kmerCountToAlt int
			alt, ref, kmerCountToAlt = backtrackUntilNonReference(pred, refBeforeBubble, head)
			rhsKmerCount += kmerCountToAlt
			if k > 0 {
				k--
			}
		}

		if a.canPruneReferenceFlanks() {
			a.pruneReferenceFlanks()
			a.g.reindex()
			head, tail = a.g.refHead, a.g.refTail
			domTree = a.dominatorTree(head)
		}
	}
	return result
}

func allOutEdgesBlocked(v *vertex) bool {
	if len(v.out) == 0 {
		return false
	}
	for _, e := range v.out {
		if !e.isBlocked() {
			return false
		}
	}
	return true
}

func (a *Assembler) numReferenceVertices() int {
	n := 0
	for _, v := range a.g.vertices {
		if v.reference {
			n++
		}
	}
	return n
}

func (a *Assembler) canPruneReferenceFlanks() bool {
	if len(a.g.refWalk) == 0 {
		return false
	}
	return a.g.refHead.outDegree() == 1 || a.g.refTail.inDegree() == 1
}
