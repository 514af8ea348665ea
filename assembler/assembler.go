package assembler

import "github.com/grailbio/variantcore/allele"

// State is the assembler's coarse lifecycle stage, per spec.md §4.1.
type State int

const (
	StateEmpty State = iota
	StateReferenceOnly
	StateMixed
	StatePruned
	StateCleared
)

// Assembler builds a de Bruijn k-mer graph from a reference window plus
// supporting read substrings, and extracts ALT/REF variant bubbles from it.
// Grounded on fusion's kmerizer for k-mer mechanics, generalized to a graph
// instead of a flat index since the assembler needs adjacency, weights, and
// a reference walk that a plain k-mer-to-position index doesn't track.
type Assembler struct {
	k     int
	g     *graph
	state State

	// refSeq is the inserted reference sequence, kept so variant extraction
	// can report positions; refHeadPos is the genomic offset (within the
	// window the reference sequence spans) of the current reference head,
	// which advances as reference-flank pruning pops kmers off the front.
	refSeq     string
	refHeadPos int
	hasRef     bool
}

// New returns an empty assembler over k-mers of length k.
func New(k int) *Assembler {
	return &Assembler{k: k, g: newGraph(k), state: StateEmpty}
}

// NewWithReference returns an assembler seeded with seq as its reference,
// equivalent to calling New(k) followed by InsertReference(seq).
func NewWithReference(k int, seq string) (*Assembler, error) {
	a := New(k)
	if err := a.InsertReference(seq); err != nil {
		return nil, err
	}
	return a, nil
}

// State reports the assembler's current lifecycle stage.
func (a *Assembler) State() State { return a.state }

// InsertReference builds seq's k-mer walk as the reference path, creating a
// new vertex for every reference position. On a graph that already holds
// reads, the reference walk is not merged onto the reads' existing vertices
// or edges; those stay non-reference. At most one reference may
// ever be inserted; a second call fails with BadReferenceSequence, as does
// a seq shorter than k or one containing a base outside ACGT across the
// would-be reference path.
func (a *Assembler) InsertReference(seq string) error {
	if a.hasRef {
		return BadReferenceSequence
	}
	if len(seq) < a.k {
		return BadReferenceSequence
	}
	km, ok := encodeKmer(seq[:a.k], a.k)
	if !ok {
		return BadReferenceSequence
	}
	kmers := make([]Kmer, len(seq)-a.k+1)
	kmers[0] = km
	for i := a.k; i < len(seq); i++ {
		bits := asciiToKmerMap[seq[i]]
		if bits == invalidKmerBits {
			return BadReferenceSequence
		}
		km = successor(km, a.k, bits, a.g.mask)
		kmers[i-a.k+1] = km
	}
	// Each reference position gets its own vertex rather than sharing one
	// with an earlier occurrence of the same k-mer: a repetitive window
	// (period shorter than k) would otherwise collapse into a cycle and
	// fail invariant A2's unique-path check before a single read is ever
	// inserted.
	verts := make([]*vertex, len(kmers))
	for i, km := range kmers {
		v := a.g.addReferenceVertex(km)
		v.reference = true
		verts[i] = v
	}
	for i := 0; i+1 < len(verts); i++ {
		e := a.g.addEdge(verts[i], verts[i+1], true)
		e.reference = true
	}
	a.g.refWalk = verts
	a.g.refHead = verts[0]
	a.g.refTail = verts[len(verts)-1]
	a.refSeq = seq
	a.hasRef = true
	if a.state == StateEmpty {
		a.state = StateReferenceOnly
	} else {
		a.state = StateMixed
	}
	return nil
}

// InsertRead inserts or reinforces the k-mer edges of seq. For each
// consecutive pair of k-mers, an existing edge's weight is incremented by
// one; a missing edge is added with weight one. A base outside ACGT breaks
// the chain at that point (prevKmerGood) without erroring: spec.md §4.1
// only rejects non-canonical k-mers for the reference, not reads.
//
// A read's own walk never binds to the same vertex twice: if seq revisits
// a k-mer it has already passed through earlier in this call, that later
// occurrence gets its own vertex instead of reusing the first one, since
// reusing it would close a cycle back through the read's own path.
func (a *Assembler) InsertRead(seq string) {
	if len(seq) < a.k {
		return
	}
	visited := make(map[*vertex]bool)
	var prev *vertex
	var prevKm Kmer
	prevGood := false
	for i := 0; i+a.k <= len(seq); i++ {
		var km Kmer
		ok := false
		// Roll the previous window's k-mer forward by one base instead of
		// re-encoding the whole window, whenever the previous window was
		// itself valid and the newly-entered trailing base is canonical.
		if prevGood {
			if bits := asciiToKmerMap[seq[i+a.k-1]]; bits != invalidKmerBits {
				km, ok = successor(prevKm, a.k, bits, a.g.mask), true
			}
		}
		if !ok {
			km, ok = encodeKmer(seq[i:i+a.k], a.k)
		}
		if !ok {
			prevGood = false
			continue
		}
		v := a.g.getOrAddVertex(km)
		if visited[v] {
			v = a.g.freshVertex(km)
		}
		visited[v] = true
		if prevGood {
			a.g.addEdge(prev, v, false)
		}
		prev, prevKm, prevGood = v, km, true
	}
	if a.state == StateEmpty {
		a.state = StateMixed
	} else if a.state == StateReferenceOnly {
		a.state = StateMixed
	}
}

// IsAcyclic reports whether the graph, as it currently stands, has no
// cycles among its non-reference-only structure. Used mainly by tests; the
// pruning protocol establishes acyclicity via topological sort directly.
func (a *Assembler) IsAcyclic() bool {
	visiting := make(map[*vertex]bool)
	visited := make(map[*vertex]bool)
	var dfs func(v *vertex) bool
	dfs = func(v *vertex) bool {
		if visiting[v] {
			return false
		}
		if visited[v] {
			return true
		}
		visiting[v] = true
		for _, e := range v.out {
			if !dfs(e.to) {
				return false
			}
		}
		visiting[v] = false
		visited[v] = true
		return true
	}
	for _, v := range a.g.vertices {
		if !visited[v] && !dfs(v) {
			return false
		}
	}
	return true
}

// IsAllReference reports whether every vertex and edge in the graph lies on
// the reference path, i.e. no read evidence has diverged from it.
func (a *Assembler) IsAllReference() bool {
	for _, v := range a.g.vertices {
		if !v.reference {
			return false
		}
	}
	for _, v := range a.g.vertices {
		for _, e := range v.out {
			if !e.reference {
				return false
			}
		}
	}
	return true
}

// Clear resets the assembler to its empty state, discarding the graph and
// any inserted reference.
func (a *Assembler) Clear() {
	a.g = newGraph(a.k)
	a.state = StateEmpty
	a.refSeq = ""
	a.refHeadPos = 0
	a.hasRef = false
}

// referenceSize returns the number of bases the current reference walk
// spans, sequenceLength(len(refWalk), k) per the original assembler's
// reference_size().
func (a *Assembler) referenceSize() int {
	return sequenceLength(len(a.g.refWalk), a.k)
}

// alleleFromPositions builds a Variant from ref/alt base strings anchored
// at a 0-based genomic begin position on contig.
func alleleFromPositions(contig string, begin int, ref, alt string) allele.Variant {
	return allele.NewVariant(contig, uint32(begin), ref, alt)
}
