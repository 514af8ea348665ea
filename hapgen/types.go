// Package hapgen implements the haplotype generator (C2): a lazy producer
// of candidate haplotypes over a moving active region, bounded by a holdout
// stack and optionally reusing decisions across steps via lagging.
package hapgen

import (
	"github.com/grailbio/variantcore/allele"
	"github.com/grailbio/variantcore/genome"
)

// Haplotype is one candidate sequence the generator produces, anchored at
// the region it spans.
type Haplotype struct {
	Region   genome.Region
	Sequence string
}

// LaggingPolicy controls how aggressively the generator reuses a
// previously-built HaplotypeTree across active-region steps instead of
// clearing it.
type LaggingPolicy int

const (
	LaggingNone LaggingPolicy = iota
	LaggingConservative
	LaggingAggressive
)

// HaplotypeLimits bounds tree growth: Target is the size extension tries to
// stay under; Holdout is the hard limit before holdout mode kicks in;
// Overflow is the absolute cap past which HaplotypeOverflow is raised.
// Target <= Holdout <= Overflow.
type HaplotypeLimits struct {
	Target, Holdout, Overflow uint32
}

// Policies bundles the generator's tunables.
type Policies struct {
	Lagging        LaggingPolicy
	Limits         HaplotypeLimits
	MaxHoldoutDepth int
}

// HoldoutFrame is alleles set aside (and the region they came from) while
// the generator works through an overflowing novel region, per spec.md
// §4.2's LIFO holdout stack.
type HoldoutFrame struct {
	Alleles []allele.Allele
	Region  genome.Region
}

// HaplotypeTree is the external collaborator spec.md §3 describes:
// extending it with mutually-exclusive allele sites multiplies the branch
// count, and haplotypes are materialized on demand over a region.
type HaplotypeTree interface {
	ExtendWith(alleles []allele.Allele) error
	Clear()
	ClearRegion(r genome.Region)
	NumHaplotypes() int
	EncompassingRegion() genome.Region
	// ExtractHaplotypes materializes every live branch's sequence over r,
	// splicing chosen alleles into ref's bases; ref must cover r.
	ExtractHaplotypes(r genome.Region, ref *genome.Reference) ([]Haplotype, error)
	Splice(alleles []allele.Allele)
	// Clone returns a deep copy, used to speculatively test an extension
	// without mutating the tree the generator is committed to (spec.md
	// §4.2 step 2's "test on a copy of T").
	Clone() HaplotypeTree
}
