// Package allele defines the Allele/Variant data model and the sorted
// candidate-allele set the haplotype generator consumes.
package allele

import (
	"fmt"
	"sort"

	"github.com/grailbio/variantcore/genome"
)

// Allele is a sequence anchored at a genomic region, per spec.md §3: a
// position allele has |region|==1, an insertion has an empty region and
// nonempty sequence, and a deletion has an empty sequence.
type Allele struct {
	Region   genome.Region
	Sequence string
}

// Kind classifies an Allele the way spec.md §3 describes.
type Kind int

const (
	// Substitution is a |region|==1 allele whose sequence is also one base
	// long (the common SNP case). The base is not compared against the
	// reference, so a one-base reference call is classified here too.
	Substitution Kind = iota
	// Position is any allele with a nonempty region and nonempty sequence
	// that is not a Substitution, e.g. a multi-base block substitution.
	Position
	// Insertion is a |region|==0, nonempty-sequence allele.
	Insertion
	// Deletion is an empty-sequence allele.
	Deletion
)

// Kind classifies a.
func (a Allele) Kind() Kind {
	switch {
	case a.Region.Len() == 0 && a.Sequence != "":
		return Insertion
	case a.Sequence == "":
		return Deletion
	case a.Region.Len() == 1 && len(a.Sequence) == 1:
		return Substitution
	default:
		return Position
	}
}

func (a Allele) String() string {
	return fmt.Sprintf("%v:%q", a.Region, a.Sequence)
}

// Compare gives Alleles a total order: by region, then by sequence. This is
// the order MappableFlatSet maintains and the order variant extraction
// sorts on (spec.md §4.1, "sorted by (begin, |ref|, alt)").
func (a Allele) Compare(other Allele) int {
	if c := a.Region.Compare(other.Region); c != 0 {
		return c
	}
	switch {
	case a.Sequence < other.Sequence:
		return -1
	case a.Sequence > other.Sequence:
		return 1
	default:
		return 0
	}
}

// Equal reports whether a and other have the same region and sequence.
func (a Allele) Equal(other Allele) bool { return a.Compare(other) == 0 }

// Variant pairs a reference allele with an alternate allele at the same
// region, per spec.md §3.
type Variant struct {
	Ref Allele
	Alt Allele
}

// NewVariant builds a Variant from a 0-based position and ref/alt byte
// strings, matching the output shape spec.md §6 describes:
// (begin_pos, ref, alt).
func NewVariant(contig string, begin uint32, ref, alt string) Variant {
	reg := genome.NewRegion(contig, begin, begin+uint32(len(ref)))
	return Variant{
		Ref: Allele{Region: reg, Sequence: ref},
		Alt: Allele{Region: reg, Sequence: alt},
	}
}

// MappableFlatSet is a sorted, deduplicated collection of Alleles, the
// structure spec.md §4.2 calls the haplotype generator's remaining-allele
// set A. It supports sorted insertion and binary-search region queries, the
// same forward/binary-search technique interval.BEDUnion uses for BED
// interval-union membership tests, re-targeted at Alleles instead of raw
// position pairs.
type MappableFlatSet struct {
	alleles []Allele
}

// NewMappableFlatSet builds a set from alleles, sorting and deduplicating
// them.
func NewMappableFlatSet(alleles []Allele) *MappableFlatSet {
	s := &MappableFlatSet{alleles: append([]Allele(nil), alleles...)}
	s.sortAndDedup()
	return s
}

func (s *MappableFlatSet) sortAndDedup() {
	sort.Slice(s.alleles, func(i, j int) bool { return s.alleles[i].Compare(s.alleles[j]) < 0 })
	out := s.alleles[:0]
	for i, a := range s.alleles {
		if i == 0 || !a.Equal(s.alleles[i-1]) {
			out = append(out, a)
		}
	}
	s.alleles = out
}

// Len returns the number of alleles currently in the set.
func (s *MappableFlatSet) Len() int { return len(s.alleles) }

// IsEmpty reports whether the set holds no alleles.
func (s *MappableFlatSet) IsEmpty() bool { return len(s.alleles) == 0 }

// All returns every allele in sorted order. The caller must not modify the
// returned slice.
func (s *MappableFlatSet) All() []Allele { return s.alleles }

// First returns the leftmost allele in the set. IsEmpty must be false.
func (s *MappableFlatSet) First() Allele { return s.alleles[0] }

// Last returns the rightmost allele in the set by Region.End. IsEmpty must
// be false.
func (s *MappableFlatSet) Last() Allele {
	last := s.alleles[0]
	for _, a := range s.alleles[1:] {
		if a.Region.End > last.Region.End {
			last = a
		}
	}
	return last
}

// Add inserts allele into the set, preserving sort order and uniqueness.
func (s *MappableFlatSet) Add(a Allele) {
	i := sort.Search(len(s.alleles), func(i int) bool { return s.alleles[i].Compare(a) >= 0 })
	if i < len(s.alleles) && s.alleles[i].Equal(a) {
		return
	}
	s.alleles = append(s.alleles, Allele{})
	copy(s.alleles[i+1:], s.alleles[i:])
	s.alleles[i] = a
}

// AddAll inserts every element of as into the set.
func (s *MappableFlatSet) AddAll(as []Allele) {
	for _, a := range as {
		s.Add(a)
	}
}

// Remove deletes allele from the set if present, reporting whether anything
// was removed.
func (s *MappableFlatSet) Remove(a Allele) bool {
	i := sort.Search(len(s.alleles), func(i int) bool { return s.alleles[i].Compare(a) >= 0 })
	if i >= len(s.alleles) || !s.alleles[i].Equal(a) {
		return false
	}
	s.alleles = append(s.alleles[:i], s.alleles[i+1:]...)
	return true
}

// RemoveAll deletes every element of as from the set.
func (s *MappableFlatSet) RemoveAll(as []Allele) {
	for _, a := range as {
		s.Remove(a)
	}
}

// Overlapping returns, in sorted order, every allele overlapping r. A
// zero-length allele (an insertion) at position p is treated as overlapping
// any region containing p.
func (s *MappableFlatSet) Overlapping(r genome.Region) []Allele {
	lo := sort.Search(len(s.alleles), func(i int) bool {
		return s.alleles[i].Region.End > r.Begin || (s.alleles[i].Region.Len() == 0 && s.alleles[i].Region.Begin >= r.Begin)
	})
	var out []Allele
	for i := lo; i < len(s.alleles); i++ {
		a := s.alleles[i]
		if a.Region.Begin >= r.End {
			break
		}
		if alleleOverlapsRegion(a, r) {
			out = append(out, a)
		}
	}
	return out
}

func alleleOverlapsRegion(a Allele, r genome.Region) bool {
	if a.Region.Len() == 0 {
		return a.Region.Begin >= r.Begin && a.Region.Begin < r.End
	}
	return a.Region.Overlaps(r)
}

// EncompassingRegion returns the smallest region spanning every allele in
// the set. The set must be non-empty.
func (s *MappableFlatSet) EncompassingRegion() genome.Region {
	reg := s.alleles[0].Region
	for _, a := range s.alleles[1:] {
		reg = reg.Encompass(a.Region)
	}
	return reg
}

// VariantsToAlleles flattens a set of Variants into the ref/alt alleles
// spec.md's candidate-variant-set decomposition needs: each Variant
// contributes its Alt allele (the Ref allele is implicit in the reference
// genome and isn't separately tracked in the remaining-allele set).
func VariantsToAlleles(variants []Variant) []Allele {
	out := make([]Allele, len(variants))
	for i, v := range variants {
		out[i] = v.Alt
	}
	return out
}
