package hapgen

import (
	"sort"
	"strings"

	"github.com/grailbio/variantcore/allele"
	"github.com/grailbio/variantcore/genome"
)

// branch is one haplotype-under-construction: the ordered list of alleles
// chosen at each site visited so far.
type branch struct {
	chosen []allele.Allele
}

// siteGroup is a set of mutually-exclusive alleles at the same region: a
// tree extension branches once per siteGroup, one branch per allele in the
// group plus (implicitly) the reference call.
type siteGroup struct {
	region  genome.Region
	alleles []allele.Allele
}

// InMemoryTree is a reference HaplotypeTree built by cartesian product over
// mutually-exclusive allele sites, the semantics spec.md §3 describes
// ("each extension multiplies branches at each new mutually-exclusive
// allele site"). It keeps every live branch materialized rather than a
// compressed trie, which is the simplest faithful implementation and is
// adequate at the branch counts HaplotypeLimits bounds the generator to.
type InMemoryTree struct {
	sites     []siteGroup
	branches  []branch
	region    genome.Region
	hasRegion bool
}

// NewInMemoryTree returns an empty tree.
func NewInMemoryTree() *InMemoryTree {
	return &InMemoryTree{}
}

func groupByRegion(alleles []allele.Allele) []siteGroup {
	byRegion := map[genome.Region][]allele.Allele{}
	var order []genome.Region
	for _, a := range alleles {
		if _, ok := byRegion[a.Region]; !ok {
			order = append(order, a.Region)
		}
		byRegion[a.Region] = append(byRegion[a.Region], a)
	}
	groups := make([]siteGroup, 0, len(order))
	for _, r := range order {
		groups = append(groups, siteGroup{region: r, alleles: byRegion[r]})
	}
	return groups
}

// ExtendWith adds alleles as new mutually-exclusive sites, multiplying the
// branch count by the number of alternatives at each new site (plus the
// implicit reference-call branch at that site).
func (t *InMemoryTree) ExtendWith(alleles []allele.Allele) error {
	groups := groupByRegion(alleles)
	if len(t.branches) == 0 {
		t.branches = []branch{{}}
	}
	for _, g := range groups {
		t.sites = append(t.sites, g)
		next := make([]branch, 0, len(t.branches)*(len(g.alleles)+1))
		for _, b := range t.branches {
			// the reference-call branch at this site: no allele appended.
			next = append(next, branch{chosen: append([]allele.Allele(nil), b.chosen...)})
			for _, a := range g.alleles {
				c := append([]allele.Allele(nil), b.chosen...)
				c = append(c, a)
				next = append(next, branch{chosen: c})
			}
		}
		t.branches = next
		if t.hasRegion {
			t.region = t.region.Encompass(g.region)
		} else {
			t.region, t.hasRegion = g.region, true
		}
	}
	return nil
}

// Clear discards every site and branch.
func (t *InMemoryTree) Clear() {
	t.sites = nil
	t.branches = nil
	t.hasRegion = false
}

// ClearRegion discards sites (and the allele choices tied to them) whose
// region lies within r, the left-overhang erasure spec.md §4.2 step 4
// needs.
func (t *InMemoryTree) ClearRegion(r genome.Region) {
	kept := t.sites[:0]
	for _, s := range t.sites {
		if !r.Contains(s.region) {
			kept = append(kept, s)
		}
	}
	t.sites = kept
	for i := range t.branches {
		filtered := t.branches[i].chosen[:0]
		for _, a := range t.branches[i].chosen {
			if !r.Overlaps(a.Region) {
				filtered = append(filtered, a)
			}
		}
		t.branches[i].chosen = filtered
	}
	t.dedupeBranches()
}

// dedupeBranches removes branches that became identical after ClearRegion
// dropped distinguishing alleles.
func (t *InMemoryTree) dedupeBranches() {
	seen := map[string]bool{}
	out := t.branches[:0]
	for _, b := range t.branches {
		key := branchKey(b)
		if !seen[key] {
			seen[key] = true
			out = append(out, b)
		}
	}
	t.branches = out
}

func branchKey(b branch) string {
	s := ""
	for _, a := range b.chosen {
		s += a.String() + "|"
	}
	return s
}

// NumHaplotypes reports the number of distinct branches currently live.
func (t *InMemoryTree) NumHaplotypes() int { return len(t.branches) }

// EncompassingRegion returns the smallest region spanning every site the
// tree has been extended with.
func (t *InMemoryTree) EncompassingRegion() genome.Region { return t.region }

// ExtractHaplotypes materializes every branch's sequence over r, splicing
// each branch's chosen alleles into the reference bases ref reports for r.
func (t *InMemoryTree) ExtractHaplotypes(r genome.Region, ref *genome.Reference) ([]Haplotype, error) {
	out := make([]Haplotype, 0, len(t.branches))
	for _, b := range t.branches {
		seq, err := applyAlleles(ref, r, b.chosen)
		if err != nil {
			return nil, err
		}
		out = append(out, Haplotype{Region: r, Sequence: seq})
	}
	return out, nil
}

// applyAlleles walks r left to right, copying reference bases from ref and
// substituting in b's chosen alleles at their regions: a position or
// substitution allele replaces the bases at its region, a deletion removes
// them, and an insertion's sequence is spliced in without consuming any
// reference bases. Alleles are applied in region order regardless of the
// order the branch accumulated them in.
func applyAlleles(ref *genome.Reference, r genome.Region, chosen []allele.Allele) (string, error) {
	ordered := append([]allele.Allele(nil), chosen...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Region.Compare(ordered[j].Region) < 0 })

	var b strings.Builder
	cursor := r.Begin
	for _, a := range ordered {
		if a.Region.Begin < cursor {
			continue // already covered by an earlier, wider allele
		}
		if a.Region.Begin > cursor {
			gap, err := ref.Sequence(genome.NewRegion(r.Contig, cursor, a.Region.Begin))
			if err != nil {
				return "", err
			}
			b.WriteString(gap)
		}
		b.WriteString(a.Sequence)
		cursor = a.Region.End
	}
	if cursor < r.End {
		tail, err := ref.Sequence(genome.NewRegion(r.Contig, cursor, r.End))
		if err != nil {
			return "", err
		}
		b.WriteString(tail)
	}
	return b.String(), nil
}

// Splice replaces the full set of sites with exactly the given alleles
// (spec.md §3's extend/clear/splice contract). The generator's holdout
// re-entry does not call it; it re-extends the tree with ExtendWith.
func (t *InMemoryTree) Splice(alleles []allele.Allele) {
	t.Clear()
	_ = t.ExtendWith(alleles)
}

// Clone returns a deep copy of t, used to speculatively test an extension.
func (t *InMemoryTree) Clone() HaplotypeTree {
	clone := &InMemoryTree{
		sites:     append([]siteGroup(nil), t.sites...),
		branches:  make([]branch, len(t.branches)),
		region:    t.region,
		hasRegion: t.hasRegion,
	}
	for i, b := range t.branches {
		clone.branches[i] = branch{chosen: append([]allele.Allele(nil), b.chosen...)}
	}
	return clone
}
