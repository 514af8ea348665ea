package hapgen

import (
	"github.com/grailbio/variantcore/allele"
	"github.com/grailbio/variantcore/genome"
	"github.com/grailbio/variantcore/read"
)

// genomeWalker picks the next active region given the current one, the
// reads overlapping it, and the remaining candidate alleles. spec.md §4.2
// names three: default, holdout, and an optional lagged walker.
type genomeWalker interface {
	walk(current genome.Region, reads []read.AlignedRead, alleles *allele.MappableFlatSet) genome.Region
}

// defaultWalker advances to the region spanning the next allele and then
// grows it to cover the whole cluster touching that span: every read
// overlapping the growing region, and every allele that touches the result,
// folded in to a fixed point. A dense run of adjacent SNPs (or a read
// spanning several of them) therefore arrives as a single active-region
// step instead of one allele at a time, the same whole-cluster stride the
// original GenomeWalker takes before the generator ever checks it against
// HaplotypeLimits.
type defaultWalker struct{}

func (defaultWalker) walk(current genome.Region, reads []read.AlignedRead, alleles *allele.MappableFlatSet) genome.Region {
	next := firstAlleleAfter(current, alleles)
	if next == nil {
		return genome.NewRegion(current.Contig, current.End, current.End)
	}
	r := current.Encompass(next.Region).Tail(next.Region.Len())
	for {
		grown := r
		for _, rd := range reads {
			if rd.Region().Overlaps(grown) {
				grown = grown.Encompass(rd.Region())
			}
		}
		for _, a := range alleles.All() {
			if a.Region.Begin <= grown.End && a.Region.End >= grown.Begin {
				grown = grown.Encompass(a.Region)
			}
		}
		if grown == r {
			return r
		}
		r = grown
	}
}

// laggedWalker extends as far right as the current tree can absorb without
// exceeding target, per spec.md §4.2 step 2's lagged-walk description: it
// tries successive candidate alleles right of current and stops just
// before the target limit would be exceeded.
type laggedWalker struct {
	limits HaplotypeLimits
}

func (w laggedWalker) walk(current genome.Region, reads []read.AlignedRead, alleles *allele.MappableFlatSet) genome.Region {
	next := firstAlleleAfter(current, alleles)
	if next == nil {
		return genome.NewRegion(current.Contig, current.End, current.End)
	}
	r := current.Encompass(next.Region)
	// Greedily fold in successive alleles that start at or past the
	// region's current end, stopping once folding in one more would plausibly exceed
	// the target haplotype count (2x per mutually-exclusive site, a
	// conservative estimate used only to pick a candidate region; the
	// generator re-validates against the real tree before committing).
	budget := w.limits.Target
	count := uint32(1)
	for _, a := range alleles.All() {
		if a.Region.Begin < r.End {
			continue
		}
		if count*2 > budget {
			break
		}
		r = r.Encompass(a.Region)
		count *= 2
	}
	return r
}

// firstAlleleAfter returns the allele with the smallest Begin strictly at
// or past current's end, or nil if none remains.
func firstAlleleAfter(current genome.Region, alleles *allele.MappableFlatSet) *allele.Allele {
	var best *allele.Allele
	for _, a := range alleles.All() {
		if a.Region.Begin < current.End {
			continue
		}
		if best == nil || a.Region.Begin < best.Region.Begin {
			cp := a
			best = &cp
		}
	}
	return best
}
