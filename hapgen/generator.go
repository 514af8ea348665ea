package hapgen

import (
	"sort"

	"github.com/grailbio/variantcore/allele"
	"github.com/grailbio/variantcore/genome"
	"github.com/grailbio/variantcore/read"
)

// Generator is the haplotype generator (C2): it walks a requested region
// step by step, producing successive (haplotypes, active_region) packets
// until the region is exhausted, per spec.md §4.2.
type Generator struct {
	tree        HaplotypeTree
	remaining   *allele.MappableFlatSet
	reads       []read.AlignedRead
	ref         *genome.Reference
	policies    Policies
	minFlankPad uint32
	contig      string

	activeRegion genome.Region
	holdout      []HoldoutFrame
	rightmost    genome.Region
	haveRight    bool
	done         bool

	lastExtensionStopped bool
}

// New builds a Generator over candidates decomposed into alleles, reads
// (the generator's view of the current read map), the reference genome
// haplotypes are materialized against, and the given policies.
func New(candidates []allele.Variant, reads []read.AlignedRead, ref *genome.Reference, policies Policies, minFlankPad uint32) *Generator {
	alleles := allele.VariantsToAlleles(candidates)
	remaining := allele.NewMappableFlatSet(alleles)

	g := &Generator{
		tree:        NewInMemoryTree(),
		remaining:   remaining,
		reads:       reads,
		ref:         ref,
		policies:    policies,
		minFlankPad: minFlankPad,
	}
	if !remaining.IsEmpty() {
		first := remaining.First()
		g.contig = first.Region.Contig
		g.activeRegion = genome.NewRegion(g.contig, first.Region.Begin, first.Region.Begin)
		last := remaining.Last()
		g.rightmost, g.haveRight = last.Region, true
	}
	return g
}

// PeekNextActiveRegion reports the region the next Generate call would
// advance to, without mutating state, or (zero, false) at end of stream.
func (g *Generator) PeekNextActiveRegion() (genome.Region, bool) {
	if g.done {
		return genome.Region{}, false
	}
	next := g.computeNextRegion()
	return next, true
}

// ClearProgress resets the tree and holdout stack, leaving the remaining
// allele set and active region untouched: used when an external caller
// decides previously-built haplotypes are no longer useful.
func (g *Generator) ClearProgress() {
	g.tree.Clear()
	g.holdout = nil
}

// Jump forces the active region directly to r, clearing progress as a
// side effect. The caller is responsible for ensuring r does not skip over
// alleles the generator still owes a packet for.
func (g *Generator) Jump(r genome.Region) {
	g.ClearProgress()
	g.activeRegion = r
}

// RemovalHasImpact reports whether the tree currently holds more than one
// haplotype, a hint external pruning can use to decide whether clearing is
// worthwhile. It does not look at which alleles overlap the active region's
// left overhang.
func (g *Generator) RemovalHasImpact() bool {
	return g.tree.NumHaplotypes() > 1
}

// MaxRemovalImpact reports the largest number of haplotypes a single
// removal could eliminate: bounded above by the tree's current size.
func (g *Generator) MaxRemovalImpact() uint32 {
	return uint32(g.tree.NumHaplotypes())
}

// Generate advances the generator by one step, returning the haplotype
// packet for the newly computed active region. An empty haplotype slice
// paired with a region past the rightmost allele signals end of stream.
func (g *Generator) Generate() ([]Haplotype, genome.Region, error) {
	if g.done {
		return nil, g.activeRegion, nil
	}

	if reentered, err := g.tryHoldoutReentry(); err != nil {
		return nil, genome.Region{}, err
	} else if reentered {
		// fall through: the re-entered frame's region becomes this step's
		// active region, already applied by tryHoldoutReentry.
	} else {
		next := g.computeNextRegion()
		if g.haveRight && next.Begin >= g.rightmost.End {
			g.done = true
			return nil, next, nil
		}
		if err := g.advanceTo(next); err != nil {
			return nil, genome.Region{}, err
		}
	}

	haplotypeRegion := g.calculateHaplotypeRegion()
	haps, err := g.tree.ExtractHaplotypes(haplotypeRegion, g.ref)
	if err != nil {
		return nil, genome.Region{}, err
	}

	if g.policies.Lagging == LaggingNone {
		g.tree.Clear()
	}
	return haps, g.activeRegion, nil
}

// computeNextRegion picks R' per spec.md §4.2 step 2: the plain default
// walker when lagging is disabled and there are no pending holdouts, the
// lagged walker otherwise.
func (g *Generator) computeNextRegion() genome.Region {
	if g.policies.Lagging == LaggingNone && len(g.holdout) == 0 {
		return defaultWalker{}.walk(g.activeRegion, g.reads, g.remaining)
	}
	return laggedWalker{limits: g.policies.Limits}.walk(g.activeRegion, g.reads, g.remaining)
}

// tryHoldoutReentry implements step 1: if the top holdout frame is no
// longer to the right of the current active region, splice it back into
// the tree and pop it.
func (g *Generator) tryHoldoutReentry() (bool, error) {
	if len(g.holdout) == 0 {
		return false, nil
	}
	top := g.holdout[len(g.holdout)-1]
	if top.Region.Begin > g.activeRegion.End {
		return false, nil // still strictly to the right; not yet time.
	}

	g.remaining.AddAll(top.Alleles)
	between := g.remaining.Overlapping(g.activeRegion.Encompass(top.Region))
	if err := g.tree.ExtendWith(between); err != nil {
		return false, err
	}
	if uint32(g.tree.NumHaplotypes()) > g.policies.Limits.Overflow {
		return false, &HaplotypeOverflow{Region: g.tree.EncompassingRegion(), Size: uint32(g.tree.NumHaplotypes())}
	}
	g.holdout = g.holdout[:len(g.holdout)-1]
	g.activeRegion = g.activeRegion.Encompass(top.Region)
	return true, nil
}

// advanceTo implements steps 4-6: erase the left overhang the tree no
// longer needs, extend with the novel right overhang bounded by the
// holdout limit, and enter holdout mode if extension can't fit.
func (g *Generator) advanceTo(next genome.Region) error {
	if g.activeRegion.Begin < next.Begin {
		overhang := g.activeRegion.LeftOverhang(next)
		if !overhang.Empty() {
			g.tree.ClearRegion(overhang.ExpandRight(-1))
		}
	}

	novel := g.activeRegion.RightOverhang(next)
	novelAlleles := g.remaining.Overlapping(novel)

	notCommitted, err := g.extendBounded(novelAlleles, g.policies.Limits.Holdout)
	if err != nil {
		return err
	}
	if g.lastExtensionStopped {
		if err := g.enterHoldout(novel, notCommitted); err != nil {
			return err
		}
	}
	g.activeRegion = next
	return nil
}

// extendBounded extends the tree with alleles one mutually-exclusive site
// at a time, stopping before any site whose commit would push
// NumHaplotypes() over limit; it records whether it had to stop early in
// lastExtensionStopped and returns the alleles of every site it left
// uncommitted, starting with the site whose trial extension exceeded limit,
// so a caller entering holdout mode only ever acts on what the tree doesn't
// already hold.
func (g *Generator) extendBounded(alleles []allele.Allele, limit uint32) ([]allele.Allele, error) {
	g.lastExtensionStopped = false
	groups := groupByRegion(alleles)
	for i, grp := range groups {
		trial := g.tree.Clone()
		if err := trial.ExtendWith(grp.alleles); err != nil {
			return nil, err
		}
		if uint32(trial.NumHaplotypes()) > limit {
			g.lastExtensionStopped = true
			return flattenGroups(groups[i:]), nil
		}
		if err := g.tree.ExtendWith(grp.alleles); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func flattenGroups(groups []siteGroup) []allele.Allele {
	var out []allele.Allele
	for _, grp := range groups {
		out = append(out, grp.alleles...)
	}
	return out
}

// enterHoldout implements step 6: when extension stopped early, pop the
// most-interacting region in novel into a new holdout frame (if depth
// allows), or otherwise keep extending bounded by overflow.
func (g *Generator) enterHoldout(novel genome.Region, novelAlleles []allele.Allele) error {
	if len(g.holdout) >= g.policies.MaxHoldoutDepth {
		if _, err := g.extendBounded(novelAlleles, g.policies.Limits.Overflow); err != nil {
			return err
		}
		if g.lastExtensionStopped {
			return &HaplotypeOverflow{Region: novel, Size: uint32(g.tree.NumHaplotypes())}
		}
		return nil
	}

	groups := groupByRegion(novelAlleles)
	sort.Slice(groups, func(i, j int) bool { return len(groups[i].alleles) < len(groups[j].alleles) })
	if len(groups) == 0 {
		return nil
	}
	popped := groups[len(groups)-1]
	g.remaining.RemoveAll(popped.alleles)
	g.holdout = append(g.holdout, HoldoutFrame{Alleles: popped.alleles, Region: popped.region})

	// novelAlleles here is already just what extendBounded left uncommitted,
	// so only the popped site itself (never in the tree to begin with) needs
	// excluding before retrying the rest at the looser overflow bound.
	rest := make([]allele.Allele, 0, len(novelAlleles))
	for _, a := range novelAlleles {
		if a.Region != popped.region {
			rest = append(rest, a)
		}
	}
	if _, err := g.extendBounded(rest, g.policies.Limits.Overflow); err != nil {
		return err
	}
	if g.lastExtensionStopped {
		return &HaplotypeOverflow{Region: novel, Size: uint32(g.tree.NumHaplotypes())}
	}
	return nil
}

// calculateHaplotypeRegion expands the active region so every overlapping
// read fits, then pads each side by minFlankPad plus twice the summed indel
// sizes of the remaining alleles the region covers, per spec.md §4.2 step 8.
func (g *Generator) calculateHaplotypeRegion() genome.Region {
	r := g.activeRegion
	for _, rd := range g.reads {
		if rd.Region().Overlaps(r) {
			r = r.Encompass(rd.Region())
		}
	}
	pad := int32(g.minFlankPad) + 2*sumIndelSizes(g.remaining.Overlapping(r))
	return r.ExpandLeft(pad).ExpandRight(pad)
}

func sumIndelSizes(alleles []allele.Allele) int32 {
	var sum int32
	for _, a := range alleles {
		switch a.Kind() {
		case allele.Insertion:
			sum += int32(len(a.Sequence))
		case allele.Deletion:
			sum += int32(a.Region.Len())
		}
	}
	return sum
}
