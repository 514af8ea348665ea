package hapgen_test

import (
	"strings"
	"testing"

	"github.com/grailbio/variantcore/allele"
	"github.com/grailbio/variantcore/genome"
	"github.com/grailbio/variantcore/hapgen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snp(contig string, pos uint32, ref, alt string) allele.Variant {
	return allele.NewVariant(contig, pos, ref, alt)
}

// chr1Reference returns an in-memory reference long enough to cover every
// position the tests in this file anchor variants to.
func chr1Reference() *genome.Reference {
	return genome.NewInMemoryReference("test", map[string]string{
		"chr1": strings.Repeat("ACGT", 50),
	}, []string{"chr1"})
}

func TestOverflowRaisesHaplotypeOverflow(t *testing.T) {
	// S6: several adjacent SNP sites, each doubling the branch count, with
	// holdout disallowed (MaxHoldoutDepth 0) so the generator has nowhere
	// to defer growth it can't fit under Holdout: it must fail over to the
	// Overflow-bounded extension and surface HaplotypeOverflow.
	contig := "chr1"
	variants := []allele.Variant{
		snp(contig, 100, "A", "T"),
		snp(contig, 101, "A", "T"),
		snp(contig, 102, "A", "T"),
		snp(contig, 103, "A", "T"),
		snp(contig, 104, "A", "T"),
	}
	policies := hapgen.Policies{
		Lagging:         hapgen.LaggingNone,
		Limits:          hapgen.HaplotypeLimits{Target: 2, Holdout: 4, Overflow: 8},
		MaxHoldoutDepth: 0,
	}
	gen := hapgen.New(variants, nil, chr1Reference(), policies, 0)

	var lastErr error
	for i := 0; i < 5; i++ {
		_, _, err := gen.Generate()
		if err != nil {
			lastErr = err
			break
		}
	}
	require.Error(t, lastErr)
	_, ok := lastErr.(*hapgen.HaplotypeOverflow)
	assert.True(t, ok, "expected *hapgen.HaplotypeOverflow, got %T", lastErr)
}

func TestHoldoutReentry(t *testing.T) {
	// S7: four adjacent SNPs arrive as a single active-region step (they're
	// close enough to cluster), too dense to extend at once under
	// Holdout=4, forcing the densest site into a holdout frame. The active
	// region already covers that site's position by the time the step
	// commits, so the very next Generate call pops the frame and splices it
	// back in, raising the haplotype count from the 3-site total to the
	// full 4-site total over the same region.
	contig := "chr1"
	variants := []allele.Variant{
		snp(contig, 10, "A", "T"),
		snp(contig, 11, "T", "A"),
		snp(contig, 12, "A", "T"),
		snp(contig, 13, "A", "T"),
	}
	policies := hapgen.Policies{
		Lagging:         hapgen.LaggingNone,
		Limits:          hapgen.HaplotypeLimits{Target: 4, Holdout: 4, Overflow: 16},
		MaxHoldoutDepth: 2,
	}
	gen := hapgen.New(variants, nil, chr1Reference(), policies, 0)

	haps1, region1, err := gen.Generate()
	require.NoError(t, err)
	assert.Less(t, len(haps1), 16, "dense cluster should push the fourth site into a holdout frame rather than extend all at once")

	haps2, region2, err := gen.Generate()
	require.NoError(t, err)
	assert.Equal(t, region1, region2, "re-entry splices the held-out site back into the same active region")
	assert.Len(t, haps2, 16, "re-entry should restore the held-out site, producing all 16 haplotypes across the 4-site cluster")

	seqs := map[string]bool{}
	for _, h := range haps2 {
		assert.Equal(t, region2.Len(), uint32(len(h.Sequence)), "materialized sequence must span the full active region, not just the substituted bases")
		seqs[h.Sequence] = true
	}
	assert.Len(t, seqs, 16, "all 16 haplotype sequences should be distinct once reference bases fill in around each site's chosen allele")
}

func TestGenerateOverEmptyCandidateSet(t *testing.T) {
	gen := hapgen.New(nil, nil, nil, hapgen.Policies{}, 0)
	haps, _, err := gen.Generate()
	require.NoError(t, err)
	assert.Empty(t, haps)
}
