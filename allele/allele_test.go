package allele_test

import (
	"testing"

	"github.com/grailbio/variantcore/allele"
	"github.com/grailbio/variantcore/genome"
	"github.com/stretchr/testify/assert"
)

func reg(b, e uint32) genome.Region { return genome.NewRegion("chr1", b, e) }

func TestAlleleKind(t *testing.T) {
	assert.Equal(t, allele.Substitution, allele.Allele{Region: reg(5, 6), Sequence: "A"}.Kind())
	assert.Equal(t, allele.Insertion, allele.Allele{Region: reg(5, 5), Sequence: "GG"}.Kind())
	assert.Equal(t, allele.Deletion, allele.Allele{Region: reg(5, 8), Sequence: ""}.Kind())
	assert.Equal(t, allele.Position, allele.Allele{Region: reg(5, 7), Sequence: "AC"}.Kind())
}

func TestMappableFlatSetSortAndDedup(t *testing.T) {
	s := allele.NewMappableFlatSet([]allele.Allele{
		{Region: reg(10, 11), Sequence: "A"},
		{Region: reg(5, 6), Sequence: "C"},
		{Region: reg(5, 6), Sequence: "C"},
	})
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, reg(5, 6), s.All()[0].Region)
}

func TestMappableFlatSetAddRemove(t *testing.T) {
	s := allele.NewMappableFlatSet(nil)
	a := allele.Allele{Region: reg(5, 6), Sequence: "A"}
	s.Add(a)
	s.Add(a) // duplicate, no-op
	assert.Equal(t, 1, s.Len())
	assert.True(t, s.Remove(a))
	assert.True(t, s.IsEmpty())
	assert.False(t, s.Remove(a))
}

func TestMappableFlatSetOverlapping(t *testing.T) {
	s := allele.NewMappableFlatSet([]allele.Allele{
		{Region: reg(0, 1), Sequence: "A"},
		{Region: reg(5, 5), Sequence: "GG"}, // insertion at 5
		{Region: reg(10, 12), Sequence: "CC"},
	})
	got := s.Overlapping(reg(4, 11))
	assert.Len(t, got, 2)
	assert.Equal(t, reg(5, 5), got[0].Region)
	assert.Equal(t, reg(10, 12), got[1].Region)
}

func TestEncompassingRegion(t *testing.T) {
	s := allele.NewMappableFlatSet([]allele.Allele{
		{Region: reg(0, 1), Sequence: "A"},
		{Region: reg(10, 12), Sequence: "CC"},
	})
	assert.Equal(t, reg(0, 12), s.EncompassingRegion())
}

func TestVariantsToAlleles(t *testing.T) {
	v := allele.NewVariant("chr1", 7, "G", "A")
	alleles := allele.VariantsToAlleles([]allele.Variant{v})
	assert.Equal(t, "A", alleles[0].Sequence)
	assert.Equal(t, reg(7, 8), alleles[0].Region)
}
