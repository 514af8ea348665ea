package assembler_test

import (
	"testing"

	"github.com/grailbio/variantcore/assembler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrivialSNPBubble(t *testing.T) {
	// S1: k=5, reference ACGTACGTACGTAC (len 14); 10 reads with a single
	// substitution at position 6 (G->A) should yield exactly one variant.
	a, err := assembler.NewWithReference(5, "ACGTACGTACGTAC")
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		a.InsertRead("ACGTACATACGTAC")
	}
	require.True(t, a.Prune(2))

	vs := a.ExtractVariants("chr1", 10)
	require.Len(t, vs, 1)
	// The reference is period-4 repetitive under k=5, so the bubble the
	// read opens doesn't close until it rejoins the reference walk at its
	// next occurrence of the read's trailing k-mer, pulling in more
	// reference and alt bases than the single substituted base alone.
	assert.Equal(t, uint32(0), vs[0].Alt.Region.Begin)
	assert.Equal(t, "CGTACGT", vs[0].Ref.Sequence)
	assert.Equal(t, "CGTACATACG", vs[0].Alt.Sequence)
}

func TestInsertionBubble(t *testing.T) {
	// S2: k=5, reference AAAAACCCCC; 20 reads carrying an inserted G at
	// position 5 should yield exactly one insertion variant.
	a, err := assembler.NewWithReference(5, "AAAAACCCCC")
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		a.InsertRead("AAAAAGCCCCC")
	}
	require.True(t, a.Prune(2))

	vs := a.ExtractVariants("chr1", 10)
	require.Len(t, vs, 1)
	assert.Equal(t, "", vs[0].Ref.Sequence)
	assert.Equal(t, "G", vs[0].Alt.Sequence)
}

func TestTwoOrderedSNPs(t *testing.T) {
	// S3: two independent substitution bubbles, each backed by its own
	// read pile; extraction with max=10 should surface both, sorted by
	// position.
	a, err := assembler.NewWithReference(5, "TTTTAGGGGCCCC")
	require.NoError(t, err)
	for i := 0; i < 15; i++ {
		a.InsertRead("TTTTACGGGCCCC") // substitution at position 5 (G->C)
	}
	for i := 0; i < 15; i++ {
		a.InsertRead("TTTTAGGGGACCC") // substitution at position 9 (C->A)
	}
	require.True(t, a.Prune(2))

	vs := a.ExtractVariants("chr1", 10)
	require.Len(t, vs, 2)
	assert.True(t, vs[0].Alt.Region.Begin < vs[1].Alt.Region.Begin)
}

func TestBadReferenceSequenceTooShort(t *testing.T) {
	_, err := assembler.NewWithReference(10, "ACGT")
	assert.Equal(t, assembler.BadReferenceSequence, err)
}

func TestBadReferenceSequenceNonCanonical(t *testing.T) {
	_, err := assembler.NewWithReference(3, "ACGNACGT")
	assert.Equal(t, assembler.BadReferenceSequence, err)
}

func TestSecondReferenceInsertionFails(t *testing.T) {
	a, err := assembler.NewWithReference(4, "ACGTACGT")
	require.NoError(t, err)
	assert.Equal(t, assembler.BadReferenceSequence, a.InsertReference("ACGTACGT"))
}

func TestAllReferenceShortcut(t *testing.T) {
	a, err := assembler.NewWithReference(5, "ACGTACGTACGTAC")
	require.NoError(t, err)
	assert.True(t, a.IsAllReference())
	assert.Empty(t, a.ExtractVariants("chr1", 100))
}

func TestIsAcyclic(t *testing.T) {
	a, err := assembler.NewWithReference(3, "ACGTACGT")
	require.NoError(t, err)
	assert.True(t, a.IsAcyclic())
}

func TestClear(t *testing.T) {
	a, err := assembler.NewWithReference(4, "ACGTACGT")
	require.NoError(t, err)
	a.Clear()
	assert.Equal(t, assembler.StateEmpty, a.State())
}
