package genome_test

import (
	"strings"
	"testing"

	"github.com/grailbio/variantcore/genome"
	"github.com/stretchr/testify/assert"
)

const testFasta = ">seq1\n" + "ACGTA\nCGTAC\nGT\n" + ">seq2 a comment\n" + "ACGT\n" + "ACGT\n"

func TestLoadFASTA(t *testing.T) {
	ref, err := genome.LoadFASTA("test", strings.NewReader(testFasta))
	assert.NoError(t, err)
	assert.Equal(t, []string{"seq1", "seq2"}, ref.ContigNames())

	size, err := ref.ContigSize("seq1")
	assert.NoError(t, err)
	assert.Equal(t, uint32(12), size)

	seq, err := ref.Sequence(genome.NewRegion("seq1", 1, 6))
	assert.NoError(t, err)
	assert.Equal(t, "CGTAC", seq)

	_, err = ref.Sequence(genome.NewRegion("seq1", 10, 13))
	assert.Error(t, err)

	_, err = ref.ContigSize("seq0")
	assert.Error(t, err)
}

func TestLoadFASTAMalformed(t *testing.T) {
	_, err := genome.LoadFASTA("test", strings.NewReader("ACGT\n"))
	assert.Error(t, err)

	_, err = genome.LoadFASTA("test", strings.NewReader(""))
	assert.Error(t, err)
}
