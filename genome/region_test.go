package genome_test

import (
	"testing"

	"github.com/grailbio/variantcore/genome"
	"github.com/stretchr/testify/assert"
)

func r(b, e uint32) genome.Region { return genome.NewRegion("chr1", b, e) }

func TestRegionBasics(t *testing.T) {
	assert.True(t, r(5, 5).Empty())
	assert.False(t, r(5, 6).Empty())
	assert.Equal(t, uint32(3), r(5, 8).Len())
}

func TestRegionOverlapsAndContains(t *testing.T) {
	assert.True(t, r(0, 10).Overlaps(r(5, 15)))
	assert.False(t, r(0, 10).Overlaps(r(10, 15)))
	assert.True(t, r(0, 10).Contains(r(2, 8)))
	assert.False(t, r(0, 10).Contains(r(2, 12)))
}

func TestRegionOverlapAndEncompass(t *testing.T) {
	assert.Equal(t, r(5, 10), r(0, 10).Overlap(r(5, 15)))
	assert.Equal(t, r(20, 20), r(0, 10).Overlap(r(20, 30)))
	assert.Equal(t, r(0, 15), r(0, 10).Encompass(r(5, 15)))
}

func TestRegionHeadTail(t *testing.T) {
	assert.Equal(t, r(0, 3), r(0, 10).Head(3))
	assert.Equal(t, r(7, 10), r(0, 10).Tail(3))
	assert.Equal(t, r(0, 10), r(0, 10).Head(100))
}

func TestRegionExpand(t *testing.T) {
	assert.Equal(t, r(3, 10), r(5, 10).ExpandLeft(2))
	assert.Equal(t, r(6, 10), r(5, 10).ExpandLeft(-1))
	assert.Equal(t, r(5, 12), r(5, 10).ExpandRight(2))
	assert.Equal(t, r(5, 9), r(5, 10).ExpandRight(-1))
}

func TestRegionOverhangs(t *testing.T) {
	assert.Equal(t, r(0, 5), r(0, 10).LeftOverhang(r(5, 20)))
	assert.Equal(t, r(10, 20), r(0, 10).RightOverhang(r(5, 20)))
}

func TestRegionCrossContigPanics(t *testing.T) {
	chr2 := genome.NewRegion("chr2", 0, 10)
	assert.Panics(t, func() { r(0, 10).Overlaps(chr2) })
}

func TestRegionCompare(t *testing.T) {
	assert.Equal(t, -1, r(0, 5).Compare(r(0, 10)))
	assert.Equal(t, 0, r(0, 5).Compare(r(0, 5)))
	assert.Equal(t, 1, r(5, 10).Compare(r(0, 10)))
}
