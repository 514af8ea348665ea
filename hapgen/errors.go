package hapgen

import "github.com/grailbio/variantcore/genome"

// HaplotypeOverflow is raised when a tree exceeds the overflow limit under
// every holdout strategy available at the current depth: fatal for this
// active region, per spec.md §4.2.
type HaplotypeOverflow struct {
	Region genome.Region
	Size   uint32
}

func (e *HaplotypeOverflow) Error() string {
	return "hapgen: haplotype tree overflowed at " + e.Region.String()
}
