// Package genome defines the genomic-region and reference-genome types
// shared by the assembler, haplotype generator, and read manager.
package genome

import "fmt"

// Region is a half-open, 0-based interval [Begin, End) on a single contig.
// All region arithmetic requires matching contigs; mixing contigs is a
// programming error and panics, mirroring the "cross-contig comparisons are
// errors" rule the rest of the pipeline assumes.
type Region struct {
	Contig string
	Begin  uint32
	End    uint32
}

// NewRegion constructs a Region, panicking if End < Begin.
func NewRegion(contig string, begin, end uint32) Region {
	if end < begin {
		panic(fmt.Sprintf("genome: invalid region [%d,%d) on %s", begin, end, contig))
	}
	return Region{Contig: contig, Begin: begin, End: end}
}

// Empty reports whether the region spans no positions.
func (r Region) Empty() bool { return r.Begin == r.End }

// Len returns the number of positions the region spans.
func (r Region) Len() uint32 { return r.End - r.Begin }

func (r Region) requireSameContig(other Region) {
	if r.Contig != other.Contig {
		panic(fmt.Sprintf("genome: cross-contig region comparison: %v vs %v", r, other))
	}
}

// Compare orders regions first by contig name, then by (Begin, End). Unlike
// the rest of this package's arithmetic it does not panic on cross-contig
// comparisons, so it gives a total order across contigs.
func (r Region) Compare(other Region) int {
	if r.Contig != other.Contig {
		if r.Contig < other.Contig {
			return -1
		}
		return 1
	}
	switch {
	case r.Begin < other.Begin:
		return -1
	case r.Begin > other.Begin:
		return 1
	case r.End < other.End:
		return -1
	case r.End > other.End:
		return 1
	default:
		return 0
	}
}

// Overlaps reports whether r and other share at least one position.
func (r Region) Overlaps(other Region) bool {
	r.requireSameContig(other)
	return r.Begin < other.End && other.Begin < r.End
}

// Contains reports whether other is entirely within r.
func (r Region) Contains(other Region) bool {
	r.requireSameContig(other)
	return r.Begin <= other.Begin && other.End <= r.End
}

// IsBefore reports whether r ends at or before other begins.
func (r Region) IsBefore(other Region) bool {
	r.requireSameContig(other)
	return r.End <= other.Begin
}

// IsAfter reports whether r begins at or after other ends.
func (r Region) IsAfter(other Region) bool {
	r.requireSameContig(other)
	return r.Begin >= other.End
}

// Overlap returns the intersection of r and other. If they don't overlap,
// the result is an empty region anchored at the larger of the two begins.
func (r Region) Overlap(other Region) Region {
	r.requireSameContig(other)
	begin := max32(r.Begin, other.Begin)
	end := min32(r.End, other.End)
	if end < begin {
		end = begin
	}
	return Region{r.Contig, begin, end}
}

// Encompass returns the smallest region containing both r and other.
func (r Region) Encompass(other Region) Region {
	r.requireSameContig(other)
	return Region{r.Contig, min32(r.Begin, other.Begin), max32(r.End, other.End)}
}

// Head returns the leftmost n positions of r (or all of r if n >= r.Len()).
func (r Region) Head(n uint32) Region {
	if n > r.Len() {
		n = r.Len()
	}
	return Region{r.Contig, r.Begin, r.Begin + n}
}

// Tail returns the rightmost n positions of r (or all of r if n >= r.Len()).
func (r Region) Tail(n uint32) Region {
	if n > r.Len() {
		n = r.Len()
	}
	return Region{r.Contig, r.End - n, r.End}
}

// ExpandLeft extends (n>0) or contracts (n<0) r's left boundary. Contracting
// past r's End clamps to an empty region at End.
func (r Region) ExpandLeft(n int32) Region {
	begin := addClamped(r.Begin, -n)
	if begin > r.End {
		begin = r.End
	}
	return Region{r.Contig, begin, r.End}
}

// ExpandRight extends (n>0) or contracts (n<0) r's right boundary.
func (r Region) ExpandRight(n int32) Region {
	end := addClamped(r.End, n)
	if end < r.Begin {
		end = r.Begin
	}
	return Region{r.Contig, r.Begin, end}
}

// LeftOverhang returns the portion of r strictly left of other.Begin.
func (r Region) LeftOverhang(other Region) Region {
	r.requireSameContig(other)
	end := other.Begin
	if end > r.End {
		end = r.End
	}
	if end < r.Begin {
		end = r.Begin
	}
	return Region{r.Contig, r.Begin, end}
}

// RightOverhang returns the portion of other strictly right of r.End.
func (r Region) RightOverhang(other Region) Region {
	r.requireSameContig(other)
	begin := r.End
	if begin < other.Begin {
		begin = other.Begin
	}
	end := other.End
	if end < begin {
		end = begin
	}
	return Region{r.Contig, begin, end}
}

func (r Region) String() string {
	return fmt.Sprintf("%s:[%d,%d)", r.Contig, r.Begin, r.End)
}

func min32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

// addClamped adds a signed delta to an unsigned base, clamping at 0 rather
// than wrapping.
func addClamped(base uint32, delta int32) uint32 {
	if delta >= 0 {
		return base + uint32(delta)
	}
	d := uint32(-delta)
	if d > base {
		return 0
	}
	return base - d
}
