// Package read defines the AlignedRead contract spec.md §3 treats as an
// opaque external collaborator, plus a github.com/biogo/hts/sam-backed
// implementation so the read manager and haplotype generator have
// something real to operate on.
package read

import (
	"sort"

	"github.com/biogo/hts/sam"
	"github.com/grailbio/variantcore/genome"
)

// Flags mirrors the subset of BAM alignment flags spec.md §3 says
// AlignedRead must expose.
type Flags uint16

const (
	FlagUnmapped Flags = 1 << iota
	FlagDuplicate
	FlagQCFail
	FlagSecondary
	FlagSupplementary
	FlagMateUnmapped
)

func (f Flags) Has(bit Flags) bool { return f&bit != 0 }

// AlignedRead is the read-file record contract the assembler and haplotype
// generator consume. Implementations are totally ordered by (region,
// identity), per spec.md §3.
type AlignedRead interface {
	// Region is the read's mapped coordinate range.
	Region() genome.Region
	// Sequence is the read's base-call sequence, 5'->3' on the reference
	// strand.
	Sequence() string
	// BaseQualities are per-base Phred qualities, aligned 1:1 with
	// Sequence().
	BaseQualities() []byte
	// MappingQuality is the read's overall mapping quality.
	MappingQuality() byte
	// Flags reports the alignment flags relevant to filtering.
	Flags() Flags
	// Sample is the originating sample name.
	Sample() string
	// Name is a stable per-read identity, used as the tiebreaker in Less.
	Name() string
	// Less orders reads by (Region, Name), satisfying spec.md's "totally
	// orderable by (region, identity)".
	Less(other AlignedRead) bool
}

// samRead adapts a *sam.Record (as produced by github.com/biogo/hts/bam) to
// the AlignedRead contract.
type samRead struct {
	rec    *sam.Record
	sample string
	region genome.Region
}

// FromSAMRecord wraps rec, which must have a mapped reference (Ref != nil),
// as an AlignedRead attributed to sample. This is the adapter readmanager's
// bamReadFile uses per record it reads out of a BAM file, grounded on the
// coordinate-extraction pattern in encoding/bam (CoordFromSAMRecord).
func FromSAMRecord(rec *sam.Record, sample string) AlignedRead {
	var reg genome.Region
	if rec.Ref != nil {
		begin := uint32(rec.Pos)
		end := begin + uint32(samRefLen(rec))
		reg = genome.NewRegion(rec.Ref.Name(), begin, end)
	}
	return &samRead{rec: rec, sample: sample, region: reg}
}

// samRefLen returns the number of reference bases rec's CIGAR consumes.
func samRefLen(rec *sam.Record) int {
	n := 0
	for _, co := range rec.Cigar {
		if co.Type().Consumes().Reference != 0 {
			n += co.Len()
		}
	}
	if n == 0 {
		// Unaligned or CIGAR-less record: fall back to sequence length so the
		// read still occupies a nonempty region.
		n = rec.Len()
	}
	return n
}

func (r *samRead) Region() genome.Region    { return r.region }
func (r *samRead) Sequence() string         { return string(r.rec.Seq.Expand()) }
func (r *samRead) BaseQualities() []byte    { return r.rec.Qual }
func (r *samRead) MappingQuality() byte     { return byte(r.rec.MapQ) }
func (r *samRead) Sample() string           { return r.sample }
func (r *samRead) Name() string             { return r.rec.Name }

func (r *samRead) Flags() Flags {
	var f Flags
	if r.rec.Flags&sam.Unmapped != 0 {
		f |= FlagUnmapped
	}
	if r.rec.Flags&sam.Duplicate != 0 {
		f |= FlagDuplicate
	}
	if r.rec.Flags&sam.QCFail != 0 {
		f |= FlagQCFail
	}
	if r.rec.Flags&sam.Secondary != 0 {
		f |= FlagSecondary
	}
	if r.rec.Flags&sam.Supplementary != 0 {
		f |= FlagSupplementary
	}
	if r.rec.Flags&sam.MateUnmapped != 0 {
		f |= FlagMateUnmapped
	}
	return f
}

func (r *samRead) Less(other AlignedRead) bool {
	if c := r.region.Compare(other.Region()); c != 0 {
		return c < 0
	}
	return r.rec.Name < other.Name()
}

// SortReads sorts reads in place by (Region, Name).
func SortReads(reads []AlignedRead) {
	sort.Slice(reads, func(i, j int) bool { return reads[i].Less(reads[j]) })
}

// MergeSorted merges two already-(Region,Name)-sorted slices into one
// sorted slice, the same inplace_merge spec.md §4.3 describes fetch_reads
// using to combine per-file results.
func MergeSorted(a, b []AlignedRead) []AlignedRead {
	out := make([]AlignedRead, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if b[j].Less(a[i]) {
			out = append(out, b[j])
			j++
		} else {
			out = append(out, a[i])
			i++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}
