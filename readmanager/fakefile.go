package readmanager

import (
	"github.com/grailbio/variantcore/genome"
	"github.com/grailbio/variantcore/read"
)

// FakeFile is an in-memory AlignedReadFile for unit tests, grounded on
// encoding/bamprovider's fakeProvider: a fixed record slice served back
// through the same interface a real indexed file implements.
type FakeFile struct {
	Samp    string
	Contigs []string
	Reads   []read.AlignedRead
	Size    int64
	Regions []genome.Region

	closed bool
}

func (f *FakeFile) MappedRegions() ([]genome.Region, bool) {
	if f.Regions == nil {
		return nil, false
	}
	return f.Regions, true
}

func (f *FakeFile) MappedContigs() ([]string, bool) { return f.Contigs, len(f.Contigs) > 0 }
func (f *FakeFile) ReferenceContigs() []string      { return f.Contigs }
func (f *FakeFile) ExtractSamples() []string        { return []string{f.Samp} }
func (f *FakeFile) ReferenceSize(contig string) uint32 { return 0 }

func (f *FakeFile) HasReads(region genome.Region) bool {
	for _, r := range f.Reads {
		if r.Region().Overlaps(region) {
			return true
		}
	}
	return false
}

func (f *FakeFile) CountReads(region genome.Region) int {
	n := 0
	for _, r := range f.Reads {
		if r.Region().Overlaps(region) {
			n++
		}
	}
	return n
}

func (f *FakeFile) FetchReads(region genome.Region) []read.AlignedRead {
	var out []read.AlignedRead
	for _, r := range f.Reads {
		if r.Region().Overlaps(region) {
			out = append(out, r)
		}
	}
	read.SortReads(out)
	return out
}

func (f *FakeFile) ExtractReadPositions(samples []string, region genome.Region, max int) []uint32 {
	if !containsSample(samples, f.Samp) {
		return nil
	}
	var out []uint32
	for _, r := range f.Reads {
		if r.Region().Overlaps(region) {
			out = append(out, r.Region().Begin)
			if len(out) >= max {
				break
			}
		}
	}
	return out
}

func (f *FakeFile) Close() error { f.closed = true; return nil }
