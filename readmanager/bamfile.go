package readmanager

import (
	"io"
	"os"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/bgzf/index"
	"github.com/biogo/hts/sam"
	"github.com/grailbio/variantcore/genome"
	"github.com/grailbio/variantcore/read"
	"github.com/pkg/errors"
)

// bamReadFile adapts an indexed BAM file to AlignedReadFile, grounded on
// encoding/bamprovider's BAMProvider: both open the data file and its .bai
// index and seek to the chunk an index lookup names before scanning
// records with github.com/biogo/hts/bam.
type bamReadFile struct {
	path   string
	f      *os.File
	r      *bam.Reader
	idx    *bam.Index
	hdr    *sam.Header
	sample string
}

// OpenBAM opens path (and path+".bai") as an AlignedReadFile. sample
// attributes every read the file yields, the same single-sample-per-file
// assumption cmd/bio-pileup's read sources make.
func OpenBAM(path, sample string) (AlignedReadFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open bam")
	}
	r, err := bam.NewReader(f, 1)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "read bam header")
	}
	idxFile, err := os.Open(path + ".bai")
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "open bam index")
	}
	defer idxFile.Close()
	idx, err := bam.ReadIndex(idxFile)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "read bam index")
	}
	return &bamReadFile{path: path, f: f, r: r, idx: idx, hdr: r.Header(), sample: sample}, nil
}

func (b *bamReadFile) MappedRegions() ([]genome.Region, bool) { return nil, false }
func (b *bamReadFile) MappedContigs() ([]string, bool)        { return nil, false }

func (b *bamReadFile) ReferenceContigs() []string {
	refs := b.hdr.Refs()
	out := make([]string, len(refs))
	for i, ref := range refs {
		out[i] = ref.Name()
	}
	return out
}

func (b *bamReadFile) ExtractSamples() []string { return []string{b.sample} }

func (b *bamReadFile) ReferenceSize(contig string) uint32 {
	for _, ref := range b.hdr.Refs() {
		if ref.Name() == contig {
			return uint32(ref.Len())
		}
	}
	return 0
}

func (b *bamReadFile) referenceFor(contig string) *sam.Reference {
	for _, ref := range b.hdr.Refs() {
		if ref.Name() == contig {
			return ref
		}
	}
	return nil
}

// scan seeks to the index chunk covering region (conservative: the chunk
// may start earlier than the first overlapping record) and visits every
// subsequent record overlapping region, in file order, until visit returns
// false or reads no longer overlap region.
func (b *bamReadFile) scan(region genome.Region, visit func(*sam.Record) bool) error {
	ref := b.referenceFor(region.Contig)
	if ref == nil {
		return errors.Errorf("contig %q not in bam header", region.Contig)
	}
	chunks, err := b.idx.Chunks(ref, int(region.Begin), int(region.End))
	if err == index.ErrInvalid || len(chunks) == 0 {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "index lookup")
	}
	if err := b.r.Seek(chunks[0].Begin); err != nil {
		return errors.Wrap(err, "seek to indexed chunk")
	}
	for {
		rec, err := b.r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "read bam record")
		}
		if rec.Ref == nil || rec.Ref.ID() != ref.ID() {
			if rec.Ref != nil && rec.Ref.ID() > ref.ID() {
				return nil
			}
			continue
		}
		if rec.Pos >= int(region.End) {
			return nil
		}
		recRegion := read.FromSAMRecord(rec, b.sample).Region()
		if recRegion.Overlaps(region) && !visit(rec) {
			return nil
		}
	}
}

func (b *bamReadFile) HasReads(region genome.Region) bool {
	found := false
	b.scan(region, func(*sam.Record) bool {
		found = true
		return false
	})
	return found
}

func (b *bamReadFile) CountReads(region genome.Region) int {
	n := 0
	b.scan(region, func(*sam.Record) bool {
		n++
		return true
	})
	return n
}

func (b *bamReadFile) FetchReads(region genome.Region) []read.AlignedRead {
	var out []read.AlignedRead
	b.scan(region, func(rec *sam.Record) bool {
		out = append(out, read.FromSAMRecord(rec, b.sample))
		return true
	})
	read.SortReads(out)
	return out
}

func (b *bamReadFile) ExtractReadPositions(samples []string, region genome.Region, max int) []uint32 {
	if !containsSample(samples, b.sample) {
		return nil
	}
	var out []uint32
	b.scan(region, func(rec *sam.Record) bool {
		out = append(out, uint32(rec.Pos))
		return len(out) < max
	})
	return out
}

func containsSample(samples []string, s string) bool {
	if len(samples) == 0 {
		return true
	}
	for _, x := range samples {
		if x == s {
			return true
		}
	}
	return false
}

func (b *bamReadFile) Close() error { return b.f.Close() }
