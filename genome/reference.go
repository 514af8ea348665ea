package genome

import (
	"bufio"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// Reference is the external reference-genome contract the assembler,
// haplotype generator, and CLI driver consume. It is deliberately narrow:
// spec.md treats the reference genome as an external collaborator, so this
// is the minimal capability record (per DESIGN NOTES §9: "express as
// capability records rather than inheritance") the core needs.
type Reference struct {
	name       string
	seqs       map[string]string
	contigName []string
}

// LoadFASTA reads a (optionally gzip-compressed) FASTA file fully into
// memory and returns a Reference over its sequences. name is a
// human-readable identifier for the reference (e.g. the file's basename);
// it has no effect on sequence lookups.
//
// Adapted from encoding/fasta.New: that function returns an opaque Fasta
// interface indexed only by sequence name; this version additionally
// tracks contig order/size the way genome.Reference's contract requires,
// and tolerates gzip-compressed input.
func LoadFASTA(name string, r io.Reader) (*Reference, error) {
	br := bufio.NewReader(r)
	if peek, err := br.Peek(2); err == nil && peek[0] == 0x1f && peek[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, errors.Wrap(err, "couldn't open gzip FASTA")
		}
		defer gz.Close()
		br = bufio.NewReader(gz)
	}

	ref := &Reference{name: name, seqs: make(map[string]string)}
	scanner := bufio.NewScanner(br)
	scanner.Buffer(nil, 1<<28)
	var curName string
	var seq strings.Builder
	flush := func() error {
		if curName == "" {
			return nil
		}
		ref.seqs[curName] = seq.String()
		ref.contigName = append(ref.contigName, curName)
		seq.Reset()
		return nil
	}
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			if err := flush(); err != nil {
				return nil, err
			}
			curName = strings.Split(line[1:], " ")[0]
			continue
		}
		if curName == "" {
			return nil, errors.Errorf("malformed FASTA file: sequence data before any '>' header")
		}
		seq.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "couldn't read FASTA data")
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if len(ref.seqs) == 0 {
		return nil, errors.Errorf("empty FASTA file")
	}
	return ref, nil
}

// NewInMemoryReference builds a Reference directly from a name->sequence
// map, for use in tests that don't want to round-trip through FASTA text.
func NewInMemoryReference(name string, seqs map[string]string, order []string) *Reference {
	return &Reference{name: name, seqs: seqs, contigName: order}
}

// ReferenceName returns the human-readable name this reference was loaded
// with.
func (r *Reference) ReferenceName() string { return r.name }

// ContigNames returns contig names in FASTA-file order.
func (r *Reference) ContigNames() []string { return r.contigName }

// ContigSize returns the length, in bases, of the named contig.
func (r *Reference) ContigSize(name string) (uint32, error) {
	s, ok := r.seqs[name]
	if !ok {
		return 0, errors.Errorf("genome: unknown contig %q", name)
	}
	return uint32(len(s)), nil
}

// Sequence returns the bases within r, 0-based half-open.
func (r *Reference) Sequence(reg Region) (string, error) {
	s, ok := r.seqs[reg.Contig]
	if !ok {
		return "", errors.Errorf("genome: unknown contig %q", reg.Contig)
	}
	if reg.End > uint32(len(s)) {
		return "", errors.Errorf("genome: region %v past end of contig %q (length %d)", reg, reg.Contig, len(s))
	}
	return s[reg.Begin:reg.End], nil
}
