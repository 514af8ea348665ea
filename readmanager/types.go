// Package readmanager implements the read manager (C3): a sample/region
// indexed cache over many indexed aligned-read files, subject to a hard
// open-file-descriptor budget with smallest-file-first eviction.
package readmanager

import (
	"github.com/grailbio/variantcore/genome"
	"github.com/grailbio/variantcore/read"
)

// AlignedReadFile is the per-file contract spec.md §6 describes for
// aligned-read inputs: a file that can report its coverage and samples up
// front (from its index) and serve reads for a region once opened.
type AlignedReadFile interface {
	// MappedRegions reports the file's indexed covered regions, or false
	// if the index doesn't narrow coverage below whole-contig.
	MappedRegions() ([]genome.Region, bool)
	// MappedContigs reports the contigs the file has any reads mapped to,
	// or false if unknown (the file must then be assumed to cover every
	// contig the reference declares).
	MappedContigs() ([]string, bool)
	// ReferenceContigs lists every contig named in the file's header.
	ReferenceContigs() []string
	// ExtractSamples returns the sample names the file's header declares.
	ExtractSamples() []string
	// HasReads reports whether region has at least one read.
	HasReads(region genome.Region) bool
	// CountReads counts reads overlapping region.
	CountReads(region genome.Region) int
	// FetchReads returns every read overlapping region, sorted.
	FetchReads(region genome.Region) []read.AlignedRead
	// ExtractReadPositions returns up to max read-start positions for the
	// given samples within region, used by coverage-bounded sizing.
	ExtractReadPositions(samples []string, region genome.Region, max int) []uint32
	// ReferenceSize returns contig's length as the file's header records
	// it.
	ReferenceSize(contig string) uint32
	// Close releases any open file descriptor.
	Close() error
}

// Opener opens the aligned-read file at path, e.g. as an indexed BAM.
type Opener func(path string) (AlignedReadFile, error)

// FileError wraps a file I/O failure (open, index read, or fetch) with the
// path that caused it, per spec.md §7: propagated to the caller, no retry.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string { return "readmanager: " + e.Path + ": " + e.Err.Error() }
func (e *FileError) Unwrap() error { return e.Err }
