package readmanager

import (
	"sort"
	"sync"

	"github.com/biogo/store/llrb"
	baseerrors "github.com/grailbio/base/errors"
	"github.com/grailbio/variantcore/genome"
	"github.com/pkg/errors"
	"v.io/x/lib/vlog"
)

// FileSpec names one input file the manager should index: its path (passed
// to Opener), and its size on disk, used for the smallest-file-first open
// ordering invariant M3 requires.
type FileSpec struct {
	Path string
	Size int64
}

type fileIndex struct {
	spec    FileSpec
	samples []string
	// regions is nil if the file's index doesn't narrow coverage below
	// whole-contig, in which case contigs lists what it spans instead.
	regions map[string][]genome.Region
	contigs []string
}

// sizeKey orders open readers by ascending file size, breaking ties by
// path; it implements llrb.Comparable so an llrb.Tree can maintain M3's
// ascending-by-size order in O(log n) per insert/delete, the same
// ascending-by-(refID,pos) llrb.Tree technique encoding/bampair's
// ShardInfo uses for its own ordered index.
type sizeKey struct {
	size int64
	path string
}

func (k sizeKey) Compare(other llrb.Comparable) int {
	o := other.(sizeKey)
	if k.size != o.size {
		if k.size < o.size {
			return -1
		}
		return 1
	}
	if k.path < o.path {
		return -1
	}
	if k.path > o.path {
		return 1
	}
	return 0
}

type openReader struct {
	key    sizeKey
	file   AlignedReadFile
}

// Manager is the read manager (C3): a sample/region indexed cache over
// many indexed read files, subject to a hard open-file-descriptor budget.
type Manager struct {
	opener       Opener
	maxOpenFiles int

	mu sync.Mutex

	indices map[string]*fileIndex // path -> index, built once at construction.
	open    map[string]*openReader
	bySize  *llrb.Tree // ordered view of open, keyed by sizeKey.

	samples              []string
	readerPathsForSample map[string][]string
}

// New scans every file named in specs once (opening each transiently to
// read its index and samples, then closing it), and opens the
// maxOpenFiles smallest files, per spec.md §4.3.
func New(specs []FileSpec, opener Opener, maxOpenFiles int) (*Manager, error) {
	if len(specs) > 0 && maxOpenFiles < 1 {
		vlog.Fatalf("readmanager: maxOpenFiles must be >= 1 for %d input files", len(specs))
	}
	m := &Manager{
		opener:               opener,
		maxOpenFiles:         maxOpenFiles,
		indices:              make(map[string]*fileIndex, len(specs)),
		open:                 make(map[string]*openReader),
		bySize:               &llrb.Tree{},
		readerPathsForSample: make(map[string][]string),
	}

	sampleSet := map[string]bool{}
	for _, spec := range specs {
		f, err := opener(spec.Path)
		if err != nil {
			return nil, &FileError{Path: spec.Path, Err: err}
		}
		idx := &fileIndex{spec: spec, samples: f.ExtractSamples()}
		idx.regions, _ = regionsByContig(f)
		idx.contigs = f.ReferenceContigs()
		if err := f.Close(); err != nil {
			return nil, &FileError{Path: spec.Path, Err: err}
		}
		m.indices[spec.Path] = idx
		for _, s := range idx.samples {
			sampleSet[s] = true
			m.readerPathsForSample[s] = append(m.readerPathsForSample[s], spec.Path)
		}
	}

	m.samples = make([]string, 0, len(sampleSet))
	for s := range sampleSet {
		m.samples = append(m.samples, s)
	}
	sort.Strings(m.samples)

	sorted := append([]FileSpec(nil), specs...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Size != sorted[j].Size {
			return sorted[i].Size < sorted[j].Size
		}
		return sorted[i].Path < sorted[j].Path
	})
	for i := 0; i < len(sorted) && i < maxOpenFiles; i++ {
		if err := m.openPath(sorted[i].Path, nil); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func regionsByContig(f AlignedReadFile) (map[string][]genome.Region, bool) {
	regs, ok := f.MappedRegions()
	if !ok {
		return nil, false
	}
	out := map[string][]genome.Region{}
	for _, r := range regs {
		out[r.Contig] = append(out[r.Contig], r)
	}
	return out, true
}

// Samples returns the sorted union of every sample across input files.
func (m *Manager) Samples() []string { return m.samples }

// NumFiles returns the number of input files.
func (m *Manager) NumFiles() int { return len(m.indices) }

// NumSamples returns the number of distinct samples across input files.
func (m *Manager) NumSamples() int { return len(m.samples) }

// Good reports whether construction succeeded and at least one file is
// indexed.
func (m *Manager) Good() bool { return len(m.indices) > 0 }

// Close releases every currently open reader, continuing past individual
// close failures and returning the first one encountered, the same
// accumulate-and-report-first pattern markduplicates.generateShardedBAM
// uses for its per-shard writer closes.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var first baseerrors.Once
	for path, r := range m.open {
		first.Set(r.file.Close())
		m.bySize.Delete(r.key)
		delete(m.open, path)
	}
	return first.Err()
}

// openPath opens path, evicting the smallest open reader not in keep first
// if the budget is full. keep should name every path the caller's current
// batch needs open, so opening one member of a batch never evicts another
// member the batch already opened; nil is fine when there is no batch to
// protect (construction-time warm-up). Caller must hold m.mu.
func (m *Manager) openPath(path string, keep map[string]bool) error {
	if _, already := m.open[path]; already {
		return nil
	}
	if len(m.open) >= m.maxOpenFiles {
		if keep == nil {
			keep = map[string]bool{path: true}
		}
		if err := m.evictSmallest(keep); err != nil {
			return err
		}
	}
	f, err := m.opener(path)
	if err != nil {
		return &FileError{Path: path, Err: err}
	}
	key := sizeKey{size: m.indices[path].spec.Size, path: path}
	r := &openReader{key: key, file: f}
	m.open[path] = r
	m.bySize.Insert(key)
	return nil
}

// evictSmallest closes the smallest open reader not named in keep, per
// spec.md §4.3's "skipping those present in the current request batch if
// possible". If every open reader is in keep, it evicts the overall
// smallest anyway (the original read manager's open_readers.begin() fallback).
func (m *Manager) evictSmallest(keep map[string]bool) error {
	var victim string
	m.bySize.Do(func(c llrb.Comparable) bool {
		k := c.(sizeKey)
		if !keep[k.path] {
			victim = k.path
			return true
		}
		return false
	})
	if victim == "" {
		min := m.bySize.Min()
		if min == nil {
			return errors.New("readmanager: no open reader to evict")
		}
		victim = min.(sizeKey).path
	}
	r := m.open[victim]
	if err := r.file.Close(); err != nil {
		return &FileError{Path: victim, Err: err}
	}
	m.bySize.Delete(r.key)
	delete(m.open, victim)
	return nil
}

// candidatePaths returns every path containing at least one of samples
// (or every path, if samples is empty) whose indexed coverage overlaps
// region.
func (m *Manager) candidatePaths(samples []string, region genome.Region) []string {
	var byPath map[string]bool
	if len(samples) == 0 {
		byPath = make(map[string]bool, len(m.indices))
		for p := range m.indices {
			byPath[p] = true
		}
	} else {
		byPath = make(map[string]bool)
		for _, s := range samples {
			for _, p := range m.readerPathsForSample[s] {
				byPath[p] = true
			}
		}
	}
	var out []string
	for p := range byPath {
		idx := m.indices[p]
		if idx.regions != nil {
			var overlaps bool
			for _, r := range idx.regions[region.Contig] {
				if r.Overlaps(region) {
					overlaps = true
					break
				}
			}
			if !overlaps {
				continue
			}
		} else if len(idx.contigs) > 0 {
			if !containsString(idx.contigs, region.Contig) {
				continue
			}
		}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func containsString(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

// allOpen reports whether every path in paths is currently open, letting
// ensureOpen skip the open/evict work. Caller must hold m.mu; there is no
// lock-free path for queries, even when every input file is open.
func (m *Manager) allOpen(paths []string) bool {
	for _, p := range paths {
		if _, ok := m.open[p]; !ok {
			return false
		}
	}
	return true
}

// ensureOpen makes sure every path in paths has an open reader, opening
// (and evicting as needed) the ones that are not, per spec.md §4.3's
// scheduling protocol.
func (m *Manager) ensureOpen(paths []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.allOpen(paths) {
		return nil
	}
	keep := make(map[string]bool, len(paths))
	for _, p := range paths {
		keep[p] = true
	}
	for _, p := range paths {
		if _, ok := m.open[p]; ok {
			continue
		}
		if err := m.openPath(p, keep); err != nil {
			return err
		}
	}
	return nil
}

// withReaders runs fn over every open AlignedReadFile named in paths,
// having first ensured they're open.
func (m *Manager) withReaders(paths []string, fn func(path string, f AlignedReadFile)) error {
	if err := m.ensureOpen(paths); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range paths {
		r, ok := m.open[p]
		if !ok {
			return &FileError{Path: p, Err: errors.New("reader not open after ensureOpen")}
		}
		fn(p, r.file)
	}
	return nil
}
