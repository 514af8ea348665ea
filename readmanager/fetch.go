package readmanager

import (
	"sort"

	"github.com/grailbio/variantcore/genome"
	"github.com/grailbio/variantcore/read"
)

// HasReads reports whether any of samples (all samples, if empty) has a
// read overlapping region.
func (m *Manager) HasReads(samples []string, region genome.Region) (bool, error) {
	paths := m.candidatePaths(samples, region)
	found := false
	err := m.withReaders(paths, func(_ string, f AlignedReadFile) {
		if !found && f.HasReads(region) {
			found = true
		}
	})
	return found, err
}

// CountReads returns the total number of reads across samples (all
// samples, if empty) overlapping region.
func (m *Manager) CountReads(samples []string, region genome.Region) (int, error) {
	paths := m.candidatePaths(samples, region)
	total := 0
	err := m.withReaders(paths, func(_ string, f AlignedReadFile) {
		total += f.CountReads(region)
	})
	return total, err
}

// FetchReads returns, per sample, every read overlapping region across
// every contributing file, sorted-merged. Duplicates across files are
// preserved, per spec.md §4.3's result-ordering rule.
func (m *Manager) FetchReads(samples []string, region genome.Region) (map[string][]read.AlignedRead, error) {
	paths := m.candidatePaths(samples, region)
	out := map[string][]read.AlignedRead{}
	err := m.withReaders(paths, func(_ string, f AlignedReadFile) {
		for _, r := range f.FetchReads(region) {
			out[r.Sample()] = read.MergeSorted(out[r.Sample()], []read.AlignedRead{r})
		}
	})
	return out, err
}

// FindCoveredSubregion returns the prefix of region that ends just after
// the maxReads-th smallest pooled read-start position, so it holds exactly
// maxReads read starts; the prefix is not stretched up to the next read
// start. If fewer than maxReads read starts are found, or maxReads <= 0,
// region is returned whole.
func (m *Manager) FindCoveredSubregion(samples []string, region genome.Region, maxReads int) (genome.Region, error) {
	paths := m.candidatePaths(samples, region)
	var positions []uint32
	err := m.withReaders(paths, func(_ string, f AlignedReadFile) {
		positions = append(positions, f.ExtractReadPositions(samples, region, maxReads+1)...)
	})
	if err != nil {
		return genome.Region{}, err
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i] < positions[j] })

	if len(positions) < maxReads || maxReads <= 0 {
		return region, nil
	}
	end := positions[maxReads-1] + 1
	if end < region.Begin {
		end = region.Begin
	}
	if end > region.End {
		end = region.End
	}
	return genome.NewRegion(region.Contig, region.Begin, end), nil
}
