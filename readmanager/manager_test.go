package readmanager_test

import (
	"fmt"
	"testing"

	"github.com/grailbio/variantcore/genome"
	"github.com/grailbio/variantcore/read"
	"github.com/grailbio/variantcore/readmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeRead(contig string, begin, end uint32, sample, name string) read.AlignedRead {
	return &read.Fake{Reg: genome.NewRegion(contig, begin, end), Samp: sample, ReadName: name, Seq: "ACGT"}
}

func TestOpenFileBudgetAndEviction(t *testing.T) {
	// S4: five files of increasing size, a budget of two open descriptors.
	// Construction should succeed and keep serving reads across every file
	// even once a query forces eviction of an already-open small file.
	specs := []readmanager.FileSpec{
		{Path: "f0", Size: 10},
		{Path: "f1", Size: 20},
		{Path: "f2", Size: 30},
		{Path: "f3", Size: 40},
		{Path: "f4", Size: 50},
	}
	templates := map[string]*readmanager.FakeFile{
		"f0": {Samp: "s0", Contigs: []string{"chr1"}, Reads: []read.AlignedRead{fakeRead("chr1", 100, 110, "s0", "r0")}},
		"f1": {Samp: "s1", Contigs: []string{"chr1"}, Reads: []read.AlignedRead{fakeRead("chr1", 200, 210, "s1", "r1")}},
		"f2": {Samp: "s2", Contigs: []string{"chr1"}, Reads: []read.AlignedRead{fakeRead("chr1", 300, 310, "s2", "r2")}},
		"f3": {Samp: "s3", Contigs: []string{"chr1"}, Reads: []read.AlignedRead{fakeRead("chr1", 400, 410, "s3", "r3")}},
		"f4": {Samp: "s4", Contigs: []string{"chr1"}, Reads: []read.AlignedRead{fakeRead("chr1", 500, 510, "s4", "r4")}},
	}
	opener := func(path string) (readmanager.AlignedReadFile, error) {
		tmpl, ok := templates[path]
		if !ok {
			return nil, fmt.Errorf("no such file %q", path)
		}
		clone := *tmpl
		return &clone, nil
	}

	mgr, err := readmanager.New(specs, opener, 2)
	require.NoError(t, err)
	require.True(t, mgr.Good())
	assert.Equal(t, 5, mgr.NumFiles())
	assert.Equal(t, 5, mgr.NumSamples())
	assert.Equal(t, []string{"s0", "s1", "s2", "s3", "s4"}, mgr.Samples())

	// M3: construction opens the 2 smallest files (f0, f1), not an
	// arbitrary pair.
	assert.ElementsMatch(t, []string{"f0", "f1"}, mgr.OpenPaths())

	// Every file's reads are reachable one sample at a time even though
	// only 2 descriptors are ever open at once; each query past the budget
	// forces an eviction. M2 is checked after every query; M3's
	// smallest-first eviction is checked, by which files remain open, once
	// it has forced the smaller files out.
	region := genome.NewRegion("chr1", 0, 1000)
	for i, spec := range specs {
		sample := fmt.Sprintf("s%d", i)
		has, err := mgr.HasReads([]string{sample}, region)
		require.NoError(t, err)
		assert.True(t, has, "sample %s in file %s should be reachable", sample, spec.Path)
		assert.LessOrEqual(t, mgr.NumOpen(), 2, "M2: open-file budget must never be exceeded")
	}
	// Every file smaller than the last two queried (f3, f4) has been
	// evicted by now, smallest first, to make room for the next query.
	assert.ElementsMatch(t, []string{"f3", "f4"}, mgr.OpenPaths(), "M3: eviction keeps the smallest-not-yet-needed files out first")

	count, err := mgr.CountReads([]string{"s3", "s4"}, region)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// A single query needing two files neither currently open (f0 and f1,
	// both evicted above) must end with both open: opening the first must
	// not evict the second once it's in the same request's keep set, even
	// though opening it is itself what trips the budget.
	has, err := mgr.HasReads([]string{"s0", "s1"}, region)
	require.NoError(t, err)
	assert.True(t, has)
	assert.ElementsMatch(t, []string{"f0", "f1"}, mgr.OpenPaths(), "opening one half of a batch must not evict the other half of the same batch")
}

func TestFetchReadsMergesAcrossFiles(t *testing.T) {
	specs := []readmanager.FileSpec{
		{Path: "a", Size: 10},
		{Path: "b", Size: 10},
	}
	templates := map[string]*readmanager.FakeFile{
		"a": {Samp: "sample", Contigs: []string{"chr1"}, Reads: []read.AlignedRead{
			fakeRead("chr1", 100, 110, "sample", "r1"),
			fakeRead("chr1", 300, 310, "sample", "r3"),
		}},
		"b": {Samp: "sample", Contigs: []string{"chr1"}, Reads: []read.AlignedRead{
			fakeRead("chr1", 200, 210, "sample", "r2"),
		}},
	}
	opener := func(path string) (readmanager.AlignedReadFile, error) {
		clone := *templates[path]
		return &clone, nil
	}
	mgr, err := readmanager.New(specs, opener, 4)
	require.NoError(t, err)

	reads, err := mgr.FetchReads(nil, genome.NewRegion("chr1", 0, 1000))
	require.NoError(t, err)
	require.Len(t, reads["sample"], 3)
	assert.Equal(t, "r1", reads["sample"][0].Name())
	assert.Equal(t, "r2", reads["sample"][1].Name())
	assert.Equal(t, "r3", reads["sample"][2].Name())
}

func TestFindCoveredSubregion(t *testing.T) {
	// S5: pooled read-start positions {1000,1001,1002,1050,1500,1600} with
	// max_reads=3 should bound the region to chr1:[1000,1003).
	specs := []readmanager.FileSpec{{Path: "a", Size: 10}}
	positions := []uint32{1000, 1001, 1002, 1050, 1500, 1600}
	var reads []read.AlignedRead
	for i, p := range positions {
		reads = append(reads, fakeRead("chr1", p, p+1, "sample", fmt.Sprintf("r%d", i)))
	}
	template := &readmanager.FakeFile{Samp: "sample", Contigs: []string{"chr1"}, Reads: reads}
	opener := func(path string) (readmanager.AlignedReadFile, error) {
		clone := *template
		return &clone, nil
	}
	mgr, err := readmanager.New(specs, opener, 4)
	require.NoError(t, err)

	got, err := mgr.FindCoveredSubregion(nil, genome.NewRegion("chr1", 1000, 2000), 3)
	require.NoError(t, err)
	assert.Equal(t, genome.NewRegion("chr1", 1000, 1003), got)
}

func TestFindCoveredSubregionReturnsFullRegionWhenUnderBudget(t *testing.T) {
	specs := []readmanager.FileSpec{{Path: "a", Size: 10}}
	template := &readmanager.FakeFile{Samp: "sample", Contigs: []string{"chr1"}, Reads: []read.AlignedRead{
		fakeRead("chr1", 1000, 1001, "sample", "r0"),
	}}
	opener := func(path string) (readmanager.AlignedReadFile, error) {
		clone := *template
		return &clone, nil
	}
	mgr, err := readmanager.New(specs, opener, 4)
	require.NoError(t, err)

	got, err := mgr.FindCoveredSubregion(nil, genome.NewRegion("chr1", 1000, 2000), 10)
	require.NoError(t, err)
	assert.Equal(t, genome.NewRegion("chr1", 1000, 2000), got)
}
