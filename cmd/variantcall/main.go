package main

/*
variantcall runs the de Bruijn assembler over a single requested region of
a reference genome and one or more aligned-read files, printing the variants
the assembler finds. It does not run the haplotype generator.
*/

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/variantcore/allele"
	"github.com/grailbio/variantcore/assembler"
	"github.com/grailbio/variantcore/genome"
	"github.com/grailbio/variantcore/readmanager"
)

var (
	fastaPath    = flag.String("fasta", "", "Reference FASTA path (plain or gzipped)")
	region       = flag.String("region", "", "Region to call, as contig:begin-end (0-based, half-open)")
	kmerLength   = flag.Int("k", 31, "Assembler k-mer length")
	minWeight    = flag.Uint("min-weight", 2, "Minimum edge weight to survive pruning")
	maxVariants  = flag.Int("max-variants", 32, "Maximum number of variants to extract per region")
	maxOpenFiles = flag.Int("max-open-files", 64, "Maximum number of simultaneously open read files")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s -fasta ref.fa -region contig:begin-end bam1=sample1 [bam2=sample2 ...]\n", os.Args[0])
	flag.PrintDefaults()
}

func parseRegion(s string) (genome.Region, error) {
	contigRange := strings.SplitN(s, ":", 2)
	if len(contigRange) != 2 {
		return genome.Region{}, fmt.Errorf("region %q must be contig:begin-end", s)
	}
	beginEnd := strings.SplitN(contigRange[1], "-", 2)
	if len(beginEnd) != 2 {
		return genome.Region{}, fmt.Errorf("region %q must be contig:begin-end", s)
	}
	begin, err := strconv.ParseUint(beginEnd[0], 10, 32)
	if err != nil {
		return genome.Region{}, fmt.Errorf("region %q: %v", s, err)
	}
	end, err := strconv.ParseUint(beginEnd[1], 10, 32)
	if err != nil {
		return genome.Region{}, fmt.Errorf("region %q: %v", s, err)
	}
	return genome.NewRegion(contigRange[0], uint32(begin), uint32(end)), nil
}

func parseBAMArg(arg string) (path, sample string, err error) {
	parts := strings.SplitN(arg, "=", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("bam argument %q must be path=sample", arg)
	}
	return parts[0], parts[1], nil
}

func main() {
	flag.Usage = usage
	shutdown := grail.Init()
	defer shutdown()

	if *fastaPath == "" || *region == "" || flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	reg, err := parseRegion(*region)
	if err != nil {
		log.Fatalf("%v", err)
	}

	fa, err := os.Open(*fastaPath)
	if err != nil {
		log.Fatalf("open fasta: %v", err)
	}
	defer fa.Close()
	ref, err := genome.LoadFASTA(*fastaPath, fa)
	if err != nil {
		log.Fatalf("load fasta: %v", err)
	}

	refSeq, err := ref.Sequence(reg)
	if err != nil {
		log.Fatalf("reference sequence: %v", err)
	}

	specs := make([]readmanager.FileSpec, 0, flag.NArg())
	samplesByPath := map[string]string{}
	for _, arg := range flag.Args() {
		path, sample, err := parseBAMArg(arg)
		if err != nil {
			log.Fatalf("%v", err)
		}
		info, err := os.Stat(path)
		if err != nil {
			log.Fatalf("stat %s: %v", path, err)
		}
		specs = append(specs, readmanager.FileSpec{Path: path, Size: info.Size()})
		samplesByPath[path] = sample
	}

	opener := func(path string) (readmanager.AlignedReadFile, error) {
		return readmanager.OpenBAM(path, samplesByPath[path])
	}
	mgr, err := readmanager.New(specs, opener, *maxOpenFiles)
	if err != nil {
		log.Fatalf("read manager: %v", err)
	}
	defer func() {
		if err := mgr.Close(); err != nil {
			log.Fatalf("close read manager: %v", err)
		}
	}()

	reads, err := mgr.FetchReads(nil, reg)
	if err != nil {
		log.Fatalf("fetch reads: %v", err)
	}

	asm, err := assembler.NewWithReference(*kmerLength, refSeq)
	if err != nil {
		log.Fatalf("insert reference: %v", err)
	}
	for _, sampleReads := range reads {
		for _, r := range sampleReads {
			asm.InsertRead(r.Sequence())
		}
	}

	if !asm.Prune(uint32(*minWeight)) {
		log.Fatalf("assembler graph became degenerate during pruning")
	}

	variants := asm.ExtractVariants(reg.Contig, *maxVariants)
	printVariants(variants)
}

func printVariants(variants []allele.Variant) {
	for _, v := range variants {
		fmt.Printf("%s\t%d\t%s\t%s\n", v.Ref.Region.Contig, v.Ref.Region.Begin, v.Ref.Sequence, v.Alt.Sequence)
	}
}
