package read

import "github.com/grailbio/variantcore/genome"

// Fake is a plain-data AlignedRead for unit tests, grounded on the same
// "fake implementation of the real interface" style as
// encoding/bamprovider/fakeprovider.go.
type Fake struct {
	Reg     genome.Region
	Seq     string
	Quals   []byte
	MapQ    byte
	Flag    Flags
	Samp    string
	ReadName string
}

func (f *Fake) Region() genome.Region    { return f.Reg }
func (f *Fake) Sequence() string         { return f.Seq }
func (f *Fake) BaseQualities() []byte    { return f.Quals }
func (f *Fake) MappingQuality() byte     { return f.MapQ }
func (f *Fake) Flags() Flags             { return f.Flag }
func (f *Fake) Sample() string           { return f.Samp }
func (f *Fake) Name() string             { return f.ReadName }

func (f *Fake) Less(other AlignedRead) bool {
	if c := f.Reg.Compare(other.Region()); c != 0 {
		return c < 0
	}
	return f.ReadName < other.Name()
}
