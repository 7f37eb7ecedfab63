// Package fastqname parses the names of demultiplexed sequence files.
//
// Names follow the pattern
//
//	<sample>_S<index>_L00<lane>_<R|I><read>_<chunk>.fastq.gz
//
// e.g. "Sample_1_S3_L002_R1_001.fastq.gz". The sample part may itself contain
// underscores.
package fastqname

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dalemusser/stratadelivery/internal/domain/delivererr"
)

// Suffix marks a file as a sequence file.
const Suffix = "fastq.gz"

var pattern = regexp.MustCompile(`^(.+)_(S\d+)_L00(\d)_([IR])(\d)_\d+\.fastq\.gz$`)

// Attributes are the fields encoded in a sequence file name.
type Attributes struct {
	SampleName  string
	SampleIndex string // "S" followed by digits, verbatim
	Lane        int
	IsIndex     bool
	Read        int
}

// Parse extracts the attributes from a sequence file base name.
// It returns a *delivererr.FileNameError when the name does not match.
func Parse(name string) (Attributes, error) {
	m := pattern.FindStringSubmatch(name)
	if len(m) != 6 {
		return Attributes{}, &delivererr.FileNameError{Name: name}
	}
	lane, err := strconv.Atoi(m[3])
	if err != nil {
		return Attributes{}, &delivererr.FileNameError{Name: name}
	}
	read, err := strconv.Atoi(m[5])
	if err != nil {
		return Attributes{}, &delivererr.FileNameError{Name: name}
	}
	return Attributes{
		SampleName:  m[1],
		SampleIndex: m[2],
		Lane:        lane,
		IsIndex:     m[4] == "I",
		Read:        read,
	}, nil
}

// Matches returns true if name follows the naming convention.
func Matches(name string) bool {
	return pattern.MatchString(name)
}

// IsSequenceFile returns true if name carries the sequence file suffix,
// whether or not the rest of the name is well formed.
func IsSequenceFile(name string) bool {
	return strings.HasSuffix(name, Suffix)
}

// FileName builds the canonical file name for the attributes and chunk number.
func (a Attributes) FileName(chunk int) string {
	marker := "R"
	if a.IsIndex {
		marker = "I"
	}
	return fmt.Sprintf("%s_%s_L00%d_%s%d_%03d.%s", a.SampleName, a.SampleIndex, a.Lane, marker, a.Read, chunk, Suffix)
}
