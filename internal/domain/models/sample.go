package models

import "sort"

// SampleFile is a sequence file belonging to a sample. The descriptive fields
// are parsed from the file name.
type SampleFile struct {
	File
	SampleName  string `json:"sample_name"`
	SampleIndex string `json:"sample_index"` // e.g. "S7"
	Lane        int    `json:"lane"`
	Read        int    `json:"read"`
	IsIndex     bool   `json:"is_index"`
}

// Equal reports whether two sample files point at the same path with the same checksum.
func (f SampleFile) Equal(o SampleFile) bool {
	return f.File.Equal(o.File)
}

// Sample groups the sequence files sharing a sample name within a project.
//
// SampleID is the directory-safe identifier of the sample. It equals Name
// unless the files live in a subdirectory of the project, in which case it is
// the name of that subdirectory.
type Sample struct {
	Name        string       `json:"name"`
	SampleID    string       `json:"sample_id"`
	ProjectName string       `json:"project_name"`
	Files       []SampleFile `json:"sample_files"`
}

// Equal reports whether two samples have the same identity and the same files,
// irrespective of file order.
func (s Sample) Equal(o Sample) bool {
	if s.Name != o.Name || s.SampleID != o.SampleID || s.ProjectName != o.ProjectName {
		return false
	}
	a := make([]File, len(s.Files))
	for i, f := range s.Files {
		a[i] = f.File
	}
	b := make([]File, len(o.Files))
	for i, f := range o.Files {
		b[i] = f.File
	}
	return sameFiles(a, b)
}

// HasLane returns true if any file of the sample was sequenced on lane.
func (s Sample) HasLane(lane int) bool {
	for _, f := range s.Files {
		if f.Lane == lane {
			return true
		}
	}
	return false
}

// Lanes returns the sorted, distinct lanes of the sample's files.
func (s Sample) Lanes() []int {
	seen := make(map[int]bool)
	var lanes []int
	for _, f := range s.Files {
		if !seen[f.Lane] {
			seen[f.Lane] = true
			lanes = append(lanes, f.Lane)
		}
	}
	sort.Ints(lanes)
	return lanes
}

// sameSamples compares two sample lists without regard to order.
func sameSamples(a, b []Sample) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, s := range a {
		found := false
		for i, o := range b {
			if !used[i] && s.Equal(o) {
				used[i] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
