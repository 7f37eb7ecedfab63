package models

import "path/filepath"

// File is a file that travels with a project, such as a report artifact or a
// project-scoped samplesheet.
type File struct {
	Path     string `json:"path"`               // Absolute path
	Name     string `json:"name"`               // Base name of Path
	Checksum string `json:"checksum,omitempty"` // Empty when unknown
}

// NewFile returns a File for path, made absolute.
func NewFile(path, checksum string) File {
	abs := absPath(path)
	return File{
		Path:     abs,
		Name:     filepath.Base(abs),
		Checksum: checksum,
	}
}

// Equal reports whether f and o point at the same path with the same checksum.
func (f File) Equal(o File) bool {
	return f.Path == o.Path && f.Checksum == o.Checksum
}

// HasChecksum returns true if the checksum of the file is known.
func (f File) HasChecksum() bool {
	return f.Checksum != ""
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

// sameFiles compares two file lists without regard to order.
func sameFiles(a, b []File) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[File]int, len(a))
	for _, f := range a {
		seen[f]++
	}
	for _, f := range b {
		if seen[f] == 0 {
			return false
		}
		seen[f]--
	}
	return true
}
