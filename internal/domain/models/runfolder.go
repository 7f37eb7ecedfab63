package models

// Runfolder is the output directory of one sequencing run. Its identity is its
// absolute path.
//
// Checksums maps paths relative to the runfolder's parent directory to their
// checksums, as read from the runfolder's checksum manifest. It is nil when no
// manifest was found.
type Runfolder struct {
	Name      string              `json:"name"`
	Path      string              `json:"path"`
	Projects  []*RunfolderProject `json:"projects,omitempty"`
	Checksums map[string]string   `json:"-"`
}

// NewRunfolder returns a Runfolder with an absolute path and no projects.
func NewRunfolder(name, path string) *Runfolder {
	return &Runfolder{Name: name, Path: absPath(path)}
}

// Equal reports whether two runfolders represent the same directory on disk.
func (r *Runfolder) Equal(o *Runfolder) bool {
	if r == nil || o == nil {
		return r == o
	}
	return r.Path == o.Path
}

// ProjectNames returns the names of the projects attached to the runfolder.
func (r *Runfolder) ProjectNames() []string {
	names := make([]string, 0, len(r.Projects))
	for _, p := range r.Projects {
		names = append(names, p.Name)
	}
	return names
}

// Project returns the attached project with the given name.
func (r *Runfolder) Project(name string) (*RunfolderProject, bool) {
	for _, p := range r.Projects {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}
