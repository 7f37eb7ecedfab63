package models

// Project is anything that can be delivered as a named directory on disk.
type Project interface {
	ProjectName() string
	ProjectPath() string
}

// GeneralProject is a bare named directory. It carries no samples.
type GeneralProject struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// NewGeneralProject returns a GeneralProject rooted at path, made absolute.
func NewGeneralProject(name, path string) GeneralProject {
	return GeneralProject{Name: name, Path: absPath(path)}
}

func (p GeneralProject) ProjectName() string { return p.Name }
func (p GeneralProject) ProjectPath() string { return p.Path }

// RunfolderProject is a project directory inside a demultiplexed runfolder.
// Path is either the unorganised location (under Unaligned) or the organised
// location (under Projects), depending on which discovery pass produced it.
type RunfolderProject struct {
	Name          string   `json:"name"`
	Path          string   `json:"path"`
	RunfolderPath string   `json:"runfolder_path"`
	RunfolderName string   `json:"runfolder_name"`
	Samples       []Sample `json:"samples,omitempty"`
	ProjectFiles  []File   `json:"project_files,omitempty"`
}

// NewRunfolderProject returns a RunfolderProject with an absolute path and no
// samples or project files attached.
func NewRunfolderProject(name, path, runfolderPath, runfolderName string) *RunfolderProject {
	return &RunfolderProject{
		Name:          name,
		Path:          absPath(path),
		RunfolderPath: runfolderPath,
		RunfolderName: runfolderName,
	}
}

func (p *RunfolderProject) ProjectName() string { return p.Name }
func (p *RunfolderProject) ProjectPath() string { return p.Path }

// Equal reports whether two projects share path, samples and project files.
func (p *RunfolderProject) Equal(o *RunfolderProject) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.Path == o.Path &&
		sameSamples(p.Samples, o.Samples) &&
		sameFiles(p.ProjectFiles, o.ProjectFiles)
}

// SampleByID returns the sample with the given sample id.
func (p *RunfolderProject) SampleByID(sampleID string) (Sample, bool) {
	for _, s := range p.Samples {
		if s.SampleID == sampleID {
			return s, true
		}
	}
	return Sample{}, false
}
