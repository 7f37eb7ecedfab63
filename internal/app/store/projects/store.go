// internal/app/store/projects/store.go
package projects

import (
	"fmt"
	"path/filepath"

	"github.com/dalemusser/stratadelivery/internal/app/system/fastqname"
	"github.com/dalemusser/stratadelivery/internal/app/system/fsutil"
	"github.com/dalemusser/stratadelivery/internal/app/system/metadata"
	"github.com/dalemusser/stratadelivery/internal/domain/delivererr"
	"github.com/dalemusser/stratadelivery/internal/domain/models"
	"go.uber.org/zap"
)

// UnalignedDir holds the per-project output of demultiplexing inside a runfolder.
const UnalignedDir = "Unaligned"

// SampleDiscoverer finds the samples of a project directory.
type SampleDiscoverer interface {
	Discover(project *models.RunfolderProject, rf *models.Runfolder) ([]models.Sample, error)
}

// RunfolderStore discovers the projects of an unorganised runfolder.
type RunfolderStore struct {
	fs        fsutil.FileSystem
	checksums metadata.ChecksumStore
	samples   SampleDiscoverer
	logger    *zap.Logger
}

// NewRunfolderStore creates a new runfolder project store.
func NewRunfolderStore(fsys fsutil.FileSystem, checksums metadata.ChecksumStore, samples SampleDiscoverer, logger *zap.Logger) *RunfolderStore {
	return &RunfolderStore{fs: fsys, checksums: checksums, samples: samples, logger: logger}
}

// Discover returns the projects below the runfolder's Unaligned directory,
// with samples and report files attached. Only directories holding at least
// one sequence file count as projects. No qualifying directory is an empty
// result, not an error.
func (s *RunfolderStore) Discover(rf *models.Runfolder) ([]*models.RunfolderProject, error) {
	base := filepath.Join(rf.Path, UnalignedDir)
	dirs, err := s.fs.ListDirectories(base)
	if err != nil {
		if fsutil.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", delivererr.ErrProjectsDirNotFound, base)
		}
		return nil, err
	}

	var projects []*models.RunfolderProject
	for _, dir := range dirs {
		ok, err := s.containsSequenceFiles(dir)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		project := models.NewRunfolderProject(filepath.Base(dir), dir, rf.Path, rf.Name)
		project.Samples, err = s.samples.Discover(project, rf)
		if err != nil {
			return nil, err
		}
		_, project.ProjectFiles, err = s.ReportFiles(rf, project)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, nil
}

func (s *RunfolderStore) containsSequenceFiles(dir string) (bool, error) {
	files, err := s.fs.ListFilesRecursively(dir)
	if err != nil {
		return false, err
	}
	for _, f := range files {
		if fastqname.IsSequenceFile(filepath.Base(f)) {
			return true, nil
		}
	}
	return false, nil
}

// ReportFiles resolves the report artifacts of a project. It returns the
// directory the report files are laid out relative to, and the files.
//
// A MultiQC report in the project directory takes precedence. Otherwise a
// legacy report is looked for under <runfolder>/Summary/<project> and then in
// the project directory.
func (s *RunfolderStore) ReportFiles(rf *models.Runfolder, project *models.RunfolderProject) (string, []models.File, error) {
	mqcHTML := filepath.Join(project.Path, project.Name+"_multiqc_report.html")
	if s.fs.Exists(mqcHTML) {
		paths := []string{
			mqcHTML,
			filepath.Join(project.Path, project.Name+"_multiqc_report_data.zip"),
		}
		return project.Path, s.reportFiles(rf, paths), nil
	}

	for _, dir := range []string{
		filepath.Join(rf.Path, "Summary", project.Name),
		project.Path,
	} {
		if !s.fs.Exists(filepath.Join(dir, "report.html")) {
			continue
		}
		paths := []string{
			filepath.Join(dir, "report.html"),
			filepath.Join(dir, "report.xml"),
			filepath.Join(dir, "report.xsl"),
		}
		plots, err := s.fs.ListFilesRecursively(filepath.Join(dir, "Plots"))
		if err != nil && !fsutil.IsNotExist(err) {
			return "", nil, err
		}
		paths = append(paths, plots...)
		return dir, s.reportFiles(rf, paths), nil
	}

	return "", nil, fmt.Errorf("%w: project %s in %s", delivererr.ErrProjectReportNotFound, project.Name, rf.Name)
}

func (s *RunfolderStore) reportFiles(rf *models.Runfolder, paths []string) []models.File {
	files := make([]models.File, 0, len(paths))
	for _, p := range paths {
		sum, ok := s.checksums.Lookup(rf, p)
		if !ok {
			var err error
			sum, err = s.checksums.HashFile(p)
			if err != nil {
				s.logger.Warn("could not checksum report file",
					zap.String("runfolder", rf.Name),
					zap.String("file", p),
					zap.Error(err))
				sum = ""
			}
		}
		files = append(files, models.NewFile(p, sum))
	}
	return files
}

// DumpChecksums writes <project>/checksums.md5 listing every sample and
// project file of the project with a known checksum, keyed by path relative
// to the project. It returns the path of the manifest.
func (s *RunfolderStore) DumpChecksums(project *models.RunfolderProject) (string, error) {
	checksums := make(map[string]string)
	add := func(f models.File) error {
		if !f.HasChecksum() {
			return nil
		}
		rel, err := fsutil.RelUnder(project.Path, f.Path)
		if err != nil {
			return err
		}
		checksums[filepath.ToSlash(rel)] = f.Checksum
		return nil
	}
	for _, sample := range project.Samples {
		for _, f := range sample.Files {
			if err := add(f.File); err != nil {
				return "", err
			}
		}
	}
	for _, f := range project.ProjectFiles {
		if err := add(f); err != nil {
			return "", err
		}
	}

	path := filepath.Join(project.Path, metadata.ProjectManifestName)
	if err := s.checksums.WriteManifest(path, checksums); err != nil {
		return "", fmt.Errorf("write checksums for %s: %w", project.Name, err)
	}
	return path, nil
}

// IsSampleInProject returns true if project is named projectName and has a
// sample with sampleID sequenced on lane.
func IsSampleInProject(project *models.RunfolderProject, projectName, sampleID string, lane int) bool {
	if project.Name != projectName {
		return false
	}
	for _, sample := range project.Samples {
		if sample.SampleID == sampleID && sample.HasLane(lane) {
			return true
		}
	}
	return false
}

// GeneralStore treats every directory under a root as a project.
type GeneralStore struct {
	fs   fsutil.FileSystem
	root string
}

// NewGeneralStore creates a store of the projects under root.
func NewGeneralStore(fsys fsutil.FileSystem, root string) *GeneralStore {
	return &GeneralStore{fs: fsys, root: root}
}

// List returns every project under the root.
func (s *GeneralStore) List() ([]models.GeneralProject, error) {
	dirs, err := s.fs.ListDirectories(s.root)
	if err != nil {
		return nil, fmt.Errorf("list general projects: %w", err)
	}
	out := make([]models.GeneralProject, 0, len(dirs))
	for _, d := range dirs {
		out = append(out, models.NewGeneralProject(filepath.Base(d), d))
	}
	return out, nil
}

// Get returns the project called name.
func (s *GeneralStore) Get(name string) (models.GeneralProject, error) {
	all, err := s.List()
	if err != nil {
		return models.GeneralProject{}, err
	}
	var matches []models.GeneralProject
	for _, p := range all {
		if p.Name == name {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 0:
		return models.GeneralProject{}, fmt.Errorf("%w: %s", delivererr.ErrProjectNotFound, name)
	case 1:
		return matches[0], nil
	default:
		return models.GeneralProject{}, fmt.Errorf("%w: %s", delivererr.ErrTooManyProjects, name)
	}
}
