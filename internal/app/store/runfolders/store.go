// internal/app/store/runfolders/store.go
package runfolders

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/dalemusser/stratadelivery/internal/app/system/fsutil"
	"github.com/dalemusser/stratadelivery/internal/app/system/metadata"
	"github.com/dalemusser/stratadelivery/internal/domain/delivererr"
	"github.com/dalemusser/stratadelivery/internal/domain/models"
	"go.uber.org/zap"
)

// Runfolder directory names start with the run date.
var namePattern = regexp.MustCompile(`^\d+_`)

// ProjectDiscoverer finds the projects of a runfolder.
type ProjectDiscoverer interface {
	Discover(rf *models.Runfolder) ([]*models.RunfolderProject, error)
}

// SampleSheetReader reads the [Data] rows of a SampleSheet file.
type SampleSheetReader interface {
	ReadSampleSheet(path string) ([]metadata.Row, error)
}

// Store discovers runfolders below a base directory.
type Store struct {
	base      string
	fs        fsutil.FileSystem
	checksums metadata.ChecksumStore
	projects  ProjectDiscoverer
	sheets    SampleSheetReader
	logger    *zap.Logger
}

// New creates a new runfolder store rooted at base.
func New(base string, fsys fsutil.FileSystem, checksums metadata.ChecksumStore, projects ProjectDiscoverer, sheets SampleSheetReader, logger *zap.Logger) *Store {
	return &Store{
		base:      base,
		fs:        fsys,
		checksums: checksums,
		projects:  projects,
		sheets:    sheets,
		logger:    logger,
	}
}

// Base returns the directory scanned for runfolders.
func (s *Store) Base() string {
	return s.base
}

func (s *Store) directories() ([]string, error) {
	dirs, err := s.fs.ListDirectories(s.base)
	if err != nil {
		return nil, fmt.Errorf("list runfolders in %s: %w", s.base, err)
	}
	out := dirs[:0]
	for _, d := range dirs {
		if namePattern.MatchString(filepath.Base(d)) {
			out = append(out, d)
		}
	}
	return out, nil
}

// List returns every runfolder below the base directory. A runfolder without
// a checksum manifest, without an Unaligned directory, or with a project that
// has no report yet is listed with what could be discovered and a warning is
// logged.
func (s *Store) List() ([]*models.Runfolder, error) {
	dirs, err := s.directories()
	if err != nil {
		return nil, err
	}
	out := make([]*models.Runfolder, 0, len(dirs))
	for _, d := range dirs {
		rf, err := s.load(d, true)
		if err != nil {
			return nil, err
		}
		out = append(out, rf)
	}
	return out, nil
}

// Get returns the runfolder called name, or nil if there is none. Errors
// while loading its manifest or projects are returned.
func (s *Store) Get(name string) (*models.Runfolder, error) {
	dirs, err := s.directories()
	if err != nil {
		return nil, err
	}
	var matches []string
	for _, d := range dirs {
		if filepath.Base(d) == name {
			matches = append(matches, d)
		}
	}
	if len(matches) > 1 {
		panic(fmt.Sprintf("found %d runfolders matching %q", len(matches), name))
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return s.load(matches[0], false)
}

func (s *Store) load(dir string, tolerant bool) (*models.Runfolder, error) {
	rf := models.NewRunfolder(filepath.Base(dir), dir)

	checksums, err := s.checksums.Load(rf.Path)
	switch {
	case err == nil:
		rf.Checksums = checksums
	case tolerant && errors.Is(err, delivererr.ErrChecksumFileNotFound):
		s.logger.Warn("runfolder has no checksum manifest", zap.String("runfolder", rf.Name))
	default:
		return nil, err
	}

	projects, err := s.projects.Discover(rf)
	switch {
	case err == nil:
		rf.Projects = projects
	case tolerant && (errors.Is(err, delivererr.ErrProjectsDirNotFound) || errors.Is(err, delivererr.ErrProjectReportNotFound)):
		s.logger.Warn("runfolder projects not discovered",
			zap.String("runfolder", rf.Name),
			zap.Error(err))
	default:
		return nil, err
	}
	return rf, nil
}

// SampleSheet returns the [Data] rows of the runfolder's SampleSheet.
func (s *Store) SampleSheet(rf *models.Runfolder) ([]metadata.Row, error) {
	return s.sheets.ReadSampleSheet(filepath.Join(rf.Path, metadata.SampleSheetName))
}

// Projects returns the projects of every runfolder.
func (s *Store) Projects() ([]*models.RunfolderProject, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	var out []*models.RunfolderProject
	for _, rf := range all {
		out = append(out, rf.Projects...)
	}
	return out, nil
}

// ProjectsNamed returns every project called name across all runfolders.
func (s *Store) ProjectsNamed(name string) ([]*models.RunfolderProject, error) {
	all, err := s.Projects()
	if err != nil {
		return nil, err
	}
	var out []*models.RunfolderProject
	for _, p := range all {
		if p.Name == name {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", delivererr.ErrProjectNotFound, name)
	}
	return out, nil
}
