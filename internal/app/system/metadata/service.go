// Package metadata reads and writes the run metadata files that accompany
// sequence data: checksum manifests and SampleSheets.
package metadata

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dalemusser/stratadelivery/internal/app/system/fsutil"
	"github.com/dalemusser/stratadelivery/internal/domain/delivererr"
	"github.com/dalemusser/stratadelivery/internal/domain/models"
	"go.uber.org/zap"
)

// Well-known locations.
const (
	// ManifestPath is the runfolder checksum manifest, relative to the runfolder.
	ManifestPath = "MD5/checksums.md5"
	// ProjectManifestName is the manifest written into an organised project.
	ProjectManifestName = "checksums.md5"
	// SampleSheetName is the SampleSheet file name, both in a runfolder and in
	// an organised project.
	SampleSheetName = "SampleSheet.csv"
)

// ChecksumStore resolves and records file checksums.
type ChecksumStore interface {
	// Load reads the checksum manifest of the runfolder at runfolderPath.
	// A missing manifest yields delivererr.ErrChecksumFileNotFound.
	Load(runfolderPath string) (map[string]string, error)
	// Lookup returns the checksum of path recorded for rf.
	Lookup(rf *models.Runfolder, path string) (string, bool)
	// WriteManifest writes checksums to path.
	WriteManifest(path string, checksums map[string]string) error
	// HashFile computes the checksum of the file at path.
	HashFile(path string) (string, error)
}

// Service is the manifest-backed ChecksumStore. It also reads and writes
// SampleSheets.
type Service struct {
	fs fsutil.FileSystem
}

var _ ChecksumStore = (*Service)(nil)

// NewService returns a Service operating on fsys.
func NewService(fsys fsutil.FileSystem) *Service {
	return &Service{fs: fsys}
}

func (s *Service) Load(runfolderPath string) (map[string]string, error) {
	path := filepath.Join(runfolderPath, ManifestPath)
	rc, err := s.fs.Open(path)
	if err != nil {
		if fsutil.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", delivererr.ErrChecksumFileNotFound, path)
		}
		return nil, err
	}
	defer rc.Close()
	checksums, err := ParseChecksums(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return checksums, nil
}

// Lookup keys the manifest by path relative to the runfolder's parent.
func (s *Service) Lookup(rf *models.Runfolder, path string) (string, bool) {
	return lookup(rf, path)
}

func (s *Service) WriteManifest(path string, checksums map[string]string) error {
	return s.fs.WriteFile(path, FormatChecksums(checksums))
}

func (s *Service) HashFile(path string) (string, error) {
	rc, err := s.fs.Open(path)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return HashReader(rc)
}

// ReadSampleSheet returns the [Data] rows of the SampleSheet at path.
func (s *Service) ReadSampleSheet(path string) ([]Row, error) {
	rc, err := s.fs.Open(path)
	if err != nil {
		if fsutil.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", delivererr.ErrSamplesheetNotFound, path)
		}
		return nil, err
	}
	defer rc.Close()
	return ParseSampleSheet(rc)
}

// WriteSampleSheet writes rows to path and returns the checksum of the
// written file.
func (s *Service) WriteSampleSheet(path string, rows []Row) (string, error) {
	data, err := FormatSampleSheet(rows)
	if err != nil {
		return "", err
	}
	if err := s.fs.WriteFile(path, data); err != nil {
		return "", err
	}
	return HashString(string(data)), nil
}

// Lenient is a manifest-backed ChecksumStore that also accepts runfolders
// without a manifest. Those load as an empty manifest and every lookup in
// them misses; runfolders with a manifest resolve exactly as with Service.
type Lenient struct {
	*Service
	logger *zap.Logger
}

var _ ChecksumStore = (*Lenient)(nil)

// NewLenient returns a Lenient operating on fsys.
func NewLenient(fsys fsutil.FileSystem, logger *zap.Logger) *Lenient {
	return &Lenient{Service: NewService(fsys), logger: logger}
}

func (l *Lenient) Load(runfolderPath string) (map[string]string, error) {
	checksums, err := l.Service.Load(runfolderPath)
	if errors.Is(err, delivererr.ErrChecksumFileNotFound) {
		l.logger.Warn("runfolder has no checksum manifest, continuing without one",
			zap.String("runfolder", runfolderPath))
		return map[string]string{}, nil
	}
	return checksums, err
}

// NoManifest is a ChecksumStore that ignores manifests entirely. Every
// lookup misses; writing and hashing go to the filesystem.
type NoManifest struct {
	*Service
}

var _ ChecksumStore = NoManifest{}

// NewNoManifest returns a NoManifest operating on fsys.
func NewNoManifest(fsys fsutil.FileSystem) NoManifest {
	return NoManifest{Service: NewService(fsys)}
}

func (NoManifest) Load(string) (map[string]string, error) {
	return map[string]string{}, nil
}

func (NoManifest) Lookup(*models.Runfolder, string) (string, bool) {
	return "", false
}

func lookup(rf *models.Runfolder, path string) (string, bool) {
	if rf == nil || rf.Checksums == nil {
		return "", false
	}
	rel, err := filepath.Rel(filepath.Dir(rf.Path), path)
	if err != nil {
		return "", false
	}
	sum, ok := rf.Checksums[filepath.ToSlash(rel)]
	return sum, ok
}
