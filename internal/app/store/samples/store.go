// internal/app/store/samples/store.go
package samples

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/dalemusser/stratadelivery/internal/app/system/fastqname"
	"github.com/dalemusser/stratadelivery/internal/app/system/fsutil"
	"github.com/dalemusser/stratadelivery/internal/app/system/metadata"
	"github.com/dalemusser/stratadelivery/internal/domain/models"
	"go.uber.org/zap"
)

// Store discovers the samples of a project directory.
type Store struct {
	fs        fsutil.FileSystem
	checksums metadata.ChecksumStore
	logger    *zap.Logger
}

// New creates a new samples store.
func New(fsys fsutil.FileSystem, checksums metadata.ChecksumStore, logger *zap.Logger) *Store {
	return &Store{fs: fsys, checksums: checksums, logger: logger}
}

type groupKey struct {
	name   string
	subdir string // relative to the project, "." for the project root
}

// Discover groups the sequence files below project.Path into samples.
//
// Files are grouped by sample name and containing directory. Files at the
// project root get the sample name as their sample id, files in a
// subdirectory get the name of that subdirectory. Any file carrying the
// sequence file suffix whose name cannot be parsed aborts discovery.
func (s *Store) Discover(project *models.RunfolderProject, rf *models.Runfolder) ([]models.Sample, error) {
	paths, err := s.fs.ListFilesRecursively(project.Path)
	if err != nil {
		return nil, fmt.Errorf("list files of project %s: %w", project.Name, err)
	}

	groups := make(map[groupKey]*models.Sample)
	var order []groupKey
	for _, path := range paths {
		base := filepath.Base(path)
		if !fastqname.IsSequenceFile(base) {
			continue
		}
		attrs, err := fastqname.Parse(base)
		if err != nil {
			return nil, err
		}

		rel, err := fsutil.RelUnder(project.Path, path)
		if err != nil {
			return nil, err
		}
		key := groupKey{name: attrs.SampleName, subdir: filepath.Dir(rel)}
		sample, ok := groups[key]
		if !ok {
			sampleID := attrs.SampleName
			if key.subdir != "." {
				sampleID = filepath.Base(key.subdir)
			}
			sample = &models.Sample{Name: attrs.SampleName, SampleID: sampleID, ProjectName: project.Name}
			groups[key] = sample
			order = append(order, key)
		}
		sample.Files = append(sample.Files, models.SampleFile{
			File:        models.NewFile(path, s.checksum(rf, path)),
			SampleName:  attrs.SampleName,
			SampleIndex: attrs.SampleIndex,
			Lane:        attrs.Lane,
			Read:        attrs.Read,
			IsIndex:     attrs.IsIndex,
		})
	}

	out := make([]models.Sample, 0, len(order))
	for _, key := range order {
		out = append(out, *groups[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SampleID != out[j].SampleID {
			return out[i].SampleID < out[j].SampleID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) checksum(rf *models.Runfolder, path string) string {
	sum, ok := s.checksums.Lookup(rf, path)
	if !ok {
		s.logger.Warn("checksum not found",
			zap.String("runfolder", rf.Name),
			zap.String("file", path))
		return ""
	}
	return sum
}
