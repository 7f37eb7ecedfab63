// Package manifestarchive copies the metadata of freshly organised projects
// into object storage, so checksum manifests and masked samplesheets outlive
// the runfolder itself.
//
// Objects are written to organised/<runfolder>/<project>/<file>.
package manifestarchive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"

	"github.com/dalemusser/stratadelivery/internal/app/system/fsutil"
	"github.com/dalemusser/stratadelivery/internal/app/system/metadata"
	"github.com/dalemusser/stratadelivery/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/storage"
	"go.uber.org/zap"
)

// Prefix is the top-level key under which archived manifests live.
const Prefix = "organised"

// Putter is the subset of storage.Store the archiver writes through.
type Putter interface {
	Put(ctx context.Context, path string, r io.Reader, opts *storage.PutOptions) error
}

// Archiver uploads organised project metadata.
type Archiver struct {
	store  Putter
	fs     fsutil.FileSystem
	logger *zap.Logger
}

// New creates an Archiver writing to store.
func New(store Putter, fsys fsutil.FileSystem, logger *zap.Logger) *Archiver {
	return &Archiver{store: store, fs: fsys, logger: logger}
}

// Key returns the storage key for file of project in runfolder.
func Key(runfolder, project, file string) string {
	return path.Join(Prefix, runfolder, project, file)
}

// ArchiveRunfolder uploads the checksum manifest and samplesheet of each
// organised project in rf. Failures are logged and counted; the count of
// uploaded objects is returned.
func (a *Archiver) ArchiveRunfolder(ctx context.Context, rf *models.Runfolder) int {
	uploaded := 0
	for _, p := range rf.Projects {
		for _, src := range archiveSources(rf, p) {
			key := Key(rf.Name, p.Name, filepath.Base(src.path))
			if err := a.upload(ctx, src.path, key, src.contentType); err != nil {
				a.logger.Warn("manifest archive failed",
					zap.String("runfolder", rf.Name),
					zap.String("project", p.Name),
					zap.String("key", key),
					zap.Error(err))
				continue
			}
			uploaded++
		}
	}
	a.logger.Info("archived organised manifests",
		zap.String("runfolder", rf.Name),
		zap.Int("objects", uploaded))
	return uploaded
}

type source struct {
	path        string
	contentType string
}

func archiveSources(rf *models.Runfolder, p *models.RunfolderProject) []source {
	return []source{
		{filepath.Join(p.Path, metadata.ProjectManifestName), "text/plain"},
		{filepath.Join(p.Path, rf.Name, metadata.SampleSheetName), "text/csv"},
	}
}

func (a *Archiver) upload(ctx context.Context, src, key, contentType string) error {
	f, err := a.fs.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}
	return a.store.Put(ctx, key, bytes.NewReader(data), &storage.PutOptions{
		ContentType: contentType,
	})
}
