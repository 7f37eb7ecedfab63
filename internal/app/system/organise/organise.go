// Package organise builds the organised, symlink-based project tree of a
// runfolder from its unorganised demultiplexing output.
//
// For every organised project the tree looks like
//
//	<runfolder>/Projects/<project>/
//	    checksums.md5
//	    <report files, laid out as in their report directory>
//	    <runfolder>/SampleSheet.csv
//	    <runfolder>/<sample id>/<sample files>
//
// Everything except the manifest and the SampleSheet is a relative symlink
// back into the runfolder.
package organise

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dalemusser/stratadelivery/internal/app/store/projects"
	"github.com/dalemusser/stratadelivery/internal/app/system/fsutil"
	"github.com/dalemusser/stratadelivery/internal/app/system/metadata"
	"github.com/dalemusser/stratadelivery/internal/domain/delivererr"
	"github.com/dalemusser/stratadelivery/internal/domain/models"
	"go.uber.org/zap"
)

// ProjectsDir holds the organised projects inside a runfolder.
const ProjectsDir = "Projects"

// RunfolderSource resolves runfolders and their SampleSheets.
type RunfolderSource interface {
	Get(name string) (*models.Runfolder, error)
	SampleSheet(rf *models.Runfolder) ([]metadata.Row, error)
}

// ProjectFiles resolves report files and writes project checksum manifests.
type ProjectFiles interface {
	ReportFiles(rf *models.Runfolder, project *models.RunfolderProject) (string, []models.File, error)
	DumpChecksums(project *models.RunfolderProject) (string, error)
}

// SampleSheetWriter writes a SampleSheet and returns its checksum.
type SampleSheetWriter interface {
	WriteSampleSheet(path string, rows []metadata.Row) (string, error)
}

// Service organises runfolders.
type Service struct {
	runfolders RunfolderSource
	projects   ProjectFiles
	sheets     SampleSheetWriter
	fs         fsutil.FileSystem
	logger     *zap.Logger
	now        func() time.Time
}

// New creates an organise service.
func New(runfolders RunfolderSource, projects ProjectFiles, sheets SampleSheetWriter, fsys fsutil.FileSystem, logger *zap.Logger) *Service {
	return &Service{
		runfolders: runfolders,
		projects:   projects,
		sheets:     sheets,
		fs:         fsys,
		logger:     logger,
		now:        time.Now,
	}
}

// OrganiseRunfolder organises the projects of the runfolder called
// runfolderID. With projectNames empty every project is organised. With lanes
// empty every lane is included.
//
// If any selected project has been organised before the whole call fails with
// delivererr.ErrProjectAlreadyOrganised and nothing is touched, unless force
// is set, in which case the existing Projects directory is moved aside once
// before organising starts.
//
// The returned runfolder describes the organised projects. The discovered
// models are not modified. A failure part way leaves the files created so far
// in place.
func (s *Service) OrganiseRunfolder(runfolderID string, lanes []int, projectNames []string, force bool) (*models.Runfolder, error) {
	rf, err := s.runfolders.Get(runfolderID)
	if err != nil {
		return nil, err
	}
	if rf == nil {
		return nil, fmt.Errorf("%w: %s", delivererr.ErrRunfolderNotFound, runfolderID)
	}

	candidates, err := selectProjects(rf, projectNames)
	if err != nil {
		return nil, err
	}

	var rows []metadata.Row
	if len(candidates) > 0 {
		rows, err = s.runfolders.SampleSheet(rf)
		if err != nil {
			return nil, err
		}
	}

	if err := s.checkPreviouslyOrganised(rf, candidates, force); err != nil {
		return nil, err
	}

	organised := make([]*models.RunfolderProject, 0, len(candidates))
	for _, project := range candidates {
		op, err := s.organiseProject(rf, project, lanes, rows)
		if err != nil {
			return nil, fmt.Errorf("organise project %s: %w", project.Name, err)
		}
		organised = append(organised, op)
	}

	out := models.NewRunfolder(rf.Name, rf.Path)
	out.Projects = organised
	return out, nil
}

func selectProjects(rf *models.Runfolder, names []string) ([]*models.RunfolderProject, error) {
	if len(names) == 0 {
		return rf.Projects, nil
	}
	seen := make(map[string]bool, len(names))
	var out []*models.RunfolderProject
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		p, ok := rf.Project(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s in runfolder %s", delivererr.ErrProjectNotFound, name, rf.Name)
		}
		out = append(out, p)
	}
	return out, nil
}

// OrganisedPath returns where project is organised within rf.
func OrganisedPath(rf *models.Runfolder, projectName string) string {
	return filepath.Join(rf.Path, ProjectsDir, projectName)
}

func (s *Service) checkPreviouslyOrganised(rf *models.Runfolder, candidates []*models.RunfolderProject, force bool) error {
	var existing []string
	for _, p := range candidates {
		if s.fs.Exists(OrganisedPath(rf, p.Name)) {
			existing = append(existing, p.Name)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if !force {
		s.logger.Info("no re-organisation attempted",
			zap.String("runfolder", rf.Name),
			zap.Strings("organised", existing))
		return fmt.Errorf("%w: %s in runfolder %s", delivererr.ErrProjectAlreadyOrganised, existing[0], rf.Name)
	}

	current := filepath.Join(rf.Path, ProjectsDir)
	backup := s.backupPath(current)
	s.logger.Info("moving previously organised projects aside",
		zap.String("runfolder", rf.Name),
		zap.Strings("organised", existing),
		zap.String("backup", backup))
	if err := s.fs.Rename(current, backup); err != nil {
		return fmt.Errorf("back up %s: %w", current, err)
	}
	return nil
}

// backupPath returns an unused <dir>.<seconds>.<micros> path.
func (s *Service) backupPath(dir string) string {
	now := s.now()
	base := fmt.Sprintf("%s.%d.%06d", dir, now.Unix(), now.Nanosecond()/1000)
	path := base
	for n := 1; s.fs.Exists(path); n++ {
		path = base + "-" + strconv.Itoa(n)
	}
	return path
}

func (s *Service) organiseProject(rf *models.Runfolder, project *models.RunfolderProject, lanes []int, rows []metadata.Row) (*models.RunfolderProject, error) {
	organisedPath := OrganisedPath(rf, project.Name)
	runfolderDir := filepath.Join(organisedPath, rf.Name)
	if err := s.fs.MkdirAll(runfolderDir); err != nil {
		return nil, err
	}

	op := models.NewRunfolderProject(project.Name, organisedPath, rf.Path, rf.Name)
	op.Samples = make([]models.Sample, 0, len(project.Samples))
	for _, sample := range project.Samples {
		organised, err := s.organiseSample(sample, runfolderDir, lanes)
		if err != nil {
			return nil, err
		}
		op.Samples = append(op.Samples, organised)
	}

	reportBase, reports, err := s.projects.ReportFiles(rf, project)
	if err != nil {
		return nil, err
	}
	for _, f := range reports {
		rel, err := fsutil.RelUnder(reportBase, f.Path)
		if err != nil {
			return nil, err
		}
		link := filepath.Join(organisedPath, rel)
		if err := s.link(f.Path, link); err != nil {
			return nil, err
		}
		op.ProjectFiles = append(op.ProjectFiles, models.NewFile(link, f.Checksum))
	}

	sheetPath := filepath.Join(runfolderDir, metadata.SampleSheetName)
	sum, err := s.sheets.WriteSampleSheet(sheetPath, MaskSampleSheet(rows, op))
	if err != nil {
		return nil, fmt.Errorf("write samplesheet: %w", err)
	}
	op.ProjectFiles = append(op.ProjectFiles, models.NewFile(sheetPath, sum))

	if _, err := s.projects.DumpChecksums(op); err != nil {
		return nil, err
	}

	s.logger.Info("organised project",
		zap.String("runfolder", rf.Name),
		zap.String("project", project.Name),
		zap.Int("samples", len(op.Samples)),
		zap.Ints("lanes", lanes))
	return op, nil
}

func (s *Service) organiseSample(sample models.Sample, runfolderDir string, lanes []int) (models.Sample, error) {
	sampleDir := filepath.Join(runfolderDir, sample.SampleID)
	out := models.Sample{
		Name:        sample.Name,
		SampleID:    sample.SampleID,
		ProjectName: sample.ProjectName,
		Files:       make([]models.SampleFile, 0, len(sample.Files)),
	}
	for _, f := range sample.Files {
		if !includeLane(lanes, f.Lane) {
			continue
		}
		link := filepath.Join(sampleDir, f.Name)
		if err := s.link(f.Path, link); err != nil {
			return models.Sample{}, err
		}
		organised := f
		organised.File = models.NewFile(link, f.Checksum)
		out.Files = append(out.Files, organised)
	}
	return out, nil
}

// link creates a relative symlink at link pointing to target.
func (s *Service) link(target, link string) error {
	rel, err := fsutil.RelativeSymlinkTarget(target, link)
	if err != nil {
		return err
	}
	return s.fs.Symlink(rel, link)
}

func includeLane(lanes []int, lane int) bool {
	if len(lanes) == 0 {
		return true
	}
	for _, l := range lanes {
		if l == lane {
			return true
		}
	}
	return false
}

// MaskSampleSheet returns rows with every row that does not belong to project
// masked. A row belongs to the project when its Sample_Project names the
// project and its Sample_ID is a sample of the project sequenced on the row's
// Lane. Masking replaces every non-empty field except Lane with its hash.
// Row and column order are preserved; rows is not modified.
func MaskSampleSheet(rows []metadata.Row, project *models.RunfolderProject) []metadata.Row {
	out := make([]metadata.Row, 0, len(rows))
	for _, row := range rows {
		if rowInProject(row, project) {
			out = append(out, row.Map(func(f metadata.Field) string { return f.Value }))
			continue
		}
		out = append(out, row.Map(func(f metadata.Field) string {
			if f.Key == "Lane" || f.Value == "" {
				return f.Value
			}
			return metadata.HashString(f.Value)
		}))
	}
	return out
}

func rowInProject(row metadata.Row, project *models.RunfolderProject) bool {
	projectName, _ := row.Get("Sample_Project")
	sampleID, _ := row.Get("Sample_ID")

	laneValue, ok := row.Get("Lane")
	if !ok {
		// Single-lane SampleSheets have no Lane column.
		if projectName != project.Name {
			return false
		}
		_, found := project.SampleByID(sampleID)
		return found
	}
	lane, err := strconv.Atoi(laneValue)
	if err != nil {
		return false
	}
	return projects.IsSampleInProject(project, projectName, sampleID, lane)
}
