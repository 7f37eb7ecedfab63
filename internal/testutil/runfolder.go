package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dalemusser/stratadelivery/internal/app/system/fastqname"
	"github.com/dalemusser/stratadelivery/internal/app/system/metadata"
	"github.com/dalemusser/stratadelivery/internal/domain/models"
)

// DefaultRunfolderName is the runfolder name used by fixtures unless
// overridden.
const DefaultRunfolderName = "180124_A00181_0019_BH72M5DMXX"

// DefaultProjects are the projects written into a fixture runfolder.
var DefaultProjects = []string{"ABC_123", "DEF_456"}

// ReportKind selects which report artifacts a fixture project carries.
type ReportKind int

const (
	ReportMultiQC ReportKind = iota
	ReportLegacyProject
	ReportLegacySummary
	ReportBoth // MultiQC plus a legacy Summary report
	ReportNone
)

// RunfolderOptions tunes the fixture written by WriteRunfolder.
type RunfolderOptions struct {
	Name          string
	Projects      []string
	Report        ReportKind
	NoManifest    bool
	NoSampleSheet bool
}

// RunfolderFixture is a runfolder written to disk together with the model
// that discovery is expected to produce for it.
type RunfolderFixture struct {
	Base        string
	Runfolder   *models.Runfolder
	SampleSheet []metadata.Row
}

// Project returns the expected model of the named project.
func (f *RunfolderFixture) Project(name string) *models.RunfolderProject {
	p, ok := f.Runfolder.Project(name)
	if !ok {
		panic("fixture has no project " + name)
	}
	return p
}

// WriteRunfolder builds an unorganised runfolder under base.
//
// Each project holds three samples: one sequenced on a single lane, one
// spread over two lanes, and a sample name reused by two preps kept in
// separate subdirectories. Every sample file has an index and a read file
// for reads 1 and 2. Lanes and sample indexes keep counting across projects.
func WriteRunfolder(t *testing.T, base string, opts RunfolderOptions) *RunfolderFixture {
	t.Helper()

	if opts.Name == "" {
		opts.Name = DefaultRunfolderName
	}
	if opts.Projects == nil {
		opts.Projects = DefaultProjects
	}

	rf := models.NewRunfolder(opts.Name, filepath.Join(base, opts.Name))
	if err := os.MkdirAll(rf.Path, 0o755); err != nil {
		t.Fatalf("create runfolder: %v", err)
	}
	checksums := make(map[string]string)
	record := func(path, sum string) {
		rel, err := filepath.Rel(filepath.Dir(rf.Path), path)
		if err != nil {
			t.Fatalf("relative path: %v", err)
		}
		checksums[filepath.ToSlash(rel)] = sum
	}

	b := &fixtureBuilder{t: t, record: record}
	var rows []metadata.Row
	for _, name := range opts.Projects {
		project := models.NewRunfolderProject(name, filepath.Join(rf.Path, "Unaligned", name), rf.Path, rf.Name)

		lane := b.nextLane()
		s1 := b.sample(project, "Sample_1", "", b.nextIndex(), []int{lane})
		idx := b.nextIndex()
		next := b.nextLane()
		s2 := b.sample(project, "Sample_2", "", idx, []int{lane, next})
		prepA := b.sample(project, "Sample_3", "Sample_3-A", b.nextIndex(), []int{next})
		prepB := b.sample(project, "Sample_3", "Sample_3-B", b.nextIndex(), []int{b.nextLane()})
		project.Samples = []models.Sample{s1, s2, prepA, prepB}
		project.ProjectFiles = b.reports(rf, project, opts.Report)

		for _, s := range project.Samples {
			for _, f := range s.Files {
				if f.IsIndex || f.Read != 1 {
					continue
				}
				rows = append(rows, samplesheetRow(project.Name, s, f))
			}
		}
		rf.Projects = append(rf.Projects, project)
	}

	if !opts.NoManifest {
		WriteFile(t, filepath.Join(rf.Path, metadata.ManifestPath), string(metadata.FormatChecksums(checksums)))
		rf.Checksums = checksums
	}
	if !opts.NoSampleSheet {
		data, err := metadata.FormatSampleSheet(rows)
		if err != nil {
			t.Fatalf("format samplesheet: %v", err)
		}
		WriteFile(t, filepath.Join(rf.Path, metadata.SampleSheetName), samplesheetPreamble+strings.TrimPrefix(string(data), metadata.DataMarker+"\n"))
	}

	if !opts.NoManifest {
		return &RunfolderFixture{Base: base, Runfolder: rf, SampleSheet: rows}
	}
	// Without a manifest discovery carries no checksums.
	for _, p := range rf.Projects {
		for i := range p.Samples {
			for j := range p.Samples[i].Files {
				p.Samples[i].Files[j].Checksum = ""
			}
		}
	}
	return &RunfolderFixture{Base: base, Runfolder: rf, SampleSheet: rows}
}

// WriteFile writes content to path, creating parent directories, and returns
// the md5 of the content.
func WriteFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return metadata.HashString(content)
}

type fixtureBuilder struct {
	t      *testing.T
	record func(path, sum string)
	lane   int
	index  int
}

func (b *fixtureBuilder) nextLane() int {
	b.lane++
	if b.lane > 9 {
		b.t.Fatal("fixture ran out of single digit lanes")
	}
	return b.lane
}

func (b *fixtureBuilder) nextIndex() string {
	b.index++
	return fmt.Sprintf("S%d", b.index)
}

func (b *fixtureBuilder) sample(project *models.RunfolderProject, name, subdir, index string, lanes []int) models.Sample {
	dir := project.Path
	sampleID := name
	if subdir != "" {
		dir = filepath.Join(dir, subdir)
		sampleID = subdir
	}
	s := models.Sample{Name: name, SampleID: sampleID, ProjectName: project.Name}
	for _, lane := range lanes {
		for _, isIndex := range []bool{false, true} {
			for read := 1; read <= 2; read++ {
				attrs := fastqname.Attributes{SampleName: name, SampleIndex: index, Lane: lane, IsIndex: isIndex, Read: read}
				path := filepath.Join(dir, attrs.FileName(1))
				sum := WriteFile(b.t, path, "reads of "+path)
				b.record(path, sum)
				s.Files = append(s.Files, models.SampleFile{
					File:        models.NewFile(path, sum),
					SampleName:  name,
					SampleIndex: index,
					Lane:        lane,
					Read:        read,
					IsIndex:     isIndex,
				})
			}
		}
	}
	return s
}

func (b *fixtureBuilder) reports(rf *models.Runfolder, project *models.RunfolderProject, kind ReportKind) []models.File {
	var files []models.File
	write := func(path string) {
		sum := WriteFile(b.t, path, "report "+path)
		b.record(path, sum)
		files = append(files, models.NewFile(path, sum))
	}
	legacy := func(dir string) {
		for _, name := range []string{"report.html", "report.xml", "report.xsl"} {
			write(filepath.Join(dir, name))
		}
		write(filepath.Join(dir, "Plots", "lane1.png"))
		write(filepath.Join(dir, "Plots", "Font", "font.ttf"))
	}

	switch kind {
	case ReportMultiQC:
		write(filepath.Join(project.Path, project.Name+"_multiqc_report.html"))
		write(filepath.Join(project.Path, project.Name+"_multiqc_report_data.zip"))
	case ReportLegacyProject:
		legacy(project.Path)
	case ReportLegacySummary:
		legacy(filepath.Join(rf.Path, "Summary", project.Name))
	case ReportBoth:
		write(filepath.Join(project.Path, project.Name+"_multiqc_report.html"))
		write(filepath.Join(project.Path, project.Name+"_multiqc_report_data.zip"))
		mqc := files
		legacy(filepath.Join(rf.Path, "Summary", project.Name))
		files = mqc
	case ReportNone:
	}
	return files
}

var samplesheetColumns = []string{
	"Lane", "Sample_ID", "Sample_Name", "Sample_Plate", "Sample_Well", "index", "Sample_Project", "Description",
}

func samplesheetRow(project string, s models.Sample, f models.SampleFile) metadata.Row {
	values := []string{
		fmt.Sprint(f.Lane),
		s.SampleID,
		s.Name,
		"",
		"",
		"index_seq_" + f.SampleIndex,
		project,
		fmt.Sprintf("PROJECT:%s;SAMPLE:%s;LANE:%d;INDEX:%s", project, s.Name, f.Lane, f.SampleIndex),
	}
	row := make(metadata.Row, len(samplesheetColumns))
	for i, key := range samplesheetColumns {
		row[i] = metadata.Field{Key: key, Value: values[i]}
	}
	return row
}

const samplesheetPreamble = `[Header],,,,,,,
IEMFileVersion,4,,,,,,
Experiment Name,Hiseq-2500-single-index,,,,,,
Date,02/26/2019,,,,,,
Workflow,Resequencing,,,,,,
,,,,,,,
[Reads],,,,,,,
50,,,,,,,
50,,,,,,,
,,,,,,,
[Data],,,,,,,
`
