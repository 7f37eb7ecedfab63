package organise

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/stratadelivery/internal/app/store/projects"
	"github.com/dalemusser/stratadelivery/internal/app/store/runfolders"
	"github.com/dalemusser/stratadelivery/internal/app/store/samples"
	"github.com/dalemusser/stratadelivery/internal/app/system/fsutil"
	"github.com/dalemusser/stratadelivery/internal/app/system/metadata"
	"github.com/dalemusser/stratadelivery/internal/domain/delivererr"
	"github.com/dalemusser/stratadelivery/internal/domain/models"
	"github.com/dalemusser/stratadelivery/internal/testutil"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
)

func newService(base string) *Service {
	return newServiceWith(base, metadata.NewService(fsutil.OS{}))
}

func newServiceWith(base string, checksums metadata.ChecksumStore) *Service {
	fsys := fsutil.OS{}
	meta := metadata.NewService(fsys)
	smp := samples.New(fsys, checksums, zap.NewNop())
	prj := projects.NewRunfolderStore(fsys, checksums, smp, zap.NewNop())
	rfs := runfolders.New(base, fsys, checksums, prj, meta, zap.NewNop())
	return New(rfs, prj, meta, fsys, zap.NewNop())
}

// snapshot lists every entry below root with symlink targets.
func snapshot(t *testing.T, root string) []string {
	t.Helper()
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		entry := rel
		if d.Type()&fs.ModeSymlink != 0 {
			target, err := os.Readlink(path)
			if err != nil {
				return err
			}
			entry += " -> " + target
		}
		out = append(out, entry)
		return nil
	})
	if err != nil {
		t.Fatalf("snapshot %s: %v", root, err)
	}
	return out
}

func TestOrganiseRunfolder_Layout(t *testing.T) {
	base := t.TempDir()
	fx := testutil.WriteRunfolder(t, base, testutil.RunfolderOptions{})
	rf := fx.Runfolder

	got, err := newService(base).OrganiseRunfolder(rf.Name, nil, nil, false)
	if err != nil {
		t.Fatalf("OrganiseRunfolder() error = %v", err)
	}
	if !got.Equal(rf) {
		t.Errorf("OrganiseRunfolder() path = %s, want %s", got.Path, rf.Path)
	}
	if diff := cmp.Diff([]string{"ABC_123", "DEF_456"}, got.ProjectNames()); diff != "" {
		t.Errorf("organised projects mismatch (-want +got):\n%s", diff)
	}

	for _, op := range got.Projects {
		want := fx.Project(op.Name)
		if op.Path != filepath.Join(rf.Path, "Projects", op.Name) {
			t.Errorf("organised path = %s", op.Path)
		}
		if len(op.Samples) != len(want.Samples) {
			t.Errorf("%s: %d organised samples, want %d", op.Name, len(op.Samples), len(want.Samples))
		}

		for _, s := range op.Samples {
			orig, ok := want.SampleByID(s.SampleID)
			if !ok {
				t.Fatalf("unexpected sample %s", s.SampleID)
			}
			if len(s.Files) != len(orig.Files) {
				t.Errorf("sample %s has %d files, want %d", s.SampleID, len(s.Files), len(orig.Files))
			}
			for _, f := range s.Files {
				wantDir := filepath.Join(op.Path, rf.Name, s.SampleID)
				if filepath.Dir(f.Path) != wantDir {
					t.Errorf("sample file %s not in %s", f.Path, wantDir)
				}
				target, err := os.Readlink(f.Path)
				if err != nil {
					t.Fatalf("Readlink(%s) error = %v", f.Path, err)
				}
				if filepath.IsAbs(target) {
					t.Errorf("symlink %s is absolute: %s", f.Path, target)
				}
				if !f.HasChecksum() {
					t.Errorf("organised file %s lost its checksum", f.Name)
				}
				if _, err := os.Stat(f.Path); err != nil {
					t.Errorf("symlink %s does not resolve: %v", f.Path, err)
				}
			}
		}

		var names []string
		for _, f := range op.ProjectFiles {
			names = append(names, f.Name)
		}
		wantNames := []string{op.Name + "_multiqc_report.html", op.Name + "_multiqc_report_data.zip", "SampleSheet.csv"}
		if diff := cmp.Diff(wantNames, names); diff != "" {
			t.Errorf("project files mismatch (-want +got):\n%s", diff)
		}
		if _, err := os.Stat(filepath.Join(op.Path, op.Name+"_multiqc_report.html")); err != nil {
			t.Errorf("report link missing: %v", err)
		}

		f, err := os.Open(filepath.Join(op.Path, "checksums.md5"))
		if err != nil {
			t.Fatalf("checksum manifest missing: %v", err)
		}
		sums, err := metadata.ParseChecksums(f)
		f.Close()
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := sums[rf.Name+"/SampleSheet.csv"]; !ok {
			t.Error("checksum manifest does not list the SampleSheet")
		}
		if _, ok := sums[op.Name+"_multiqc_report.html"]; !ok {
			t.Error("checksum manifest does not list the report")
		}
	}

	// The discovered tree is left as it was.
	for _, p := range rf.Projects {
		for _, s := range p.Samples {
			for _, f := range s.Files {
				fi, err := os.Lstat(f.Path)
				if err != nil || fi.Mode()&fs.ModeSymlink != 0 {
					t.Errorf("original file %s changed: %v", f.Path, err)
				}
			}
		}
	}
}

func TestOrganiseRunfolder_LenientStoreKeepsManifestChecksums(t *testing.T) {
	base := t.TempDir()
	fx := testutil.WriteRunfolder(t, base, testutil.RunfolderOptions{})

	got, err := newServiceWith(base, metadata.NewLenient(fsutil.OS{}, zap.NewNop())).
		OrganiseRunfolder(fx.Runfolder.Name, nil, nil, false)
	if err != nil {
		t.Fatalf("OrganiseRunfolder() error = %v", err)
	}

	for _, op := range got.Projects {
		var sampleFiles int
		for _, s := range op.Samples {
			for _, f := range s.Files {
				sampleFiles++
				if !f.HasChecksum() {
					t.Errorf("%s: sample file %s has no checksum", op.Name, f.Name)
				}
			}
		}

		data, err := os.ReadFile(filepath.Join(op.Path, metadata.ProjectManifestName))
		if err != nil {
			t.Fatalf("read manifest: %v", err)
		}
		if n := strings.Count(string(data), ".fastq.gz\n"); n != sampleFiles {
			t.Errorf("%s: manifest lists %d fastq files, want %d", op.Name, n, sampleFiles)
		}
	}
}

func TestOrganiseRunfolder_ReturnsNewModels(t *testing.T) {
	base := t.TempDir()
	fx := testutil.WriteRunfolder(t, base, testutil.RunfolderOptions{Projects: []string{"ABC_123"}})
	svc := newService(base)

	discovered, err := svc.runfolders.Get(fx.Runfolder.Name)
	if err != nil {
		t.Fatal(err)
	}
	before := discovered.Projects[0].Samples[0].Files[0].Path

	stub := &fixedSource{rf: discovered, inner: svc.runfolders}
	svc.runfolders = stub
	if _, err := svc.OrganiseRunfolder(fx.Runfolder.Name, nil, nil, false); err != nil {
		t.Fatal(err)
	}
	if got := discovered.Projects[0].Samples[0].Files[0].Path; got != before {
		t.Errorf("discovered sample file path changed to %s", got)
	}
	if want := filepath.Join(fx.Runfolder.Path, "Unaligned", "ABC_123"); discovered.Projects[0].Path != want {
		t.Errorf("discovered project path changed to %s", discovered.Projects[0].Path)
	}
}

type fixedSource struct {
	rf    *models.Runfolder
	inner RunfolderSource
}

func (f *fixedSource) Get(string) (*models.Runfolder, error) { return f.rf, nil }
func (f *fixedSource) SampleSheet(rf *models.Runfolder) ([]metadata.Row, error) {
	return f.inner.SampleSheet(rf)
}

func TestOrganiseRunfolder_ConflictWithoutForce(t *testing.T) {
	base := t.TempDir()
	fx := testutil.WriteRunfolder(t, base, testutil.RunfolderOptions{})
	svc := newService(base)

	if _, err := svc.OrganiseRunfolder(fx.Runfolder.Name, nil, []string{"ABC_123"}, false); err != nil {
		t.Fatal(err)
	}
	before := snapshot(t, fx.Runfolder.Path)

	_, err := svc.OrganiseRunfolder(fx.Runfolder.Name, nil, nil, false)
	if !errors.Is(err, delivererr.ErrProjectAlreadyOrganised) {
		t.Fatalf("OrganiseRunfolder() error = %v, want ErrProjectAlreadyOrganised", err)
	}
	if diff := cmp.Diff(before, snapshot(t, fx.Runfolder.Path)); diff != "" {
		t.Errorf("filesystem changed on conflict (-before +after):\n%s", diff)
	}
}

func TestOrganiseRunfolder_ForceBacksUpOnce(t *testing.T) {
	base := t.TempDir()
	fx := testutil.WriteRunfolder(t, base, testutil.RunfolderOptions{})
	rf := fx.Runfolder
	svc := newService(base)

	if _, err := svc.OrganiseRunfolder(rf.Name, nil, nil, false); err != nil {
		t.Fatal(err)
	}
	first := snapshot(t, filepath.Join(rf.Path, "Projects"))

	if _, err := svc.OrganiseRunfolder(rf.Name, nil, nil, true); err != nil {
		t.Fatalf("OrganiseRunfolder(force) error = %v", err)
	}

	entries, err := os.ReadDir(rf.Path)
	if err != nil {
		t.Fatal(err)
	}
	var live, backups []string
	for _, e := range entries {
		switch {
		case e.Name() == "Projects":
			live = append(live, e.Name())
		case strings.HasPrefix(e.Name(), "Projects."):
			backups = append(backups, e.Name())
		}
	}
	if len(live) != 1 || len(backups) != 1 {
		t.Fatalf("live = %v, backups = %v, want one of each", live, backups)
	}

	if diff := cmp.Diff(first, snapshot(t, filepath.Join(rf.Path, "Projects"))); diff != "" {
		t.Errorf("re-organised tree differs from first (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first, snapshot(t, filepath.Join(rf.Path, backups[0]))); diff != "" {
		t.Errorf("backup differs from first tree (-first +backup):\n%s", diff)
	}
}

func TestOrganiseRunfolder_ForceWithoutExistingTreeMakesNoBackup(t *testing.T) {
	base := t.TempDir()
	fx := testutil.WriteRunfolder(t, base, testutil.RunfolderOptions{})
	if _, err := newService(base).OrganiseRunfolder(fx.Runfolder.Name, nil, nil, true); err != nil {
		t.Fatal(err)
	}
	matches, _ := filepath.Glob(filepath.Join(fx.Runfolder.Path, "Projects.*"))
	if len(matches) != 0 {
		t.Errorf("unexpected backups %v", matches)
	}
}

func TestBackupPath_Unique(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Projects")
	svc := newService(t.TempDir())
	svc.now = func() time.Time { return time.Unix(1700000000, 123456789) }

	first := svc.backupPath(dir)
	if want := dir + ".1700000000.123456"; first != want {
		t.Fatalf("backupPath() = %s, want %s", first, want)
	}
	if err := os.MkdirAll(first, 0o755); err != nil {
		t.Fatal(err)
	}
	if second := svc.backupPath(dir); second != first+"-1" {
		t.Errorf("backupPath() with existing backup = %s, want %s-1", second, first)
	}
}

func TestOrganiseRunfolder_MasksForeignRows(t *testing.T) {
	base := t.TempDir()
	fx := testutil.WriteRunfolder(t, base, testutil.RunfolderOptions{})
	rf := fx.Runfolder

	got, err := newService(base).OrganiseRunfolder(rf.Name, nil, []string{"ABC_123"}, false)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"ABC_123"}, got.ProjectNames()); diff != "" {
		t.Fatalf("organised projects mismatch (-want +got):\n%s", diff)
	}

	sheet := filepath.Join(rf.Path, "Projects", "ABC_123", rf.Name, "SampleSheet.csv")
	rows, err := metadata.NewService(fsutil.OS{}).ReadSampleSheet(sheet)
	if err != nil {
		t.Fatalf("ReadSampleSheet() error = %v", err)
	}
	if len(rows) != len(fx.SampleSheet) {
		t.Fatalf("masked sheet has %d rows, want %d", len(rows), len(fx.SampleSheet))
	}
	for i, src := range fx.SampleSheet {
		row := rows[i]
		if diff := cmp.Diff(src.Keys(), row.Keys()); diff != "" {
			t.Fatalf("row %d column order differs:\n%s", i, diff)
		}
		if project, _ := src.Get("Sample_Project"); project == "ABC_123" {
			if diff := cmp.Diff(src, row); diff != "" {
				t.Errorf("row %d of own project changed:\n%s", i, diff)
			}
			continue
		}
		for j, f := range src {
			switch {
			case f.Key == "Lane" || f.Value == "":
				if row[j].Value != f.Value {
					t.Errorf("row %d %s = %q, want unmasked %q", i, f.Key, row[j].Value, f.Value)
				}
			default:
				if row[j].Value != metadata.HashString(f.Value) {
					t.Errorf("row %d %s = %q, want hash of %q", i, f.Key, row[j].Value, f.Value)
				}
			}
		}
	}
}

func TestOrganiseRunfolder_LaneFilter(t *testing.T) {
	base := t.TempDir()
	fx := testutil.WriteRunfolder(t, base, testutil.RunfolderOptions{Projects: []string{"ABC_123"}})
	rf := fx.Runfolder

	got, err := newService(base).OrganiseRunfolder(rf.Name, []int{2, 3}, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	op := got.Projects[0]
	if len(op.Samples) != 4 {
		t.Fatalf("got %d samples, want 4", len(op.Samples))
	}
	for _, s := range op.Samples {
		for _, f := range s.Files {
			if f.Lane != 2 && f.Lane != 3 {
				t.Errorf("file %s on lane %d included", f.Name, f.Lane)
			}
		}
	}

	s1, ok := op.SampleByID("Sample_1")
	if !ok {
		t.Fatal("Sample_1 missing from organised project")
	}
	if len(s1.Files) != 0 {
		t.Errorf("Sample_1 has %d files, want none", len(s1.Files))
	}
	if _, err := os.Stat(filepath.Join(op.Path, rf.Name, "Sample_1")); !os.IsNotExist(err) {
		t.Errorf("directory for filtered-out sample exists: %v", err)
	}
	s2, _ := op.SampleByID("Sample_2")
	if diff := cmp.Diff([]int{2}, s2.Lanes()); diff != "" {
		t.Errorf("Sample_2 lanes mismatch (-want +got):\n%s", diff)
	}

	rows, err := metadata.NewService(fsutil.OS{}).ReadSampleSheet(filepath.Join(op.Path, rf.Name, "SampleSheet.csv"))
	if err != nil {
		t.Fatal(err)
	}
	for _, row := range rows {
		if lane, _ := row.Get("Lane"); lane == "1" {
			if id, _ := row.Get("Sample_ID"); id == "Sample_1" {
				t.Error("row for excluded lane left unmasked")
			}
		}
	}
}

func TestOrganiseRunfolder_ReportLayout(t *testing.T) {
	t.Run("multiqc wins over legacy", func(t *testing.T) {
		base := t.TempDir()
		fx := testutil.WriteRunfolder(t, base, testutil.RunfolderOptions{Report: testutil.ReportBoth, Projects: []string{"ABC_123"}})
		got, err := newService(base).OrganiseRunfolder(fx.Runfolder.Name, nil, nil, false)
		if err != nil {
			t.Fatal(err)
		}
		for _, f := range got.Projects[0].ProjectFiles {
			if strings.HasPrefix(f.Name, "report.") {
				t.Errorf("legacy report file %s organised", f.Path)
			}
		}
	})

	t.Run("legacy keeps plots next to report", func(t *testing.T) {
		base := t.TempDir()
		fx := testutil.WriteRunfolder(t, base, testutil.RunfolderOptions{Report: testutil.ReportLegacySummary, Projects: []string{"ABC_123"}})
		got, err := newService(base).OrganiseRunfolder(fx.Runfolder.Name, nil, nil, false)
		if err != nil {
			t.Fatal(err)
		}
		op := got.Projects[0]
		for _, rel := range []string{"report.html", "report.xml", "report.xsl", "Plots/lane1.png", "Plots/Font/font.ttf"} {
			path := filepath.Join(op.Path, filepath.FromSlash(rel))
			if _, err := os.Stat(path); err != nil {
				t.Errorf("%s not organised: %v", rel, err)
			}
		}
	})
}

func TestOrganiseRunfolder_NotFound(t *testing.T) {
	base := t.TempDir()
	fx := testutil.WriteRunfolder(t, base, testutil.RunfolderOptions{})
	svc := newService(base)

	if _, err := svc.OrganiseRunfolder("190101_missing", nil, nil, false); !errors.Is(err, delivererr.ErrRunfolderNotFound) {
		t.Errorf("unknown runfolder error = %v, want ErrRunfolderNotFound", err)
	}
	if _, err := svc.OrganiseRunfolder(fx.Runfolder.Name, nil, []string{"XYZ_999"}, false); !errors.Is(err, delivererr.ErrProjectNotFound) {
		t.Errorf("unknown project error = %v, want ErrProjectNotFound", err)
	}
	if _, err := os.Stat(filepath.Join(fx.Runfolder.Path, "Projects")); !os.IsNotExist(err) {
		t.Errorf("Projects directory created on failure: %v", err)
	}
}

func TestOrganiseRunfolder_MissingSampleSheet(t *testing.T) {
	base := t.TempDir()
	fx := testutil.WriteRunfolder(t, base, testutil.RunfolderOptions{NoSampleSheet: true})
	_, err := newService(base).OrganiseRunfolder(fx.Runfolder.Name, nil, nil, false)
	if !errors.Is(err, delivererr.ErrSamplesheetNotFound) {
		t.Errorf("OrganiseRunfolder() error = %v, want ErrSamplesheetNotFound", err)
	}
}

func TestMaskSampleSheet_NoLaneColumn(t *testing.T) {
	project := &models.RunfolderProject{
		Name:    "ABC_123",
		Samples: []models.Sample{{Name: "s1", SampleID: "s1"}},
	}
	rows := []metadata.Row{
		{{Key: "Sample_ID", Value: "s1"}, {Key: "Sample_Project", Value: "ABC_123"}},
		{{Key: "Sample_ID", Value: "s2"}, {Key: "Sample_Project", Value: "ABC_123"}},
	}
	got := MaskSampleSheet(rows, project)
	if diff := cmp.Diff(rows[0], got[0]); diff != "" {
		t.Errorf("own row masked:\n%s", diff)
	}
	if got[1][0].Value != metadata.HashString("s2") {
		t.Errorf("foreign row not masked: %v", got[1])
	}
	if rows[1][0].Value != "s2" {
		t.Error("source rows modified")
	}
}
