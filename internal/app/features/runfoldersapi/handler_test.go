package runfoldersapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/dalemusser/stratadelivery/internal/app/store/projects"
	"github.com/dalemusser/stratadelivery/internal/app/store/runfolders"
	"github.com/dalemusser/stratadelivery/internal/app/store/samples"
	"github.com/dalemusser/stratadelivery/internal/app/system/fsutil"
	"github.com/dalemusser/stratadelivery/internal/app/system/metadata"
	"github.com/dalemusser/stratadelivery/internal/domain/models"
	"github.com/dalemusser/stratadelivery/internal/testutil"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
)

const testKey = "test-key"

func newRouter(base string) http.Handler {
	fsys := fsutil.OS{}
	meta := metadata.NewService(fsys)
	smp := samples.New(fsys, meta, zap.NewNop())
	prj := projects.NewRunfolderStore(fsys, meta, smp, zap.NewNop())
	store := runfolders.New(base, fsys, meta, prj, meta, zap.NewNop())
	return Routes(NewHandler(store, zap.NewNop()), testKey, zap.NewNop())
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+testKey)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestList(t *testing.T) {
	base := t.TempDir()
	fx := testutil.WriteRunfolder(t, base, testutil.RunfolderOptions{})
	// Not a runfolder name.
	if err := os.MkdirAll(filepath.Join(base, "scratch"), 0o755); err != nil {
		t.Fatal(err)
	}

	rec := get(t, newRouter(base), "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body struct {
		Runfolders []*models.Runfolder `json:"runfolders"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Runfolders) != 1 {
		t.Fatalf("got %d runfolders, want 1", len(body.Runfolders))
	}
	got := body.Runfolders[0]
	if got.Name != fx.Runfolder.Name || got.Path != fx.Runfolder.Path {
		t.Errorf("runfolder = %s %s, want %s %s", got.Name, got.Path, fx.Runfolder.Name, fx.Runfolder.Path)
	}
	if diff := cmp.Diff(fx.Runfolder.ProjectNames(), got.ProjectNames()); diff != "" {
		t.Errorf("projects mismatch (-want +got):\n%s", diff)
	}
}

func TestList_Empty(t *testing.T) {
	rec := get(t, newRouter(t.TempDir()), "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Body.String(); got != "{\"runfolders\":[]}\n" {
		t.Errorf("body = %q, want empty list", got)
	}
}

func TestGet(t *testing.T) {
	base := t.TempDir()
	fx := testutil.WriteRunfolder(t, base, testutil.RunfolderOptions{})
	h := newRouter(base)

	rec := get(t, h, "/"+fx.Runfolder.Name)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var rf models.Runfolder
	if err := json.NewDecoder(rec.Body).Decode(&rf); err != nil {
		t.Fatalf("decode: %v", err)
	}
	p, ok := rf.Project("ABC_123")
	if !ok {
		t.Fatal("project ABC_123 missing")
	}
	if len(p.Samples) != len(fx.Project("ABC_123").Samples) {
		t.Errorf("got %d samples, want %d", len(p.Samples), len(fx.Project("ABC_123").Samples))
	}

	if rec := get(t, h, "/170101_NOPE"); rec.Code != http.StatusNotFound {
		t.Errorf("missing runfolder status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestGet_StrictLoadPropagates(t *testing.T) {
	base := t.TempDir()
	fx := testutil.WriteRunfolder(t, base, testutil.RunfolderOptions{NoManifest: true})

	if rec := get(t, newRouter(base), "/"+fx.Runfolder.Name); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
