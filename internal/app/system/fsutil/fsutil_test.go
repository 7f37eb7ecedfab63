package fsutil

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestOS_ListDirectories(t *testing.T) {
	root := t.TempDir()
	for _, d := range []string{"b", "a", "c/nested"} {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	touch(t, filepath.Join(root, "file.txt"))
	if err := os.Symlink(filepath.Join(root, "a"), filepath.Join(root, "link")); err != nil {
		t.Fatal(err)
	}

	got, err := OS{}.ListDirectories(root)
	if err != nil {
		t.Fatalf("ListDirectories() error = %v", err)
	}
	want := []string{
		filepath.Join(root, "a"),
		filepath.Join(root, "b"),
		filepath.Join(root, "c"),
		filepath.Join(root, "link"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListDirectories() mismatch (-want +got):\n%s", diff)
	}
}

func TestOS_ListDirectories_Missing(t *testing.T) {
	_, err := OS{}.ListDirectories(filepath.Join(t.TempDir(), "nope"))
	if !IsNotExist(err) {
		t.Errorf("ListDirectories(missing) error = %v, want not-exist", err)
	}
}

func TestOS_ListFilesRecursively(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.txt"))
	touch(t, filepath.Join(root, "sub", "b.txt"))
	touch(t, filepath.Join(root, "sub", "deeper", "c.txt"))

	got, err := OS{}.ListFilesRecursively(root)
	if err != nil {
		t.Fatalf("ListFilesRecursively() error = %v", err)
	}
	want := []string{
		filepath.Join(root, "a.txt"),
		filepath.Join(root, "sub", "b.txt"),
		filepath.Join(root, "sub", "deeper", "c.txt"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListFilesRecursively() mismatch (-want +got):\n%s", diff)
	}
}

func TestOS_SymlinkCreatesParents(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "src", "file.txt")
	touch(t, target)
	link := filepath.Join(root, "dst", "deep", "file.txt")

	rel, err := RelativeSymlinkTarget(target, link)
	if err != nil {
		t.Fatal(err)
	}
	if rel != filepath.Join("..", "..", "src", "file.txt") {
		t.Errorf("RelativeSymlinkTarget() = %q", rel)
	}
	if err := (OS{}).Symlink(rel, link); err != nil {
		t.Fatalf("Symlink() error = %v", err)
	}

	resolved, err := filepath.EvalSymlinks(link)
	if err != nil {
		t.Fatalf("EvalSymlinks() error = %v", err)
	}
	wantResolved, _ := filepath.EvalSymlinks(target)
	if resolved != wantResolved {
		t.Errorf("link resolves to %q, want %q", resolved, wantResolved)
	}
}

func TestOS_WriteFileAndOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "checksums.md5")
	fsys := OS{}
	if err := fsys.WriteFile(path, []byte("first")); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := fsys.WriteFile(path, []byte("second")); err != nil {
		t.Fatalf("WriteFile() overwrite error = %v", err)
	}
	rc, err := fsys.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "second" {
		t.Errorf("content = %q, want %q", data, "second")
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}

func TestRelUnder(t *testing.T) {
	tests := []struct {
		base, path string
		want       string
		wantErr    bool
	}{
		{"/a/b", "/a/b/c/d", "c/d", false},
		{"/a/b", "/a/b", ".", false},
		{"/a/b", "/a/x", "", true},
		{"/a/b", "/a/b..c", "../b..c", true},
	}
	for _, tt := range tests {
		got, err := RelUnder(tt.base, tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("RelUnder(%q, %q) error = %v, wantErr %v", tt.base, tt.path, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != filepath.FromSlash(tt.want) {
			t.Errorf("RelUnder(%q, %q) = %q, want %q", tt.base, tt.path, got, tt.want)
		}
	}
}

func TestOS_ExistsAndRename(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "Projects")
	fsys := OS{}
	if fsys.Exists(dir) {
		t.Fatal("Exists() = true before creation")
	}
	if err := fsys.MkdirAll(dir); err != nil {
		t.Fatal(err)
	}
	if !fsys.IsDir(dir) {
		t.Fatal("IsDir() = false after MkdirAll")
	}
	backup := filepath.Join(root, "Projects.1")
	if err := fsys.Rename(dir, backup); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if fsys.Exists(dir) || !fsys.Exists(backup) {
		t.Error("Rename() did not move the directory")
	}
}
