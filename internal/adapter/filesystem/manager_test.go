package filesystem

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func newTestManager(t *testing.T) (*Manager, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	m, err := NewManagerWithFs(fs, "/out", 4)
	if err != nil {
		t.Fatalf("NewManagerWithFs() error = %v", err)
	}
	return m, fs
}

func TestManager_WriteFile(t *testing.T) {
	m, fs := newTestManager(t)
	dest := m.DestinationPath("emma.txt")

	n, err := m.WriteFile(dest, strings.NewReader("Emma Woodhouse, handsome, clever, and rich"))
	if err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if n != 42 {
		t.Errorf("WriteFile() bytes = %d, want 42", n)
	}

	data, err := afero.ReadFile(fs, dest)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "Emma Woodhouse, handsome, clever, and rich" {
		t.Errorf("content = %q", data)
	}
	if exists, _ := afero.Exists(fs, dest+".downloading"); exists {
		t.Error("temp file should be renamed away")
	}
	if ok, err := m.FileExists(dest); !ok || err != nil {
		t.Errorf("FileExists() = %v, %v after write", ok, err)
	}
}

type failingReader struct {
	sent bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.sent {
		r.sent = true
		return copy(p, "partial"), nil
	}
	return 0, io.ErrUnexpectedEOF
}

func TestManager_WriteFile_FailureLeavesNothing(t *testing.T) {
	m, fs := newTestManager(t)
	dest := m.DestinationPath("dracula.txt")

	_, err := m.WriteFile(dest, &failingReader{})
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("WriteFile() error = %v, want ErrUnexpectedEOF", err)
	}
	if ok, _ := m.FileExists(dest); ok {
		t.Error("destination must not exist after a failed stream")
	}
	if exists, _ := afero.Exists(fs, dest+".downloading"); exists {
		t.Error("temp file must be removed after a failed stream")
	}
}

func TestManager_FileExists(t *testing.T) {
	m, fs := newTestManager(t)
	afero.WriteFile(fs, "/out/a.txt", []byte("a"), 0644)
	fs.MkdirAll("/out/dir.txt", 0755)

	tests := []struct {
		path string
		want bool
	}{
		{"/out/a.txt", true},
		{"/out/missing.txt", false},
		{"/out/dir.txt", false},
	}
	for _, tt := range tests {
		got, err := m.FileExists(tt.path)
		if err != nil {
			t.Errorf("FileExists(%s) error = %v", tt.path, err)
		}
		if got != tt.want {
			t.Errorf("FileExists(%s) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

// denyStatFs fails Stat for one path with a permission error
type denyStatFs struct {
	afero.Fs
	path string
}

func (d *denyStatFs) Stat(name string) (os.FileInfo, error) {
	if name == d.path {
		return nil, &os.PathError{Op: "stat", Path: name, Err: os.ErrPermission}
	}
	return d.Fs.Stat(name)
}

func TestManager_FileExists_StatError(t *testing.T) {
	fs := &denyStatFs{Fs: afero.NewMemMapFs(), path: "/out/locked.txt"}
	m, err := NewManagerWithFs(fs, "/out", 0)
	if err != nil {
		t.Fatal(err)
	}

	ok, err := m.FileExists("/out/locked.txt")
	if !errors.Is(err, os.ErrPermission) {
		t.Errorf("FileExists() error = %v, want ErrPermission", err)
	}
	if ok {
		t.Error("FileExists() = true on a stat failure")
	}
}

func TestManager_DoesNotCreateRootDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	m, err := NewManagerWithFs(fs, "/out", 0)
	if err != nil {
		t.Fatal(err)
	}
	if exists, _ := afero.DirExists(fs, "/out"); exists {
		t.Fatal("constructor must not create the output dir")
	}

	if ok, err := m.FileExists("/out/a.txt"); ok || err != nil {
		t.Errorf("FileExists() = %v, %v in a missing dir", ok, err)
	}
	if n, err := m.CleanTempFiles(); n != 0 || err != nil {
		t.Errorf("CleanTempFiles() = %d, %v in a missing dir", n, err)
	}
	if n, err := m.CountFiles(".txt"); n != 0 || err != nil {
		t.Errorf("CountFiles() = %d, %v in a missing dir", n, err)
	}
	if exists, _ := afero.DirExists(fs, "/out"); exists {
		t.Error("read-only calls must not create the output dir")
	}

	if err := m.EnsureRootDir(); err != nil {
		t.Fatalf("EnsureRootDir() error = %v", err)
	}
	if exists, _ := afero.DirExists(fs, "/out"); !exists {
		t.Error("EnsureRootDir() did not create the output dir")
	}
}

func TestNewManagerWithFs_EmptyRoot(t *testing.T) {
	if _, err := NewManagerWithFs(afero.NewMemMapFs(), "", 0); err == nil {
		t.Error("empty root dir should be rejected")
	}
}

func TestManager_CleanTempFiles(t *testing.T) {
	m, fs := newTestManager(t)
	afero.WriteFile(fs, "/out/a.txt", []byte("a"), 0644)
	afero.WriteFile(fs, "/out/b.txt.downloading", []byte("b"), 0644)
	afero.WriteFile(fs, "/out/nested/c.txt.downloading", []byte("c"), 0644)

	n, err := m.CleanTempFiles()
	if err != nil {
		t.Fatalf("CleanTempFiles() error = %v", err)
	}
	if n != 2 {
		t.Errorf("CleanTempFiles() = %d, want 2", n)
	}
	if exists, _ := afero.Exists(fs, "/out/a.txt"); !exists {
		t.Error("finished files must be kept")
	}
}

func TestManager_DeleteTempFile(t *testing.T) {
	m, fs := newTestManager(t)
	dest := filepath.Join("/out", "c.txt")
	afero.WriteFile(fs, dest+".downloading", []byte("c"), 0644)

	if err := m.DeleteTempFile(dest); err != nil {
		t.Fatalf("DeleteTempFile() error = %v", err)
	}
	if exists, _ := afero.Exists(fs, dest+".downloading"); exists {
		t.Error("temp file still exists")
	}
	if err := m.DeleteTempFile(dest); err != nil {
		t.Errorf("DeleteTempFile() on missing file error = %v", err)
	}
}

func TestManager_CountFiles(t *testing.T) {
	m, fs := newTestManager(t)
	afero.WriteFile(fs, "/out/a.txt", []byte("a"), 0644)
	afero.WriteFile(fs, "/out/b.txt", []byte("b"), 0644)
	afero.WriteFile(fs, "/out/c.txt.downloading", []byte("c"), 0644)

	n, err := m.CountFiles(".txt")
	if err != nil {
		t.Fatalf("CountFiles() error = %v", err)
	}
	if n != 2 {
		t.Errorf("CountFiles() = %d, want 2", n)
	}
}
