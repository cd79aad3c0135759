package metadata

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/vertextoedge/txtfetch/internal/domain"
)

const metaDir = "/data/scraped-ebooks"

func newTestLoader(t *testing.T, files map[string]string) (*Loader, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	if err := fs.MkdirAll(metaDir, 0755); err != nil {
		t.Fatal(err)
	}
	for name, content := range files {
		if err := afero.WriteFile(fs, filepath.Join(metaDir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	l := New(fs, Config{Dir: metaDir, OutputDir: "/data/txt-ebooks"}, zap.NewNop())
	return l, fs
}

func slugs(tasks []*domain.DownloadTask) []string {
	out := make([]string, len(tasks))
	for i, task := range tasks {
		out[i] = task.DestinationFileName
	}
	return out
}

func TestLoader_Discover(t *testing.T) {
	l, fs := newTestLoader(t, map[string]string{
		"2024-3-7_scraped_ebooks.json":           "[]",
		"2024-1-2_scraped_ebooks.json":           "[]",
		"2024-1-2_scraped_ebooks_not_found.json": "[]",
		"notes.txt":                              "",
	})
	fs.MkdirAll(filepath.Join(metaDir, "old_scraped_ebooks.json"), 0755)

	paths, err := l.Discover()
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	want := []string{
		filepath.Join(metaDir, "2024-1-2_scraped_ebooks.json"),
		filepath.Join(metaDir, "2024-3-7_scraped_ebooks.json"),
	}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("Discover() = %v, want %v", paths, want)
	}
}

func TestLoader_Discover_MissingDir(t *testing.T) {
	l := New(afero.NewMemMapFs(), Config{Dir: "/nope"}, zap.NewNop())

	_, err := l.Discover()
	if !domain.IsConfigurationError(err) {
		t.Fatalf("Discover() error = %v, want ConfigurationError", err)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Discover() error = %v, want ErrNotFound", err)
	}
}

func TestLoader_LoadDir_FirstSeenWins(t *testing.T) {
	l, _ := newTestLoader(t, map[string]string{
		"a_scraped_ebooks.json": `[
			{"title": "The Odyssey!", "plaintextUrl": "https://example.org/first.txt", "pageUrl": "p1"},
			{"title": "Emma", "plaintextUrl": "https://example.org/emma.txt", "pageUrl": "p2"}
		]`,
		"b_scraped_ebooks.json": `[
			{"title": "The   Odyssey", "plaintextUrl": "https://example.org/second.txt", "pageUrl": "p3"},
			{"title": "Dracula", "plaintextUrl": "https://example.org/dracula.txt", "pageUrl": "p4"}
		]`,
	})

	catalog, err := l.LoadDir()
	if err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}

	if got := slugs(catalog.Tasks); !reflect.DeepEqual(got, []string{"the-odyssey", "emma", "dracula"}) {
		t.Errorf("task slugs = %v", got)
	}
	if catalog.Tasks[0].ContentURL != "https://example.org/first.txt" {
		t.Errorf("first-seen record should win, got %s", catalog.Tasks[0].ContentURL)
	}
	if catalog.Duplicates != 1 {
		t.Errorf("Duplicates = %d, want 1", catalog.Duplicates)
	}
	if catalog.TotalRecords() != 4 || len(catalog.Files) != 2 {
		t.Errorf("Files = %+v", catalog.Files)
	}
	if want := filepath.Join("/data/txt-ebooks", "dracula.txt"); catalog.Tasks[2].DestinationPath != want {
		t.Errorf("DestinationPath = %s, want %s", catalog.Tasks[2].DestinationPath, want)
	}
}

func TestLoader_Load_NotFoundAndInvalid(t *testing.T) {
	l, _ := newTestLoader(t, map[string]string{
		"x_scraped_ebooks.json": `[
			{"title": "Lost Book", "pageUrl": "p1"},
			{"title": "Empty Link", "plaintextUrl": "", "pageUrl": "p2"},
			{"title": "1984", "plaintextUrl": "https://example.org/1984.txt", "pageUrl": "p3"},
			{"title": "Lost Book", "plaintextUrl": "https://example.org/lost.txt", "pageUrl": "p4"}
		]`,
	})

	catalog, err := l.LoadDir()
	if err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}
	if len(catalog.NotFound) != 2 {
		t.Errorf("NotFound = %d, want 2", len(catalog.NotFound))
	}
	if catalog.Invalid != 1 {
		t.Errorf("Invalid = %d, want 1", catalog.Invalid)
	}
	// A record without content does not claim its slug.
	if got := slugs(catalog.Tasks); !reflect.DeepEqual(got, []string{"lost-book"}) {
		t.Errorf("task slugs = %v", got)
	}
}

func TestLoader_Load_ParseErrorIsFatal(t *testing.T) {
	l, _ := newTestLoader(t, map[string]string{
		"a_scraped_ebooks.json": `[{"title": "Emma", "plaintextUrl": "u", "pageUrl": "p"}]`,
		"b_scraped_ebooks.json": `{not json`,
	})

	_, err := l.LoadDir()
	var ce *domain.ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("LoadDir() error = %v, want ConfigurationError", err)
	}
	if ce.Path != filepath.Join(metaDir, "b_scraped_ebooks.json") {
		t.Errorf("ConfigurationError.Path = %s", ce.Path)
	}
}

func TestLoader_WriteNotFound(t *testing.T) {
	l, fs := newTestLoader(t, nil)
	day := time.Date(2024, 3, 7, 15, 0, 0, 0, time.UTC)
	records := []domain.SourceRecord{{Title: "Lost Book", SourcePageURL: "p1"}}

	path, err := l.WriteNotFound(records, day)
	if err != nil {
		t.Fatalf("WriteNotFound() error = %v", err)
	}
	if want := filepath.Join(metaDir, "2024-3-7_scraped_ebooks_not_found.json"); path != want {
		t.Errorf("path = %s, want %s", path, want)
	}

	data, _ := afero.ReadFile(fs, path)
	var got []domain.SourceRecord
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("report is not JSON: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Lost Book" || got[0].ContentURL != nil {
		t.Errorf("report = %+v", got)
	}

	// The report must not be picked up as a metadata file.
	paths, _ := l.Discover()
	if len(paths) != 0 {
		t.Errorf("Discover() = %v, want none", paths)
	}
}
