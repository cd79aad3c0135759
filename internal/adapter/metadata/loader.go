package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/vertextoedge/txtfetch/internal/domain"
	"github.com/vertextoedge/txtfetch/internal/domain/vo"
	"github.com/vertextoedge/txtfetch/internal/port"
)

// DefaultMarker identifies metadata files written by the scraper.
const DefaultMarker = "scraped_ebooks.json"

// Config holds loader configuration
type Config struct {
	// Dir is the directory holding metadata files
	Dir string

	// Marker is the substring a file name must contain to be loaded
	Marker string

	// OutputDir and Extension decide each task's destination
	OutputDir string
	Extension string
}

// Loader reads metadata files and merges them into a Catalog
type Loader struct {
	fs     afero.Fs
	cfg    Config
	logger *zap.Logger
}

// Ensure Loader implements port.CatalogLoader
var _ port.CatalogLoader = (*Loader)(nil)

// New creates a new Loader
func New(fs afero.Fs, cfg Config, logger *zap.Logger) *Loader {
	if cfg.Marker == "" {
		cfg.Marker = DefaultMarker
	}
	if cfg.Extension == "" {
		cfg.Extension = domain.DefaultExtension
	}
	return &Loader{fs: fs, cfg: cfg, logger: logger}
}

// Discover lists metadata files in lexical order
func (l *Loader) Discover() ([]string, error) {
	info, err := l.fs.Stat(l.cfg.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.NewConfigurationError(l.cfg.Dir, domain.ErrNotFound)
		}
		return nil, domain.NewConfigurationError(l.cfg.Dir, err)
	}
	if !info.IsDir() {
		return nil, domain.NewConfigurationError(l.cfg.Dir, fmt.Errorf("not a directory: %w", domain.ErrInvalidInput))
	}

	entries, err := afero.ReadDir(l.fs, l.cfg.Dir)
	if err != nil {
		return nil, domain.NewConfigurationError(l.cfg.Dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.Mode().IsRegular() && strings.Contains(e.Name(), l.cfg.Marker) {
			paths = append(paths, filepath.Join(l.cfg.Dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Load parses the given files and merges their records.
// Records are keyed by slug and the first one seen wins.
func (l *Loader) Load(paths ...string) (*domain.Catalog, error) {
	catalog := &domain.Catalog{}
	seen := make(map[string]struct{})

	for _, path := range paths {
		records, err := l.readFile(path)
		if err != nil {
			return nil, err
		}
		catalog.Files = append(catalog.Files, domain.CatalogFile{Path: path, Records: len(records)})
		l.logger.Debug("Loaded metadata file",
			zap.String("path", path),
			zap.Int("records", len(records)))

		for i := range records {
			rec := records[i]
			if !rec.HasContent() {
				catalog.NotFound = append(catalog.NotFound, rec)
				continue
			}

			task, err := domain.NewDownloadTask(&rec, l.cfg.OutputDir, l.cfg.Extension)
			if err != nil {
				if errors.Is(err, vo.ErrEmptySlug) {
					catalog.Invalid++
					l.logger.Debug("Skipping record without usable title",
						zap.String("path", path),
						zap.String("title", rec.Title))
					continue
				}
				return nil, fmt.Errorf("record %q in %s: %w", rec.Title, path, err)
			}

			if _, dup := seen[task.DestinationFileName]; dup {
				catalog.Duplicates++
				continue
			}
			seen[task.DestinationFileName] = struct{}{}
			catalog.Tasks = append(catalog.Tasks, task)
		}
	}

	return catalog, nil
}

// LoadDir discovers and loads every metadata file
func (l *Loader) LoadDir() (*domain.Catalog, error) {
	paths, err := l.Discover()
	if err != nil {
		return nil, err
	}
	return l.Load(paths...)
}

func (l *Loader) readFile(path string) ([]domain.SourceRecord, error) {
	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, domain.NewConfigurationError(path, err)
	}

	var records []domain.SourceRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, domain.NewConfigurationError(path, fmt.Errorf("parse metadata: %w", err))
	}
	return records, nil
}

// NotFoundFileName returns the report file name for the given day,
// e.g. "2024-3-7_scraped_ebooks_not_found.json".
func (l *Loader) NotFoundFileName(day time.Time) string {
	base := strings.TrimSuffix(l.cfg.Marker, filepath.Ext(l.cfg.Marker))
	return fmt.Sprintf("%d-%d-%d_%s_not_found.json", day.Year(), int(day.Month()), day.Day(), base)
}

// WriteNotFound writes the records without content as an indented JSON
// array next to the metadata files. Returns the path written.
func (l *Loader) WriteNotFound(records []domain.SourceRecord, day time.Time) (string, error) {
	if records == nil {
		records = []domain.SourceRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode not found records: %w", err)
	}

	if err := l.fs.MkdirAll(l.cfg.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create metadata dir: %w", err)
	}

	path := filepath.Join(l.cfg.Dir, l.NotFoundFileName(day))
	if err := afero.WriteFile(l.fs, path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write not found records: %w", err)
	}
	return path, nil
}
