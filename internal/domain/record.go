package domain

import (
	"path/filepath"
	"strings"

	"github.com/vertextoedge/txtfetch/internal/domain/vo"
)

// DefaultExtension is appended to the slug when no extension is configured.
const DefaultExtension = ".txt"

// SourceRecord is one entry of a metadata file written by the scraper.
type SourceRecord struct {
	Title         string  `json:"title"`
	ContentURL    *string `json:"plaintextUrl,omitempty"`
	SourcePageURL string  `json:"pageUrl"`
}

// HasContent returns true if the record points at downloadable content.
func (r *SourceRecord) HasContent() bool {
	return r.ContentURL != nil && strings.TrimSpace(*r.ContentURL) != ""
}

// URL returns the content URL or an empty string.
func (r *SourceRecord) URL() string {
	if r.ContentURL == nil {
		return ""
	}
	return strings.TrimSpace(*r.ContentURL)
}

// DownloadTask is a record that passed validation and has a destination.
type DownloadTask struct {
	Title               string
	ContentURL          string
	DestinationFileName string
	DestinationPath     string
}

// NewDownloadTask derives the destination of a record inside dir.
// It returns ErrNoContentURL for records without content and ErrEmptySlug
// when the title has nothing to build a file name from.
func NewDownloadTask(rec *SourceRecord, dir, ext string) (*DownloadTask, error) {
	if rec == nil {
		return nil, ErrInvalidInput
	}
	slug, err := vo.NewSlug(rec.Title)
	if err != nil {
		return nil, err
	}
	if !rec.HasContent() {
		return nil, ErrNoContentURL
	}
	if ext == "" {
		ext = DefaultExtension
	}

	name := slug.String()
	return &DownloadTask{
		Title:               rec.Title,
		ContentURL:          rec.URL(),
		DestinationFileName: name,
		DestinationPath:     filepath.Join(dir, slug.FileName(ext)),
	}, nil
}

// TempPath returns the path the body is streamed to before the rename.
func (t *DownloadTask) TempPath() string {
	return t.DestinationPath + TempSuffix
}

// TempSuffix marks partially written files.
const TempSuffix = ".downloading"

// CatalogFile summarises one metadata file that was loaded.
type CatalogFile struct {
	Path    string
	Records int
}

// Catalog is the merged and deduplicated content of all metadata files.
type Catalog struct {
	Files []CatalogFile

	// Tasks holds downloadable records in first-seen order.
	Tasks []*DownloadTask

	// NotFound holds records the scraper marked as unavailable.
	NotFound []SourceRecord

	Duplicates int
	Invalid    int
}

// TotalRecords returns the number of records read across all files.
func (c *Catalog) TotalRecords() int {
	n := 0
	for _, f := range c.Files {
		n += f.Records
	}
	return n
}
