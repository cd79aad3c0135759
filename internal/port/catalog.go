package port

import (
	"github.com/vertextoedge/txtfetch/internal/domain"
)

// CatalogLoader reads and deduplicates the scraper's metadata files
type CatalogLoader interface {
	// LoadDir discovers and loads every metadata file
	LoadDir() (*domain.Catalog, error)
}
