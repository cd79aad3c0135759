package port

import (
	"context"
	"io"
)

// ContentClient fetches remote content
type ContentClient interface {
	// Fetch issues a GET for url and returns the response body.
	// A non-2xx response is returned as *domain.HTTPStatusError.
	// The caller must close the body.
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}
