package fetcher

import (
	"context"
	"errors"
	"io/fs"
	"net"
	"net/url"
	"os"

	"github.com/vertextoedge/txtfetch/internal/domain"
	"github.com/vertextoedge/txtfetch/internal/util/retry"
)

// Error kinds used in logs and the run ledger
const (
	KindConfiguration         = "configuration"
	KindRetryableTransport    = "retryable_transport"
	KindNonRetryableTransport = "non_retryable_transport"
	KindHTTPStatus            = "http_status"
	KindFilesystem            = "filesystem"
	KindCanceled              = "canceled"
	KindUnknown               = "unknown"
)

// ErrorKind classifies an error for reporting
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}

	var pathErr *fs.PathError
	var linkErr *os.LinkError
	var urlErr *url.Error
	var opErr *net.OpError

	switch {
	case domain.IsConfigurationError(err):
		return KindConfiguration
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case domain.IsHTTPStatusError(err):
		return KindHTTPStatus
	case retry.IsRetryableTransport(err):
		return KindRetryableTransport
	case errors.As(err, &urlErr), errors.As(err, &opErr):
		return KindNonRetryableTransport
	case errors.As(err, &pathErr), errors.As(err, &linkErr):
		return KindFilesystem
	}
	return KindUnknown
}
