package domain

import (
	"errors"
	"fmt"

	"github.com/vertextoedge/txtfetch/internal/domain/vo"
)

// Common domain errors
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")

	// Record errors
	ErrNoContentURL = errors.New("record has no content url")
	ErrEmptySlug    = vo.ErrEmptySlug
)

// ConfigurationError is raised before any download starts: a missing
// metadata directory, an unreadable metadata file or an invalid setting.
// It is always fatal for the run.
type ConfigurationError struct {
	Path string
	Err  error
}

// Error returns the error message
func (e *ConfigurationError) Error() string {
	if e.Path != "" {
		if e.Err != nil {
			return "configuration: " + e.Path + ": " + e.Err.Error()
		}
		return "configuration: " + e.Path
	}
	if e.Err != nil {
		return "configuration: " + e.Err.Error()
	}
	return "configuration error"
}

// Unwrap returns the underlying error
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(path string, err error) *ConfigurationError {
	return &ConfigurationError{Path: path, Err: err}
}

// IsConfigurationError returns true if err is or wraps a ConfigurationError
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// HTTPStatusError is returned when the server answers with a non-2xx status.
// It is never retried.
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Status     string
}

// Error returns the error message
func (e *HTTPStatusError) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d", e.StatusCode)
	}
	return fmt.Sprintf("GET %s: unexpected status %s", e.URL, status)
}

// IsHTTPStatusError returns true if err is or wraps an HTTPStatusError
func IsHTTPStatusError(err error) bool {
	var he *HTTPStatusError
	return errors.As(err, &he)
}

// TaskError is the permanent failure of one download task. It wraps the
// last error returned by the transport or the filesystem.
type TaskError struct {
	Slug     string
	URL      string
	Attempts int
	Err      error
}

// Error returns the error message
func (e *TaskError) Error() string {
	msg := fmt.Sprintf("download %s", e.Slug)
	if e.Attempts > 1 {
		msg += fmt.Sprintf(" (after %d attempts)", e.Attempts)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *TaskError) Unwrap() error {
	return e.Err
}

// NewTaskError creates a new task error
func NewTaskError(task *DownloadTask, attempts int, err error) *TaskError {
	te := &TaskError{Attempts: attempts, Err: err}
	if task != nil {
		te.Slug = task.DestinationFileName
		te.URL = task.ContentURL
	}
	return te
}

// IsTaskError returns true if err is or wraps a TaskError
func IsTaskError(err error) bool {
	var te *TaskError
	return errors.As(err, &te)
}
