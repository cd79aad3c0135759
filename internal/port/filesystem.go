package port

import (
	"io"
)

// FileSystem defines the interface for destination filesystem operations
type FileSystem interface {
	// RootDir returns the output directory
	RootDir() string

	// DestinationPath returns the output path for a file name
	DestinationPath(fileName string) string

	// FileExists checks if a finished file exists at path.
	// A missing path is (false, nil); any other stat failure is an error.
	FileExists(path string) (bool, error)

	// WriteFile streams reader into path through a temp file that is
	// renamed into place only after the whole stream was written.
	// On error the temp file is removed and path is left untouched.
	// Returns: bytes written, error
	WriteFile(path string, reader io.Reader) (int64, error)

	// DeleteTempFile removes the temp file belonging to path
	DeleteTempFile(path string) error

	// CleanTempFiles removes leftover temp files below the root directory
	// Returns the number of files deleted
	CleanTempFiles() (int, error)
}
