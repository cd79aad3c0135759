package filesystem

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/vertextoedge/txtfetch/internal/domain"
	"github.com/vertextoedge/txtfetch/internal/port"
)

// DefaultBufferSize is the copy buffer used when streaming a body to disk.
const DefaultBufferSize = 256 * 1024

// Manager handles output directory operations
type Manager struct {
	fs         afero.Fs
	rootDir    string
	bufferSize int
}

// Ensure Manager implements port.FileSystem
var _ port.FileSystem = (*Manager)(nil)

// NewManager creates a new filesystem manager on the OS filesystem
func NewManager(rootDir string) (*Manager, error) {
	return NewManagerWithFs(afero.NewOsFs(), rootDir, DefaultBufferSize)
}

// NewManagerWithFs creates a new filesystem manager on fs with a custom buffer size.
// The output directory is not created here; see EnsureRootDir.
func NewManagerWithFs(fs afero.Fs, rootDir string, bufferSize int) (*Manager, error) {
	if rootDir == "" {
		return nil, fmt.Errorf("output dir is required: %w", domain.ErrInvalidInput)
	}

	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	return &Manager{
		fs:         fs,
		rootDir:    rootDir,
		bufferSize: bufferSize,
	}, nil
}

// EnsureRootDir creates the output directory if it does not exist
func (m *Manager) EnsureRootDir() error {
	if err := m.fs.MkdirAll(m.rootDir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	return nil
}

// RootDir returns the output directory
func (m *Manager) RootDir() string {
	return m.rootDir
}

// DestinationPath returns the output path for a file name
func (m *Manager) DestinationPath(fileName string) string {
	return filepath.Join(m.rootDir, fileName)
}

// FileExists checks if a finished file exists.
// Only a missing path counts as absent; other stat errors are returned.
func (m *Manager) FileExists(path string) (bool, error) {
	info, err := m.fs.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return !info.IsDir(), nil
}

// WriteFile streams reader to path + ".downloading" and renames it into place
func (m *Manager) WriteFile(path string, reader io.Reader) (int64, error) {
	if err := m.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, fmt.Errorf("failed to create parent dir: %w", err)
	}

	tempPath := path + domain.TempSuffix
	f, err := m.fs.Create(tempPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}

	buf := make([]byte, m.bufferSize)
	written, err := io.CopyBuffer(f, reader, buf)
	if err != nil {
		f.Close()
		m.fs.Remove(tempPath)
		return written, fmt.Errorf("failed to write file: %w", err)
	}

	if err := f.Close(); err != nil {
		m.fs.Remove(tempPath)
		return written, fmt.Errorf("failed to close file: %w", err)
	}

	if err := m.fs.Rename(tempPath, path); err != nil {
		m.fs.Remove(tempPath)
		return written, fmt.Errorf("failed to rename temp file: %w", err)
	}

	return written, nil
}

// DeleteTempFile removes the temp file belonging to path
func (m *Manager) DeleteTempFile(path string) error {
	if !strings.HasSuffix(path, domain.TempSuffix) {
		path += domain.TempSuffix
	}
	if err := m.fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete temp file: %w", err)
	}
	return nil
}

// CleanTempFiles removes temp files left behind by interrupted runs
func (m *Manager) CleanTempFiles() (int, error) {
	if exists, err := afero.DirExists(m.fs, m.rootDir); err != nil || !exists {
		return 0, err
	}

	count := 0
	err := afero.Walk(m.fs, m.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(path, domain.TempSuffix) {
			if removeErr := m.fs.Remove(path); removeErr == nil {
				count++
			}
		}
		return nil
	})
	return count, err
}

// CountFiles returns the number of finished files with the given extension
func (m *Manager) CountFiles(ext string) (int, error) {
	entries, err := afero.ReadDir(m.fs, m.rootDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	count := 0
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ext {
			count++
		}
	}
	return count, nil
}
