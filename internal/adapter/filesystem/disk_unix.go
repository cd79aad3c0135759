//go:build !windows

package filesystem

import (
	"fmt"
	"syscall"
)

// DiskUsage represents disk usage statistics
type DiskUsage struct {
	Total uint64 // Total disk space in bytes
	Free  uint64 // Free disk space in bytes
}

// DiskUsage returns usage of the disk holding the output directory.
// It reads the OS filesystem regardless of the afero backend.
func (m *Manager) DiskUsage() (*DiskUsage, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(m.rootDir, &stat); err != nil {
		return nil, fmt.Errorf("failed to get disk stats: %w", err)
	}

	return &DiskUsage{
		Total: stat.Blocks * uint64(stat.Bsize),
		Free:  stat.Bavail * uint64(stat.Bsize),
	}, nil
}
