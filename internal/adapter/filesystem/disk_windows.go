//go:build windows

package filesystem

import "errors"

// DiskUsage represents disk usage statistics
type DiskUsage struct {
	Total uint64
	Free  uint64
}

// DiskUsage is not implemented on windows.
func (m *Manager) DiskUsage() (*DiskUsage, error) {
	return nil, errors.New("disk usage not supported on windows")
}
