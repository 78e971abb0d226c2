//go:build !windows

package filesystem

import (
	"fmt"
	"syscall"

	"github.com/phygtl/ar-asset-cache/internal/port"
)

// GetDiskUsage returns disk usage for the volume holding the cache.
// Before the root exists the nearest existing parent is used.
func (m *Manager) GetDiskUsage() (*port.DiskUsage, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(m.existingAncestor(), &stat); err != nil {
		return nil, fmt.Errorf("failed to get disk stats: %w", err)
	}

	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bavail * uint64(stat.Bsize)
	used := total - free

	usedPct := 0.0
	if total > 0 {
		usedPct = float64(used) / float64(total) * 100
	}

	return &port.DiskUsage{
		Total:   total,
		Used:    used,
		Free:    free,
		UsedPct: usedPct,
	}, nil
}
