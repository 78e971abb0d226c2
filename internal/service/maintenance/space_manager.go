package maintenance

import (
	"github.com/phygtl/ar-asset-cache/internal/port"
)

// SpaceManager checks the cache against its size and disk usage budget.
// A zero maxCacheSize or maxDiskUsagePct disables that limit.
type SpaceManager struct {
	fs              port.CacheFileSystem
	maxCacheSize    int64
	maxDiskUsagePct float64
}

// NewSpaceManager creates a new SpaceManager
func NewSpaceManager(fs port.CacheFileSystem, maxCacheSize int64, maxDiskUsagePct float64) *SpaceManager {
	return &SpaceManager{
		fs:              fs,
		maxCacheSize:    maxCacheSize,
		maxDiskUsagePct: maxDiskUsagePct,
	}
}

// Enabled reports whether any limit is configured
func (sm *SpaceManager) Enabled() bool {
	return sm.maxCacheSize > 0 || sm.maxDiskUsagePct > 0
}

// CheckSpace checks if incomingBytes more would still fit the budget
func (sm *SpaceManager) CheckSpace(incomingBytes int64) (*port.SpaceCheckResult, error) {
	result := &port.SpaceCheckResult{
		MaxCacheSizeBytes: sm.maxCacheSize,
		MaxDiskUsagePct:   sm.maxDiskUsagePct,
	}

	cacheSize, err := sm.fs.GetCacheSize()
	if err != nil {
		return nil, err
	}
	result.CacheSizeBytes = cacheSize

	if sm.maxCacheSize > 0 {
		result.AvailableBytes = sm.maxCacheSize - cacheSize
		if cacheSize+incomingBytes > sm.maxCacheSize {
			result.LimitedByCacheSize = true
			return result, nil
		}
	}

	if sm.maxDiskUsagePct > 0 {
		usage, err := sm.fs.GetDiskUsage()
		if err != nil {
			return nil, err
		}
		result.DiskUsedPct = usage.UsedPct

		if usage.UsedPct >= sm.maxDiskUsagePct {
			result.LimitedByDiskUsage = true
			return result, nil
		}

		// Check if adding the bytes would exceed the disk limit
		if usage.Total > 0 {
			newUsedPct := float64(usage.Used+uint64(incomingBytes)) / float64(usage.Total) * 100
			if newUsedPct >= sm.maxDiskUsagePct {
				result.LimitedByDiskUsage = true
				return result, nil
			}
		}
	}

	result.HasSpace = true
	return result, nil
}

// HasSpace returns true if incomingBytes more would still fit
func (sm *SpaceManager) HasSpace(incomingBytes int64) (bool, error) {
	result, err := sm.CheckSpace(incomingBytes)
	if err != nil {
		return false, err
	}
	return result.HasSpace, nil
}

// Ensure SpaceManager implements port.SpaceManager
var _ port.SpaceManager = (*SpaceManager)(nil)
