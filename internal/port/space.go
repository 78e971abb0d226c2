package port

// SpaceCheckResult describes the cache against its budget
type SpaceCheckResult struct {
	HasSpace           bool
	AvailableBytes     int64
	CacheSizeBytes     int64
	MaxCacheSizeBytes  int64
	DiskUsedPct        float64
	MaxDiskUsagePct    float64
	LimitedByCacheSize bool
	LimitedByDiskUsage bool
}

// Overage returns how many bytes exceed the cache size limit, 0 when within it
func (r *SpaceCheckResult) Overage() int64 {
	if r.MaxCacheSizeBytes <= 0 || r.CacheSizeBytes <= r.MaxCacheSizeBytes {
		return 0
	}
	return r.CacheSizeBytes - r.MaxCacheSizeBytes
}

// SpaceManager decides whether the cache fits its configured budget.
// Eviction consults it; the download cache itself never does.
type SpaceManager interface {
	// Enabled reports whether any limit is configured
	Enabled() bool

	// CheckSpace reports whether incomingBytes more would still fit
	CheckSpace(incomingBytes int64) (*SpaceCheckResult, error)

	// HasSpace is CheckSpace reduced to its verdict
	HasSpace(incomingBytes int64) (bool, error)
}
