package maintenance

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/phygtl/ar-asset-cache/internal/locking"
	"github.com/phygtl/ar-asset-cache/internal/port"
	"github.com/phygtl/ar-asset-cache/internal/util/ratelimiter"
)

// ErrEvictionRateLimited is returned when an eviction pass ran too recently
var ErrEvictionRateLimited = errors.New("eviction rate-limited")

// UntrackedMinAge keeps files that are not indexed yet out of eviction
// while the download that moved them into place records them
const UntrackedMinAge = time.Minute

// Evictor removes least recently accessed files until the cache fits its budget.
// Deletion of an indexed file runs under the same per-identifier lock the
// download cache uses, so a file is never evicted mid-transfer.
type Evictor struct {
	entries port.CacheEntryRepository
	fs      port.CacheFileSystem
	space   port.SpaceManager
	locks   locking.Group
	limiter *ratelimiter.Limiter
	logger  *zap.Logger
}

// EvictionReport summarizes one eviction pass
type EvictionReport struct {
	EvictedCount int
	EvictedBytes int64
}

// NewEvictor creates a new Evictor
func NewEvictor(
	entries port.CacheEntryRepository,
	fs port.CacheFileSystem,
	space port.SpaceManager,
	locks locking.Group,
	limiter *ratelimiter.Limiter,
	logger *zap.Logger,
) *Evictor {
	if locks == nil {
		locks = locking.NewNoOpGroup()
	}
	return &Evictor{
		entries: entries,
		fs:      fs,
		space:   space,
		locks:   locks,
		limiter: limiter,
		logger:  logger,
	}
}

// TryEvict runs an eviction pass unless one ran within the limiter interval
func (e *Evictor) TryEvict(ctx context.Context) (*EvictionReport, error) {
	if !e.space.Enabled() {
		return &EvictionReport{}, nil
	}
	if ok, wait := e.limiter.Allow(); !ok {
		return nil, fmt.Errorf("%w: next eviction in %v", ErrEvictionRateLimited, wait)
	}
	return e.evictUntilSpace(ctx)
}

// evictUntilSpace evicts files until the cache fits
func (e *Evictor) evictUntilSpace(ctx context.Context) (*EvictionReport, error) {
	report := &EvictionReport{}

	for {
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
		}

		check, err := e.space.CheckSpace(0)
		if err != nil {
			return report, err
		}
		if check.HasSpace {
			if report.EvictedCount > 0 {
				e.logger.Info("eviction completed",
					zap.Int("evicted_count", report.EvictedCount),
					zap.Int64("evicted_bytes", report.EvictedBytes),
					zap.String("evicted_size", humanize.IBytes(uint64(report.EvictedBytes))))
			}
			return report, nil
		}
		if report.EvictedCount == 0 {
			e.logger.Info("cache over budget, evicting",
				zap.String("overage", humanize.IBytes(uint64(check.Overage()))),
				zap.Float64("disk_used_pct", check.DiskUsedPct),
				zap.Bool("limited_by_disk_usage", check.LimitedByDiskUsage))
		}

		candidates, err := e.entries.GetEvictionCandidates(1)
		if err != nil {
			return report, fmt.Errorf("failed to get eviction candidates: %w", err)
		}

		if len(candidates) == 0 {
			// Files on disk that were never indexed go oldest first
			evicted, err := e.evictUntracked()
			if err != nil {
				return report, err
			}
			report.EvictedCount++
			report.EvictedBytes += evicted
			continue
		}

		entry := candidates[0]
		path := filepath.Join(e.fs.RootDir(), entry.FileName)

		_, err = e.locks.DoWithLock(entry.URL, func() (any, error) {
			if err := e.fs.Remove(path); err != nil {
				return nil, err
			}
			return nil, e.entries.DeleteEntry(entry.FileName)
		})
		if err != nil {
			return report, fmt.Errorf("failed to evict %s: %w", entry.FileName, err)
		}

		report.EvictedCount++
		report.EvictedBytes += entry.Size
		e.logger.Debug("file evicted",
			zap.String("url", entry.URL),
			zap.String("file", path),
			zap.Int64("bytes", entry.Size))
	}
}

func (e *Evictor) evictUntracked() (int64, error) {
	files, err := e.fs.ListEntries()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-UntrackedMinAge)
	candidates := files[:0]
	for _, f := range files {
		if f.ModTime.Before(cutoff) {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		cacheSize, _ := e.fs.GetCacheSize()
		e.logger.Warn("no eviction candidates - disk may be full with non-cache files",
			zap.Int("recent_untracked_files", len(files)),
			zap.Int64("cache_size_bytes", cacheSize))
		return 0, fmt.Errorf("no eviction candidates available (cache has no files to evict)")
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ModTime.Before(candidates[j].ModTime) })
	oldest := candidates[0]
	if err := e.fs.Remove(oldest.Path); err != nil {
		return 0, fmt.Errorf("failed to evict %s: %w", oldest.Name, err)
	}

	e.logger.Debug("untracked file evicted",
		zap.String("file", oldest.Path),
		zap.Int64("bytes", oldest.Size))
	return oldest.Size, nil
}
