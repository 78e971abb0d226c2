// Package downloadcache retrieves remote assets into a flat local cache
// directory, downloading only when the local copy is missing or its size
// differs from the size the remote reports.
package downloadcache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/phygtl/ar-asset-cache/internal/domain"
	"github.com/phygtl/ar-asset-cache/internal/locking"
	"github.com/phygtl/ar-asset-cache/internal/metrics"
	"github.com/phygtl/ar-asset-cache/internal/port"
	"github.com/phygtl/ar-asset-cache/internal/util/ratelimiter"
)

// DefaultUnknownSizeProgress is reported once when the remote does not
// announce a length
const DefaultUnknownSizeProgress = 0.5

// HeadersReadyFunc is called once the remote responded with a success
// status, before any progress is reported
type HeadersReadyFunc func()

// ProgressFunc receives the transfer fraction in [0, 1]
type ProgressFunc func(fraction float64)

// Config holds download cache settings
type Config struct {
	// UnknownSizeProgress is reported after the first chunk when the
	// remote length is unknown
	UnknownSizeProgress float64

	// ProgressLogInterval throttles debug progress log lines
	ProgressLogInterval time.Duration
}

// Cache retrieves remote identifiers into the cache directory
type Cache struct {
	config   Config
	fetcher  port.Fetcher
	fs       port.CacheFileSystem
	locks    locking.Group
	recorder port.DownloadRecorder
	latency  *metrics.LatencyTracker
	logger   *zap.Logger
}

// New creates a new Cache. locks may be nil to disable coalescing; recorder
// and latency are optional.
func New(
	cfg Config,
	fetcher port.Fetcher,
	fs port.CacheFileSystem,
	locks locking.Group,
	recorder port.DownloadRecorder,
	latency *metrics.LatencyTracker,
	logger *zap.Logger,
) *Cache {
	if cfg.UnknownSizeProgress <= 0 || cfg.UnknownSizeProgress >= 1 {
		cfg.UnknownSizeProgress = DefaultUnknownSizeProgress
	}
	if cfg.ProgressLogInterval == 0 {
		cfg.ProgressLogInterval = 5 * time.Second
	}
	if locks == nil {
		locks = locking.NewNoOpGroup()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		config:   cfg,
		fetcher:  fetcher,
		fs:       fs,
		locks:    locks,
		recorder: recorder,
		latency:  latency,
		logger:   logger,
	}
}

// IsCached reports whether a file for identifier exists in the cache and
// returns the path it would have. It performs no network access.
func (c *Cache) IsCached(identifier string) (bool, string) {
	path := c.fs.CachePath(identifier)
	_, exists, err := c.fs.Stat(path)
	if err != nil {
		c.logger.Debug("cache probe failed",
			zap.String("url", identifier),
			zap.Error(err))
		return false, path
	}
	return exists, path
}

// RetrieveOrDownload returns the local copy of identifier, downloading it
// when the cached file is missing or has a different size than the
// remote reports. Callbacks run on the calling goroutine; onHeadersReady
// fires once before any progress and onProgress ends with exactly 1.0
// on a download. Every failure is folded into the returned result.
//
// The per-identifier lock is taken once the remote answered, so a failed
// request never touches the cache directory. Concurrent callers of the
// same identifier then serialize on the hit check and the write.
func (c *Cache) RetrieveOrDownload(
	ctx context.Context,
	identifier string,
	onHeadersReady HeadersReadyFunc,
	onProgress ProgressFunc,
) domain.DownloadResult {
	if identifier == "" {
		return domain.NewFailedResult(identifier, domain.ErrEmptyIdentifier)
	}

	start := time.Now()

	obj, err := c.fetcher.Fetch(ctx, identifier)
	if err != nil {
		c.logger.Warn("remote request failed",
			zap.String("url", identifier),
			zap.Error(err))
		c.recordFailure(identifier, "", err, time.Since(start))
		return domain.NewFailedResult(identifier, err)
	}
	defer obj.Body.Close()

	if onHeadersReady != nil {
		onHeadersReady()
	}

	v, err := c.locks.DoWithLock(identifier, func() (any, error) {
		return c.retrieveLocked(identifier, obj, start, onProgress), nil
	})
	if err != nil {
		c.logger.Warn("failed to acquire download lock",
			zap.String("url", identifier),
			zap.Error(err))
		c.recordFailure(identifier, "", err, time.Since(start))
		return domain.NewFailedResult(identifier, err)
	}
	return v.(domain.DownloadResult)
}

// retrieveLocked runs the hit check and the transfer under the identifier lock
func (c *Cache) retrieveLocked(
	identifier string,
	obj *port.RemoteObject,
	start time.Time,
	onProgress ProgressFunc,
) domain.DownloadResult {
	localPath := c.fs.CachePath(identifier)
	fileName := filepath.Base(localPath)
	total := obj.ContentLength

	size, exists, err := c.fs.Stat(localPath)
	if err != nil {
		c.logger.Warn("failed to stat cached file, downloading again",
			zap.String("file", localPath),
			zap.Error(err))
		exists = false
	}

	if exists && (total < 0 || size == total) {
		elapsed := time.Since(start)
		c.logger.Debug("cache hit",
			zap.String("url", identifier),
			zap.String("file", localPath),
			zap.Int64("bytes", size))
		c.latency.Record(metrics.OpHit, elapsed)
		if c.recorder != nil {
			if err := c.recorder.RecordHit(identifier, fileName, size, elapsed); err != nil {
				c.logger.Warn("failed to record cache hit", zap.String("url", identifier), zap.Error(err))
			}
		}
		return domain.NewCachedResult(identifier, localPath)
	}

	if exists {
		c.logger.Info("cached file size mismatch, downloading again",
			zap.String("url", identifier),
			zap.Int64("local_bytes", size),
			zap.Int64("remote_bytes", total))
	}

	written, err := c.stream(identifier, obj.Body, localPath, total, onProgress)
	if err != nil {
		c.removeQuietly(c.fs.PartialPath(localPath))
		if exists {
			// The size mismatch already proved the old copy invalid
			c.removeQuietly(localPath)
		}
		elapsed := time.Since(start)
		c.logger.Warn("download failed",
			zap.String("url", identifier),
			zap.String("file", localPath),
			zap.Int64("bytes", written),
			zap.Duration("duration", elapsed),
			zap.Error(err))
		c.recordFailure(identifier, fileName, err, elapsed)
		return domain.NewFailedResult(identifier, err)
	}

	if onProgress != nil {
		onProgress(1.0)
	}

	elapsed := time.Since(start)
	c.logger.Info("file cached",
		zap.String("url", identifier),
		zap.String("file", localPath),
		zap.Int64("bytes", written),
		zap.String("size", humanize.IBytes(uint64(written))),
		zap.Duration("duration", elapsed))
	c.latency.Record(metrics.OpDownload, elapsed)
	if c.recorder != nil {
		if err := c.recorder.RecordDownload(identifier, fileName, written, elapsed); err != nil {
			c.logger.Warn("failed to record download", zap.String("url", identifier), zap.Error(err))
		}
	}

	return domain.NewDownloadedResult(identifier, localPath, written)
}

func (c *Cache) removeQuietly(path string) {
	if err := c.fs.Remove(path); err != nil {
		c.logger.Warn("failed to remove partial file",
			zap.String("file", path),
			zap.Error(err))
	}
}

// stream copies body into the hidden partial file of localPath and moves
// it into place once complete. It returns the number of bytes written.
func (c *Cache) stream(identifier string, body io.Reader, localPath string, total int64, onProgress ProgressFunc) (int64, error) {
	if err := c.fs.EnsureRoot(); err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrLocalWrite, err)
	}

	partialPath := c.fs.PartialPath(localPath)
	w, err := c.fs.Create(partialPath)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrLocalWrite, err)
	}

	pr := &progressReader{
		reader:          body,
		total:           total,
		unknownProgress: c.config.UnknownSizeProgress,
		onProgress:      onProgress,
		logLimiter:      ratelimiter.New(c.config.ProgressLogInterval),
		logger:          c.logger.With(zap.String("url", identifier)),
	}

	written, err := copyBuffer(w, pr, make([]byte, BufferSize(total)))
	if closeErr := w.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("%w: %v", domain.ErrLocalWrite, closeErr)
	}
	if err != nil {
		return written, err
	}

	if total >= 0 && written != total {
		return written, fmt.Errorf("%w: received %d of %d bytes", domain.ErrIncompleteTransfer, written, total)
	}

	if err := c.fs.Rename(partialPath, localPath); err != nil {
		return written, fmt.Errorf("%w: %v", domain.ErrLocalWrite, err)
	}
	return written, nil
}

// copyBuffer is io.CopyBuffer without the WriterTo/ReaderFrom shortcuts,
// so every chunk goes through the progress reader with the chosen buffer
func copyBuffer(dst io.Writer, src io.Reader, buf []byte) (int64, error) {
	var written int64
	for {
		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := dst.Write(buf[:nr])
			if nw > 0 {
				written += int64(nw)
			}
			if werr != nil {
				return written, fmt.Errorf("%w: %v", domain.ErrLocalWrite, werr)
			}
			if nw != nr {
				return written, fmt.Errorf("%w: %v", domain.ErrLocalWrite, io.ErrShortWrite)
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return written, nil
			}
			return written, fmt.Errorf("read body: %w", rerr)
		}
	}
}

func (c *Cache) recordFailure(identifier, fileName string, err error, elapsed time.Duration) {
	c.latency.Record(metrics.OpFailure, elapsed)
	if c.recorder == nil {
		return
	}
	if recErr := c.recorder.RecordFailure(identifier, fileName, err.Error(), elapsed); recErr != nil {
		c.logger.Warn("failed to record download failure",
			zap.String("url", identifier),
			zap.Error(recErr))
	}
}

// progressReader wraps a body to report transfer progress after each chunk
type progressReader struct {
	reader          io.Reader
	total           int64
	read            int64
	unknownProgress float64
	unknownReported bool
	onProgress      ProgressFunc
	logLimiter      *ratelimiter.Limiter
	logger          *zap.Logger
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n <= 0 {
		return n, err
	}
	r.read += int64(n)

	if r.onProgress != nil {
		if r.total > 0 {
			fraction := float64(r.read) / float64(r.total)
			if fraction > 1 {
				fraction = 1
			}
			r.onProgress(fraction)
		} else if !r.unknownReported {
			r.unknownReported = true
			r.onProgress(r.unknownProgress)
		}
	}

	if ok, _ := r.logLimiter.Allow(); ok {
		r.logger.Debug("download progress",
			zap.Int64("bytes", r.read),
			zap.Int64("total", r.total))
	}

	return n, err
}
