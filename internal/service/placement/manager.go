// Package placement drives the download cache for the catalog of
// placeable objects: one shared download per item, the select fast path
// and catalog prefetch.
package placement

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/phygtl/ar-asset-cache/internal/domain"
	"github.com/phygtl/ar-asset-cache/internal/port"
	"github.com/phygtl/ar-asset-cache/internal/service/downloadcache"
)

// Cache is the download cache the manager drives
type Cache interface {
	RetrieveOrDownload(ctx context.Context, identifier string, onHeadersReady downloadcache.HeadersReadyFunc, onProgress downloadcache.ProgressFunc) domain.DownloadResult
	IsCached(identifier string) (bool, string)
}

// Config contains placement manager configuration
type Config struct {
	// PreferLocalURL downloads from LocalDownloadURL when an item has one
	PreferLocalURL bool

	// PrefetchConcurrency bounds parallel downloads in PrefetchAll
	PrefetchConcurrency int
}

// Select outcomes
const (
	SelectPlaced      = "placed"
	SelectDownloading = "downloading"
)

// SelectResult is the outcome of selecting a catalog item
type SelectResult struct {
	Name      string           `json:"name"`
	Status    string           `json:"status"`
	LocalPath string           `json:"local_path,omitempty"`
	Operation *OperationStatus `json:"operation,omitempty"`
}

// PlaceableStatus is a catalog item with its cache and download state
type PlaceableStatus struct {
	*domain.PlaceableObject
	Cached    bool             `json:"cached"`
	LocalPath string           `json:"local_path"`
	Operation *OperationStatus `json:"operation,omitempty"`
}

// PrefetchReport summarizes a PrefetchAll run
type PrefetchReport struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Manager owns the download operations of the placement catalog
type Manager struct {
	config  Config
	catalog port.PlaceableRepository
	cache   Cache
	loader  port.ModelLoader
	logger  *zap.Logger

	mu  sync.Mutex
	ops map[string]*Operation
	wg  sync.WaitGroup
}

// New creates a new Manager
func New(cfg Config, catalog port.PlaceableRepository, cache Cache, loader port.ModelLoader, logger *zap.Logger) *Manager {
	if cfg.PrefetchConcurrency <= 0 {
		cfg.PrefetchConcurrency = 4
	}
	return &Manager{
		config:  cfg,
		catalog: catalog,
		cache:   cache,
		loader:  loader,
		logger:  logger,
		ops:     make(map[string]*Operation),
	}
}

// Seed upserts catalog items, typically from configuration at startup
func (m *Manager) Seed(items []*domain.PlaceableObject) error {
	for _, item := range items {
		if err := m.catalog.UpsertPlaceable(item); err != nil {
			return fmt.Errorf("failed to seed placeable %q: %w", item.Name, err)
		}
	}
	if len(items) > 0 {
		m.logger.Info("placeable catalog seeded", zap.Int("count", len(items)))
	}
	return nil
}

// List returns the catalog with cache and operation state
func (m *Manager) List(ctx context.Context) ([]PlaceableStatus, error) {
	placeables, err := m.catalog.ListPlaceables()
	if err != nil {
		return nil, fmt.Errorf("failed to list placeables: %w", err)
	}

	statuses := make([]PlaceableStatus, 0, len(placeables))
	for _, p := range placeables {
		cached, path := m.cache.IsCached(p.URL(m.config.PreferLocalURL))
		status := PlaceableStatus{PlaceableObject: p, Cached: cached, LocalPath: path}
		if op := m.operation(p.Name); op != nil {
			s := op.Status()
			status.Operation = &s
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// Operation returns the current operation of an item, or nil
func (m *Manager) Operation(name string) *Operation {
	return m.operation(name)
}

func (m *Manager) operation(name string) *Operation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ops[name]
}

// Download starts the download of an item or joins the one already
// running. A succeeded operation is returned as is while its file is still
// cached; a failed one is replaced so the call retries. Callbacks are only
// attached when this call starts the download. The transfer is detached
// from ctx cancellation and runs to completion or failure.
func (m *Manager) Download(ctx context.Context, name string, onHeadersReady downloadcache.HeadersReadyFunc, onProgress downloadcache.ProgressFunc) (*Operation, error) {
	p, err := m.lookup(name)
	if err != nil {
		return nil, err
	}
	url := p.URL(m.config.PreferLocalURL)

	m.mu.Lock()
	if op, ok := m.ops[name]; ok && m.reusable(op) {
		m.mu.Unlock()
		return op, nil
	}
	op := newOperation(name, url)
	m.ops[name] = op
	m.wg.Add(1)
	m.mu.Unlock()

	m.logger.Info("download started",
		zap.String("name", name),
		zap.String("url", url),
		zap.String("operation_id", op.ID))

	go m.run(context.WithoutCancel(ctx), op, onHeadersReady, onProgress)
	return op, nil
}

func (m *Manager) reusable(op *Operation) bool {
	switch op.State() {
	case StateDownloading:
		return true
	case StateSucceeded:
		cached, _ := m.cache.IsCached(op.URL)
		return cached
	default:
		return false
	}
}

func (m *Manager) run(ctx context.Context, op *Operation, onHeadersReady downloadcache.HeadersReadyFunc, onProgress downloadcache.ProgressFunc) {
	defer m.wg.Done()

	result := m.cache.RetrieveOrDownload(ctx, op.URL,
		func() {
			op.markHeadersReady()
			if onHeadersReady != nil {
				onHeadersReady()
			}
		},
		func(fraction float64) {
			op.setProgress(fraction)
			if onProgress != nil {
				onProgress(fraction)
			}
		},
	)
	op.finish(result)

	if result.Success {
		m.logger.Info("download finished",
			zap.String("name", op.Name),
			zap.String("file", result.LocalPath),
			zap.Bool("cached", result.Cached))
	} else {
		m.logger.Warn("download failed",
			zap.String("name", op.Name),
			zap.String("url", op.URL),
			zap.String("error", result.Error))
	}
}

// Select places an item when its download succeeded and the file is still
// cached; otherwise it starts or joins the download.
func (m *Manager) Select(ctx context.Context, name string) (SelectResult, error) {
	if op := m.operation(name); op != nil && op.State() == StateSucceeded {
		if cached, path := m.cache.IsCached(op.URL); cached {
			if err := m.loader.Load(ctx, name, path); err != nil {
				return SelectResult{}, fmt.Errorf("failed to load %q: %w", name, err)
			}
			return SelectResult{Name: name, Status: SelectPlaced, LocalPath: path}, nil
		}
	}

	op, err := m.Download(ctx, name, nil, nil)
	if err != nil {
		return SelectResult{}, err
	}
	status := op.Status()
	return SelectResult{Name: name, Status: SelectDownloading, Operation: &status}, nil
}

// PrefetchAll downloads every catalog item with bounded concurrency.
// Individual download failures are counted, not returned.
func (m *Manager) PrefetchAll(ctx context.Context) (*PrefetchReport, error) {
	placeables, err := m.catalog.ListPlaceables()
	if err != nil {
		return nil, fmt.Errorf("failed to list placeables: %w", err)
	}

	var succeeded, failed atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.config.PrefetchConcurrency)

	for _, p := range placeables {
		name := p.Name
		g.Go(func() error {
			op, err := m.Download(gctx, name, nil, nil)
			if err != nil {
				return err
			}
			result, err := op.Wait(gctx)
			if err != nil {
				return err
			}
			if result.Success {
				succeeded.Add(1)
			} else {
				failed.Add(1)
			}
			return nil
		})
	}

	report := &PrefetchReport{Total: len(placeables)}
	err = g.Wait()
	report.Succeeded = int(succeeded.Load())
	report.Failed = int(failed.Load())

	m.logger.Info("prefetch finished",
		zap.Int("total", report.Total),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed))

	return report, err
}

// Close waits for running downloads to finish or ctx to be done
func (m *Manager) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) lookup(name string) (*domain.PlaceableObject, error) {
	p, err := m.catalog.GetPlaceableByName(name)
	if err != nil {
		return nil, fmt.Errorf("failed to get placeable %q: %w", name, err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrPlaceableNotFound, name)
	}
	return p, nil
}
