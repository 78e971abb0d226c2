package maintenance

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/phygtl/ar-asset-cache/internal/port"
)

// Config contains maintenance service configuration
type Config struct {
	// EvictionInterval is how often to check the cache budget
	EvictionInterval time.Duration

	// CleanupInterval is how often to reconcile the index and prune events
	CleanupInterval time.Duration

	// EventMaxAge is the maximum age of download events before cleanup
	EventMaxAge time.Duration
}

// DefaultConfig returns default maintenance configuration
func DefaultConfig() *Config {
	return &Config{
		EvictionInterval: 5 * time.Minute,
		CleanupInterval:  time.Hour,
		EventMaxAge:      7 * 24 * time.Hour,
	}
}

// Service handles periodic maintenance tasks
type Service struct {
	config  *Config
	entries port.CacheEntryRepository
	events  port.EventRepository
	fs      port.CacheFileSystem
	evictor *Evictor
	logger  *zap.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a new maintenance Service. evictor may be nil when no
// cache budget is configured.
func New(cfg *Config, entries port.CacheEntryRepository, events port.EventRepository, fs port.CacheFileSystem, evictor *Evictor, logger *zap.Logger) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.EvictionInterval == 0 {
		cfg.EvictionInterval = 5 * time.Minute
	}
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = time.Hour
	}
	if cfg.EventMaxAge == 0 {
		cfg.EventMaxAge = 7 * 24 * time.Hour
	}

	return &Service{
		config:  cfg,
		entries: entries,
		events:  events,
		fs:      fs,
		evictor: evictor,
		logger:  logger,
	}
}

// Start starts the maintenance service and blocks until ctx is done or Stop is called
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("maintenance service already running")
	}
	s.running = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.logger.Info("maintenance service started",
		zap.Duration("eviction_interval", s.config.EvictionInterval),
		zap.Duration("cleanup_interval", s.config.CleanupInterval),
		zap.Bool("eviction_enabled", s.evictor != nil))

	s.wg.Add(1)
	go s.maintenanceLoop(ctx)

	<-ctx.Done()
	s.wg.Wait()
	s.logger.Info("maintenance service stopped")
	return nil
}

// Stop stops the maintenance service
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.running = false
}

// maintenanceLoop handles periodic maintenance tasks
func (s *Service) maintenanceLoop(ctx context.Context) {
	defer s.wg.Done()

	evictionTicker := time.NewTicker(s.config.EvictionInterval)
	defer evictionTicker.Stop()

	cleanupTicker := time.NewTicker(s.config.CleanupInterval)
	defer cleanupTicker.Stop()

	// Reconcile once at startup so the index matches what survived a restart
	s.Reconcile()

	for {
		select {
		case <-ctx.Done():
			return
		case <-evictionTicker.C:
			s.evict(ctx)
		case <-cleanupTicker.C:
			s.Reconcile()
			s.cleanupEvents()
		}
	}
}

// Reconcile drops index entries whose file is gone from disk and returns
// how many were removed
func (s *Service) Reconcile() int {
	entries, err := s.entries.ListEntries()
	if err != nil {
		s.logger.Error("failed to list cache entries", zap.Error(err))
		return 0
	}

	removed := 0
	for _, entry := range entries {
		_, exists, err := s.fs.Stat(filepath.Join(s.fs.RootDir(), entry.FileName))
		if err != nil {
			s.logger.Warn("failed to stat cache entry",
				zap.String("file", entry.FileName),
				zap.Error(err))
			continue
		}
		if exists {
			continue
		}
		if err := s.entries.DeleteEntry(entry.FileName); err != nil {
			s.logger.Error("failed to delete stale cache entry",
				zap.String("file", entry.FileName),
				zap.Error(err))
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("removed stale cache entries", zap.Int("count", removed))
	}
	return removed
}

func (s *Service) evict(ctx context.Context) {
	if s.evictor == nil {
		return
	}
	if _, err := s.evictor.TryEvict(ctx); err != nil && !errors.Is(err, ErrEvictionRateLimited) {
		s.logger.Error("eviction failed", zap.Error(err))
	}
}

// cleanupEvents removes old download events
func (s *Service) cleanupEvents() {
	cleared, err := s.events.CleanupOldEvents(s.config.EventMaxAge)
	if err != nil {
		s.logger.Error("failed to cleanup download events", zap.Error(err))
	} else if cleared > 0 {
		s.logger.Info("cleaned up old download events", zap.Int("count", cleared))
	}
}
