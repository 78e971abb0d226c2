package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/phygtl/ar-asset-cache/internal/adapter/filesystem"
	"github.com/phygtl/ar-asset-cache/internal/adapter/loader"
	"github.com/phygtl/ar-asset-cache/internal/adapter/remote"
	"github.com/phygtl/ar-asset-cache/internal/adapter/sqlite"
	"github.com/phygtl/ar-asset-cache/internal/config"
	"github.com/phygtl/ar-asset-cache/internal/domain"
	"github.com/phygtl/ar-asset-cache/internal/locking"
	"github.com/phygtl/ar-asset-cache/internal/logger"
	"github.com/phygtl/ar-asset-cache/internal/metrics"
	"github.com/phygtl/ar-asset-cache/internal/port"
	"github.com/phygtl/ar-asset-cache/internal/service/downloadcache"
	"github.com/phygtl/ar-asset-cache/internal/service/maintenance"
	"github.com/phygtl/ar-asset-cache/internal/service/placement"
	"github.com/phygtl/ar-asset-cache/internal/service/server"
	"github.com/phygtl/ar-asset-cache/internal/util/ratelimiter"
)

const version = "0.1.0"

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file")
	fetchURL := flag.String("fetch", "", "Retrieve a single URL into the cache and print its local path")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	zapLogger, err := logger.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	var code int
	if *fetchURL != "" {
		code = runFetch(cfg, *fetchURL, zapLogger)
	} else {
		code = runService(cfg, *configPath, zapLogger)
	}

	_ = zapLogger.Sync()
	os.Exit(code)
}

// runFetch performs one RetrieveOrDownload without the catalog store
func runFetch(cfg *config.Config, url string, zapLogger *zap.Logger) int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fsManager, err := filesystem.NewManager(cfg.Cache.RootDir)
	if err != nil {
		zapLogger.Error("failed to create filesystem manager", zap.Error(err))
		return 1
	}

	fetcher, err := newFetcher(ctx, cfg)
	if err != nil {
		zapLogger.Error("failed to create fetcher", zap.Error(err))
		return 1
	}

	cache := downloadcache.New(
		cacheConfig(cfg),
		fetcher,
		fsManager,
		newLockGroup(cfg, fsManager),
		nil,
		nil,
		zapLogger,
	)

	progressLog := ratelimiter.New(time.Second)
	result := cache.RetrieveOrDownload(ctx, url,
		func() {
			zapLogger.Info("remote responded", zap.String("url", url))
		},
		func(fraction float64) {
			if ok, _ := progressLog.Allow(); ok || fraction >= 1 {
				zapLogger.Info("progress", zap.String("percent", fmt.Sprintf("%.1f%%", fraction*100)))
			}
		},
	)
	if !result.Success {
		zapLogger.Error("fetch failed", zap.String("url", url), zap.String("error", result.Error))
		return 1
	}

	zapLogger.Info("fetch finished",
		zap.String("url", url),
		zap.Bool("cached", result.Cached),
		zap.String("size", humanize.IBytes(uint64(result.BytesWritten))))
	fmt.Println(result.LocalPath)
	return 0
}

func runService(cfg *config.Config, configPath string, zapLogger *zap.Logger) int {
	zapLogger.Info("starting ar-asset-cache",
		zap.String("version", version),
		zap.String("config", configPath),
	)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize filesystem manager
	fsManager, err := filesystem.NewManager(cfg.Cache.RootDir)
	if err != nil {
		zapLogger.Error("failed to create filesystem manager", zap.Error(err))
		return 1
	}

	// Open database
	store, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		zapLogger.Error("failed to open database", zap.Error(err), zap.String("path", cfg.Database.Path))
		return 1
	}
	defer store.Close()

	fetcher, err := newFetcher(ctx, cfg)
	if err != nil {
		zapLogger.Error("failed to create fetcher", zap.Error(err))
		return 1
	}

	locks := newLockGroup(cfg, fsManager)
	latency := metrics.NewLatencyTracker(0.01)

	// Create download cache
	cache := downloadcache.New(
		cacheConfig(cfg),
		fetcher,
		fsManager,
		locks,
		store,
		latency,
		zapLogger.Named("cache"),
	)

	// Create placement manager and seed the catalog
	placements := placement.New(
		placement.Config{
			PreferLocalURL:      cfg.Cache.PreferLocalURL,
			PrefetchConcurrency: cfg.Prefetch.Concurrency,
		},
		store,
		cache,
		loader.NewFileProbe(zapLogger.Named("loader")),
		zapLogger.Named("placement"),
	)
	if err := placements.Seed(placeablesFromConfig(cfg.Placeables)); err != nil {
		zapLogger.Error("failed to seed placeables", zap.Error(err))
		return 1
	}

	// Create maintenance service
	var evictor *maintenance.Evictor
	if cfg.Cache.EvictionEnabled() {
		space := maintenance.NewSpaceManager(fsManager, cfg.Cache.MaxSizeBytes(), cfg.Cache.MaxDiskUsagePercent)
		evictor = maintenance.NewEvictor(
			store,
			fsManager,
			space,
			locks,
			ratelimiter.New(cfg.Cache.EvictionInterval),
			zapLogger.Named("evictor"),
		)
	}
	maintenanceService := maintenance.New(&maintenance.Config{
		EvictionInterval: cfg.Cache.EvictionInterval,
		CleanupInterval:  cfg.Cache.CleanupInterval,
		EventMaxAge:      cfg.Cache.EventMaxAge,
	}, store, store, fsManager, evictor, zapLogger.Named("maintenance"))

	// Create HTTP server
	httpServer := server.New(&server.Config{
		BindAddr:     cfg.HTTP.BindAddr,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}, store, placements, cache, fsManager, latency, zapLogger.Named("http"))

	// Start HTTP server
	serverErr := make(chan error, 1)
	go func() {
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Start maintenance service
	go func() {
		if err := maintenanceService.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			zapLogger.Error("maintenance service stopped with error", zap.Error(err))
		}
	}()

	// Prefetch the catalog in the background
	if cfg.Prefetch.OnStartup {
		go func() {
			if _, err := placements.PrefetchAll(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zapLogger.Error("prefetch failed", zap.Error(err))
			}
		}()
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	zapLogger.Info("application started successfully",
		zap.String("http_addr", cfg.HTTP.BindAddr),
		zap.String("cache_dir", cfg.Cache.RootDir),
		zap.Strings("schemes", fetcherSchemes(fetcher)),
	)

	code := 0
	select {
	case <-sigChan:
		zapLogger.Info("shutdown signal received, stopping services...")
	case err := <-serverErr:
		zapLogger.Error("HTTP server failed", zap.Error(err))
		code = 1
	}

	// Cancel context to stop background work
	cancel()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	maintenanceService.Stop()

	// Stop HTTP server
	if err := httpServer.Stop(shutdownCtx); err != nil {
		zapLogger.Error("failed to stop HTTP server gracefully", zap.Error(err))
	}

	// Let running downloads finish so no partial file is left behind
	if err := placements.Close(shutdownCtx); err != nil {
		zapLogger.Warn("downloads still running at shutdown", zap.Error(err))
	}

	zapLogger.Info("application stopped successfully")
	return code
}

func cacheConfig(cfg *config.Config) downloadcache.Config {
	return downloadcache.Config{
		UnknownSizeProgress: cfg.Cache.UnknownSizeProgress,
		ProgressLogInterval: cfg.Cache.ProgressLogInterval,
	}
}

// newFetcher registers the http fetcher and, when enabled, the s3 fetcher
func newFetcher(ctx context.Context, cfg *config.Config) (*remote.Mux, error) {
	mux := remote.NewMux()

	httpFetcher := remote.NewHTTPFetcher(&remote.HTTPConfig{
		Timeout:   cfg.Cache.FetchTimeout,
		UserAgent: cfg.Cache.UserAgent,
	})
	mux.Handle("http", httpFetcher)
	mux.Handle("https", httpFetcher)

	if cfg.S3.Enabled {
		s3Fetcher, err := remote.NewS3Fetcher(ctx, &remote.S3Config{
			Region:       cfg.S3.Region,
			Endpoint:     cfg.S3.Endpoint,
			UsePathStyle: cfg.S3.UsePathStyle,
		})
		if err != nil {
			return nil, err
		}
		mux.Handle("s3", s3Fetcher)
	}

	return mux, nil
}

func fetcherSchemes(f port.Fetcher) []string {
	if mux, ok := f.(*remote.Mux); ok {
		return mux.Schemes()
	}
	return nil
}

// newLockGroup returns nil when coalescing is disabled, which the cache
// treats as no locking
func newLockGroup(cfg *config.Config, fsManager *filesystem.Manager) locking.Group {
	switch {
	case !cfg.Cache.CoalesceRequests:
		return nil
	case cfg.Cache.CrossProcessLock:
		return locking.NewFileLock(fsManager.LockPath)
	default:
		return locking.NewMemLock()
	}
}

func placeablesFromConfig(items []config.PlaceableConfig) []*domain.PlaceableObject {
	placeables := make([]*domain.PlaceableObject, 0, len(items))
	for _, item := range items {
		placeables = append(placeables, &domain.PlaceableObject{
			Name:             item.Name,
			Icon:             item.Icon,
			DownloadURL:      item.DownloadURL,
			LocalDownloadURL: item.LocalDownloadURL,
		})
	}
	return placeables
}
