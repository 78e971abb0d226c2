package server

import (
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/phygtl/ar-asset-cache/internal/metrics"
	"github.com/phygtl/ar-asset-cache/internal/port"
)

// DebugHandler handles debug endpoint requests
type DebugHandler struct {
	store   port.Store
	fs      port.CacheFileSystem
	latency *metrics.LatencyTracker
	logger  *zap.Logger
}

// NewDebugHandler creates a new DebugHandler
func NewDebugHandler(store port.Store, fs port.CacheFileSystem, latency *metrics.LatencyTracker, logger *zap.Logger) *DebugHandler {
	return &DebugHandler{
		store:   store,
		fs:      fs,
		latency: latency,
		logger:  logger,
	}
}

// HandleStats handles debug statistics requests
func (h *DebugHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats, err := h.store.GetCacheStats()
	if err != nil {
		h.logger.Error("failed to get cache stats", zap.Error(err))
		http.Error(w, "Failed to get cache stats", http.StatusInternalServerError)
		return
	}

	cacheSize, err := h.fs.GetCacheSize()
	if err != nil {
		h.logger.Error("failed to get cache size", zap.Error(err))
		http.Error(w, "Failed to get cache size", http.StatusInternalServerError)
		return
	}

	response := map[string]any{
		"stats":            stats,
		"cache_root":       h.fs.RootDir(),
		"cache_size_bytes": cacheSize,
		"cache_size":       humanize.IBytes(uint64(cacheSize)),
	}

	// Disk usage is informational only
	if usage, err := h.fs.GetDiskUsage(); err == nil {
		response["disk_used_pct"] = usage.UsedPct
		response["disk_free"] = humanize.IBytes(usage.Free)
	}

	if h.latency != nil {
		response["latency"] = h.latency.GetAllStats()
	}

	writeJSON(w, http.StatusOK, response)
}

// HandleEvents lists the most recent download events
func (h *DebugHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 1000 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	events, err := h.store.ListRecentEvents(limit)
	if err != nil {
		h.logger.Error("failed to list download events", zap.Error(err))
		http.Error(w, "Failed to list download events", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}
