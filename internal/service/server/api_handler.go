package server

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/phygtl/ar-asset-cache/internal/domain"
	"github.com/phygtl/ar-asset-cache/internal/service/placement"
)

// APIHandler serves the placement catalog endpoints
type APIHandler struct {
	placements *placement.Manager
	cache      CacheProbe
	logger     *zap.Logger
}

// NewAPIHandler creates a new APIHandler
func NewAPIHandler(placements *placement.Manager, cache CacheProbe, logger *zap.Logger) *APIHandler {
	return &APIHandler{
		placements: placements,
		cache:      cache,
		logger:     logger,
	}
}

// HandleList returns the catalog with cache and download state
func (h *APIHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.placements.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list placeables", zap.Error(err))
		http.Error(w, "Failed to list placeables", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"placeables": list})
}

// HandleDownload starts or joins the download of a placeable. With
// wait=false it answers 202 right away; otherwise it waits for the result.
func (h *APIHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	op, err := h.placements.Download(r.Context(), name, nil, nil)
	if err != nil {
		h.writeError(w, name, err)
		return
	}

	if r.URL.Query().Get("wait") == "false" {
		writeJSON(w, http.StatusAccepted, op.Status())
		return
	}

	result, err := op.Wait(r.Context())
	if err != nil {
		// Client went away; the download keeps running
		writeJSON(w, http.StatusAccepted, op.Status())
		return
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, result)
}

// HandleSelect places a downloaded item or starts its download
func (h *APIHandler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	result, err := h.placements.Select(r.Context(), name)
	if err != nil {
		h.writeError(w, name, err)
		return
	}

	status := http.StatusOK
	if result.Status == placement.SelectDownloading {
		status = http.StatusAccepted
	}
	writeJSON(w, status, result)
}

// HandleCacheLookup reports whether a URL is cached, without network access
func (h *APIHandler) HandleCacheLookup(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		http.Error(w, "Missing url parameter", http.StatusBadRequest)
		return
	}

	cached, path := h.cache.IsCached(url)
	writeJSON(w, http.StatusOK, map[string]any{
		"url":        url,
		"cached":     cached,
		"local_path": path,
	})
}

func (h *APIHandler) writeError(w http.ResponseWriter, name string, err error) {
	if errors.Is(err, domain.ErrPlaceableNotFound) {
		http.Error(w, "Placeable not found", http.StatusNotFound)
		return
	}
	h.logger.Error("placement request failed",
		zap.String("name", name),
		zap.Error(err))
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}
