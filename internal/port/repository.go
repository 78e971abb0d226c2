package port

import (
	"time"

	"github.com/phygtl/ar-asset-cache/internal/domain"
)

// PlaceableRepository persists the placement catalog
type PlaceableRepository interface {
	// ListPlaceables returns the catalog ordered by id
	ListPlaceables() ([]*domain.PlaceableObject, error)

	// GetPlaceableByName returns nil, nil when the name is unknown
	GetPlaceableByName(name string) (*domain.PlaceableObject, error)

	// UpsertPlaceable inserts or updates by name
	UpsertPlaceable(p *domain.PlaceableObject) error
}

// DownloadRecorder receives retrieve-or-download outcomes
type DownloadRecorder interface {
	RecordHit(url, fileName string, size int64, duration time.Duration) error
	RecordDownload(url, fileName string, size int64, duration time.Duration) error
	RecordFailure(url, fileName string, errMsg string, duration time.Duration) error
}

// CacheEntryRepository indexes the files in the cache directory
type CacheEntryRepository interface {
	// GetEntry returns nil, nil when the entry is not indexed
	GetEntry(fileName string) (*domain.CacheEntry, error)

	// ListEntries returns every indexed entry
	ListEntries() ([]*domain.CacheEntry, error)

	// GetEvictionCandidates returns entries ordered by least recent access
	GetEvictionCandidates(limit int) ([]*domain.CacheEntry, error)

	// DeleteEntry removes an entry from the index
	DeleteEntry(fileName string) error

	// TotalSize returns the sum of indexed entry sizes
	TotalSize() (int64, error)
}

// EventRepository manages the download event history
type EventRepository interface {
	// CleanupOldEvents deletes events older than the given age
	CleanupOldEvents(olderThan time.Duration) (int, error)

	// GetEventStats summarizes events by outcome
	GetEventStats() (*domain.EventStats, error)

	// ListRecentEvents returns the newest events first
	ListRecentEvents(limit int) ([]*domain.DownloadEvent, error)
}

// Store combines all repository interfaces
type Store interface {
	PlaceableRepository
	DownloadRecorder
	CacheEntryRepository
	EventRepository

	// GetCacheStats returns aggregate statistics
	GetCacheStats() (*domain.CacheStats, error)

	// Close closes the database connection
	Close() error

	// Ping checks database connectivity
	Ping() error
}
