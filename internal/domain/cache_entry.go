package domain

import "time"

// Download event outcomes
const (
	OutcomeHit        = "hit"
	OutcomeDownloaded = "downloaded"
	OutcomeFailed     = "failed"
)

// CacheEntry is the index record of a file in the cache directory
type CacheEntry struct {
	FileName       string    `json:"file_name"`
	URL            string    `json:"url"`
	Size           int64     `json:"size"`
	DownloadedAt   time.Time `json:"downloaded_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
	Hits           int64     `json:"hits"`
}

// DownloadEvent is one recorded retrieve-or-download outcome
type DownloadEvent struct {
	ID         int64     `json:"id"`
	URL        string    `json:"url"`
	FileName   string    `json:"file_name"`
	Outcome    string    `json:"outcome"`
	Bytes      int64     `json:"bytes"`
	DurationMs int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// EventStats summarizes download events by outcome
type EventStats struct {
	Hits            int64 `json:"hits"`
	Downloads       int64 `json:"downloads"`
	Failures        int64 `json:"failures"`
	BytesDownloaded int64 `json:"bytes_downloaded"`
}

// CacheStats represents cache statistics
type CacheStats struct {
	Placeables    int64      `json:"placeables"`
	CachedEntries int64      `json:"cached_entries"`
	CachedBytes   int64      `json:"cached_bytes"`
	Events        EventStats `json:"events"`
}
