package port

import (
	"io"
	"time"
)

// DiskUsage represents disk usage statistics
type DiskUsage struct {
	Total   uint64  // Total disk space in bytes
	Used    uint64  // Used disk space in bytes
	Free    uint64  // Free disk space in bytes
	UsedPct float64 // Used percentage (0-100)
}

// CacheFile describes a file found in the cache directory
type CacheFile struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// CacheFileSystem defines the flat cache directory operations
type CacheFileSystem interface {
	// RootDir returns the cache root directory
	RootDir() string

	// CachePath returns the local path for a remote identifier
	CachePath(identifier string) string

	// EnsureRoot creates the cache root if it does not exist yet
	EnsureRoot() error

	// PartialPath returns the hidden file a download of path streams into
	PartialPath(path string) string

	// Create truncates or creates the file at path for writing
	Create(path string) (io.WriteCloser, error)

	// Rename moves a completed partial file onto its final path
	Rename(from, to string) error

	// Stat returns the size of the file at path and whether it exists as a regular file
	Stat(path string) (int64, bool, error)

	// Remove deletes the file at path; a missing file is not an error
	Remove(path string) error

	// GetCacheSize returns total size of cached files
	GetCacheSize() (int64, error)

	// ListEntries returns every cached file
	ListEntries() ([]CacheFile, error)

	// GetDiskUsage returns disk usage statistics for the cache volume
	GetDiskUsage() (*DiskUsage, error)
}
