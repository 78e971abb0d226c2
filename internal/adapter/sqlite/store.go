package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/phygtl/ar-asset-cache/internal/domain"
	"github.com/phygtl/ar-asset-cache/internal/port"
)

// Store implements port.Store interface using SQLite
type Store struct {
	db *sql.DB
}

// Ensure Store implements port.Store
var _ port.Store = (*Store)(nil)

// Open opens a connection to the SQLite database
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database dir: %w", err)
		}
	}

	// Open database with WAL mode and busy timeout
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -16000", // 16MB cache
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping checks database connectivity
func (s *Store) Ping() error {
	return s.db.Ping()
}

// migrate creates or updates the database schema
func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS placeables (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL,
			icon TEXT NOT NULL DEFAULT '',
			download_url TEXT NOT NULL,
			local_download_url TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,

		// One row per file in the cache directory, keyed by the derived file name
		`CREATE TABLE IF NOT EXISTS cache_entries (
			file_name TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			size INTEGER NOT NULL DEFAULT 0,
			downloaded_at TIMESTAMP NOT NULL,
			last_accessed_at TIMESTAMP NOT NULL,
			hits INTEGER NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS download_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			url TEXT NOT NULL,
			file_name TEXT NOT NULL DEFAULT '',
			outcome TEXT NOT NULL,
			bytes INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_cache_entries_last_access ON cache_entries(last_accessed_at)`,
		`CREATE INDEX IF NOT EXISTS idx_download_events_created_at ON download_events(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_download_events_outcome ON download_events(outcome)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, migration)
		}
	}

	return nil
}

// GetCacheStats returns cache statistics
func (s *Store) GetCacheStats() (*domain.CacheStats, error) {
	stats := &domain.CacheStats{}

	if err := s.db.QueryRow("SELECT COUNT(*) FROM placeables").Scan(&stats.Placeables); err != nil {
		return nil, err
	}

	var totalSize sql.NullInt64
	err := s.db.QueryRow("SELECT COUNT(*), SUM(size) FROM cache_entries").Scan(&stats.CachedEntries, &totalSize)
	if err != nil {
		return nil, err
	}
	stats.CachedBytes = totalSize.Int64

	events, err := s.GetEventStats()
	if err != nil {
		return nil, err
	}
	stats.Events = *events

	return stats, nil
}
