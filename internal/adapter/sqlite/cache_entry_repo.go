package sqlite

import (
	"database/sql"
	"time"

	"github.com/phygtl/ar-asset-cache/internal/domain"
)

const cacheEntryColumns = `file_name, url, size, downloaded_at, last_accessed_at, hits`

// GetEntry retrieves a cache entry by file name
func (s *Store) GetEntry(fileName string) (*domain.CacheEntry, error) {
	e := &domain.CacheEntry{}
	err := s.db.QueryRow(`SELECT `+cacheEntryColumns+` FROM cache_entries WHERE file_name = ?`, fileName).Scan(
		&e.FileName, &e.URL, &e.Size, &e.DownloadedAt, &e.LastAccessedAt, &e.Hits,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListEntries returns every indexed cache entry
func (s *Store) ListEntries() ([]*domain.CacheEntry, error) {
	rows, err := s.db.Query(`SELECT ` + cacheEntryColumns + ` FROM cache_entries ORDER BY file_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// GetEvictionCandidates returns entries least recently accessed first
func (s *Store) GetEvictionCandidates(limit int) ([]*domain.CacheEntry, error) {
	query := `SELECT ` + cacheEntryColumns + ` FROM cache_entries
		ORDER BY last_accessed_at ASC, hits ASC
		LIMIT ?`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// DeleteEntry removes an entry from the index
func (s *Store) DeleteEntry(fileName string) error {
	_, err := s.db.Exec("DELETE FROM cache_entries WHERE file_name = ?", fileName)
	return err
}

// TotalSize returns the sum of indexed entry sizes
func (s *Store) TotalSize() (int64, error) {
	var total sql.NullInt64
	if err := s.db.QueryRow("SELECT SUM(size) FROM cache_entries").Scan(&total); err != nil {
		return 0, err
	}
	return total.Int64, nil
}

// RecordHit bumps the entry's access time and hit count and logs a hit event.
// Files cached before the index existed are indexed on their first hit.
func (s *Store) RecordHit(url, fileName string, size int64, duration time.Duration) error {
	now := time.Now().UTC()
	return s.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO cache_entries (file_name, url, size, downloaded_at, last_accessed_at, hits)
			VALUES (?, ?, ?, ?, ?, 1)
			ON CONFLICT(file_name) DO UPDATE SET
				last_accessed_at = excluded.last_accessed_at,
				hits = cache_entries.hits + 1`,
			fileName, url, size, now, now)
		if err != nil {
			return err
		}
		return insertEvent(tx, url, fileName, domain.OutcomeHit, 0, duration, "", now)
	})
}

// RecordDownload indexes a freshly written file and logs a download event
func (s *Store) RecordDownload(url, fileName string, size int64, duration time.Duration) error {
	now := time.Now().UTC()
	return s.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO cache_entries (file_name, url, size, downloaded_at, last_accessed_at, hits)
			VALUES (?, ?, ?, ?, ?, 0)
			ON CONFLICT(file_name) DO UPDATE SET
				url = excluded.url,
				size = excluded.size,
				downloaded_at = excluded.downloaded_at,
				last_accessed_at = excluded.last_accessed_at`,
			fileName, url, size, now, now)
		if err != nil {
			return err
		}
		return insertEvent(tx, url, fileName, domain.OutcomeDownloaded, size, duration, "", now)
	})
}

// RecordFailure logs a failed event. A failed transfer removes the local
// file, so its index entry is dropped as well.
func (s *Store) RecordFailure(url, fileName string, errMsg string, duration time.Duration) error {
	now := time.Now().UTC()
	return s.withTx(func(tx *sql.Tx) error {
		if fileName != "" {
			if _, err := tx.Exec("DELETE FROM cache_entries WHERE file_name = ?", fileName); err != nil {
				return err
			}
		}
		return insertEvent(tx, url, fileName, domain.OutcomeFailed, 0, duration, errMsg, now)
	})
}

func (s *Store) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// scanEntries is a helper to scan multiple cache entry rows
func scanEntries(rows *sql.Rows) ([]*domain.CacheEntry, error) {
	var entries []*domain.CacheEntry

	for rows.Next() {
		e := &domain.CacheEntry{}
		if err := rows.Scan(&e.FileName, &e.URL, &e.Size, &e.DownloadedAt, &e.LastAccessedAt, &e.Hits); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
