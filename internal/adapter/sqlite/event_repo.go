package sqlite

import (
	"database/sql"
	"time"

	"github.com/phygtl/ar-asset-cache/internal/domain"
)

func insertEvent(tx *sql.Tx, url, fileName, outcome string, bytes int64, duration time.Duration, errMsg string, at time.Time) error {
	_, err := tx.Exec(`
		INSERT INTO download_events (url, file_name, outcome, bytes, duration_ms, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		url, fileName, outcome, bytes, duration.Milliseconds(), errMsg, at)
	return err
}

// ListRecentEvents returns the newest events first
func (s *Store) ListRecentEvents(limit int) ([]*domain.DownloadEvent, error) {
	rows, err := s.db.Query(`
		SELECT id, url, file_name, outcome, bytes, duration_ms, error, created_at
		FROM download_events
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.DownloadEvent
	for rows.Next() {
		e := &domain.DownloadEvent{}
		if err := rows.Scan(&e.ID, &e.URL, &e.FileName, &e.Outcome, &e.Bytes, &e.DurationMs, &e.Error, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

// CleanupOldEvents deletes events older than the specified duration
func (s *Store) CleanupOldEvents(olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)

	result, err := s.db.Exec("DELETE FROM download_events WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	return int(affected), nil
}

// GetEventStats summarizes events by outcome
func (s *Store) GetEventStats() (*domain.EventStats, error) {
	rows, err := s.db.Query(`
		SELECT outcome, COUNT(*), COALESCE(SUM(bytes), 0)
		FROM download_events
		GROUP BY outcome`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &domain.EventStats{}
	for rows.Next() {
		var outcome string
		var count, bytes int64
		if err := rows.Scan(&outcome, &count, &bytes); err != nil {
			return nil, err
		}
		switch outcome {
		case domain.OutcomeHit:
			stats.Hits = count
		case domain.OutcomeDownloaded:
			stats.Downloads = count
			stats.BytesDownloaded = bytes
		case domain.OutcomeFailed:
			stats.Failures = count
		}
	}

	return stats, rows.Err()
}
