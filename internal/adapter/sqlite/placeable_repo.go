package sqlite

import (
	"database/sql"
	"time"

	"github.com/phygtl/ar-asset-cache/internal/domain"
)

const placeableColumns = `id, name, icon, download_url, local_download_url, created_at, updated_at`

// ListPlaceables returns the catalog ordered by id
func (s *Store) ListPlaceables() ([]*domain.PlaceableObject, error) {
	rows, err := s.db.Query(`SELECT ` + placeableColumns + ` FROM placeables ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var placeables []*domain.PlaceableObject
	for rows.Next() {
		p := &domain.PlaceableObject{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Icon, &p.DownloadURL, &p.LocalDownloadURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		placeables = append(placeables, p)
	}

	return placeables, rows.Err()
}

// GetPlaceableByName retrieves a placeable by its unique name
func (s *Store) GetPlaceableByName(name string) (*domain.PlaceableObject, error) {
	p := &domain.PlaceableObject{}
	err := s.db.QueryRow(`SELECT `+placeableColumns+` FROM placeables WHERE name = ?`, name).Scan(
		&p.ID, &p.Name, &p.Icon, &p.DownloadURL, &p.LocalDownloadURL, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// UpsertPlaceable inserts a placeable or updates the one with the same name
func (s *Store) UpsertPlaceable(p *domain.PlaceableObject) error {
	if err := p.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO placeables (name, icon, download_url, local_download_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			icon = excluded.icon,
			download_url = excluded.download_url,
			local_download_url = excluded.local_download_url,
			updated_at = excluded.updated_at
	`

	if _, err := s.db.Exec(query, p.Name, p.Icon, p.DownloadURL, p.LocalDownloadURL, now, now); err != nil {
		return err
	}

	stored, err := s.GetPlaceableByName(p.Name)
	if err != nil {
		return err
	}
	if stored == nil {
		return domain.ErrPlaceableNotFound
	}
	p.ID = stored.ID
	p.CreatedAt = stored.CreatedAt
	p.UpdatedAt = stored.UpdatedAt
	return nil
}
