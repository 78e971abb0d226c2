package domain

import "time"

// PlaceableObject is an item of the placement catalog
type PlaceableObject struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Icon             string    `json:"icon,omitempty"`
	DownloadURL      string    `json:"download_url"`
	LocalDownloadURL string    `json:"local_download_url,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// URL returns the identifier to fetch. The local mirror is used only when
// preferLocal is set and a local URL is configured.
func (p *PlaceableObject) URL(preferLocal bool) string {
	if preferLocal && p.LocalDownloadURL != "" {
		return p.LocalDownloadURL
	}
	return p.DownloadURL
}

// Validate checks the fields required to download the item
func (p *PlaceableObject) Validate() error {
	if p.Name == "" {
		return NewValidationError("name", "is required")
	}
	if p.DownloadURL == "" {
		return NewValidationError("download_url", "is required")
	}
	return nil
}
