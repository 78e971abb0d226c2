package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestStatusError_Error(t *testing.T) {
	tests := []struct {
		name   string
		code   int
		status string
		want   string
	}{
		{
			name:   "explicit status",
			code:   404,
			status: "404 Not Found",
			want:   "GET http://assets/a.glb: 404 Not Found",
		},
		{
			name: "derived status",
			code: 503,
			want: "GET http://assets/a.glb: 503 Service Unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewStatusError("http://assets/a.glb", tt.code, tt.status)
			if got := err.Error(); got != tt.want {
				t.Errorf("Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusError_Is(t *testing.T) {
	err := fmt.Errorf("fetch: %w", NewStatusError("http://x", 500, ""))

	if !errors.Is(err, ErrRemoteStatus) {
		t.Error("errors.Is(err, ErrRemoteStatus) = false, want true")
	}
	if got := StatusCodeOf(err); got != 500 {
		t.Errorf("StatusCodeOf() = %d, want 500", got)
	}
	if got := StatusCodeOf(errors.New("other")); got != 0 {
		t.Errorf("StatusCodeOf(other) = %d, want 0", got)
	}
}

func TestStatusError_Temporary(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{404, false},
		{403, false},
		{429, true},
		{500, true},
		{502, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.code), func(t *testing.T) {
			if got := NewStatusError("u", tt.code, "").Temporary(); got != tt.want {
				t.Errorf("Temporary() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("download_url", "is required")
	if got := err.Error(); got != "download_url is required" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("errors.Is(err, ErrInvalidInput) = false, want true")
	}
}

func TestPlaceableObject_URL(t *testing.T) {
	p := &PlaceableObject{Name: "chair", DownloadURL: "https://cdn/chair.glb", LocalDownloadURL: "http://localhost/chair.glb"}

	if got := p.URL(false); got != p.DownloadURL {
		t.Errorf("URL(false) = %q, want %q", got, p.DownloadURL)
	}
	if got := p.URL(true); got != p.LocalDownloadURL {
		t.Errorf("URL(true) = %q, want %q", got, p.LocalDownloadURL)
	}

	p.LocalDownloadURL = ""
	if got := p.URL(true); got != p.DownloadURL {
		t.Errorf("URL(true) without local = %q, want %q", got, p.DownloadURL)
	}
}

func TestPlaceableObject_Validate(t *testing.T) {
	if err := (&PlaceableObject{Name: "lamp"}).Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Validate() missing url = %v, want ErrInvalidInput", err)
	}
	if err := (&PlaceableObject{DownloadURL: "u"}).Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Validate() missing name = %v, want ErrInvalidInput", err)
	}
	if err := (&PlaceableObject{Name: "lamp", DownloadURL: "u"}).Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestDownloadResult_Invariant(t *testing.T) {
	failed := NewFailedResult("u", errors.New("boom"))
	if failed.Success || failed.LocalPath != "" || failed.Error != "boom" {
		t.Errorf("failed result = %+v", failed)
	}

	hit := NewCachedResult("u", "/cache/x")
	if !hit.Success || hit.LocalPath == "" || !hit.Cached {
		t.Errorf("cached result = %+v", hit)
	}

	dl := NewDownloadedResult("u", "/cache/x", 42)
	if !dl.Success || dl.LocalPath == "" || dl.Cached || dl.BytesWritten != 42 {
		t.Errorf("downloaded result = %+v", dl)
	}
}
