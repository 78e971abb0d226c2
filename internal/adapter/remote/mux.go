package remote

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/phygtl/ar-asset-cache/internal/domain"
	"github.com/phygtl/ar-asset-cache/internal/port"
)

// Mux dispatches identifiers to fetchers by URL scheme
type Mux struct {
	fetchers map[string]port.Fetcher
}

// Ensure Mux implements port.Fetcher
var _ port.Fetcher = (*Mux)(nil)

// NewMux creates an empty Mux
func NewMux() *Mux {
	return &Mux{fetchers: make(map[string]port.Fetcher)}
}

// Handle registers a fetcher for a scheme
func (m *Mux) Handle(scheme string, f port.Fetcher) {
	m.fetchers[strings.ToLower(scheme)] = f
}

// Schemes returns the registered schemes
func (m *Mux) Schemes() []string {
	schemes := make([]string, 0, len(m.fetchers))
	for s := range m.fetchers {
		schemes = append(schemes, s)
	}
	return schemes
}

// Fetch routes identifier to the fetcher registered for its scheme
func (m *Mux) Fetch(ctx context.Context, identifier string) (*port.RemoteObject, error) {
	u, err := url.Parse(identifier)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRemoteUnreachable, err)
	}

	f, ok := m.fetchers[strings.ToLower(u.Scheme)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedScheme, u.Scheme)
	}
	return f.Fetch(ctx, identifier)
}
