package remote

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/phygtl/ar-asset-cache/internal/domain"
	"github.com/phygtl/ar-asset-cache/internal/port"
)

// DefaultFetchTimeout bounds a whole transfer, body included. Model files
// can be large, so this is far above typical API timeouts.
const DefaultFetchTimeout = 10 * time.Minute

// HTTPConfig contains HTTP fetcher configuration
type HTTPConfig struct {
	// Timeout is the total request timeout including body transfer
	Timeout time.Duration

	// ResponseHeaderTimeout bounds the wait for response headers
	ResponseHeaderTimeout time.Duration

	// UserAgent is sent with every request when set
	UserAgent string
}

// HTTPFetcher opens http and https identifiers
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// Ensure HTTPFetcher implements port.Fetcher
var _ port.Fetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher creates a fetcher with a transport tuned for large binary downloads
func NewHTTPFetcher(cfg *HTTPConfig) *HTTPFetcher {
	if cfg == nil {
		cfg = &HTTPConfig{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	headerTimeout := cfg.ResponseHeaderTimeout
	if headerTimeout <= 0 {
		headerTimeout = 30 * time.Second
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,

		// Transparent gzip would hide Content-Length, which the cache
		// needs for validation and progress
		DisableCompression: true,

		// Response header timeout (not total download timeout)
		ResponseHeaderTimeout: headerTimeout,
	}

	return &HTTPFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		userAgent: cfg.UserAgent,
	}
}

// NewHTTPFetcherWithClient wraps an existing client
func NewHTTPFetcherWithClient(client *http.Client) *HTTPFetcher {
	return &HTTPFetcher{client: client}
}

// Fetch issues a GET and returns once headers are available
func (f *HTTPFetcher) Fetch(ctx context.Context, identifier string) (*port.RemoteObject, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, identifier, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid request: %v", domain.ErrRemoteUnreachable, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRemoteUnreachable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused
		io.CopyN(io.Discard, resp.Body, 4096)
		resp.Body.Close()
		return nil, domain.NewStatusError(identifier, resp.StatusCode, resp.Status)
	}

	return &port.RemoteObject{
		Body:          resp.Body,
		ContentLength: resp.ContentLength,
	}, nil
}
