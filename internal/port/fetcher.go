package port

import (
	"context"
	"io"
)

// RemoteObject is an opened remote resource whose headers are available
// and whose body has not been read yet
type RemoteObject struct {
	// Body streams the resource content; the caller must close it
	Body io.ReadCloser

	// ContentLength is the reported total size, -1 when unknown
	ContentLength int64
}

// Fetcher opens remote resources by identifier
type Fetcher interface {
	// Fetch issues the request and returns once response headers are read.
	// Non-success responses are returned as errors with the body already closed.
	Fetch(ctx context.Context, identifier string) (*RemoteObject, error)
}
