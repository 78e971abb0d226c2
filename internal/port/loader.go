package port

import "context"

// ModelLoader consumes a verified local file produced by the download cache.
// The file format is opaque to the cache.
type ModelLoader interface {
	Load(ctx context.Context, name, localPath string) error
}
