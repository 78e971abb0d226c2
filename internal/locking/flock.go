package locking

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// FileLock is a Group that also takes an advisory file lock per key, so
// several processes sharing one cache directory serialize on the same
// identifier. Callers in the same process are first serialized in memory.
type FileLock struct {
	mem      *MemLock
	pathFunc func(key string) string
}

// NewFileLock creates a FileLock. pathFunc maps a key to its lock file path.
func NewFileLock(pathFunc func(key string) string) *FileLock {
	return &FileLock{
		mem:      NewMemLock(),
		pathFunc: pathFunc,
	}
}

// DoWithLock runs fn while holding both the in-process and the file lock for key
func (f *FileLock) DoWithLock(key string, fn func() (any, error)) (any, error) {
	return f.mem.DoWithLock(key, func() (any, error) {
		path := f.pathFunc(key)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create lock dir: %w", err)
		}

		fl := flock.New(path)
		if err := fl.Lock(); err != nil {
			return nil, fmt.Errorf("failed to acquire file lock: %w", err)
		}
		defer fl.Unlock()

		return fn()
	})
}
