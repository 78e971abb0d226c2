package filesystem

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/phygtl/ar-asset-cache/internal/port"
)

// LocksDir is the hidden subdirectory holding per-identifier lock files
const LocksDir = ".locks"

// PartialSuffix marks files still being downloaded
const PartialSuffix = ".partial"

// Manager handles the flat cache directory
type Manager struct {
	rootDir string
}

// Ensure Manager implements port.CacheFileSystem
var _ port.CacheFileSystem = (*Manager)(nil)

// NewManager creates a new filesystem manager. The root directory is
// not created until the first write.
func NewManager(rootDir string) (*Manager, error) {
	if rootDir == "" {
		return nil, errors.New("cache root dir is required")
	}

	abs, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cache root dir: %w", err)
	}

	return &Manager{rootDir: abs}, nil
}

// FileName derives the cache file name for an identifier: the hex
// encoded SHA-256 of the identifier string
func FileName(identifier string) string {
	return digest.FromString(identifier).Encoded()
}

// RootDir returns the cache root directory
func (m *Manager) RootDir() string {
	return m.rootDir
}

// CachePath returns the local cache path for a remote identifier
func (m *Manager) CachePath(identifier string) string {
	return filepath.Join(m.rootDir, FileName(identifier))
}

// LockPath returns the lock file path for a key
func (m *Manager) LockPath(key string) string {
	return filepath.Join(m.rootDir, LocksDir, FileName(key)+".lock")
}

// EnsureRoot creates the cache root if missing
func (m *Manager) EnsureRoot() error {
	if err := os.MkdirAll(m.rootDir, 0755); err != nil {
		return fmt.Errorf("failed to create cache root dir: %w", err)
	}
	return nil
}

// PartialPath returns the hidden sibling of path used while streaming.
// Hidden names are skipped by ListEntries, so eviction never sees them.
func (m *Manager) PartialPath(path string) string {
	return filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+PartialSuffix)
}

// Rename atomically replaces to with from
func (m *Manager) Rename(from, to string) error {
	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("failed to move cache file into place: %w", err)
	}
	return nil
}

// Create truncates or creates the file at path
func (m *Manager) Create(path string) (io.WriteCloser, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache file: %w", err)
	}
	return f, nil
}

// Stat returns the file size and whether a regular file exists at path
func (m *Manager) Stat(path string) (int64, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, false, nil
		}
		return 0, false, err
	}
	if !info.Mode().IsRegular() {
		return 0, false, nil
	}
	return info.Size(), true, nil
}

// Remove deletes a cached file
func (m *Manager) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// GetCacheSize returns total size of cached files
func (m *Manager) GetCacheSize() (int64, error) {
	entries, err := m.ListEntries()
	if err != nil {
		return 0, err
	}

	var size int64
	for _, e := range entries {
		size += e.Size
	}
	return size, nil
}

// ListEntries returns the regular files in the cache root, skipping hidden ones
func (m *Manager) ListEntries() ([]port.CacheFile, error) {
	dirEntries, err := os.ReadDir(m.rootDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cache dir: %w", err)
	}

	files := make([]port.CacheFile, 0, len(dirEntries))
	for _, de := range dirEntries {
		if strings.HasPrefix(de.Name(), ".") || !de.Type().IsRegular() {
			continue
		}
		info, err := de.Info()
		if err != nil {
			// Removed between ReadDir and Info
			continue
		}
		files = append(files, port.CacheFile{
			Name:    de.Name(),
			Path:    filepath.Join(m.rootDir, de.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return files, nil
}
