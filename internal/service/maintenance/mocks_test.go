package maintenance

import (
	"io"
	"sort"
	"sync"
	"time"

	"github.com/phygtl/ar-asset-cache/internal/domain"
	"github.com/phygtl/ar-asset-cache/internal/port"
)

// mockFileSystem implements port.CacheFileSystem for testing
type mockFileSystem struct {
	cacheSize int64
	diskUsage *port.DiskUsage
	err       error
}

func (m *mockFileSystem) GetCacheSize() (int64, error) {
	return m.cacheSize, m.err
}

func (m *mockFileSystem) GetDiskUsage() (*port.DiskUsage, error) {
	return m.diskUsage, m.err
}

// Stub implementations for other CacheFileSystem methods
func (m *mockFileSystem) RootDir() string                            { return "" }
func (m *mockFileSystem) CachePath(identifier string) string         { return "" }
func (m *mockFileSystem) EnsureRoot() error                          { return nil }
func (m *mockFileSystem) PartialPath(path string) string             { return path }
func (m *mockFileSystem) Create(path string) (io.WriteCloser, error) { return nil, nil }
func (m *mockFileSystem) Rename(from, to string) error               { return nil }
func (m *mockFileSystem) Stat(path string) (int64, bool, error)      { return 0, false, nil }
func (m *mockFileSystem) Remove(path string) error                   { return nil }
func (m *mockFileSystem) ListEntries() ([]port.CacheFile, error)     { return nil, nil }

// mockStore implements port.CacheEntryRepository and port.EventRepository
type mockStore struct {
	mu                sync.Mutex
	entries           map[string]*domain.CacheEntry
	cleanupCount      int
	cleanupErr        error
	cleanupCalled     int
	cleanupOlderThan  time.Duration
	listEntriesCalled int
	deletedFileNames  []string
}

func newMockStore(entries ...*domain.CacheEntry) *mockStore {
	m := &mockStore{entries: make(map[string]*domain.CacheEntry)}
	for _, e := range entries {
		m.entries[e.FileName] = e
	}
	return m
}

func (m *mockStore) GetEntry(fileName string) (*domain.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[fileName], nil
}

func (m *mockStore) ListEntries() ([]*domain.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listEntriesCalled++
	var out []*domain.CacheEntry
	for _, e := range m.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FileName < out[j].FileName })
	return out, nil
}

func (m *mockStore) GetEvictionCandidates(limit int) ([]*domain.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.CacheEntry
	for _, e := range m.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastAccessedAt.Before(out[j].LastAccessedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockStore) DeleteEntry(fileName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, fileName)
	m.deletedFileNames = append(m.deletedFileNames, fileName)
	return nil
}

func (m *mockStore) TotalSize() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total int64
	for _, e := range m.entries {
		total += e.Size
	}
	return total, nil
}

func (m *mockStore) CleanupOldEvents(olderThan time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanupCalled++
	m.cleanupOlderThan = olderThan
	return m.cleanupCount, m.cleanupErr
}

func (m *mockStore) GetEventStats() (*domain.EventStats, error) {
	return &domain.EventStats{}, nil
}

func (m *mockStore) ListRecentEvents(limit int) ([]*domain.DownloadEvent, error) {
	return nil, nil
}
