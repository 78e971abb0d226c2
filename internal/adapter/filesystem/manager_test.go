package filesystem

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileName_Deterministic(t *testing.T) {
	a := FileName("https://cdn.example.com/models/chair.glb")
	b := FileName("https://cdn.example.com/models/chair.glb")
	c := FileName("https://cdn.example.com/models/table.glb")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestNewManager_DoesNotCreateRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "cache")

	m, err := NewManager(root)
	require.NoError(t, err)

	_, err = os.Stat(root)
	assert.True(t, os.IsNotExist(err), "root should not exist before EnsureRoot")

	_, exists, err := m.Stat(m.CachePath("https://x/a.glb"))
	require.NoError(t, err)
	assert.False(t, exists)

	size, err := m.GetCacheSize()
	require.NoError(t, err)
	assert.Zero(t, size)

	require.NoError(t, m.EnsureRoot())
	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewManager_EmptyRoot(t *testing.T) {
	_, err := NewManager("")
	assert.Error(t, err)
}

func TestManager_CreateStatRemove(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	path := m.CachePath("https://x/a.glb")
	assert.Equal(t, m.RootDir(), filepath.Dir(path))

	w, err := m.Create(path)
	require.NoError(t, err)
	_, err = io.WriteString(w, "hello")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	size, exists, err := m.Stat(path)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, int64(5), size)

	// Create truncates existing content
	w, err = m.Create(path)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	size, _, err = m.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, size)

	require.NoError(t, m.Remove(path))
	require.NoError(t, m.Remove(path), "removing a missing file is not an error")

	_, exists, err = m.Stat(path)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestManager_ListEntriesSkipsHidden(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(m.CachePath("a"), []byte("12345"), 0644))
	require.NoError(t, os.WriteFile(m.CachePath("b"), []byte("123"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Dir(m.LockPath("a")), 0755))
	require.NoError(t, os.WriteFile(m.LockPath("a"), nil, 0644))

	entries, err := m.ListEntries()
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	size, err := m.GetCacheSize()
	require.NoError(t, err)
	assert.Equal(t, int64(8), size)
}

func TestManager_StatDirectoryIsNotAFile(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	path := m.CachePath("dir")
	require.NoError(t, os.MkdirAll(path, 0755))

	_, exists, err := m.Stat(path)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestManager_GetDiskUsage(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "not", "yet"))
	require.NoError(t, err)

	usage, err := m.GetDiskUsage()
	require.NoError(t, err)
	assert.Greater(t, usage.Total, uint64(0))
}

func TestManager_PartialFileRename(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, m.EnsureRoot())

	path := m.CachePath("https://cdn.example.com/models/lamp.glb")
	partial := m.PartialPath(path)
	assert.Equal(t, m.RootDir(), filepath.Dir(partial))
	assert.Equal(t, "."+filepath.Base(path)+PartialSuffix, filepath.Base(partial))

	w, err := m.Create(partial)
	require.NoError(t, err)
	_, err = w.Write([]byte("glTF"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	entries, err := m.ListEntries()
	require.NoError(t, err)
	assert.Empty(t, entries, "partial files are not cache entries")

	require.NoError(t, m.Rename(partial, path))

	size, exists, err := m.Stat(path)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, int64(4), size)
	_, exists, err = m.Stat(partial)
	require.NoError(t, err)
	assert.False(t, exists)
}
