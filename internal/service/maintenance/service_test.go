package maintenance

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/phygtl/ar-asset-cache/internal/adapter/filesystem"
	"github.com/phygtl/ar-asset-cache/internal/domain"
)

func TestService_New(t *testing.T) {
	logger := zap.NewNop()
	store := newMockStore()
	fs := &mockFileSystem{}

	// Test with nil config (should use defaults)
	s := New(nil, store, store, fs, nil, logger)
	if s == nil {
		t.Fatal("New() returned nil")
	}
	if s.config.EvictionInterval != 5*time.Minute {
		t.Errorf("EvictionInterval = %v, want %v", s.config.EvictionInterval, 5*time.Minute)
	}
	if s.config.EventMaxAge != 7*24*time.Hour {
		t.Errorf("EventMaxAge = %v, want %v", s.config.EventMaxAge, 7*24*time.Hour)
	}

	// Test with custom config
	cfg := &Config{
		EvictionInterval: 2 * time.Minute,
		CleanupInterval:  30 * time.Minute,
		EventMaxAge:      12 * time.Hour,
	}
	s = New(cfg, store, store, fs, nil, logger)
	if s.config.EvictionInterval != 2*time.Minute {
		t.Errorf("EvictionInterval = %v, want %v", s.config.EvictionInterval, 2*time.Minute)
	}
}

func TestService_StartStop(t *testing.T) {
	logger := zap.NewNop()
	store := newMockStore()
	fs := &mockFileSystem{}

	cfg := &Config{
		EvictionInterval: 10 * time.Millisecond,
		CleanupInterval:  10 * time.Millisecond,
		EventMaxAge:      time.Hour,
	}
	s := New(cfg, store, store, fs, nil, logger)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- s.Start(ctx)
	}()

	// Wait for maintenance to run at least once
	time.Sleep(50 * time.Millisecond)

	cancel()
	s.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start() did not return after Stop()")
	}

	store.mu.Lock()
	cleanupCalled := store.cleanupCalled
	olderThan := store.cleanupOlderThan
	listCalled := store.listEntriesCalled
	store.mu.Unlock()

	if cleanupCalled == 0 {
		t.Error("CleanupOldEvents was not called")
	}
	if olderThan != time.Hour {
		t.Errorf("CleanupOldEvents olderThan = %v, want %v", olderThan, time.Hour)
	}
	if listCalled == 0 {
		t.Error("ListEntries was not called")
	}
}

func TestService_DoubleStart(t *testing.T) {
	store := newMockStore()
	s := New(nil, store, store, &mockFileSystem{}, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		s.Start(ctx)
	}()
	time.Sleep(10 * time.Millisecond)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err == nil {
			t.Error("second Start() returned nil error")
		}
	case <-time.After(time.Second):
		t.Fatal("second Start() blocked")
	}
}

func TestService_Reconcile(t *testing.T) {
	fs, err := filesystem.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	if err := fs.EnsureRoot(); err != nil {
		t.Fatalf("EnsureRoot() error = %v", err)
	}

	present := filepath.Base(fs.CachePath("https://a/present.glb"))
	gone := filepath.Base(fs.CachePath("https://a/gone.glb"))
	if err := os.WriteFile(filepath.Join(fs.RootDir(), present), []byte("glb"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	store := newMockStore(
		&domain.CacheEntry{FileName: present, URL: "https://a/present.glb", Size: 3},
		&domain.CacheEntry{FileName: gone, URL: "https://a/gone.glb", Size: 10},
	)
	s := New(nil, store, store, fs, nil, zap.NewNop())

	if removed := s.Reconcile(); removed != 1 {
		t.Errorf("Reconcile() = %d, want 1", removed)
	}
	if _, ok := store.entries[present]; !ok {
		t.Error("entry for existing file was removed")
	}
	if _, ok := store.entries[gone]; ok {
		t.Error("entry for missing file was kept")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.EvictionInterval != 5*time.Minute {
		t.Errorf("EvictionInterval = %v, want %v", cfg.EvictionInterval, 5*time.Minute)
	}
	if cfg.CleanupInterval != time.Hour {
		t.Errorf("CleanupInterval = %v, want %v", cfg.CleanupInterval, time.Hour)
	}
	if cfg.EventMaxAge != 7*24*time.Hour {
		t.Errorf("EventMaxAge = %v, want %v", cfg.EventMaxAge, 7*24*time.Hour)
	}
}
