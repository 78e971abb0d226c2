package filesystem

import (
	"os"
	"path/filepath"
)

func (m *Manager) existingAncestor() string {
	dir := m.rootDir
	for {
		if _, err := os.Stat(dir); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
