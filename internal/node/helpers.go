package node

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Klingon-tech/klingscan/config"
	"github.com/Klingon-tech/klingscan/internal/storage"
)

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// openStore opens the registry database named by cfg.
func openStore(cfg *config.Config) (storage.DB, error) {
	if cfg.Registry.InMemory {
		return storage.NewBadgerInMemory()
	}

	dir := expandHome(cfg.RegistryDir())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating registry dir: %w", err)
	}
	return storage.NewBadger(dir)
}

// OpenRegistry opens the on-disk registry for a local tool. The caller
// closes the returned store.
func OpenRegistry(cfg *config.Config) (storage.DB, error) {
	return openStore(cfg)
}
