package storage

import (
	"fmt"
	"path/filepath"
	"strings"

	"pokeengine/native/rewards"
)

// Open selects a backend by name. LevelDB and SQLite place their files
// under dataDir; the memory backend ignores it.
func Open(backend, dataDir string) (rewards.Store, error) {
	switch strings.TrimSpace(strings.ToLower(backend)) {
	case "", "memory":
		return NewMemory(), nil
	case "leveldb":
		return OpenLevelDB(filepath.Join(dataDir, "rewards"))
	case "sqlite":
		return OpenSQLite(filepath.Join(dataDir, "rewards.db"))
	}
	return nil, fmt.Errorf("storage: unknown backend %q", backend)
}
