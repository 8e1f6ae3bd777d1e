package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Backend names a StateStore implementation.
type Backend string

const (
	// BackendJSON keeps one JSON file per model in a directory (default).
	BackendJSON Backend = "json"

	// BackendSQLite keeps all models in one SQLite database.
	BackendSQLite Backend = "sqlite"
)

// sqliteFile is the database file name inside the state directory.
const sqliteFile = "models.db"

// Options configures Open.
type Options struct {
	// Backend selects the implementation; empty means BackendJSON.
	Backend Backend
	// Dir is the state directory.
	Dir string
	// Compress writes JSON state zstd-compressed.
	Compress bool
}

// Open creates the StateStore for opts.
//
// backend options:
//   - "json" (default): <dir>/<model>.json or <model>.json.zst
//   - "sqlite": <dir>/models.db
func Open(opts Options) (StateStore, error) {
	switch Backend(strings.ToLower(string(opts.Backend))) {
	case BackendJSON, "":
		return NewJSONStore(opts.Dir, opts.Compress)
	case BackendSQLite:
		return NewSQLiteStore(StatePath(opts.Dir, BackendSQLite))
	default:
		return nil, fmt.Errorf("unknown store backend: %s (valid options: json, sqlite)", opts.Backend)
	}
}

// ParseBackend validates a backend name.
func ParseBackend(name string) (Backend, error) {
	switch b := Backend(strings.ToLower(name)); b {
	case BackendJSON, BackendSQLite:
		return b, nil
	case "":
		return BackendJSON, nil
	default:
		return "", fmt.Errorf("unknown store backend: %s (valid options: json, sqlite)", name)
	}
}

// DetectBackend reports which backend already holds state in dir, or an
// empty string if none does. SQLite wins when both exist.
func DetectBackend(dir string) Backend {
	if fileExists(StatePath(dir, BackendSQLite)) {
		return BackendSQLite
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if _, ok := modelNameFromFile(e.Name()); ok && !e.IsDir() {
			return BackendJSON
		}
	}
	return ""
}

// StatePath returns the path a backend stores its data at.
func StatePath(dir string, backend Backend) string {
	if backend == BackendSQLite {
		return filepath.Join(dir, sqliteFile)
	}
	return dir
}

// fileExists checks if a file exists at the given path.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
