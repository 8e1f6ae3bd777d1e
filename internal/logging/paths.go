package logging

import (
	"fmt"
	"os"
	"path/filepath"
)

// LogFileName is the name of the default log file.
const LogFileName = "bm25vec.log"

// DefaultLogDir returns the default log directory (~/.bm25vec/logs/).
// Falls back to the temp directory if the home directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".bm25vec", "logs")
	}
	return filepath.Join(home, ".bm25vec", "logs")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), LogFileName)
}

// FindLogFile returns explicit if given, else the default log path, as long
// as the file exists.
func FindLogFile(explicit string) (string, error) {
	path := explicit
	if path == "" {
		path = DefaultLogPath()
	}
	if _, err := os.Stat(path); err != nil {
		if explicit != "" {
			return "", fmt.Errorf("log file not found: %s", explicit)
		}
		return "", fmt.Errorf("no log file found at %s; run a command first (add --debug for debug records)", path)
	}
	return path, nil
}

// EnsureLogDir creates dir if it doesn't exist.
func EnsureLogDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}
