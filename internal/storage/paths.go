// Package storage persists games and settings: the plain-text save format
// and a BadgerDB store for preferences, statistics and named saves.
package storage

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "chessmind"

// GetDataDir returns the per-user data directory, creating it if needed.
// On macOS this is ~/Library/Application Support/chessmind, on Windows
// %APPDATA%\chessmind and elsewhere $XDG_DATA_HOME/chessmind, falling back
// to ~/.local/share/chessmind.
func GetDataDir() (string, error) {
	base, err := userDataBase()
	if err != nil {
		return "", err
	}
	return ensureDir(filepath.Join(base, appName))
}

func userDataBase() (string, error) {
	var envVar string
	var fallback []string
	switch runtime.GOOS {
	case "darwin":
		fallback = []string{"Library", "Application Support"}
	case "windows":
		envVar, fallback = "APPDATA", []string{"AppData", "Roaming"}
	default:
		envVar, fallback = "XDG_DATA_HOME", []string{".local", "share"}
	}
	if envVar != "" {
		if dir := os.Getenv(envVar); dir != "" {
			return dir, nil
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append([]string{home}, fallback...)...), nil
}

// SavesDir returns the directory under dataDir that holds exported text saves.
func SavesDir(dataDir string) (string, error) {
	return ensureDir(filepath.Join(dataDir, "saves"))
}

// DatabaseDir returns the BadgerDB directory under dataDir.
func DatabaseDir(dataDir string) (string, error) {
	return ensureDir(filepath.Join(dataDir, "db"))
}

func ensureDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}
