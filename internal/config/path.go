package config

import (
	"os"
	"path/filepath"
	"strings"
)

// Locations under the user's home directory. Both honour the XDG overrides.
const (
	configSubdir = ".config"
	dataSubdir   = ".local/share"
	appDir       = "tracker"
)

// ConfigDir is where the config file is looked up: $XDG_CONFIG_HOME/tracker,
// falling back to ~/.config/tracker.
func ConfigDir() string {
	return baseDir("XDG_CONFIG_HOME", configSubdir)
}

// DataDir holds the database and its checkpoints: $XDG_DATA_HOME/tracker,
// falling back to ~/.local/share/tracker.
func DataDir() string {
	return baseDir("XDG_DATA_HOME", dataSubdir)
}

// DefaultDatabasePath returns the ledger database inside DataDir.
func DefaultDatabasePath() string {
	return filepath.Join(DataDir(), "tracker.db")
}

func baseDir(env, fallback string) string {
	if dir := os.Getenv(env); dir != "" {
		return filepath.Join(dir, appDir)
	}
	return ExpandPath(filepath.Join("~", fallback, appDir))
}

// ExpandPath resolves a leading ~ to the home directory, then $VAR references.
// Paths come from flags, TRACKER_* variables and the seed file, so both forms
// show up in practice. An unknown home leaves the ~ in place.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = home + path[1:]
		}
	}
	return os.ExpandEnv(path)
}
