package config

import (
	"path/filepath"
)

// AppName is the directory name used under the XDG base directories.
const AppName = "pkgbridge"

// Paths holds every location pkgbridge reads or writes on the host.
type Paths struct {
	// ConfigFile is the TOML settings file.
	ConfigFile string

	// StateFile is the YAML first-run state file.
	StateFile string

	// SnapshotDir holds one package inventory per container.
	SnapshotDir string

	// BinDir receives exported binaries and shims.
	BinDir string

	// AppsDir receives exported desktop entries.
	AppsDir string
}

// ResolvePaths derives all host locations from the environment. getenv is
// usually os.Getenv; tests pass a map lookup.
func ResolvePaths(getenv func(string) string) Paths {
	home := getenv("HOME")
	base := func(key string, fallback ...string) string {
		if v := getenv(key); v != "" && filepath.IsAbs(v) {
			return v
		}
		return filepath.Join(append([]string{home}, fallback...)...)
	}

	configHome := base("XDG_CONFIG_HOME", ".config")
	stateHome := base("XDG_STATE_HOME", ".local", "state")
	dataHome := base("XDG_DATA_HOME", ".local", "share")

	return Paths{
		ConfigFile:  filepath.Join(configHome, AppName, "config.toml"),
		StateFile:   filepath.Join(stateHome, AppName, "state.yaml"),
		SnapshotDir: filepath.Join(stateHome, AppName, "snapshots"),
		BinDir:      base("XDG_BIN_HOME", ".local", "bin"),
		AppsDir:     filepath.Join(dataHome, "applications"),
	}
}
