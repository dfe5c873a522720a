// Package storage resolves where gpr keeps configuration, saved states and
// caches, following XDG conventions on every platform that honours them.
package storage

import (
	"os"
	"path/filepath"
	"strings"
)

// AppName names every per-user directory.
const AppName = "gpr"

// Dirs holds the per-user base directories.
type Dirs struct {
	Config string // config.yaml
	Data   string // saved training states and the state database
	Cache  string // regenerable output
	State  string // logs
}

// ProjectDirs holds the directories of a project checkout.
type ProjectDirs struct {
	Root   string // .gpr/
	Config string // .gpr/config.yaml (committed)
	Local  string // .gpr/local/ (gitignored)
}

// Resolve computes the directories from the given environment lookup.
// XDG_*_HOME variables take precedence over platform defaults.
func Resolve(getenv func(string) string) *Dirs {
	return &Dirs{
		Config: resolveDir(getenv, "XDG_CONFIG_HOME", platformConfigDefault),
		Data:   resolveDir(getenv, "XDG_DATA_HOME", platformDataDefault),
		Cache:  resolveDir(getenv, "XDG_CACHE_HOME", platformCacheDefault),
		State:  resolveDir(getenv, "XDG_STATE_HOME", platformStateDefault),
	}
}

func resolveDir(getenv func(string) string, envVar string, fallback func(func(string) string) string) string {
	if dir := getenv(envVar); dir != "" {
		return filepath.Join(dir, AppName)
	}
	return fallback(getenv)
}

// ResolveProjectDirs returns the project directories under projectRoot.
func ResolveProjectDirs(projectRoot string) *ProjectDirs {
	root := filepath.Join(projectRoot, "."+AppName)
	return &ProjectDirs{
		Root:   root,
		Config: filepath.Join(root, "config.yaml"),
		Local:  filepath.Join(root, "local"),
	}
}

// ConfigDir joins subpath onto the config directory.
func (d *Dirs) ConfigDir(subpath ...string) string {
	return filepath.Join(append([]string{d.Config}, subpath...)...)
}

// DataDir joins subpath onto the data directory.
func (d *Dirs) DataDir(subpath ...string) string {
	return filepath.Join(append([]string{d.Data}, subpath...)...)
}

// CacheDir joins subpath onto the cache directory.
func (d *Dirs) CacheDir(subpath ...string) string {
	return filepath.Join(append([]string{d.Cache}, subpath...)...)
}

// StateDir joins subpath onto the state directory.
func (d *Dirs) StateDir(subpath ...string) string {
	return filepath.Join(append([]string{d.State}, subpath...)...)
}

// StatesDir is where file-backed training states live.
func (d *Dirs) StatesDir() string {
	return d.DataDir("states")
}

// DatabasePath returns the sqlite file for a named database. Absolute names
// are used as is.
func (d *Dirs) DatabasePath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	if !strings.HasSuffix(name, ".db") {
		name += ".db"
	}
	return d.DataDir(name)
}

// LogDir returns the log directory.
func (d *Dirs) LogDir() string {
	return d.StateDir("logs")
}

// EnsureDir creates path with perm, defaulting to 0700.
func EnsureDir(path string, perm os.FileMode) error {
	if perm == 0 {
		perm = 0700
	}
	return os.MkdirAll(path, perm)
}

// EnsureAll creates every directory gpr writes to.
func (d *Dirs) EnsureAll() error {
	if err := EnsureDir(d.Config, 0700); err != nil {
		return err
	}
	for _, dir := range []string{d.Data, d.StatesDir(), d.Cache, d.State, d.LogDir()} {
		if err := EnsureDir(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// TempDir creates a temporary directory with a gpr prefix.
func TempDir(pattern string) (string, error) {
	switch {
	case pattern == "":
		pattern = AppName + "-*"
	case !strings.HasSuffix(pattern, "*"):
		pattern = AppName + "-" + pattern + "-*"
	default:
		pattern = AppName + "-" + pattern
	}
	return os.MkdirTemp("", pattern)
}
