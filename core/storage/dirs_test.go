package storage

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func envMap(vars map[string]string) func(string) string {
	return func(key string) string {
		return vars[key]
	}
}

func TestResolveFromEnvironment(t *testing.T) {
	dirs := Resolve(os.Getenv)

	for name, dir := range map[string]string{
		"Config": dirs.Config,
		"Data":   dirs.Data,
		"Cache":  dirs.Cache,
		"State":  dirs.State,
	} {
		if dir == "" {
			t.Errorf("%s dir should not be empty", name)
		}
		if !strings.Contains(dir, AppName) {
			t.Errorf("%s dir should contain %q: %s", name, AppName, dir)
		}
	}
}

func TestResolveXDGOverride(t *testing.T) {
	dirs := Resolve(envMap(map[string]string{
		"HOME":            "/home/someone",
		"APPDATA":         `C:\Users\someone\AppData\Roaming`,
		"LOCALAPPDATA":    `C:\Users\someone\AppData\Local`,
		"XDG_CONFIG_HOME": "/xdg/config",
		"XDG_DATA_HOME":   "/xdg/data",
	}))

	if want := filepath.Join("/xdg/config", AppName); dirs.Config != want {
		t.Errorf("Config: got %s, want %s", dirs.Config, want)
	}
	if want := filepath.Join("/xdg/data", AppName); dirs.Data != want {
		t.Errorf("Data: got %s, want %s", dirs.Data, want)
	}
	if strings.HasPrefix(dirs.Cache, "/xdg") {
		t.Errorf("Cache should fall back to the platform default: %s", dirs.Cache)
	}
}

func TestResolvePlatformDefaults(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix layout")
	}

	dirs := Resolve(envMap(map[string]string{"HOME": "/home/someone"}))

	tests := []struct {
		got, want string
	}{
		{dirs.Config, "/home/someone/.config/gpr"},
		{dirs.Data, "/home/someone/.local/share/gpr"},
		{dirs.Cache, "/home/someone/.cache/gpr"},
		{dirs.State, "/home/someone/.local/state/gpr"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %s, want %s", tt.got, tt.want)
		}
	}
}

func TestResolveProjectDirs(t *testing.T) {
	projectRoot := "/test/project"
	dirs := ResolveProjectDirs(projectRoot)

	if dirs.Root != filepath.Join(projectRoot, ".gpr") {
		t.Errorf("Root: got %s", dirs.Root)
	}
	if dirs.Config != filepath.Join(projectRoot, ".gpr", "config.yaml") {
		t.Errorf("Config: got %s", dirs.Config)
	}
	if dirs.Local != filepath.Join(projectRoot, ".gpr", "local") {
		t.Errorf("Local: got %s", dirs.Local)
	}
}

func TestDatabasePath(t *testing.T) {
	dirs := &Dirs{Data: "/data/gpr"}

	tests := []struct {
		name string
		want string
	}{
		{"states", filepath.Join("/data/gpr", "states.db")},
		{"states.db", filepath.Join("/data/gpr", "states.db")},
		{"/abs/elsewhere.sqlite", "/abs/elsewhere.sqlite"},
	}
	for _, tt := range tests {
		if got := dirs.DatabasePath(tt.name); got != tt.want {
			t.Errorf("DatabasePath(%q) = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestSubpathHelpers(t *testing.T) {
	dirs := &Dirs{Config: "/c", Data: "/d", Cache: "/k", State: "/s"}

	if got := dirs.ConfigDir("a", "b"); got != filepath.Join("/c", "a", "b") {
		t.Errorf("ConfigDir: %s", got)
	}
	if got := dirs.CacheDir("x"); got != filepath.Join("/k", "x") {
		t.Errorf("CacheDir: %s", got)
	}
	if got := dirs.StatesDir(); got != filepath.Join("/d", "states") {
		t.Errorf("StatesDir: %s", got)
	}
	if got := dirs.LogDir(); got != filepath.Join("/s", "logs") {
		t.Errorf("LogDir: %s", got)
	}
}

func TestEnsureAll(t *testing.T) {
	root := t.TempDir()
	dirs := &Dirs{
		Config: filepath.Join(root, "config"),
		Data:   filepath.Join(root, "data"),
		Cache:  filepath.Join(root, "cache"),
		State:  filepath.Join(root, "state"),
	}

	if err := dirs.EnsureAll(); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	for _, dir := range []string{dirs.Config, dirs.Data, dirs.StatesDir(), dirs.Cache, dirs.LogDir()} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Errorf("%s not created: %v", dir, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", dir)
		}
	}

	if runtime.GOOS != "windows" {
		info, _ := os.Stat(dirs.Config)
		if perm := info.Mode().Perm(); perm != 0700 {
			t.Errorf("config dir perm: got %o, want 0700", perm)
		}
	}
}

func TestTempDir(t *testing.T) {
	for _, pattern := range []string{"", "state", "plot*"} {
		dir, err := TempDir(pattern)
		if err != nil {
			t.Fatalf("TempDir(%q) failed: %v", pattern, err)
		}
		if !strings.HasPrefix(filepath.Base(dir), AppName+"-") {
			t.Errorf("TempDir(%q) = %s, want gpr- prefix", pattern, dir)
		}
		os.RemoveAll(dir)
	}
}
