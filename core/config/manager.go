// Package config loads gpr settings from layered YAML files and GPR_*
// environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adalundhe/gpr/core/gp"
	"github.com/adalundhe/gpr/core/grid"
	"github.com/adalundhe/gpr/core/storage"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

type Manager struct {
	config      atomic.Pointer[Config]
	dirs        *storage.Dirs
	projectRoot string
	logger      *slog.Logger
	watchers    []func(*Config)
	watcherMu   sync.RWMutex
	stopWatch   chan struct{}
	watchOnce   sync.Once
}

type Config struct {
	Model gp.Hyperparams `yaml:"model"`
	Grid  grid.Spec      `yaml:"grid"`
	Store StoreConfig    `yaml:"store"`
	Plot  PlotConfig     `yaml:"plot"`
	Cache CacheConfig    `yaml:"cache"`
	Log   LogConfig      `yaml:"log"`
}

type StoreConfig struct {
	Backend  string `yaml:"backend"`  // file or sqlite
	Driver   string `yaml:"driver"`   // sqlite (pure Go) or sqlite3 (cgo)
	Database string `yaml:"database"` // database name or absolute path
	Dir      string `yaml:"dir"`      // state directory for the file backend
	State    string `yaml:"state"`    // state name used when none is given
}

type PlotConfig struct {
	Band   string  `yaml:"band"`   // variance or stddev
	Width  float64 `yaml:"width"`  // band half-width multiplier
	Format string  `yaml:"format"` // auto, table, csv or json
}

type CacheConfig struct {
	Predictions int `yaml:"predictions"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// NewManager returns a manager holding DefaultConfig. projectRoot locates
// the project and local layers; "." is the usual value.
func NewManager(dirs *storage.Dirs, projectRoot string) *Manager {
	m := &Manager{
		dirs:        dirs,
		projectRoot: projectRoot,
		logger:      slog.Default(),
		stopWatch:   make(chan struct{}),
	}
	m.config.Store(DefaultConfig())
	return m
}

// SetLogger replaces the logger used while watching.
func (m *Manager) SetLogger(logger *slog.Logger) {
	if logger != nil {
		m.logger = logger
	}
}

func DefaultConfig() *Config {
	return &Config{
		Model: gp.DefaultHyperparams(),
		Grid:  grid.Default(),
		Store: StoreConfig{
			Backend:  "file",
			Driver:   "sqlite",
			Database: "states",
			State:    "default",
		},
		Plot: PlotConfig{
			Band:   string(gp.BandVariance),
			Width:  1,
			Format: "auto",
		},
		Cache: CacheConfig{
			Predictions: 64,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func (m *Manager) Get() *Config {
	return m.config.Load()
}

// Paths lists the YAML layers in load order; later layers win.
func (m *Manager) Paths() []string {
	project := storage.ResolveProjectDirs(m.projectRoot)
	return []string{
		project.Config,
		m.dirs.ConfigDir("config.yaml"),
		filepath.Join(project.Local, "config.yaml"),
	}
}

// Load rebuilds the configuration from defaults, every YAML layer and the
// environment. The previous configuration stays in effect when any layer
// fails to parse or the result is invalid.
func (m *Manager) Load() error {
	cfg := DefaultConfig()

	layers := []string{"project", "user", "local"}
	for i, path := range m.Paths() {
		if err := loadYAMLFile(path, cfg); err != nil {
			return fmt.Errorf("%s config: %w", layers[i], err)
		}
	}

	if err := applyEnvironment(cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	m.config.Store(cfg)
	m.notifyWatchers(cfg)

	return nil
}

func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func applyEnvironment(cfg *Config) error {
	floats := []struct {
		key string
		dst *float64
	}{
		{"GPR_MODEL_SIGMA", &cfg.Model.Sigma},
		{"GPR_MODEL_LENGTH_SCALE", &cfg.Model.LengthScale},
		{"GPR_MODEL_NOISE_SIGMA", &cfg.Model.NoiseSigma},
		{"GPR_PLOT_WIDTH", &cfg.Plot.Width},
	}
	for _, f := range floats {
		if v := os.Getenv(f.key); v != "" {
			n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, f.key, v, err)
			}
			*f.dst = n
		}
	}

	strs := []struct {
		key string
		dst *string
	}{
		{"GPR_STORE_BACKEND", &cfg.Store.Backend},
		{"GPR_STORE_DRIVER", &cfg.Store.Driver},
		{"GPR_STORE_DATABASE", &cfg.Store.Database},
		{"GPR_STORE_DIR", &cfg.Store.Dir},
		{"GPR_STATE", &cfg.Store.State},
		{"GPR_PLOT_BAND", &cfg.Plot.Band},
		{"GPR_PLOT_FORMAT", &cfg.Plot.Format},
		{"GPR_LOG_LEVEL", &cfg.Log.Level},
	}
	for _, s := range strs {
		if v := os.Getenv(s.key); v != "" {
			*s.dst = v
		}
	}

	if v := os.Getenv("GPR_GRID"); v != "" {
		spec, err := grid.Parse(v)
		if err != nil {
			return fmt.Errorf("%w: GPR_GRID: %w", ErrInvalidConfig, err)
		}
		cfg.Grid = spec
	}
	if v := os.Getenv("GPR_CACHE_PREDICTIONS"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: GPR_CACHE_PREDICTIONS=%q: %v", ErrInvalidConfig, v, err)
		}
		cfg.Cache.Predictions = n
	}
	return nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Model.Validate(); err != nil {
		return fmt.Errorf("%w: model: %w", ErrInvalidConfig, err)
	}
	if err := c.Grid.Validate(); err != nil {
		return fmt.Errorf("%w: grid: %w", ErrInvalidConfig, err)
	}
	switch c.Store.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("%w: store.backend %q (want file or sqlite)", ErrInvalidConfig, c.Store.Backend)
	}
	switch c.Store.Driver {
	case "sqlite", "sqlite3":
	default:
		return fmt.Errorf("%w: store.driver %q (want sqlite or sqlite3)", ErrInvalidConfig, c.Store.Driver)
	}
	if _, err := gp.ParseBandMode(c.Plot.Band); err != nil {
		return fmt.Errorf("%w: plot.band: %w", ErrInvalidConfig, err)
	}
	if c.Plot.Width < 0 {
		return fmt.Errorf("%w: plot.width must be >= 0, got %v", ErrInvalidConfig, c.Plot.Width)
	}
	switch c.Plot.Format {
	case "auto", "table", "csv", "json":
	default:
		return fmt.Errorf("%w: plot.format %q", ErrInvalidConfig, c.Plot.Format)
	}
	if c.Cache.Predictions < 0 {
		return fmt.Errorf("%w: cache.predictions must be >= 0", ErrInvalidConfig)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("%w: log.level %q", ErrInvalidConfig, s)
	}
	return level, nil
}

func (m *Manager) OnChange(fn func(*Config)) {
	m.watcherMu.Lock()
	m.watchers = append(m.watchers, fn)
	m.watcherMu.Unlock()
}

func (m *Manager) notifyWatchers(cfg *Config) {
	m.watcherMu.RLock()
	watchers := m.watchers
	m.watcherMu.RUnlock()

	for _, fn := range watchers {
		fn(cfg)
	}
}

func (m *Manager) Reload() error {
	return m.Load()
}

// Watch reloads the configuration whenever one of its files changes, until
// ctx is done or Close is called. Bursts of events within debounce are
// collapsed into one reload. Reload failures are logged and the previous
// configuration is kept.
func (m *Manager) Watch(ctx context.Context, debounce time.Duration) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	targets := make(map[string]bool)
	watched := make(map[string]bool)
	for _, path := range m.Paths() {
		abs, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		targets[abs] = true
		dir := filepath.Dir(abs)
		if watched[dir] {
			continue
		}
		// Editors replace files by rename, so watch the directory.
		if err := w.Add(dir); err != nil {
			m.logger.Debug("config dir not watched", slog.String("dir", dir), slog.String("error", err.Error()))
			continue
		}
		watched[dir] = true
	}

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.stopWatch:
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !targets[filepath.Clean(ev.Name)] || ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			if err := m.Load(); err != nil {
				m.logger.Warn("config reload failed", slog.String("error", err.Error()))
				continue
			}
			m.logger.Info("config reloaded")
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			m.logger.Warn("config watcher error", slog.String("error", err.Error()))
		}
	}
}

func (m *Manager) Close() error {
	m.watchOnce.Do(func() {
		close(m.stopWatch)
	})
	return nil
}
