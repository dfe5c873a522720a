// Package database manages the sqlite connection pools behind persisted
// training states. Two drivers are supported: mattn/go-sqlite3 (cgo) and
// modernc.org/sqlite (pure Go).
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	coreerrors "github.com/adalundhe/gpr/core/errors"
	"github.com/adalundhe/gpr/core/storage"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Registered database/sql driver names.
const (
	DriverCGO  = "sqlite3"
	DriverPure = "sqlite"
)

type Manager struct {
	dirs  *storage.Dirs
	pools map[string]*Pool
	mu    sync.RWMutex
}

type Pool struct {
	db     *sql.DB
	path   string
	config PoolConfig
	mu     sync.RWMutex
}

type PoolConfig struct {
	Driver      string
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
	BusyTimeout time.Duration
	EnableWAL   bool

	// Retry governs Transaction when sqlite reports the database as busy
	// after BusyTimeout has elapsed. Nil disables retries.
	Retry *coreerrors.RetryPolicy
}

// DefaultPoolConfig uses the pure Go driver so the binary needs no cgo.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Driver:      DriverPure,
		MaxOpen:     4,
		MaxIdle:     2,
		MaxLifetime: time.Hour,
		BusyTimeout: 5 * time.Second,
		EnableWAL:   true,
		Retry:       coreerrors.GetRetryPolicy(coreerrors.TierTransient),
	}
}

func NewManager(dirs *storage.Dirs) *Manager {
	return &Manager{
		dirs:  dirs,
		pools: make(map[string]*Pool),
	}
}

// Open returns the pool for name, opening it on first use. Names resolve
// through storage.Dirs.DatabasePath.
func (m *Manager) Open(ctx context.Context, name string, config PoolConfig) (*Pool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if pool, ok := m.pools[name]; ok {
		return pool, nil
	}

	path := m.dirs.DatabasePath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create dir: %w", err)
	}

	dsn, err := buildDSN(path, config)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(config.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpen)
	db.SetMaxIdleConns(config.MaxIdle)
	db.SetConnMaxLifetime(config.MaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	pool := &Pool{
		db:     db,
		path:   path,
		config: config,
	}

	m.pools[name] = pool
	return pool, nil
}

// buildDSN spells the same pragmas in each driver's connection string syntax.
func buildDSN(path string, config PoolConfig) (string, error) {
	busy := int(config.BusyTimeout.Milliseconds())
	journal := "DELETE"
	if config.EnableWAL {
		journal = "WAL"
	}

	switch config.Driver {
	case DriverCGO:
		return fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=%s&_foreign_keys=1",
			path, busy, journal), nil
	case DriverPure:
		return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(%s)&_pragma=foreign_keys(1)",
			path, busy, journal), nil
	default:
		return "", fmt.Errorf("unknown sqlite driver %q (want %q or %q)", config.Driver, DriverPure, DriverCGO)
	}
}

func (m *Manager) Get(name string) (*Pool, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pool, ok := m.pools[name]
	return pool, ok
}

func (m *Manager) Close(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pool, ok := m.pools[name]
	if !ok {
		return nil
	}

	delete(m.pools, name)
	return pool.Close()
}

func (m *Manager) CloseAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for name, pool := range m.pools {
		if err := pool.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(m.pools, name)
	}
	return firstErr
}

func (p *Pool) DB() *sql.DB {
	return p.db
}

func (p *Pool) Path() string {
	return p.path
}

func (p *Pool) Driver() string {
	return p.config.Driver
}

func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.db == nil {
		return nil
	}

	err := p.db.Close()
	p.db = nil
	return err
}

func (p *Pool) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return p.db.ExecContext(ctx, query, args...)
}

func (p *Pool) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return p.db.QueryContext(ctx, query, args...)
}

func (p *Pool) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return p.db.QueryRowContext(ctx, query, args...)
}

// Transaction runs fn in a transaction, rolling back when fn fails. A
// transaction that fails because the database is locked is retried as a
// whole under the pool's retry policy.
func (p *Pool) Transaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return coreerrors.Retry(ctx, p.config.Retry, func() error {
		return classify(p.transaction(ctx, fn))
	})
}

func (p *Pool) transaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

// classify marks lock contention as transient. Both drivers surface
// SQLITE_BUSY and SQLITE_LOCKED with these messages.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if IsBusy(err) {
		return coreerrors.WrapWithTier(coreerrors.TierTransient, "database busy", err)
	}
	return err
}

// IsBusy reports whether err is sqlite lock contention.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database table is locked")
}

func (p *Pool) Version(ctx context.Context) (int, error) {
	var version int
	err := p.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version)
	return version, err
}

func (p *Pool) IntegrityCheck(ctx context.Context) error {
	var result string
	if err := p.db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return err
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}
