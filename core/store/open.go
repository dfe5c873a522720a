package store

import (
	"context"
	"fmt"

	"github.com/adalundhe/gpr/core/database"
	"github.com/adalundhe/gpr/core/storage"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Options selects and configures a backend.
type Options struct {
	Backend  string
	Driver   string // sqlite driver, see database.DriverPure and database.DriverCGO
	Database string // database name or absolute path
	Dir      string // state directory for the file backend; defaults to Dirs.StatesDir
}

// Open builds the configured store. The sqlite backend opens its pool
// through mgr.
func Open(ctx context.Context, opts Options, dirs *storage.Dirs, mgr *database.Manager) (Store, error) {
	switch opts.Backend {
	case BackendFile, "":
		dir := opts.Dir
		if dir == "" {
			dir = dirs.StatesDir()
		}
		return NewFileStore(dir)

	case BackendSQLite:
		cfg := database.DefaultPoolConfig()
		if opts.Driver != "" {
			cfg.Driver = opts.Driver
		}
		name := opts.Database
		if name == "" {
			name = "states"
		}
		pool, err := mgr.Open(ctx, name, cfg)
		if err != nil {
			return nil, fmt.Errorf("open state database: %w", err)
		}
		return NewSQLStore(ctx, pool)

	default:
		return nil, fmt.Errorf("unknown store backend %q (want %q or %q)", opts.Backend, BackendFile, BackendSQLite)
	}
}
