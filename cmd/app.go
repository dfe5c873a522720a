package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/adalundhe/gpr/core/config"
	"github.com/adalundhe/gpr/core/database"
	"github.com/adalundhe/gpr/core/session"
	"github.com/adalundhe/gpr/core/storage"
	"github.com/adalundhe/gpr/core/store"
)

// appContext carries the resolved directories, configuration and open
// resources of one command invocation.
type appContext struct {
	dirs   *storage.Dirs
	config *config.Manager
	db     *database.Manager
	logger *slog.Logger
}

func (a *appContext) cfg() *config.Config {
	return a.config.Get()
}

// stateName is the --state flag or the configured default.
func (a *appContext) stateName() string {
	if rootState != "" {
		return rootState
	}
	return a.cfg().Store.State
}

func (a *appContext) storeOptions() store.Options {
	c := a.cfg().Store
	opts := store.Options{
		Backend:  c.Backend,
		Driver:   c.Driver,
		Database: c.Database,
		Dir:      c.Dir,
	}
	if rootBackend != "" {
		opts.Backend = rootBackend
	}
	if rootDriver != "" {
		opts.Driver = rootDriver
	}
	return opts
}

func (a *appContext) openStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, a.storeOptions(), a.dirs, a.db)
}

// loadState returns the saved state, or the default training set with the
// configured hyperparameters when nothing is saved yet.
func (a *appContext) loadState(ctx context.Context, st store.Store) (*store.State, error) {
	name := a.stateName()
	state, err := st.Load(ctx, name)
	if err == nil {
		a.logger.Debug("state loaded", slog.String("name", name), slog.Int("points", state.Len()))
		return state, nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	state = store.DefaultState()
	state.Hyperparams = a.cfg().Model
	a.logger.Debug("no saved state, using defaults", slog.String("name", name))
	return state, nil
}

func (a *appContext) newSession(state *store.State) (*session.Session, error) {
	return session.New(state,
		session.WithLogger(a.logger),
		session.WithCacheSize(a.cfg().Cache.Predictions))
}

// withSession loads the current state, applies fn to a session built on it
// and saves the result when fn reports a change.
func (a *appContext) withSession(ctx context.Context, fn func(s *session.Session) (bool, error)) error {
	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	state, err := a.loadState(ctx, st)
	if err != nil {
		return err
	}
	sess, err := a.newSession(state)
	if err != nil {
		return fmt.Errorf("fit state %s: %w", a.stateName(), err)
	}

	changed, err := fn(sess)
	if err != nil || !changed {
		return err
	}
	return st.Save(ctx, a.stateName(), sess.Snapshot())
}

func (a *appContext) Close() error {
	return a.db.CloseAll()
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrStateNotFound)
}
