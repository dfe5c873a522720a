package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/adalundhe/gpr/core/config"
	"github.com/adalundhe/gpr/core/gp"
	"github.com/adalundhe/gpr/core/session"
	"github.com/adalundhe/gpr/core/store"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// =============================================================================
// Watch Command
// =============================================================================

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Refit and report whenever the state or config changes",
	Long: `Fit the saved state, print a summary, then keep watching the state and the
config files. Every change refits the model and prints a new summary line.
Stop with Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 100*time.Millisecond, "Collapse change bursts shorter than this")
}

// watcher ties a session to the files it was loaded from.
type watcher struct {
	app   *appContext
	out   io.Writer
	outMu sync.Mutex
	store store.Store
	name  string
	sess  *session.Session
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := app.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	state, err := app.loadState(ctx, st)
	if err != nil {
		return err
	}
	sess, err := app.newSession(state)
	if err != nil {
		return err
	}

	a := app
	w := &watcher{app: a, out: cmd.OutOrStdout(), store: st, name: a.stateName(), sess: sess}
	sess.OnRebuild(func(*gp.Model) { w.report("state changed") })
	a.config.OnChange(func(*config.Config) { w.report("config changed") })
	w.report("watching " + w.name)

	go func() {
		if err := a.config.Watch(ctx, watchDebounce); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn("config watch stopped", slog.String("error", err.Error()))
		}
	}()

	dir, prefix := statePaths(a, st, w.name)
	err = w.watchState(ctx, dir, prefix)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// statePaths returns the directory to watch and the file name prefix that
// identifies the state's files within it.
func statePaths(a *appContext, st store.Store, name string) (dir, prefix string) {
	if fs, ok := st.(*store.FileStore); ok {
		path := fs.Path(name)
		return filepath.Dir(path), filepath.Base(path)
	}
	database := a.storeOptions().Database
	if database == "" {
		database = "states"
	}
	path := a.dirs.DatabasePath(database)
	return filepath.Dir(path), filepath.Base(path)
}

// watchState reloads the state whenever a file in dir starting with prefix
// changes. The sqlite backend writes its main file and -wal/-journal files.
func (w *watcher) watchState(ctx context.Context, dir, prefix string) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !strings.HasPrefix(filepath.Base(ev.Name), prefix) || ev.Op == fsnotify.Chmod {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.reload(ctx)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.app.logger.Warn("state watcher error", slog.String("error", err.Error()))
		}
	}
}

// reload replaces the session state with what is on disk. A state that
// fails to fit leaves the previous model in place.
func (w *watcher) reload(ctx context.Context) {
	state, err := w.store.Load(ctx, w.name)
	if errors.Is(err, store.ErrStateNotFound) {
		w.app.logger.Info("state removed, keeping last model", slog.String("name", w.name))
		return
	}
	if err != nil {
		w.app.logger.Warn("state reload failed", slog.String("error", err.Error()))
		return
	}
	if err := w.sess.Replace(state); err != nil {
		w.app.logger.Warn("state refit failed, keeping last model", slog.String("error", err.Error()))
	}
}

// report prints one summary line for the current model on the configured grid.
func (w *watcher) report(reason string) {
	w.outMu.Lock()
	defer w.outMu.Unlock()

	cfg := w.app.cfg()
	xq, err := cfg.Grid.Values()
	if err != nil {
		fmt.Fprintf(w.out, "%s: %v\n", reason, err)
		return
	}
	p := w.sess.Predict(xq)

	maxVar, argMax := 0.0, 0.0
	for i, v := range p.Variance {
		if v > maxVar {
			maxVar, argMax = v, p.X[i]
		}
	}

	fmt.Fprintf(w.out, "%s: generation %d\n", reason, w.sess.Generation())
	printSummary(w.out, w.sess)
	fmt.Fprintln(w.out, dim(w.out, fmt.Sprintf("max variance %s at x=%s over %s",
		formatFloat(maxVar), formatFloat(argMax), cfg.Grid)))
}
