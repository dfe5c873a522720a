// Package cmd provides the gpr command line interface.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/adalundhe/gpr/core/config"
	coreerrors "github.com/adalundhe/gpr/core/errors"
	"github.com/adalundhe/gpr/core/database"
	"github.com/adalundhe/gpr/core/storage"
	"github.com/spf13/cobra"
)

// =============================================================================
// Root Command Flags
// =============================================================================

var (
	rootVerbose bool
	rootProject string
	rootState   string
	rootBackend string
	rootDriver  string
)

// app is built by the root pre-run hook for every command invocation.
var app *appContext

var rootCmd = &cobra.Command{
	Use:   "gpr",
	Short: "gpr - Gaussian Process regression over one-dimensional data",
	Long: `gpr fits a Gaussian Process with an RBF kernel to a saved set of (x, y)
observations and reports the posterior mean and variance on a query grid.

Observations and hyperparameters are kept in a named state, stored as YAML
files or in a sqlite database. Every change refits the model from scratch.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupApp,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if app == nil {
			return nil
		}
		err := app.Close()
		app = nil
		return err
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&rootVerbose, "verbose", "v", false, "Log debug output to stderr")
	flags.StringVar(&rootProject, "project", ".", "Project root holding .gpr/config.yaml")
	flags.StringVarP(&rootState, "state", "s", "", "State name (default from config store.state)")
	flags.StringVar(&rootBackend, "backend", "", "State backend: file or sqlite (default from config)")
	flags.StringVar(&rootDriver, "driver", "", "sqlite driver: sqlite (pure Go) or sqlite3 (cgo)")
}

// Execute runs the root command. Errors that carry remedies are followed by
// hint lines.
func Execute() error {
	err := rootCmd.Execute()
	printHints(rootCmd.ErrOrStderr(), err)
	return err
}

// printHints writes the best remedy for err, then the alternatives.
func printHints(w io.Writer, err error) {
	remedies := coreerrors.GetRemedies(err)
	best := remedies.Best()
	if best == nil {
		return
	}
	fmt.Fprintf(w, "hint: %s%s\n", best.Description, suggestion(best))
	for _, alt := range remedies.Alternatives() {
		fmt.Fprintf(w, "  or: %s%s\n", alt.Description, suggestion(alt))
	}
}

func suggestion(r *coreerrors.Remedy) string {
	if v, ok := r.Metadata["suggested"]; ok {
		return " (try " + v + ")"
	}
	return ""
}

// setupApp loads configuration and builds the logger shared by every command.
func setupApp(cmd *cobra.Command, args []string) error {
	dirs := storage.Resolve(os.Getenv)

	cfgMgr := config.NewManager(dirs, rootProject)
	if err := cfgMgr.Load(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg := cfgMgr.Get()

	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	if rootVerbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	cfgMgr.SetLogger(logger)

	app = &appContext{
		dirs:   dirs,
		config: cfgMgr,
		db:     database.NewManager(dirs),
		logger: logger,
	}
	return nil
}
