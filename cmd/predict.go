package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/adalundhe/gpr/core/gp"
	"github.com/adalundhe/gpr/core/grid"
	"github.com/adalundhe/gpr/core/session"
	"github.com/adalundhe/gpr/core/store"
	"github.com/spf13/cobra"
)

// =============================================================================
// Predict Command Flags
// =============================================================================

var (
	predictGrid     string
	predictX        []float64
	predictY        []float64
	predictFormat   string
	predictBand     string
	predictWidth    float64
	predictObserved bool
)

// =============================================================================
// Predict Command
// =============================================================================

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Print the posterior mean and variance on a grid",
	Long: `Fit the saved state (or the points given with --x/--y) and print the
posterior mean, variance and uncertainty band at every grid point.

Examples:
  gpr predict
  gpr predict --grid 0:10:21 --format json
  gpr predict --x 1,2,6 --y 1,1,-1 --length-scale 0.5
  gpr predict --band stddev --width 2 --observed`,
	Args: cobra.NoArgs,
	RunE: runPredict,
}

func init() {
	rootCmd.AddCommand(predictCmd)

	flags := predictCmd.Flags()
	flags.StringVarP(&predictGrid, "grid", "g", "", "Query grid lo:hi[:points] (default from config)")
	flags.Float64SliceVar(&predictX, "x", nil, "Training inputs, overriding the saved state")
	flags.Float64SliceVar(&predictY, "y", nil, "Training targets, overriding the saved state")
	flags.StringVarP(&predictFormat, "format", "o", "", "Output format: auto, table, csv or json")
	flags.StringVar(&predictBand, "band", "", "Band half-width: variance or stddev")
	flags.Float64Var(&predictWidth, "width", -1, "Band width multiplier (default from config)")
	flags.BoolVar(&predictObserved, "observed", false, "Include observation noise in the variance")
	addHyperparamFlags(predictCmd)
}

func runPredict(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	xq, err := queryGrid(predictGrid)
	if err != nil {
		return err
	}

	state, err := predictState(ctx, cmd)
	if err != nil {
		return err
	}

	sess, err := app.newSession(state)
	if err != nil {
		return err
	}

	predict := sess.Predict
	if predictObserved {
		predict = sess.PredictObserved
	}
	p := predict(xq)

	mode, width, err := bandSettings(predictBand, predictWidth)
	if err != nil {
		return err
	}
	format, err := resolveFormat(orDefault(predictFormat, app.cfg().Plot.Format), out)
	if err != nil {
		return err
	}

	if err := writePrediction(out, format, p, mode, width); err != nil {
		return err
	}
	if format == formatTable {
		printSummary(out, sess)
	}
	return nil
}

// predictState returns the training state for predict: explicit --x/--y
// points or the saved state, with flag hyperparameters applied on top.
func predictState(ctx context.Context, cmd *cobra.Command) (*store.State, error) {
	var state *store.State
	if cmd.Flags().Changed("x") || cmd.Flags().Changed("y") {
		state = &store.State{X: predictX, Y: predictY, Hyperparams: app.cfg().Model}
	} else {
		st, err := app.openStore(ctx)
		if err != nil {
			return nil, err
		}
		defer st.Close()

		if state, err = app.loadState(ctx, st); err != nil {
			return nil, err
		}
	}

	hp, err := hyperparamsFromFlags(cmd, state.Hyperparams)
	if err != nil {
		return nil, err
	}
	state.Hyperparams = hp
	return state, nil
}

// =============================================================================
// Shared Helpers
// =============================================================================

// addHyperparamFlags registers --sigma, --length-scale and --noise-sigma.
func addHyperparamFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("sigma", 0, "RBF amplitude (variance scale)")
	cmd.Flags().Float64("length-scale", 0, "RBF length scale")
	cmd.Flags().Float64("noise-sigma", 0, "Observation noise added to the diagonal")
}

// hyperparamsFromFlags overrides base with every hyperparameter flag the
// user set.
func hyperparamsFromFlags(cmd *cobra.Command, base gp.Hyperparams) (gp.Hyperparams, error) {
	hp := base
	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"sigma", &hp.Sigma},
		{"length-scale", &hp.LengthScale},
		{"noise-sigma", &hp.NoiseSigma},
	} {
		if !cmd.Flags().Changed(f.name) {
			continue
		}
		v, err := cmd.Flags().GetFloat64(f.name)
		if err != nil {
			return hp, err
		}
		*f.dst = v
	}
	return hp, nil
}

func queryGrid(flag string) ([]float64, error) {
	spec := app.cfg().Grid
	if flag != "" {
		var err error
		if spec, err = grid.Parse(flag); err != nil {
			return nil, err
		}
	}
	return spec.Values()
}

func bandSettings(bandFlag string, widthFlag float64) (gp.BandMode, float64, error) {
	plot := app.cfg().Plot
	mode, err := gp.ParseBandMode(orDefault(bandFlag, plot.Band))
	if err != nil {
		return "", 0, err
	}
	width := plot.Width
	if widthFlag >= 0 {
		width = widthFlag
	}
	return mode, width, nil
}

func printSummary(w io.Writer, sess *session.Session) {
	m := sess.Model()
	hp := sess.Hyperparams()
	line := fmt.Sprintf("%d points  sigma=%g  length_scale=%g  noise_sigma=%g  log_ml=%.4f  inverse=%s",
		m.Len(), hp.Sigma, hp.LengthScale, hp.NoiseSigma, m.LogMarginalLikelihood(), m.Method())
	fmt.Fprintln(w, dim(w, line))
}

func orDefault(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
