package cmd

import (
	"fmt"

	"github.com/adalundhe/gpr/core/session"
	"github.com/spf13/cobra"
)

// =============================================================================
// Params Commands
// =============================================================================

var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "Show or change the hyperparameters of a state",
}

var paramsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the hyperparameters",
	Args:  cobra.NoArgs,
	RunE:  runParamsShow,
}

var paramsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change hyperparameters and refit",
	Long: `Change one or more hyperparameters. The state is refitted and only saved
when the new values produce a valid model.

Examples:
  gpr params set --length-scale 0.5
  gpr params set --sigma 2 --noise-sigma 0.01`,
	Args: cobra.NoArgs,
	RunE: runParamsSet,
}

func init() {
	rootCmd.AddCommand(paramsCmd)
	paramsCmd.AddCommand(paramsShowCmd, paramsSetCmd)
	addHyperparamFlags(paramsSetCmd)
}

func runParamsShow(cmd *cobra.Command, args []string) error {
	return app.withSession(cmd.Context(), func(s *session.Session) (bool, error) {
		hp := s.Hyperparams()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "sigma: %g\nlength_scale: %g\nnoise_sigma: %g\n", hp.Sigma, hp.LengthScale, hp.NoiseSigma)
		return false, nil
	})
}

func runParamsSet(cmd *cobra.Command, args []string) error {
	return app.withSession(cmd.Context(), func(s *session.Session) (bool, error) {
		if !anyChanged(cmd, "sigma", "length-scale", "noise-sigma") {
			return false, fmt.Errorf("nothing to set: pass --sigma, --length-scale or --noise-sigma")
		}
		hp, err := hyperparamsFromFlags(cmd, s.Hyperparams())
		if err != nil {
			return false, err
		}
		if err := s.SetHyperparams(hp); err != nil {
			return false, err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sigma=%g length_scale=%g noise_sigma=%g\n", hp.Sigma, hp.LengthScale, hp.NoiseSigma)
		return true, nil
	})
}

func anyChanged(cmd *cobra.Command, names ...string) bool {
	for _, name := range names {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}
