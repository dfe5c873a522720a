package cmd

import (
	"fmt"
	"strconv"

	"github.com/adalundhe/gpr/core/session"
	"github.com/spf13/cobra"
)

// =============================================================================
// Points Commands
// =============================================================================

var pointsFormat string

var pointsCmd = &cobra.Command{
	Use:   "points",
	Short: "List and edit the observations of a state",
}

var pointsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List observations with their index",
	Args:  cobra.NoArgs,
	RunE:  runPointsList,
}

var pointsAddCmd = &cobra.Command{
	Use:   "add <x> <y>",
	Short: "Add an observation",
	Args:  cobra.ExactArgs(2),
	RunE:  runPointsAdd,
}

var pointsRemoveCmd = &cobra.Command{
	Use:   "remove <index>",
	Short: "Remove the observation at index",
	Args:  cobra.ExactArgs(1),
	RunE:  runPointsRemove,
}

var pointsNearestCmd = &cobra.Command{
	Use:   "nearest <x> <y>",
	Short: "Remove the observation closest to (x, y)",
	Long: `Remove the observation closest to (x, y) by euclidean distance in the
plane, the way clicking on a point removes it in a plot.`,
	Args: cobra.ExactArgs(2),
	RunE: runPointsNearest,
}

var pointsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every observation",
	Args:  cobra.NoArgs,
	RunE:  runPointsClear,
}

func init() {
	rootCmd.AddCommand(pointsCmd)
	pointsCmd.AddCommand(pointsListCmd, pointsAddCmd, pointsRemoveCmd, pointsNearestCmd, pointsClearCmd)

	pointsListCmd.Flags().StringVarP(&pointsFormat, "format", "o", "", "Output format: auto, table, csv or json")
}

func runPointsList(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	return app.withSession(cmd.Context(), func(s *session.Session) (bool, error) {
		x, y := s.Points()

		format, err := resolveFormat(orDefault(pointsFormat, app.cfg().Plot.Format), out)
		if err != nil {
			return false, err
		}
		if format == formatJSON {
			return false, writeJSON(out, struct {
				X []float64 `json:"x"`
				Y []float64 `json:"y"`
			}{x, y})
		}

		t := &table{header: []string{"index", "x", "y"}}
		for i := range x {
			t.rows = append(t.rows, []string{strconv.Itoa(i), formatFloat(x[i]), formatFloat(y[i])})
		}
		return false, t.write(out, format)
	})
}

func runPointsAdd(cmd *cobra.Command, args []string) error {
	x, y, err := parsePoint(args)
	if err != nil {
		return err
	}
	return app.withSession(cmd.Context(), func(s *session.Session) (bool, error) {
		if err := s.Add(x, y); err != nil {
			return false, err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added (%s, %s), %d points\n", formatFloat(x), formatFloat(y), s.Model().Len())
		return true, nil
	})
}

func runPointsRemove(cmd *cobra.Command, args []string) error {
	i, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("index %q: %w", args[0], err)
	}
	return app.withSession(cmd.Context(), func(s *session.Session) (bool, error) {
		if err := s.Remove(i); err != nil {
			return false, err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed point %d, %d points\n", i, s.Model().Len())
		return true, nil
	})
}

func runPointsNearest(cmd *cobra.Command, args []string) error {
	x, y, err := parsePoint(args)
	if err != nil {
		return err
	}
	return app.withSession(cmd.Context(), func(s *session.Session) (bool, error) {
		i, err := s.RemoveNearest(x, y)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed point %d, %d points\n", i, s.Model().Len())
		return true, nil
	})
}

func runPointsClear(cmd *cobra.Command, args []string) error {
	return app.withSession(cmd.Context(), func(s *session.Session) (bool, error) {
		if err := s.Clear(); err != nil {
			return false, err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "cleared all points")
		return true, nil
	})
}

func parsePoint(args []string) (float64, float64, error) {
	x, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("x %q: %w", args[0], err)
	}
	y, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("y %q: %w", args[1], err)
	}
	return x, y, nil
}
