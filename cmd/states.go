package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// =============================================================================
// States Commands
// =============================================================================

var statesCmd = &cobra.Command{
	Use:   "states",
	Short: "List or delete saved states",
}

var statesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved state names",
	Args:  cobra.NoArgs,
	RunE:  runStatesList,
}

var statesDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a saved state",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatesDelete,
}

func init() {
	rootCmd.AddCommand(statesCmd)
	statesCmd.AddCommand(statesListCmd, statesDeleteCmd)
}

func runStatesList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, err := app.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	names, err := st.List(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}

func runStatesDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, err := app.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
	return nil
}
