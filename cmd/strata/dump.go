package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"strata/internal/scf"
	"strata/internal/snapshot"
)

var dumpCmd = &cobra.Command{
	Use:   "dump <snapshot>",
	Short: "Print every function graph in a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mod, err := snapshot.LoadModule(args[0])
		if err != nil {
			return fmt.Errorf("failed to load %q: %w", args[0], err)
		}
		out := cmd.OutOrStdout()
		for i, fn := range mod.Funcs {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "func %s:\n", fn.Name)
			if err := scf.DumpGraph(out, fn.Graph, scf.DumpOptions{}); err != nil {
				return err
			}
		}
		return nil
	},
}
