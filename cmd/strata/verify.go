package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"strata/internal/pipeline"
	"strata/internal/snapshot"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <snapshot>",
	Short: "Check every function graph in a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		mod, err := snapshot.LoadModule(path)
		if err != nil {
			return fmt.Errorf("failed to load %q: %w", path, err)
		}

		res, err := pipeline.Run(cmd.Context(), pipeline.Request{
			Module:     mod,
			VerifyOnly: true,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		okColor := color.New(color.FgGreen)
		errColor := color.New(color.FgRed)
		for _, fr := range res.Funcs {
			if fr.Err != nil {
				errColor.Fprintf(out, "  %-20s invalid\n", fr.Name)
				fmt.Fprintf(out, "    %v\n", fr.Err)
			} else {
				okColor.Fprintf(out, "  %-20s ok\n", fr.Name)
			}
		}
		if res.Failed > 0 {
			return fmt.Errorf("%d of %d functions invalid", res.Failed, len(res.Funcs))
		}
		fmt.Fprintf(out, "%d functions ok\n", len(res.Funcs))
		return nil
	},
}
