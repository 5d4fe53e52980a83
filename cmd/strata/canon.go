package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"strata/internal/observ"
	"strata/internal/pipeline"
	"strata/internal/project"
	"strata/internal/snapshot"
)

var (
	canonOutput     string
	canonStats      bool
	canonJobs       int
	canonMaxIter    int
	canonDisable    []string
	canonVerifyEach bool
	canonTimings    bool
)

func init() {
	canonCmd.Flags().StringVarP(&canonOutput, "output", "o", "", "write the result here instead of overwriting the snapshot")
	canonCmd.Flags().BoolVar(&canonStats, "stats", false, "print per-pattern application counts")
	canonCmd.Flags().IntVar(&canonJobs, "jobs", 0, "concurrent function workers (0 = all CPUs)")
	canonCmd.Flags().IntVar(&canonMaxIter, "max-iterations", 0, "cap on rewrite sweeps per function (0 = driver default)")
	canonCmd.Flags().StringSliceVar(&canonDisable, "disable", nil, "pattern names to skip")
	canonCmd.Flags().BoolVar(&canonVerifyEach, "verify-each", false, "re-verify graphs after every changed sweep")
	canonCmd.Flags().BoolVar(&canonTimings, "timings", false, "print per-phase wall-clock timings")
}

var canonCmd = &cobra.Command{
	Use:   "canon <snapshot>",
	Short: "Canonicalize every function graph in a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		timer := observ.NewTimer()

		loaded := timer.Phase("load snapshot")
		mod, err := snapshot.LoadModule(path)
		if err != nil {
			return fmt.Errorf("failed to load %q: %w", path, err)
		}
		loaded(fmt.Sprintf("%d functions", len(mod.Funcs)))

		req := pipeline.Request{
			Module:        mod,
			Disabled:      canonDisable,
			MaxIterations: canonMaxIter,
			VerifyEach:    canonVerifyEach,
			Jobs:          canonJobs,
		}
		applyManifest(&req)

		uiValue, _ := cmd.Flags().GetString("ui")
		mode, err := parseProgressMode(uiValue)
		if err != nil {
			return err
		}

		ran := timer.Phase("canonicalize")
		var res pipeline.Result
		if mode.interactive() {
			res, err = runCanonWithUI(cmd.Context(), "canonicalizing "+path, req)
		} else {
			res, err = pipeline.Run(cmd.Context(), req)
		}
		if err != nil {
			return err
		}
		ran(fmt.Sprintf("%d failed", res.Failed))

		out := cmd.OutOrStdout()
		reportRun(out, res, canonStats)
		if res.Failed > 0 {
			return fmt.Errorf("%d of %d functions failed", res.Failed, len(res.Funcs))
		}

		dest := canonOutput
		if dest == "" {
			dest = path
		}
		wrote := timer.Phase("write snapshot")
		if err := snapshot.SaveModule(dest, mod); err != nil {
			return fmt.Errorf("failed to write %q: %w", dest, err)
		}
		wrote(dest)
		fmt.Fprintf(out, "wrote %s\n", dest)
		if canonTimings {
			fmt.Fprint(out, timer.Summary())
		}
		return nil
	},
}

// applyManifest fills request fields the flags left at their defaults
// from a discovered strata.toml.
func applyManifest(req *pipeline.Request) {
	m, ok, err := project.Load(".")
	if err != nil || !ok {
		return
	}
	cfg := m.Config.Canon
	if len(req.Disabled) == 0 {
		req.Disabled = cfg.Disabled
	}
	if req.MaxIterations == 0 {
		req.MaxIterations = cfg.MaxIterations
	}
	if req.Jobs == 0 {
		req.Jobs = cfg.Jobs
	}
	if !req.VerifyEach {
		req.VerifyEach = cfg.VerifyEach
	}
}

func reportRun(out io.Writer, res pipeline.Result, withStats bool) {
	okColor := color.New(color.FgGreen)
	errColor := color.New(color.FgRed)
	for _, fr := range res.Funcs {
		if fr.Err != nil {
			errColor.Fprintf(out, "  %-20s error\n", fr.Name)
			fmt.Fprintf(out, "    %v\n", fr.Err)
			continue
		}
		okColor.Fprintf(out, "  %-20s ok", fr.Name)
		if fr.Stats.Sweeps > 0 {
			fmt.Fprintf(out, "  (%d sweeps, %d folds)", fr.Stats.Sweeps, fr.Stats.Folds)
		}
		fmt.Fprintln(out)
		if withStats && len(fr.Stats.Applied) > 0 {
			names := make([]string, 0, len(fr.Stats.Applied))
			for name := range fr.Stats.Applied {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(out, "    %-36s %d\n", name, fr.Stats.Applied[name])
			}
		}
	}
	fmt.Fprintf(out, "%d functions in %.1f ms\n",
		len(res.Funcs), float64(res.Elapsed.Microseconds())/1000.0)
}
