package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"strata/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "strata",
	Short: "Structured control flow IR toolchain",
	Long:  `Strata canonicalizes and verifies structured control flow IR snapshots`,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(canonCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("ui", "auto", "progress UI (auto|on|off)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// progressMode decides whether the interactive progress view runs.
type progressMode int

const (
	progressAuto progressMode = iota
	progressAlways
	progressNever
)

func parseProgressMode(value string) (progressMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "auto":
		return progressAuto, nil
	case "on", "always":
		return progressAlways, nil
	case "off", "never":
		return progressNever, nil
	}
	return progressAuto, fmt.Errorf("--ui wants auto, on or off, not %q", value)
}

// interactive resolves auto against whether stdout is a terminal.
func (m progressMode) interactive() bool {
	switch m {
	case progressAlways:
		return true
	case progressNever:
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}
