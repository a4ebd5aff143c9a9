package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/covenant/pkg/cli"
	"mercator-hq/covenant/pkg/config"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "covenant",
	Short: "Covenant - deterministic consent policy evaluator",
	Long: `Covenant evaluates data-use requests against a fixed consent policy.

Each request carries a consent state, an intended use, a sensitivity level,
transfer and aggregation flags, and a timestamp. Covenant answers with one
of ALLOW, ALLOW_WITH_CONTROLS, ESCALATE or DENY and seals the answer with a
SHA-256 audit hash over canonical JSON.

Missing fields, unknown vocabulary and prohibited consent fail closed.
Scored results are reproducible: the same request always yields the same
hash, which "covenant verify" can recompute.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with a code chosen by
// cli.ExitCode.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file path (default: "+config.DefaultConfigurationFile+" when present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
}
