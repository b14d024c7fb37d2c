// Package cli implements the sahayog command-line interface.
package cli

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "sahayog",
	Short: "Trust score and cluster health engine for community lending",
	Long: `Sahayog computes explainable trust scores for members of community
lending circles and rolls them up into per-community health
classifications. Scores are built from repayment history, tenure,
endorsements, and loan volume; every score carries a full breakdown and
a verifiable content hash.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.toml (default ~/.sahayog/config.toml)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
