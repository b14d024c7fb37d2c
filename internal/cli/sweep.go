package cli

import (
	"github.com/spf13/cobra"

	"github.com/sahayog-network/sahayog/internal/daemon"
)

func init() {
	rootCmd.AddCommand(sweepCmd)
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Recompute all scores and community health once",
	Long: `Run one full sweep: every user's trust score, then every community's
health classification. This is the same pass the daemon schedules
periodically.`,
	RunE: runSweep,
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.Load(configPath)
	if err != nil {
		return err
	}
	d, err := daemon.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer d.Close(cmd.Context())

	daemon.NewSweeper(d.Engine, d.Clusters, cfg.Sweep).Sweep(cmd.Context())
	return nil
}
