package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sahayog-network/sahayog/internal/daemon"
	"github.com/sahayog-network/sahayog/internal/domain"
)

func init() {
	rootCmd.AddCommand(scoreCmd)
	scoreCmd.Flags().Bool("recompute", false, "Recompute before printing instead of serving the stored snapshot")
}

var scoreCmd = &cobra.Command{
	Use:   "score USER_ID",
	Short: "Print a user's trust score and breakdown",
	Args:  cobra.ExactArgs(1),
	RunE:  runScore,
}

func runScore(cmd *cobra.Command, args []string) error {
	userID := args[0]
	recompute, _ := cmd.Flags().GetBool("recompute")

	cfg, err := daemon.Load(configPath)
	if err != nil {
		return err
	}
	d, err := daemon.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer d.Close(cmd.Context())

	var snap domain.ScoreSnapshot
	if recompute {
		snap, err = d.Engine.Recompute(cmd.Context(), userID, domain.ReasonManual)
		if err != nil {
			return err
		}
	} else {
		latest, err := d.DB().LatestSnapshot(cmd.Context(), userID)
		if err != nil {
			return err
		}
		if latest == nil {
			snap, err = d.Engine.Recompute(cmd.Context(), userID, domain.ReasonManual)
			if err != nil {
				return err
			}
		} else {
			snap = *latest
		}
	}

	fmt.Fprintf(os.Stdout, "User:     %s\n", snap.UserID)
	fmt.Fprintf(os.Stdout, "Score:    %d/1000\n", snap.Total)
	fmt.Fprintf(os.Stdout, "Computed: %s\n", snap.ComputedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(os.Stdout, "Hash:     %s\n\n", snap.ContentHash)
	fmt.Fprintln(os.Stdout, snap.Explanation)
	return nil
}
