package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sahayog-network/sahayog/internal/daemon"
)

func init() {
	rootCmd.AddCommand(clusterCmd)
}

var clusterCmd = &cobra.Command{
	Use:   "cluster COMMUNITY_ID",
	Short: "Compute and print a community's health classification",
	Args:  cobra.ExactArgs(1),
	RunE:  runCluster,
}

func runCluster(cmd *cobra.Command, args []string) error {
	communityID := args[0]

	cfg, err := daemon.Load(configPath)
	if err != nil {
		return err
	}
	d, err := daemon.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer d.Close(cmd.Context())

	snap, err := d.Clusters.Compute(cmd.Context(), communityID)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Community:        %s\n", snap.CommunityID)
	fmt.Fprintf(os.Stdout, "Status:           %s\n", snap.Status)
	fmt.Fprintf(os.Stdout, "Members:          %d\n", snap.MemberCount)
	fmt.Fprintf(os.Stdout, "Average score:    %.1f\n", snap.AvgScore)
	fmt.Fprintf(os.Stdout, "On-time rate 90d: %.1f%%\n", snap.OnTimeRate90d*100)
	fmt.Fprintf(os.Stdout, "Active borrowers: %d\n", snap.ActiveBorrowerCount)
	fmt.Fprintf(os.Stdout, "Disbursed:        %.2f\n", snap.TotalDisbursed)
	fmt.Fprintf(os.Stdout, "Outstanding:      %.2f\n", snap.TotalOutstanding)
	if len(snap.AtRisk) > 0 {
		fmt.Fprintln(os.Stdout, "\nAt-risk members:")
		for _, m := range snap.AtRisk {
			fmt.Fprintf(os.Stdout, "  %s: %d → %d (drop %d)\n", m.UserID, m.PreviousScore, m.CurrentScore, m.Drop)
		}
	}
	return nil
}
