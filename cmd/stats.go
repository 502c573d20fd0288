package cmd

import "github.com/spf13/cobra"

// newStatsCmd creates the 'stats' subcommand.
func newStatsCmd() *cobra.Command {
	flags := &seasonFlags{}
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Scrapes head-to-head records for every manager in the range",
		Long: `Collects the union of managers active across the season range, then pages
through each manager's head-to-head table and writes one row per opponent.
Records are kept in both directions (A vs B and B vs A).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCommand(cmd, flags, Runner.RunStats)
		},
	}
	flags.register(cmd)
	return cmd
}
