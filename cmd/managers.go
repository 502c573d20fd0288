package cmd

import "github.com/spf13/cobra"

// newManagersCmd creates the 'managers' subcommand.
func newManagersCmd() *cobra.Command {
	flags := &seasonFlags{}
	cmd := &cobra.Command{
		Use:   "managers",
		Short: "Lists the managers active in each season",
		Long: `Fetches the league's manager listing for every season in the range and
writes one row per manager per season (season, manager, identifier, club).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCommand(cmd, flags, Runner.RunManagers)
		},
	}
	flags.register(cmd)
	return cmd
}
