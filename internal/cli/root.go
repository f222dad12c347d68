package cli

import (
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "stravaetl",
		Short: "stravaetl - incremental Strava activity ETL",
		Long: `stravaetl pulls athlete profiles and activities from the Strava API for the
configured accounts, caches the raw documents locally and rebuilds the
athlete_profiles and activities tables from that cache.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	rootCmd.AddCommand(
		NewExtractCmd(),
		NewTransformLoadCmd(),
		NewBackfillCmd(),
		NewCheckpointCmd(),
	)

	return rootCmd
}
