// Package cli wires the configuration, stores and API client into the
// cobra commands.
package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func NewExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract",
		Short: "Fetch new activities and profiles for every account",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return runExtract(c.Context(), nil)
		},
	}
}

func NewTransformLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transform-load",
		Short: "Rebuild the destination tables from the local cache",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return runTransformLoad(c.Context())
		},
	}
}

type BackfillOptions struct {
	Since string
}

func NewBackfillCmd() *cobra.Command {
	opts := &BackfillOptions{}

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Refetch every account's activities after a given time",
		Long: `backfill ignores the stored checkpoints and fetches everything after --since.
Checkpoints are only ever moved forward.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			since, err := ParseSince(opts.Since)
			if err != nil {
				return err
			}
			return runExtract(c.Context(), &since)
		},
	}

	cmd.Flags().StringVarP(&opts.Since, "since", "s", "", "RFC 3339 time or Unix seconds")
	cmd.MarkFlagRequired("since")

	return cmd
}

func NewCheckpointCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Inspect per-account checkpoints",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the checkpoint of every account",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return runCheckpointShow(c.Context(), c.OutOrStdout())
		},
	}

	cmd.AddCommand(show)
	return cmd
}

// ParseSince accepts an RFC 3339 timestamp or whole Unix seconds.
func ParseSince(s string) (time.Time, error) {
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--since %q is neither RFC 3339 nor Unix seconds", s)
	}
	return t.UTC(), nil
}
