// Package history implements the commands that read and prune the query journal.
package history

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/hotspot-explorer/internal/app"
	"github.com/tphakala/hotspot-explorer/internal/errors"
	hist "github.com/tphakala/hotspot-explorer/internal/history"
	"github.com/tphakala/hotspot-explorer/internal/output"
)

// Command creates the history parent command
func Command(src app.Source) *cobra.Command {
	var (
		filter hist.Filter
		format string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent queries from the query journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := output.ParseFormat(format)
			if err != nil {
				return err
			}
			store, err := journal(src())
			if err != nil {
				return err
			}

			records, err := store.Recent(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if err := output.History(cmd.OutOrStdout(), f, records); err != nil {
				return err
			}

			counts, err := store.StatusCounts(cmd.Context())
			if err != nil {
				return err
			}
			if summary := countSummary(counts); summary != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), summary)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&filter.Kind, "kind", "k", "", "Only list locations or species queries")
	cmd.Flags().StringVar(&filter.Status, "status", "", "Only list queries that finished with this status")
	cmd.Flags().IntVarP(&filter.Limit, "limit", "n", hist.DefaultRecentLimit, "Number of queries to list")
	cmd.Flags().StringVarP(&format, "format", "f", string(output.FormatTable), "Output format: table, json or csv")

	cmd.AddCommand(pruneCommand(src))
	return cmd
}

func pruneCommand(src app.Source) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete journal entries older than the given age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := src()
			store, err := journal(a)
			if err != nil {
				return err
			}
			if olderThan == 0 {
				olderThan = a.Settings.History.Retention
			}
			if olderThan <= 0 {
				return errors.NewStd("an age is required when no retention is configured")
			}

			removed, err := store.Prune(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries older than %s\n", removed, olderThan)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Minimum age of removed entries, defaults to the configured retention")
	return cmd
}

func journal(a *app.App) (*hist.Store, error) {
	if a.History == nil {
		return nil, errors.NewStd("query history is not enabled, set history.enabled in the configuration")
	}
	return a.History, nil
}

// countSummary renders status counts in a stable order, "no_data=1 ok=4".
func countSummary(counts map[string]int64) string {
	parts := make([]string, 0, len(counts))
	for _, status := range slices.Sorted(maps.Keys(counts)) {
		parts = append(parts, fmt.Sprintf("%s=%d", status, counts[status]))
	}
	return strings.Join(parts, " ")
}
