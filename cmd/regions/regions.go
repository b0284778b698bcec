// Package regions implements the command that lists the configured region presets.
package regions

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tphakala/hotspot-explorer/internal/app"
)

// Command creates the regions command
func Command(src app.Source) *cobra.Command {
	return &cobra.Command{
		Use:   "regions",
		Short: "List the configured region presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tCODE")
			for _, r := range src().Settings.Regions {
				fmt.Fprintf(tw, "%s\t%s\n", r.Name, r.Code)
			}
			return tw.Flush()
		},
	}
}
