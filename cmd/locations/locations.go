// Package locations implements the command that ranks locations by richness.
package locations

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/hotspot-explorer/internal/app"
	"github.com/tphakala/hotspot-explorer/internal/output"
	"github.com/tphakala/hotspot-explorer/internal/params"
	"github.com/tphakala/hotspot-explorer/pkg/spinner"
)

// Command creates the locations command
func Command(src app.Source) *cobra.Command {
	var (
		p      params.Locations
		format string
	)

	cmd := &cobra.Command{
		Use:     "locations",
		Aliases: []string{"top"},
		Short:   "Rank locations by the number of species recently observed",
		Long: `Rank eBird hotspots and other reported locations by species richness.

Hotspots are read from the given regions, or from the radius around the
reference point when no region is given. The reference point defaults to the
configured center.`,
		Example: `  hotspot-explorer locations --region "Tel Aviv" --back 14
  hotspot-explorer locations --lat 32.08 --lng 34.78 --radius 10 --sort individuals`,
		Args: cobra.NoArgs,
	}

	scope := params.BindScopeFlags(cmd.Flags(), &p.Scope)
	cmd.Flags().StringVarP(&p.Sort, "sort", "s", "", "Ranking key: species, observations or individuals")
	cmd.Flags().BoolVar(&p.IncludeEmpty, "include-empty", false, "List hotspots without recent observations")
	cmd.Flags().StringVarP(&format, "format", "f", string(output.FormatTable), "Output format: table, json or csv")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		f, err := output.ParseFormat(format)
		if err != nil {
			return err
		}
		scope.Apply()

		a := src()
		q, err := p.LocationQuery(a.Settings)
		if err != nil {
			return err
		}

		var progress *spinner.Spinner
		if f == output.FormatTable {
			progress = spinner.ForTerminal(cmd.ErrOrStderr(), "Ranking locations...")
		}
		progress.Start()
		res, err := a.Explorer.TopLocationsByRichness(cmd.Context(), q)
		progress.Stop()
		if err != nil {
			return err
		}
		if err := output.Locations(cmd.OutOrStdout(), f, res); err != nil {
			return err
		}
		if notice := output.LocationNotice(res); notice != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), notice)
		}
		return app.StatusError(res.Status)
	}

	return cmd
}
