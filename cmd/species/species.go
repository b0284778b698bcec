// Package species implements the command that finds the largest counts of one species.
package species

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tphakala/hotspot-explorer/internal/app"
	"github.com/tphakala/hotspot-explorer/internal/output"
	"github.com/tphakala/hotspot-explorer/internal/params"
	"github.com/tphakala/hotspot-explorer/pkg/spinner"
)

// Command creates the species command
func Command(src app.Source) *cobra.Command {
	var (
		p      params.Species
		format string
	)

	cmd := &cobra.Command{
		Use:   "species <name>",
		Short: "List the largest recent counts of a species",
		Long: `List the observations with the largest reported counts of one species.

The name matches any part of the scientific name, or of the common name with
--common-name. With --species-feed the name must be a full scientific name and
the species feed around the reference point is read instead of hotspots.`,
		Example: `  hotspot-explorer species "Corvus cornix" --region IL-TA
  hotspot-explorer species kingfisher --common-name --all-rows`,
		Args: cobra.MinimumNArgs(1),
	}

	scope := params.BindScopeFlags(cmd.Flags(), &p.Scope)
	cmd.Flags().BoolVar(&p.CommonName, "common-name", false, "Also match the common name")
	cmd.Flags().BoolVar(&p.SpeciesFeed, "species-feed", false, "Read the species feed around the reference point")
	cmd.Flags().BoolVar(&p.PerLocation, "per-location", true, "Keep only the largest count per location")
	allRows := cmd.Flags().Bool("all-rows", false, "Keep every matching observation, same as --per-location=false")
	cmd.Flags().StringVarP(&format, "format", "f", string(output.FormatTable), "Output format: table, json or csv")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		f, err := output.ParseFormat(format)
		if err != nil {
			return err
		}
		scope.Apply()
		p.Name = strings.Join(args, " ")
		if *allRows {
			p.PerLocation = false
		}

		a := src()
		q, err := p.SpeciesQuery(a.Settings)
		if err != nil {
			return err
		}

		var progress *spinner.Spinner
		if f == output.FormatTable {
			progress = spinner.ForTerminal(cmd.ErrOrStderr(), "Searching observations...")
		}
		progress.Start()
		res, err := a.Explorer.TopObservationsForSpecies(cmd.Context(), q)
		progress.Stop()
		if err != nil {
			return err
		}
		if err := output.Species(cmd.OutOrStdout(), f, res); err != nil {
			return err
		}
		if notice := output.SpeciesNotice(res); notice != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), notice)
		}
		return app.StatusError(res.Status)
	}

	return cmd
}
