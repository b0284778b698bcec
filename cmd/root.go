// Package cmd assembles the command line interface.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/hotspot-explorer/cmd/config"
	"github.com/tphakala/hotspot-explorer/cmd/history"
	"github.com/tphakala/hotspot-explorer/cmd/locations"
	"github.com/tphakala/hotspot-explorer/cmd/regions"
	"github.com/tphakala/hotspot-explorer/cmd/serve"
	"github.com/tphakala/hotspot-explorer/cmd/species"
	"github.com/tphakala/hotspot-explorer/cmd/version"
	"github.com/tphakala/hotspot-explorer/internal/app"
)

type root struct {
	cmd        *cobra.Command
	viper      *viper.Viper
	configFile string
	app        *app.App
}

// Execute runs the command line and releases the runtime when it returns.
func Execute(ctx context.Context, args []string) error {
	r := newRoot()
	defer r.close()

	r.cmd.SetArgs(args)
	return r.cmd.ExecuteContext(ctx)
}

func newRoot() *root {
	r := &root{viper: viper.New()}
	src := func() *app.App { return r.app }

	r.cmd = &cobra.Command{
		Use:   "hotspot-explorer",
		Short: "Rank eBird hotspots by species richness and find the largest counts of a species",
		SilenceUsage: true,
	}

	if err := r.setupFlags(); err != nil {
		panic(err)
	}

	r.cmd.AddCommand(
		locations.Command(src),
		species.Command(src),
		regions.Command(src),
		history.Command(src),
		serve.Command(src),
		config.Command(src),
		version.Command(),
	)

	r.cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if cmd.Annotations[app.SkipInitAnnotation] == "true" {
			return nil
		}
		a, err := app.Init(app.Options{ConfigFile: r.configFile, Viper: r.viper})
		if err != nil {
			return fmt.Errorf("initialization failed: %w", err)
		}
		r.app = a
		return nil
	}

	return r
}

// setupFlags defines flags that are global to the command line interface
func (r *root) setupFlags() error {
	flags := r.cmd.PersistentFlags()
	flags.StringVarP(&r.configFile, "config", "c", "", "Path to config.yaml, overrides the search path")
	flags.BoolP("debug", "d", false, "Enable debug output")

	if err := r.viper.BindPFlag("debug", flags.Lookup("debug")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}

func (r *root) close() {
	r.app.Close()
	r.app = nil
}
