// Package config implements the commands that show and create the configuration file.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tphakala/hotspot-explorer/internal/app"
	"github.com/tphakala/hotspot-explorer/internal/conf"
)

// Command creates the config parent command
func Command(src app.Source) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create the configuration file",
	}

	configCmd.AddCommand(showCommand(src), initCommand(), pathsCommand())
	return configCmd
}

func showCommand(src app.Source) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := src().Settings.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func initCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "init [path]",
		Short:       "Write the default configuration file",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{app.SkipInitAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "config.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := conf.WriteDefaultConfig(path); err != nil {
				return err
			}
			abs, err := filepath.Abs(path)
			if err != nil {
				abs = path
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", abs)
			return nil
		},
	}
}

func pathsCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "paths",
		Short:       "List the directories searched for config.yaml",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{app.SkipInitAnnotation: "true"},
		Run: func(cmd *cobra.Command, _ []string) {
			for _, p := range conf.GetDefaultConfigPaths() {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
		},
	}
}
