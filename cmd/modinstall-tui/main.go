package main

import (
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/handiism/mod-installer/internal/config"
	"github.com/handiism/mod-installer/internal/http"
	"github.com/handiism/mod-installer/internal/manifest"
	"github.com/handiism/mod-installer/internal/tui"
)

func main() {
	if err := newCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var configPath, manifestPath string

	cmd := &cobra.Command{
		Use:           "modinstall-tui",
		Short:         "Interactive mod installer",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings := config.DefaultSettings()
			if configPath != "" {
				var err error
				settings, err = config.Load(configPath)
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
			}
			if manifestPath != "" {
				settings.ManifestPath = manifestPath
			}

			client := http.NewClient(settings.ToClientConfig(logr.Discard()))
			artifacts, err := manifest.Open(cmd.Context(), client, settings.ManifestPath)
			if err != nil {
				return fmt.Errorf("failed to load manifest: %w", err)
			}

			return tui.Run(settings, artifacts)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a JSON settings file")
	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "manifest file or http(s) URL (default mods.json)")

	return cmd
}
