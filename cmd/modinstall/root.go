package main

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/spf13/cobra"

	"github.com/handiism/mod-installer/internal/config"
	"github.com/handiism/mod-installer/internal/http"
	"github.com/handiism/mod-installer/internal/manifest"
	"github.com/handiism/mod-installer/internal/model"
	"github.com/handiism/mod-installer/internal/selection"
)

// rootOptions holds the flags shared by every subcommand.
type rootOptions struct {
	configPath   string
	manifestPath string
	verbose      bool

	settings *config.Settings
	stdin    io.Reader
}

func newRootCommand(stdin io.Reader) *cobra.Command {
	o := &rootOptions{stdin: stdin}

	rootCmd := &cobra.Command{
		Use:   "modinstall",
		Short: "Install the mods listed in a manifest",
		Long: `modinstall downloads every artifact listed in a manifest (mods.json)
into a destination folder, ten at a time, retrying transient failures.

CurseForge landing page links are rewritten to the CDN download URL, and
archives marked "extract" are unpacked in place.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return o.loadSettings(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&o.configPath, "config", "c", "", "path to a JSON settings file")
	flags.StringVarP(&o.manifestPath, "manifest", "m", "", "manifest file or http(s) URL (default from settings, mods.json)")
	flags.BoolVarP(&o.verbose, "verbose", "v", false, "show per-attempt progress and HTTP diagnostics")

	rootCmd.AddCommand(
		newInstallCommand(o),
		newListCommand(o),
		newResolveCommand(o),
	)

	return rootCmd
}

func (o *rootOptions) loadSettings(cmd *cobra.Command) error {
	settings := config.DefaultSettings()
	if o.configPath != "" {
		var err error
		settings, err = config.Load(o.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}
	if o.manifestPath != "" {
		settings.ManifestPath = o.manifestPath
	}
	o.settings = settings

	o.logger(cmd.ErrOrStderr()).V(1).Info("settings loaded", "config", o.configPath, "manifest", settings.ManifestPath)
	return nil
}

// logger returns a logr.Logger writing to w when --verbose is set.
func (o *rootOptions) logger(w io.Writer) logr.Logger {
	if !o.verbose {
		return logr.Discard()
	}
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintf(w, "%s: %s\n", prefix, args)
			return
		}
		fmt.Fprintln(w, args)
	}, funcr.Options{Verbosity: 2})
}

func (o *rootOptions) loadManifest(ctx context.Context, log logr.Logger) ([]model.Artifact, error) {
	client := http.NewClient(o.settings.ToClientConfig(log))
	artifacts, err := manifest.Open(ctx, client, o.settings.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}
	return artifacts, nil
}

// selectFlags are the run selection flags of install and list.
type selectFlags struct {
	server  bool
	with    []string
	without []string
}

func (s *selectFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&s.server, "server", false, "install for a server (default from settings)")
	cmd.Flags().StringSliceVar(&s.with, "with", nil, "include an optional artifact (repeatable)")
	cmd.Flags().StringSliceVar(&s.without, "without", nil, "exclude an optional artifact (repeatable)")
}

// isServer returns the --server flag when given, otherwise the setting.
func (s *selectFlags) isServer(cmd *cobra.Command, settings *config.Settings) bool {
	if cmd.Flags().Changed("server") {
		return s.server
	}
	return settings.IsServer
}

// overrides turns --with and --without into inclusion overrides. Every name
// must be an optional artifact of the manifest.
func (s *selectFlags) overrides(artifacts []model.Artifact) (map[string]bool, error) {
	var optional []string
	for _, a := range selection.OptionalArtifacts(artifacts) {
		optional = append(optional, a.Filename)
	}

	out := make(map[string]bool, len(s.with)+len(s.without))
	set := func(names []string, include bool) error {
		for _, name := range names {
			if !slices.Contains(optional, name) {
				return fmt.Errorf("%s is not an optional artifact of the manifest", name)
			}
			if prev, ok := out[name]; ok && prev != include {
				return fmt.Errorf("%s is given to both --with and --without", name)
			}
			out[name] = include
		}
		return nil
	}

	if err := set(s.with, true); err != nil {
		return nil, err
	}
	if err := set(s.without, false); err != nil {
		return nil, err
	}
	return out, nil
}
