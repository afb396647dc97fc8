package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/handiism/mod-installer/internal/curseforge"
)

func newResolveCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <url> <filename>",
		Short: "Print the URL an artifact is downloaded from",
		Long: `Resolve prints the effective download URL for a manifest entry.

CurseForge landing pages are rewritten to the CDN; any other URL is printed
unchanged.

Example:
  modinstall resolve https://www.curseforge.com/minecraft/mc-mods/jei/files/4712345 jei.jar`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver := curseforge.NewResolver(root.settings.CDNBaseURL)
			fmt.Fprintln(cmd.OutOrStdout(), resolver.Resolve(args[0], args[1]))
			return nil
		},
	}
}
