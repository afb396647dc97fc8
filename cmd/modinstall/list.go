package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/handiism/mod-installer/internal/model"
	"github.com/handiism/mod-installer/internal/selection"
)

type listOptions struct {
	*rootOptions
	selectFlags
}

func newListCommand(root *rootOptions) *cobra.Command {
	o := &listOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the manifest and which artifacts a run would install",
		Args:  cobra.NoArgs,
		RunE:  o.run,
	}
	o.selectFlags.register(cmd)

	return cmd
}

func (o *listOptions) run(cmd *cobra.Command, _ []string) error {
	artifacts, err := o.loadManifest(cmd.Context(), o.logger(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	overrides, err := o.overrides(artifacts)
	if err != nil {
		return err
	}

	run := model.NewRunContext(o.settings.DestinationPath, o.isServer(cmd, o.settings), overrides)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("FILENAME", "MODE", "TAGS", "INSTALL")

	selected := 0
	for _, a := range artifacts {
		install := "no"
		if selection.Include(a, run) {
			install = "yes"
			selected++
		}
		t.Row(a.Filename, a.Mode.String(), strings.Join(a.Tags.Strings(), ","), install)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, t.String())

	target := "client"
	if run.IsServer {
		target = "server"
	}
	fmt.Fprintf(out, "%d of %d artifact(s) selected for a %s install\n", selected, len(artifacts), target)
	return nil
}
