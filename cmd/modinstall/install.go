package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/handiism/mod-installer/internal/config"
	"github.com/handiism/mod-installer/internal/download"
	ioutils "github.com/handiism/mod-installer/internal/io"
	"github.com/handiism/mod-installer/internal/model"
)

type installOptions struct {
	*rootOptions
	selectFlags

	dest  string
	clean string
	jobs  int
}

func newInstallCommand(root *rootOptions) *cobra.Command {
	o := &installOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Download and install the artifacts of the manifest",
		Long: `Install downloads every artifact selected for this run into the
destination folder.

Client-only artifacts are skipped with --server and server-only artifacts
are skipped without it. Optional artifacts follow the same rules unless
--with or --without names them.

Example:
  modinstall install --dest ~/.minecraft/mods
  modinstall install --manifest pack.yaml --dest /srv/mc/mods --server --without dynmap.jar`,
		Args: cobra.NoArgs,
		RunE: o.run,
	}

	o.selectFlags.register(cmd)
	cmd.Flags().StringVarP(&o.dest, "dest", "d", "", "destination folder (default from settings)")
	cmd.Flags().StringVar(&o.clean, "clean", "", "clear a non-empty destination first: ask, always or never (default from settings)")
	cmd.Flags().IntVarP(&o.jobs, "jobs", "j", 0, "number of concurrent downloads (default from settings, 10)")

	return cmd
}

func (o *installOptions) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	log := o.logger(cmd.ErrOrStderr())

	settings := o.settings
	if o.dest != "" {
		settings.DestinationPath = o.dest
	}
	if o.jobs != 0 {
		settings.MaxConcurrentDownloads = o.jobs
	}
	if o.clean != "" {
		policy, err := config.ParseCleanPolicy(o.clean)
		if err != nil {
			return err
		}
		settings.CleanDestination = policy
	}
	settings.IsServer = o.isServer(cmd, settings)
	if err := settings.Validate(); err != nil {
		return err
	}
	if settings.DestinationPath == "" {
		return fmt.Errorf("no destination folder; pass --dest or set destination_path in the config")
	}

	artifacts, err := o.loadManifest(ctx, log)
	if err != nil {
		return err
	}
	overrides, err := o.overrides(artifacts)
	if err != nil {
		return err
	}

	if err := o.prepareDestination(cmd, settings); err != nil {
		return err
	}

	manager := download.NewManager(settings, printer(out, o.verbose), download.WithLogger(log))
	run := model.NewRunContext(settings.DestinationPath, settings.IsServer, overrides)
	log.V(1).Info("starting batch", "run", run.ID, "artifacts", len(artifacts), "workers", settings.MaxConcurrentDownloads)

	report := manager.Run(ctx, artifacts, run)

	received, _, _, _ := manager.Progress()
	fmt.Fprintf(out, "Downloaded %.2f MB\n", float64(received)/1024/1024)

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if !report.OK() {
		// The summary has been printed by the batch finished event.
		return &exitError{code: 1}
	}
	return nil
}

// prepareDestination clears a non-empty destination according to the clean
// policy.
func (o *installOptions) prepareDestination(cmd *cobra.Command, settings *config.Settings) error {
	dest := settings.DestinationPath
	empty, err := ioutils.IsEmptyDir(dest)
	if err != nil {
		return fmt.Errorf("cannot read destination: %w", err)
	}
	if empty {
		return nil
	}

	switch settings.CleanDestination {
	case config.CleanNever:
		return nil
	case config.CleanAsk:
		ok, err := confirm(o.stdin, cmd.OutOrStdout(), fmt.Sprintf("%s is not empty. Remove everything in it before installing?", dest))
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}

	errOut := cmd.ErrOrStderr()
	removed, err := ioutils.ClearDir(dest, func(name string, err error) {
		fmt.Fprintf(errOut, "! could not remove %s, check that it is not open in another program: %v\n", name, err)
	})
	if err != nil {
		return fmt.Errorf("failed to clear destination: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries from %s\n", removed, dest)
	return nil
}

// confirm asks a y/N question. Anything but y or yes, including end of
// input, is a no.
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N] ", question)

	if in == nil {
		fmt.Fprintln(out)
		return false, nil
	}

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		fmt.Fprintln(out)
		return false, scanner.Err()
	}

	switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// printer renders progress events as prefixed lines. Events arrive from
// worker goroutines, so writes are serialized.
func printer(out io.Writer, verbose bool) download.ProgressFunc {
	var mu sync.Mutex
	return func(event download.ProgressEvent) {
		if event.Level == download.LevelVerbose && !verbose {
			return
		}

		prefix := ""
		switch event.Level {
		case download.LevelError:
			prefix = "✗ "
		case download.LevelWarning:
			prefix = "! "
		case download.LevelSuccess:
			prefix = "✓ "
		case download.LevelInfo:
			prefix = "› "
		default:
			prefix = "  "
		}

		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintln(out, prefix+event.Message)
	}
}
