package download

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/handiism/mod-installer/internal/config"
	"github.com/handiism/mod-installer/internal/curseforge"
	"github.com/handiism/mod-installer/internal/http"
	ioutils "github.com/handiism/mod-installer/internal/io"
	"github.com/handiism/mod-installer/internal/model"
	"github.com/handiism/mod-installer/internal/retry"
	"github.com/handiism/mod-installer/internal/selection"
)

// Manager coordinates install batches.
type Manager struct {
	settings      *config.Settings
	fetcher       *Fetcher
	maxConcurrent int

	receivedBytes int64
	totalFiles    int32
	finishedFiles int32
	failedFiles   int32
	running       atomic.Bool

	onProgress ProgressFunc
}

// Option customizes a Manager.
type Option func(*managerOptions)

type managerOptions struct {
	downloader Downloader
	policy     *retry.Policy
	logger     logr.Logger
}

// WithDownloader replaces the HTTP client, e.g. with a fake in tests.
func WithDownloader(d Downloader) Option {
	return func(o *managerOptions) { o.downloader = d }
}

// WithRetryPolicy replaces the policy derived from settings.
func WithRetryPolicy(p *retry.Policy) Option {
	return func(o *managerOptions) { o.policy = p }
}

// WithLogger sets the logger used for transport diagnostics.
func WithLogger(log logr.Logger) Option {
	return func(o *managerOptions) { o.logger = log }
}

// NewManager creates a new download Manager.
func NewManager(settings *config.Settings, onProgress ProgressFunc, opts ...Option) *Manager {
	o := managerOptions{logger: logr.Discard()}
	for _, opt := range opts {
		opt(&o)
	}

	if o.downloader == nil {
		o.downloader = http.NewClient(settings.ToClientConfig(o.logger))
	}
	if o.policy == nil {
		o.policy = settings.ToRetryPolicy()
	}

	maxConcurrent := settings.MaxConcurrentDownloads
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	return &Manager{
		settings: settings,
		fetcher: NewFetcher(
			o.downloader,
			curseforge.NewResolver(settings.CDNBaseURL),
			o.policy,
			settings.ToExtractOptions(),
			onProgress,
		),
		maxConcurrent: maxConcurrent,
		onProgress:    onProgress,
	}
}

// Run installs the artifacts selected for run and reports the aggregate
// result.
//
// Artifacts are dispatched in manifest order to at most
// MaxConcurrentDownloads workers. A failed artifact never cancels its
// siblings; Run waits for every dispatched artifact to reach its own
// outcome. Run always returns a Report, never an error.
func (m *Manager) Run(ctx context.Context, artifacts []model.Artifact, run *model.RunContext) *Report {
	if run == nil {
		now := time.Now()
		return &Report{RunErr: ErrNoRunContext, Started: now, Finished: now}
	}

	report := &Report{
		RunID:       run.ID,
		Destination: run.Destination,
		Started:     time.Now(),
	}

	if !m.running.CompareAndSwap(false, true) {
		report.RunErr = ErrBatchRunning
		report.Finished = time.Now()
		return report
	}
	defer m.running.Store(false)

	m.progress(ProgressEvent{RunID: run.ID, Phase: PhaseBatchStarted, Level: LevelInfo,
		Message: fmt.Sprintf("Installing into %s", run.Destination)})
	defer func() {
		report.Finished = time.Now()
		level := LevelSuccess
		if !report.OK() {
			level = LevelError
		}
		m.progress(ProgressEvent{RunID: run.ID, Phase: PhaseBatchFinished, Level: level, Message: report.Summary()})
	}()

	if err := ioutils.EnsureDir(run.Destination); err != nil {
		report.RunErr = fmt.Errorf("create destination %s: %w", run.Destination, err)
		return report
	}

	included, skipped := selection.Filter(artifacts, run)
	for _, a := range skipped {
		report.Skipped = append(report.Skipped, a.Filename)
		m.progress(ProgressEvent{RunID: run.ID, Artifact: a.Filename, Phase: PhaseSkipped, Level: LevelVerbose,
			Message: fmt.Sprintf("[%s] skipped", a.Base())})
	}

	included, report.Duplicates = dedupe(included)
	for _, name := range report.Duplicates {
		m.progress(ProgressEvent{RunID: run.ID, Artifact: name, Phase: PhaseSkipped, Level: LevelWarning,
			Message: fmt.Sprintf("[%s] listed more than once in the manifest, fetching it once", name)})
	}

	atomic.StoreInt64(&m.receivedBytes, 0)
	atomic.StoreInt32(&m.totalFiles, int32(len(included)))
	atomic.StoreInt32(&m.finishedFiles, 0)
	atomic.StoreInt32(&m.failedFiles, 0)

	fetcher := m.fetcher.forRun(run.ID, func(delta int64) {
		atomic.AddInt64(&m.receivedBytes, delta)
	})

	// Each worker writes only its own index.
	outcomes := make([]model.Outcome, len(included))

	var g errgroup.Group
	g.SetLimit(m.maxConcurrent)
	for i, a := range included {
		g.Go(func() error {
			outcomes[i] = m.fetchOne(ctx, fetcher, a, run.Destination)
			return nil
		})
	}
	_ = g.Wait()

	report.Outcomes = outcomes
	return report
}

// fetchOne runs one fetch and converts a panic into a failed outcome.
func (m *Manager) fetchOne(ctx context.Context, f *Fetcher, a model.Artifact, root string) (out model.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = model.Outcome{
				Filename: a.Filename,
				URL:      a.URL,
				Reason:   model.ReasonUnexpected,
				Detail:   fmt.Sprintf("panic: %v", r),
			}
			f.finish(out)
		}
		atomic.AddInt32(&m.finishedFiles, 1)
		if !out.OK() {
			atomic.AddInt32(&m.failedFiles, 1)
		}
	}()

	return f.Fetch(ctx, a, root)
}

// Progress returns live counters for the running or last batch.
func (m *Manager) Progress() (received int64, finished, failed, total int32) {
	return atomic.LoadInt64(&m.receivedBytes),
		atomic.LoadInt32(&m.finishedFiles),
		atomic.LoadInt32(&m.failedFiles),
		atomic.LoadInt32(&m.totalFiles)
}

// Running reports whether a batch is in progress.
func (m *Manager) Running() bool {
	return m.running.Load()
}

// dedupe keeps the first artifact for each filename.
func dedupe(artifacts []model.Artifact) (unique []model.Artifact, duplicates []string) {
	seen := make(map[string]struct{}, len(artifacts))
	for _, a := range artifacts {
		if _, ok := seen[a.Filename]; ok {
			duplicates = append(duplicates, a.Filename)
			continue
		}
		seen[a.Filename] = struct{}{}
		unique = append(unique, a)
	}
	return unique, duplicates
}

func (m *Manager) progress(event ProgressEvent) {
	if m.onProgress != nil {
		m.onProgress(event)
	}
}
