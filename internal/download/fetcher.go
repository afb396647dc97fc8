package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/handiism/mod-installer/internal/curseforge"
	"github.com/handiism/mod-installer/internal/http"
	ioutils "github.com/handiism/mod-installer/internal/io"
	"github.com/handiism/mod-installer/internal/model"
	"github.com/handiism/mod-installer/internal/retry"
)

// Downloader streams a URL into a local file. *http.Client implements it.
type Downloader interface {
	DownloadFile(ctx context.Context, url, destPath string, onProgress func(written, total int64)) error
}

// Fetcher materializes a single artifact: resolve its URL, download it
// under the retry policy and unpack it when it is an archive.
//
// A Fetcher is safe for concurrent use as long as each call works on a
// different artifact.
type Fetcher struct {
	client     Downloader
	resolver   *curseforge.Resolver
	policy     *retry.Policy
	extract    ioutils.ExtractOptions
	onProgress ProgressFunc

	runID   string
	onBytes func(delta int64)
}

// NewFetcher creates a Fetcher. A nil policy selects retry.DefaultPolicy and
// a nil resolver selects the default CDN. If the policy has no classifier,
// 404 and invalid URL errors stop the loop and everything else is retried.
func NewFetcher(client Downloader, resolver *curseforge.Resolver, policy *retry.Policy, extract ioutils.ExtractOptions, onProgress ProgressFunc) *Fetcher {
	if resolver == nil {
		resolver = curseforge.NewResolver("")
	}
	if policy == nil {
		policy = retry.DefaultPolicy()
	}
	p := *policy
	if p.Classify == nil {
		p.Classify = classifyAttempt
	}

	return &Fetcher{
		client:     client,
		resolver:   resolver,
		policy:     &p,
		extract:    extract,
		onProgress: onProgress,
	}
}

// forRun returns a copy of f that tags events with runID and reports
// received bytes to onBytes.
func (f *Fetcher) forRun(runID string, onBytes func(int64)) *Fetcher {
	cp := *f
	cp.runID = runID
	cp.onBytes = onBytes
	return &cp
}

// Fetch downloads artifact a under root and returns its outcome.
//
// Fetch never returns an error: every failure is converted into an Outcome
// with a Reason. A failed download may leave a partial file behind and a
// failed extraction may leave a partially expanded directory. Archives are
// downloaded under a temporary name next to their target and removed once
// they have been unpacked or have failed to.
func (f *Fetcher) Fetch(ctx context.Context, a model.Artifact, root string) model.Outcome {
	start := time.Now()
	out := f.materialize(ctx, a, root)
	out.Duration = time.Since(start)
	f.finish(out)
	return out
}

func (f *Fetcher) materialize(ctx context.Context, a model.Artifact, root string) model.Outcome {
	out := model.Outcome{Filename: a.Filename, URL: a.URL}

	target, err := ioutils.SecureJoin(root, a.Filename)
	if err != nil {
		return failed(out, model.ReasonUnexpected, err)
	}
	dir := filepath.Dir(target)
	if err := ioutils.EnsureDir(dir); err != nil {
		return failed(out, model.ReasonUnexpected, fmt.Errorf("create directory: %w", err))
	}

	out.URL = f.resolver.Resolve(a.URL, a.Filename)
	if err := http.ValidateURL(out.URL); err != nil {
		return failed(out, model.ReasonInvalidURL, err)
	}

	// An archive may contain an entry with its own name, so it is never
	// written to the path it is extracted next to.
	dest := target
	if a.Mode == model.ModeExtract {
		dest, err = tempSibling(target)
		if err != nil {
			return failed(out, model.ReasonUnexpected, err)
		}
		defer os.Remove(dest)
	}

	maxAttempts := max(f.policy.MaxAttempts, 1)
	attempts, err := f.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		f.emit(a.Filename, PhaseDownloading, LevelInfo, attempt,
			fmt.Sprintf("[%s] downloading (attempt %d/%d)", a.Base(), attempt, maxAttempts))
		counter := f.byteCounter()
		if err := f.client.DownloadFile(ctx, out.URL, dest, counter.progress()); err != nil {
			counter.discard()
			return err
		}
		return nil
	}, func(attempt int, err error, wait time.Duration) {
		f.emit(a.Filename, PhaseRetrying, LevelWarning, attempt,
			fmt.Sprintf("[%s] download failed, retrying in %s (%d/%d): %v", a.Base(), wait, attempt, maxAttempts, err))
	})
	out.Attempts = attempts
	if err != nil {
		return failed(out, failureReason(err), err)
	}

	if a.Mode == model.ModeExtract {
		f.emit(a.Filename, PhaseExtracting, LevelInfo, attempts, fmt.Sprintf("[%s] extracting", a.Base()))
		if err := ioutils.Extract(ctx, dest, dir, f.extract); err != nil {
			return failed(out, model.ReasonExtractionFailed, err)
		}
		if err := os.Remove(dest); err != nil {
			return failed(out, model.ReasonExtractionFailed, fmt.Errorf("remove archive: %w", err))
		}
	}

	return out
}

// classifyAttempt stops on errors that another attempt cannot fix.
func classifyAttempt(err error) retry.Decision {
	if errors.Is(err, http.ErrNotFound) || errors.Is(err, http.ErrInvalidURL) {
		return retry.Stop
	}
	return retry.Retry
}

func failureReason(err error) model.FailureReason {
	var exhausted *retry.ExhaustedError
	switch {
	case errors.As(err, &exhausted):
		return model.ReasonExhaustedRetries
	case errors.Is(err, http.ErrNotFound):
		return model.ReasonNotFound
	case errors.Is(err, http.ErrInvalidURL):
		return model.ReasonInvalidURL
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return model.ReasonCanceled
	default:
		return model.ReasonUnexpected
	}
}

func failed(out model.Outcome, reason model.FailureReason, err error) model.Outcome {
	out.Reason = reason
	out.Detail = err.Error()
	return out
}

// finish emits the terminal event for an outcome.
func (f *Fetcher) finish(out model.Outcome) {
	base := model.Artifact{Filename: out.Filename}.Base()
	if out.OK() {
		f.emit(out.Filename, PhaseCompleted, LevelSuccess, out.Attempts, fmt.Sprintf("[%s] installed", base))
		return
	}

	var msg string
	switch out.Reason {
	case model.ReasonNotFound:
		msg = fmt.Sprintf("[%s] file not found at %s; check the URL and filename in the manifest", base, out.URL)
	case model.ReasonInvalidURL:
		msg = fmt.Sprintf("[%s] invalid URL %q: %s", base, out.URL, out.Detail)
	default:
		msg = fmt.Sprintf("[%s] %s after %d attempt(s) from %s: %s", base, out.Reason, out.Attempts, out.URL, out.Detail)
	}
	f.emit(out.Filename, PhaseFailed, LevelError, out.Attempts, msg)
}

// tempSibling reserves a hidden file next to target.
func tempSibling(target string) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*.part")
	if err != nil {
		return "", fmt.Errorf("create temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	return tmp.Name(), nil
}

// attemptBytes forwards the bytes of one download attempt. Bytes of an
// attempt that fails are taken back, so the run total counts each artifact
// once.
type attemptBytes struct {
	onBytes func(delta int64)
	written int64
}

func (f *Fetcher) byteCounter() *attemptBytes {
	return &attemptBytes{onBytes: f.onBytes}
}

// progress returns the callback for DownloadFile, or nil when nobody is
// counting.
func (c *attemptBytes) progress() func(written, total int64) {
	if c.onBytes == nil {
		return nil
	}
	return func(written, _ int64) {
		c.onBytes(written - c.written)
		c.written = written
	}
}

func (c *attemptBytes) discard() {
	if c.onBytes != nil && c.written != 0 {
		c.onBytes(-c.written)
	}
	c.written = 0
}

func (f *Fetcher) emit(artifact string, phase Phase, level ProgressLevel, attempt int, msg string) {
	if f.onProgress == nil {
		return
	}
	f.onProgress(ProgressEvent{
		RunID:    f.runID,
		Artifact: artifact,
		Phase:    phase,
		Level:    level,
		Attempt:  attempt,
		Message:  msg,
	})
}
