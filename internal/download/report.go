package download

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/handiism/mod-installer/internal/model"
)

// ErrBatchRunning is reported when Run is called while another batch is
// still in progress on the same Manager.
var ErrBatchRunning = errors.New("an install batch is already running")

// ErrNoRunContext is reported when Run is called without a RunContext.
var ErrNoRunContext = errors.New("no run context given")

// FetchError describes one failed artifact.
type FetchError struct {
	Outcome model.Outcome
}

func (e *FetchError) Error() string {
	return e.Outcome.String()
}

// Report is the aggregate result of a batch.
type Report struct {
	// RunID is the RunContext ID of the batch.
	RunID string

	// Destination is the root directory of the run.
	Destination string

	// Outcomes holds one entry per dispatched artifact, in manifest order.
	Outcomes []model.Outcome

	// Skipped lists artifacts excluded by the selection rules.
	Skipped []string

	// Duplicates lists filenames that appeared more than once in the
	// manifest. Only the first occurrence was fetched.
	Duplicates []string

	// RunErr is set when the batch could not start at all.
	RunErr error

	Started  time.Time
	Finished time.Time
}

// Failed returns the failed outcomes in manifest order.
func (r *Report) Failed() []model.Outcome {
	var out []model.Outcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}

// Installed returns the number of successful outcomes.
func (r *Report) Installed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}

// OK reports whether the batch started and every dispatched artifact
// succeeded.
func (r *Report) OK() bool {
	return r.RunErr == nil && len(r.Failed()) == 0
}

// Err returns nil on success. Otherwise it joins RunErr and one *FetchError
// per failed artifact.
func (r *Report) Err() error {
	var errs []error
	if r.RunErr != nil {
		errs = append(errs, r.RunErr)
	}
	for _, o := range r.Failed() {
		errs = append(errs, &FetchError{Outcome: o})
	}
	return errors.Join(errs...)
}

// Summary returns a human readable description of the batch.
//
// Example:
//
//	2 of 12 artifacts failed:
//	  - jei.jar: not found (https://edge.forgecdn.net/files/1234/567/jei.jar): ...
//	  - pack.zip: extraction failed (https://example.com/pack.zip): ...
func (r *Report) Summary() string {
	if r.RunErr != nil {
		return fmt.Sprintf("Install aborted: %v", r.RunErr)
	}

	var b strings.Builder
	total := len(r.Outcomes)
	failed := r.Failed()

	if len(failed) == 0 {
		b.WriteString(fmt.Sprintf("All %d artifact(s) installed", total))
	} else {
		b.WriteString(fmt.Sprintf("%d of %d artifact(s) failed", len(failed), total))
	}
	if len(r.Skipped) > 0 {
		b.WriteString(fmt.Sprintf(", %d skipped", len(r.Skipped)))
	}
	if !r.Finished.IsZero() && !r.Started.IsZero() {
		b.WriteString(fmt.Sprintf(" in %s", r.Finished.Sub(r.Started).Round(time.Millisecond)))
	}

	if len(failed) == 0 {
		b.WriteString(".")
		return b.String()
	}

	b.WriteString(":")
	for _, o := range failed {
		b.WriteString("\n  - ")
		b.WriteString(o.String())
	}
	return b.String()
}
