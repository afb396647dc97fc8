package model

import (
	"fmt"
	"time"
)

// FailureReason classifies why an artifact could not be installed.
type FailureReason int

const (
	// ReasonNone marks a successful outcome.
	ReasonNone FailureReason = iota

	// ReasonInvalidURL is a configuration error. It is never retried.
	ReasonInvalidURL

	// ReasonNotFound means the server answered 404. It is never retried.
	ReasonNotFound

	// ReasonExhaustedRetries means every attempt failed with a transient error.
	ReasonExhaustedRetries

	// ReasonExtractionFailed means the archive was downloaded but could not
	// be unpacked.
	ReasonExtractionFailed

	// ReasonCanceled means the caller's context ended before completion.
	ReasonCanceled

	// ReasonUnexpected covers failures outside the taxonomy above, such as
	// a destination directory that cannot be created.
	ReasonUnexpected
)

// String returns a short human readable label.
func (r FailureReason) String() string {
	switch r {
	case ReasonNone:
		return "ok"
	case ReasonInvalidURL:
		return "invalid URL"
	case ReasonNotFound:
		return "not found"
	case ReasonExhaustedRetries:
		return "retries exhausted"
	case ReasonExtractionFailed:
		return "extraction failed"
	case ReasonCanceled:
		return "canceled"
	case ReasonUnexpected:
		return "unexpected error"
	default:
		return fmt.Sprintf("FailureReason(%d)", int(r))
	}
}

// Outcome is the terminal result of fetching one artifact.
type Outcome struct {
	// Filename identifies the artifact.
	Filename string

	// URL is the effective URL after rewriting.
	URL string

	// Attempts is the number of download attempts made.
	Attempts int

	// Reason is ReasonNone on success.
	Reason FailureReason

	// Detail carries the underlying error text for diagnostics.
	Detail string

	// Duration is the wall time spent on the artifact.
	Duration time.Duration
}

// OK reports whether the artifact was fully materialized.
func (o Outcome) OK() bool {
	return o.Reason == ReasonNone
}

// String formats the outcome for logs and summaries.
func (o Outcome) String() string {
	if o.OK() {
		return fmt.Sprintf("%s: installed", o.Filename)
	}
	if o.Detail == "" {
		return fmt.Sprintf("%s: %s (%s)", o.Filename, o.Reason, o.URL)
	}
	return fmt.Sprintf("%s: %s (%s): %s", o.Filename, o.Reason, o.URL, o.Detail)
}
