// Package http provides the HTTP client used to download artifacts.
//
// The Client in this package handles:
//   - User-Agent headers
//   - Streaming file downloads with progress tracking
//   - Classification of failures into ErrNotFound, ErrInvalidURL and
//     *StatusError so callers can tell fatal from transient errors
//   - Transport logging through logr
//
// # Basic Usage
//
//	client := http.NewClient(http.Config{Timeout: 10 * time.Minute})
//
//	err := client.DownloadFile(ctx, url, "/srv/mods/jei.jar", nil)
//	switch {
//	case errors.Is(err, http.ErrNotFound):
//	    // fatal: the manifest points at a missing file
//	case errors.Is(err, http.ErrInvalidURL):
//	    // fatal: the manifest URL is malformed
//	case err != nil:
//	    // transient: network failure or non-404 HTTP status
//	}
//
// # Progress Tracking
//
// The ProgressWriter type can be used to wrap any io.Writer for progress tracking:
//
//	pw := &http.ProgressWriter{
//	    Writer:   file,
//	    Total:    contentLength,
//	    OnUpdate: func(written, total int64) { /* update UI */ },
//	}
package http
