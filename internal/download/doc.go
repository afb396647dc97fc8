// Package download provides the install orchestration: fetching single
// artifacts with retries and running whole batches on a bounded pool.
//
// # Manager
//
// The Manager runs one batch at a time:
//
//  1. Create the destination directory
//  2. Apply the selection rules for the run (client/server, optional overrides)
//  3. Drop duplicate filenames
//  4. Fetch the remaining artifacts concurrently
//  5. Aggregate the outcomes into a Report
//
// # Basic Usage
//
//	manager := download.NewManager(settings, func(event download.ProgressEvent) {
//	    fmt.Println(event.Message)
//	})
//
//	run := model.NewRunContext(settings.DestinationPath, settings.IsServer, nil)
//	report := manager.Run(ctx, artifacts, run)
//	if !report.OK() {
//	    fmt.Println(report.Summary())
//	}
//
// # Fetcher
//
// A Fetcher handles a single artifact: it rewrites CurseForge landing page
// URLs to the CDN, downloads under the retry policy and, for extract mode
// artifacts, unpacks the archive next to it and removes it. Failures are
// reported as a model.Outcome with a FailureReason, never as an error.
//
// # Concurrency
//
// At most MaxConcurrentDownloads artifacts are fetched at once. A failing
// artifact does not cancel the others. Canceling the context passed to Run
// stops pending retries and makes remaining artifacts fail as canceled.
//
// # Progress Tracking
//
// Progress is reported via a callback that receives ProgressEvent. The
// callback is invoked from worker goroutines and must be safe for
// concurrent use:
//
//	func(event download.ProgressEvent) {
//	    switch event.Level {
//	    case download.LevelSuccess:
//	        // artifact installed
//	    case download.LevelError:
//	        // artifact failed
//	    }
//	}
package download
