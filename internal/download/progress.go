package download

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// Phase identifies where in the lifecycle of a batch or artifact an event
// was emitted.
type Phase int

const (
	// PhaseBatchStarted is emitted once before any artifact is dispatched.
	// Front ends disable their install action when they see it.
	PhaseBatchStarted Phase = iota

	// PhaseSkipped is emitted for artifacts excluded by the selection rules.
	PhaseSkipped

	// PhaseDownloading is emitted before each download attempt.
	PhaseDownloading

	// PhaseRetrying is emitted after a failed attempt that will be retried.
	PhaseRetrying

	// PhaseExtracting is emitted before an archive is unpacked.
	PhaseExtracting

	// PhaseCompleted is emitted when an artifact is fully materialized.
	PhaseCompleted

	// PhaseFailed is emitted when an artifact reaches a failure outcome.
	PhaseFailed

	// PhaseBatchFinished is emitted once after every outcome is collected.
	// Front ends re-enable their install action when they see it.
	PhaseBatchFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseBatchStarted:
		return "batch-started"
	case PhaseSkipped:
		return "skipped"
	case PhaseDownloading:
		return "downloading"
	case PhaseRetrying:
		return "retrying"
	case PhaseExtracting:
		return "extracting"
	case PhaseCompleted:
		return "completed"
	case PhaseFailed:
		return "failed"
	case PhaseBatchFinished:
		return "batch-finished"
	default:
		return "unknown"
	}
}

// ProgressEvent represents a download progress update.
type ProgressEvent struct {
	// RunID is the RunContext ID of the batch, empty for standalone fetches.
	RunID string

	// Artifact is the artifact filename, empty for batch-level events.
	Artifact string

	Phase   Phase
	Level   ProgressLevel
	Attempt int
	Message string
}

// ProgressFunc receives progress events. It may be called concurrently from
// several workers.
type ProgressFunc func(ProgressEvent)
