package model

import (
	"github.com/google/uuid"
)

// RunContext holds the operator choices for a single install run.
//
// A RunContext is built once per trigger and discarded when the batch
// completes. Nothing in the fetch engine reads these values from anywhere
// else.
type RunContext struct {
	// ID correlates progress events and the final report of one run.
	ID string

	// Destination is the root directory artifacts are written under.
	// It is created if missing.
	Destination string

	// IsServer selects between the client and server artifact sets.
	IsServer bool

	// Overrides holds explicit include/exclude choices for optional
	// artifacts, keyed by filename.
	Overrides map[string]bool
}

// NewRunContext creates a RunContext with a fresh run ID.
//
// The overrides map is copied so later changes made by the caller (for
// example a UI still holding its checkbox state) do not leak into the run.
func NewRunContext(destination string, isServer bool, overrides map[string]bool) *RunContext {
	copied := make(map[string]bool, len(overrides))
	for k, v := range overrides {
		copied[k] = v
	}

	return &RunContext{
		ID:          newRunID(),
		Destination: destination,
		IsServer:    isServer,
		Overrides:   copied,
	}
}

// Override returns the explicit choice for filename, if any.
func (rc *RunContext) Override(filename string) (include, ok bool) {
	if rc == nil || rc.Overrides == nil {
		return false, false
	}
	include, ok = rc.Overrides[filename]
	return include, ok
}

func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
