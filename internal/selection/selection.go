// Package selection decides which manifest artifacts take part in a run.
package selection

import (
	"github.com/handiism/mod-installer/internal/model"
)

// Include reports whether artifact a is installed for run.
//
// Rules, first match wins:
//  1. optional artifacts with an explicit override use the override
//  2. client-only artifacts are installed when the run is not a server run
//  3. server-only artifacts are installed when the run is a server run
//  4. everything else is installed
//
// An optional artifact without an override is not gated by the optional tag
// itself; an optional server-only artifact is therefore installed on every
// server run unless the operator excludes it.
func Include(a model.Artifact, run *model.RunContext) bool {
	if a.IsOptional() {
		if include, ok := run.Override(a.Filename); ok {
			return include
		}
	}

	isServer := run != nil && run.IsServer

	switch {
	case a.HasTag(model.TagClientOnly):
		return !isServer
	case a.HasTag(model.TagServerOnly):
		return isServer
	default:
		return true
	}
}

// Filter splits artifacts into the included and skipped sets, keeping
// manifest order in both.
func Filter(artifacts []model.Artifact, run *model.RunContext) (included, skipped []model.Artifact) {
	for _, a := range artifacts {
		if Include(a, run) {
			included = append(included, a)
		} else {
			skipped = append(skipped, a)
		}
	}
	return included, skipped
}

// OptionalArtifacts returns the artifacts an operator can toggle, in
// manifest order.
func OptionalArtifacts(artifacts []model.Artifact) []model.Artifact {
	var out []model.Artifact
	for _, a := range artifacts {
		if a.IsOptional() {
			out = append(out, a)
		}
	}
	return out
}
