package model

import (
	"fmt"
	"path"
	"sort"
	"strings"
)

// Mode controls what happens to an artifact after it has been downloaded.
type Mode int

const (
	// ModeNormal keeps the downloaded file as-is.
	ModeNormal Mode = iota

	// ModeExtract treats the downloaded file as a compressed archive. The
	// archive is expanded into its containing directory and then removed.
	ModeExtract
)

// String returns the manifest representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeExtract:
		return "extract"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts a manifest mode value ("normal" or "extract").
func ParseMode(s string) (Mode, error) {
	switch s {
	case "normal":
		return ModeNormal, nil
	case "extract":
		return ModeExtract, nil
	default:
		return ModeNormal, fmt.Errorf("unknown mode %q", s)
	}
}

// Tag is a role marker controlling whether an artifact takes part in a run.
type Tag int

const (
	// TagClientOnly artifacts are installed on clients only.
	TagClientOnly Tag = iota

	// TagServerOnly artifacts are installed on servers only.
	TagServerOnly

	// TagOptional artifacts can be toggled by the operator.
	TagOptional
)

// String returns the manifest representation of the tag.
func (t Tag) String() string {
	switch t {
	case TagClientOnly:
		return "client-only"
	case TagServerOnly:
		return "server-only"
	case TagOptional:
		return "optional"
	default:
		return fmt.Sprintf("Tag(%d)", int(t))
	}
}

// ParseTag converts a manifest tag value.
func ParseTag(s string) (Tag, error) {
	switch s {
	case "client-only":
		return TagClientOnly, nil
	case "server-only":
		return TagServerOnly, nil
	case "optional":
		return TagOptional, nil
	default:
		return 0, fmt.Errorf("unknown tag %q", s)
	}
}

// TagSet is a set of tags.
type TagSet map[Tag]struct{}

// NewTagSet builds a TagSet from the given tags.
func NewTagSet(tags ...Tag) TagSet {
	set := make(TagSet, len(tags))
	for _, t := range tags {
		set[t] = struct{}{}
	}
	return set
}

// Has reports whether the set contains t.
func (s TagSet) Has(t Tag) bool {
	_, ok := s[t]
	return ok
}

// Strings returns the manifest representation of the tags in a stable order.
func (s TagSet) Strings() []string {
	tags := make([]Tag, 0, len(s))
	for t := range s {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })

	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.String()
	}
	return out
}

// Artifact describes one downloadable item of a manifest.
//
// Artifacts are immutable for the duration of a run. Filename is the unique
// key within a manifest and is always a slash-separated path relative to the
// destination root:
//
//	a := Artifact{
//	    Filename: "config/extra.zip",
//	    URL:      "https://example.com/extra.zip",
//	    Mode:     ModeExtract,
//	    Tags:     NewTagSet(TagOptional),
//	}
//	a.Dir()  // "config"
//	a.Base() // "extra.zip"
type Artifact struct {
	// Filename is the relative path of the artifact under the destination root.
	Filename string

	// URL is the source location as declared in the manifest.
	URL string

	// Mode selects the post-download behavior.
	Mode Mode

	// Tags drive the inclusion policy.
	Tags TagSet
}

// Dir returns the directory portion of Filename, or "" when the artifact
// lives directly under the destination root.
func (a Artifact) Dir() string {
	dir := path.Dir(a.normalized())
	if dir == "." {
		return ""
	}
	return dir
}

// Base returns the last path segment of Filename.
func (a Artifact) Base() string {
	return path.Base(a.normalized())
}

// HasTag reports whether the artifact carries t.
func (a Artifact) HasTag(t Tag) bool {
	return a.Tags.Has(t)
}

// IsOptional reports whether the operator may toggle the artifact.
func (a Artifact) IsOptional() bool {
	return a.HasTag(TagOptional)
}

// String returns a short description used in listings.
func (a Artifact) String() string {
	tags := a.Tags.Strings()
	if len(tags) == 0 {
		return fmt.Sprintf("%s (%s)", a.Filename, a.Mode)
	}
	return fmt.Sprintf("%s (%s; %s)", a.Filename, a.Mode, strings.Join(tags, ", "))
}

// normalized accepts Windows separators in manifests written by hand.
func (a Artifact) normalized() string {
	return strings.ReplaceAll(a.Filename, `\`, "/")
}
