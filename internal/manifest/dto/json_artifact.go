package dto

import (
	"errors"
	"fmt"
	"strings"

	"github.com/handiism/mod-installer/internal/model"
)

// JSONArtifact represents one manifest entry as stored in mods.json or its
// YAML equivalent.
type JSONArtifact struct {
	Filename string   `json:"filename" yaml:"filename"`
	URL      string   `json:"url" yaml:"url"`
	Mode     string   `json:"mode" yaml:"mode"`
	Tags     []string `json:"tags" yaml:"tags"`
}

// ToArtifact converts JSONArtifact to a model.Artifact.
//
// An empty mode means "normal". Unknown modes and tags are errors; duplicate
// tags are collapsed. Backslashes in the filename are stored as slashes.
func (ja *JSONArtifact) ToArtifact() (model.Artifact, error) {
	filename := strings.ReplaceAll(strings.TrimSpace(ja.Filename), `\`, "/")
	if filename == "" {
		return model.Artifact{}, errors.New("missing filename")
	}
	rawURL := strings.TrimSpace(ja.URL)
	if rawURL == "" {
		return model.Artifact{}, fmt.Errorf("%s: missing url", filename)
	}

	mode := model.ModeNormal
	if ja.Mode != "" {
		m, err := model.ParseMode(ja.Mode)
		if err != nil {
			return model.Artifact{}, fmt.Errorf("%s: %w", filename, err)
		}
		mode = m
	}

	tags := model.NewTagSet()
	for _, raw := range ja.Tags {
		tag, err := model.ParseTag(raw)
		if err != nil {
			return model.Artifact{}, fmt.Errorf("%s: %w", filename, err)
		}
		tags[tag] = struct{}{}
	}

	return model.Artifact{
		Filename: filename,
		URL:      rawURL,
		Mode:     mode,
		Tags:     tags,
	}, nil
}

// FromArtifact converts a model.Artifact back to its manifest form.
func FromArtifact(a model.Artifact) JSONArtifact {
	return JSONArtifact{
		Filename: a.Filename,
		URL:      a.URL,
		Mode:     a.Mode.String(),
		Tags:     a.Tags.Strings(),
	}
}
