package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/handiism/mod-installer/internal/manifest/dto"
	"github.com/handiism/mod-installer/internal/model"
)

// Format is the encoding of a manifest document.
type Format int

const (
	// FormatJSON is the mods.json layout: an array of entries.
	FormatJSON Format = iota

	// FormatYAML is the same array written as YAML.
	FormatYAML
)

func (f Format) String() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "json"
}

// ErrEmpty is returned for a manifest without entries.
var ErrEmpty = errors.New("manifest has no entries")

// Getter fetches a remote document. *http.Client implements it.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// FormatFromPath picks the format from a file name or URL path.
// Anything that does not end in .yaml or .yml is treated as JSON.
func FormatFromPath(name string) Format {
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// IsRemote reports whether source names an http(s) URL rather than a file.
func IsRemote(source string) bool {
	u, err := url.Parse(source)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Load reads and validates the manifest at path.
//
// Example:
//
//	artifacts, err := manifest.Load("mods.json")
//	if err != nil {
//	    return fmt.Errorf("failed to load manifest: %w", err)
//	}
func Load(path string) ([]model.Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	artifacts, err := Parse(data, FormatFromPath(filepath.Base(path)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return artifacts, nil
}

// Fetch downloads and validates a manifest published at rawURL.
func Fetch(ctx context.Context, getter Getter, rawURL string) ([]model.Artifact, error) {
	data, err := getter.Get(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch manifest: %w", err)
	}

	format := FormatJSON
	if u, err := url.Parse(rawURL); err == nil {
		format = FormatFromPath(u.Path)
	}

	artifacts, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rawURL, err)
	}
	return artifacts, nil
}

// Open loads source from disk, or fetches it with getter when source is an
// http(s) URL.
func Open(ctx context.Context, getter Getter, source string) ([]model.Artifact, error) {
	if IsRemote(source) {
		return Fetch(ctx, getter, source)
	}
	return Load(source)
}

// Parse decodes and validates a manifest document.
//
// Validation rejects entries without a filename or URL, unknown modes and
// tags, filenames that are absolute or leave the destination root, and
// filenames listed more than once.
func Parse(data []byte, format Format) ([]model.Artifact, error) {
	var entries []dto.JSONArtifact

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("failed to parse manifest YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(bytes.TrimSpace(data), &entries); err != nil {
			return nil, fmt.Errorf("failed to parse manifest JSON: %w", err)
		}
	}

	if len(entries) == 0 {
		return nil, ErrEmpty
	}

	artifacts := make([]model.Artifact, 0, len(entries))
	seen := make(map[string]int, len(entries))
	var errs []error

	for i, entry := range entries {
		a, err := entry.ToArtifact()
		if err != nil {
			errs = append(errs, fmt.Errorf("entry %d: %w", i+1, err))
			continue
		}
		if err := checkFilename(a.Filename); err != nil {
			errs = append(errs, fmt.Errorf("entry %d: %w", i+1, err))
			continue
		}
		if first, ok := seen[a.Filename]; ok {
			errs = append(errs, fmt.Errorf("entry %d: %s already listed in entry %d", i+1, a.Filename, first))
			continue
		}
		seen[a.Filename] = i + 1
		artifacts = append(artifacts, a)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return artifacts, nil
}

// Encode writes artifacts in the given format.
func Encode(artifacts []model.Artifact, format Format) ([]byte, error) {
	entries := make([]dto.JSONArtifact, len(artifacts))
	for i, a := range artifacts {
		entries[i] = dto.FromArtifact(a)
	}

	if format == FormatYAML {
		return yaml.Marshal(entries)
	}
	return json.MarshalIndent(entries, "", "  ")
}

func checkFilename(name string) error {
	clean := path.Clean(strings.ReplaceAll(name, `\`, "/"))
	switch {
	case path.IsAbs(clean) || filepath.IsAbs(name):
		return fmt.Errorf("%s: filename must be relative", name)
	case clean == ".." || strings.HasPrefix(clean, "../"):
		return fmt.Errorf("%s: filename leaves the destination", name)
	case clean == ".":
		return fmt.Errorf("%s: filename names the destination itself", name)
	}
	return nil
}
