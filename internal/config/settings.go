package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-logr/logr"

	"github.com/handiism/mod-installer/internal/curseforge"
	"github.com/handiism/mod-installer/internal/http"
	ioutils "github.com/handiism/mod-installer/internal/io"
	"github.com/handiism/mod-installer/internal/retry"
)

// CleanPolicy controls what happens to existing content in the destination
// folder before a run.
type CleanPolicy string

const (
	// CleanAsk prompts the operator when the destination is not empty.
	CleanAsk CleanPolicy = "ask"

	// CleanAlways removes existing content without asking.
	CleanAlways CleanPolicy = "always"

	// CleanNever keeps existing content; downloads overwrite same-named files.
	CleanNever CleanPolicy = "never"
)

// ParseCleanPolicy validates a clean policy value.
func ParseCleanPolicy(s string) (CleanPolicy, error) {
	switch p := CleanPolicy(s); p {
	case CleanAsk, CleanAlways, CleanNever:
		return p, nil
	default:
		return "", fmt.Errorf("unknown clean policy %q (want ask, always or never)", s)
	}
}

// Settings holds all configuration options.
type Settings struct {
	// Locations
	DestinationPath string `json:"destination_path"`
	ManifestPath    string `json:"manifest_path"`

	// Download settings
	MaxConcurrentDownloads int     `json:"max_concurrent_downloads"`
	DownloadMaxAttempts    int     `json:"download_max_attempts"`
	DownloadRetryCooldown  float64 `json:"download_retry_cooldown"`
	DownloadRetryExponent  float64 `json:"download_retry_exponent"`
	RequestTimeout         float64 `json:"request_timeout"`
	UserAgent              string  `json:"user_agent"`
	CDNBaseURL             string  `json:"cdn_base_url"`

	// Extraction settings
	MaxExtractSize int64 `json:"max_extract_size"`

	// Run defaults
	CleanDestination CleanPolicy `json:"clean_destination"`
	IsServer         bool        `json:"is_server"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		DestinationPath: "",
		ManifestPath:    "mods.json",

		MaxConcurrentDownloads: 10,
		DownloadMaxAttempts:    5,
		DownloadRetryCooldown:  5.0,
		DownloadRetryExponent:  1.0,
		RequestTimeout:         600,
		UserAgent:              http.DefaultUserAgent,
		CDNBaseURL:             curseforge.DefaultCDNBase,

		MaxExtractSize: -1,

		CleanDestination: CleanAsk,
		IsServer:         false,
	}
}

// Load reads settings from a JSON file.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return settings, nil
}

// Save writes settings to a JSON file.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks value ranges.
func (s *Settings) Validate() error {
	if s.MaxConcurrentDownloads < 1 {
		return fmt.Errorf("max_concurrent_downloads must be at least 1, got %d", s.MaxConcurrentDownloads)
	}
	if s.DownloadMaxAttempts < 1 {
		return fmt.Errorf("download_max_attempts must be at least 1, got %d", s.DownloadMaxAttempts)
	}
	if s.DownloadRetryCooldown < 0 {
		return fmt.Errorf("download_retry_cooldown must not be negative")
	}
	if s.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must not be negative")
	}
	if _, err := ParseCleanPolicy(string(s.CleanDestination)); err != nil {
		return err
	}
	return nil
}

// ToRetryPolicy converts settings to a retry.Policy.
func (s *Settings) ToRetryPolicy() *retry.Policy {
	return &retry.Policy{
		MaxAttempts: s.DownloadMaxAttempts,
		Cooldown:    seconds(s.DownloadRetryCooldown),
		Exponent:    s.DownloadRetryExponent,
	}
}

// ToClientConfig converts settings to an http.Config.
func (s *Settings) ToClientConfig(log logr.Logger) http.Config {
	return http.Config{
		Timeout:   seconds(s.RequestTimeout),
		UserAgent: s.UserAgent,
		Logger:    log,
	}
}

// ToExtractOptions converts settings to ioutils.ExtractOptions.
func (s *Settings) ToExtractOptions() ioutils.ExtractOptions {
	return ioutils.ExtractOptions{MaxSize: s.MaxExtractSize}
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
