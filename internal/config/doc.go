// Package config provides configuration management for mod-installer.
//
// This package handles:
//   - Loading and saving settings from JSON files
//   - Default configuration values
//   - Conversion to the retry policy, HTTP client and extraction settings
//     used by other packages
//
// # Default Settings
//
// Use DefaultSettings() to get the defaults:
//
//	settings := config.DefaultSettings()
//	// 10 concurrent downloads
//	// 5 attempts per artifact, 5 seconds apart
//	// ask before clearing a non-empty destination
//
// # Loading from File
//
//	settings, err := config.Load("/path/to/config.json")
//	if err != nil {
//	    // Uses defaults if file doesn't exist
//	}
//
// # Saving Settings
//
//	settings.DestinationPath = "/srv/minecraft/mods"
//	err := settings.Save("/path/to/config.json")
package config
