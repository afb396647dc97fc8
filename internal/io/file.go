// Package ioutils provides file system utilities for the installer.
//
// This package contains functions for:
//   - Safe path joining under a destination root
//   - Directory creation
//   - Destination folder inspection and cleanup
//   - Archive extraction
package ioutils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
)

// ErrOutsideRoot is returned when a relative path would resolve outside of
// its root directory.
var ErrOutsideRoot = errors.New("path escapes destination root")

// SecureJoin joins a manifest-relative path onto root.
//
// The result is guaranteed to stay inside root, even if rel contains ".."
// segments or crosses a symlink inside root. Absolute rel values and paths
// that only stay inside root by being clamped are rejected, since they
// indicate a broken manifest rather than something to silently rewrite.
// Backslashes are treated as separators on every platform.
//
// Example:
//
//	SecureJoin("/srv/mods", "config/extra.zip") // "/srv/mods/config/extra.zip"
//	SecureJoin("/srv/mods", "../etc/passwd")    // ErrOutsideRoot
func SecureJoin(root, rel string) (string, error) {
	rel = filepath.FromSlash(strings.ReplaceAll(rel, `\`, "/"))
	if rel == "" || filepath.IsAbs(rel) || filepath.VolumeName(rel) != "" {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, rel)
	}

	clean := filepath.Clean(rel)
	if clean == "." || clean == ".." || hasParentPrefix(clean) {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, rel)
	}

	return securejoin.SecureJoin(root, clean)
}

func hasParentPrefix(clean string) bool {
	return len(clean) >= 3 && clean[:2] == ".." && os.IsPathSeparator(clean[2])
}

// EnsureDir creates a directory and all parent directories if they don't exist.
//
// Directories are created with mode 0755 (rwxr-xr-x).
// If the directory already exists, no error is returned.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// IsEmptyDir reports whether path has no entries. A missing directory
// counts as empty.
func IsEmptyDir(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return true, nil
		}
		return false, err
	}
	return len(entries) == 0, nil
}

// ClearDir removes every entry inside path, leaving path itself in place.
//
// Entries that cannot be removed (for example a jar still opened by a
// running game on Windows) are reported through onError and skipped; the
// remaining entries are still removed. The returned count is the number of
// entries removed. An error is only returned if path cannot be listed.
func ClearDir(path string, onError func(name string, err error)) (int, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	removed := 0
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(path, entry.Name())); err != nil {
			if onError != nil {
				onError(entry.Name(), err)
			}
			continue
		}
		removed++
	}

	return removed, nil
}
