// Package ioutils provides file system and archive utilities.
//
// This package contains functions for:
//   - Joining untrusted relative paths under a root (SecureJoin)
//   - Directory creation and inspection
//   - Clearing a destination folder before an install
//   - Extracting zip and tar.gz archives
//
// # Paths
//
// Manifest filenames and archive entries are untrusted. SecureJoin keeps
// them under the root:
//
//	target, err := ioutils.SecureJoin("/srv/mods", "config/extra.zip")
//	// target == "/srv/mods/config/extra.zip"
//
//	_, err = ioutils.SecureJoin("/srv/mods", "../etc/passwd")
//	// errors.Is(err, ioutils.ErrOutsideRoot)
//
// # Destination Folder
//
//	empty, _ := ioutils.IsEmptyDir("/srv/mods")
//	if !empty {
//	    removed, err := ioutils.ClearDir("/srv/mods", func(name string, err error) {
//	        log.Printf("could not remove %s: %v", name, err)
//	    })
//	}
//
// # Archives
//
// Extract detects the format from the file content:
//
//	err := ioutils.Extract(ctx, "/srv/mods/config/extra.zip", "/srv/mods/config", ioutils.ExtractOptions{})
package ioutils
