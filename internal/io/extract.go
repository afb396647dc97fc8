package ioutils

import (
	"archive/zip"
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/fluxcd/pkg/tar"
)

// ErrUnsupportedArchive is returned when a file is neither a zip archive
// nor a gzip-compressed tarball.
var ErrUnsupportedArchive = errors.New("unsupported archive format")

// ArchiveFormat identifies a supported archive encoding.
type ArchiveFormat int

const (
	FormatUnknown ArchiveFormat = iota
	FormatZip
	FormatTarGz
)

func (f ArchiveFormat) String() string {
	switch f {
	case FormatZip:
		return "zip"
	case FormatTarGz:
		return "tar.gz"
	default:
		return "unknown"
	}
}

var (
	zipMagic      = []byte("PK\x03\x04")
	zipEmptyMagic = []byte("PK\x05\x06")
	gzipMagic     = []byte{0x1f, 0x8b}
)

// DetectArchiveFormat sniffs the leading bytes of r.
func DetectArchiveFormat(r io.Reader) (ArchiveFormat, error) {
	head := make([]byte, 4)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return FormatUnknown, err
	}
	head = head[:n]

	switch {
	case bytes.HasPrefix(head, zipMagic), bytes.HasPrefix(head, zipEmptyMagic):
		return FormatZip, nil
	case bytes.HasPrefix(head, gzipMagic):
		return FormatTarGz, nil
	default:
		return FormatUnknown, nil
	}
}

// ExtractOptions tunes Extract.
type ExtractOptions struct {
	// MaxSize caps the total number of bytes written. Values <= 0 disable
	// the limit.
	MaxSize int64
}

// Extract expands the archive at archivePath into destDir.
//
// Zip archives and gzip-compressed tarballs are supported; the format is
// detected from the file content rather than its name. Entries are written
// with SecureJoin semantics, so an archive cannot write outside destDir.
// Existing files are overwritten. On error, entries written so far are
// left in place.
//
// Example:
//
//	err := Extract(ctx, "/srv/mods/config/extra.zip", "/srv/mods/config", ExtractOptions{})
func Extract(ctx context.Context, archivePath, destDir string, opts ExtractOptions) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	format, err := DetectArchiveFormat(f)
	if err != nil {
		return fmt.Errorf("read %s: %w", archivePath, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}

	switch format {
	case FormatZip:
		return extractZip(ctx, f, destDir, opts.MaxSize)
	case FormatTarGz:
		maxSize := -1
		if opts.MaxSize > 0 {
			maxSize = int(opts.MaxSize)
		}
		if err := tar.Untar(bufio.NewReader(f), destDir, tar.WithMaxUntarSize(maxSize)); err != nil {
			return fmt.Errorf("untar %s: %w", archivePath, err)
		}
		return nil
	default:
		return fmt.Errorf("%s: %w", archivePath, ErrUnsupportedArchive)
	}
}

func extractZip(ctx context.Context, f *os.File, destDir string, maxSize int64) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}

	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return fmt.Errorf("open zip %s: %w", f.Name(), err)
	}

	var written int64
	for _, entry := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}

		target, err := securejoin.SecureJoin(destDir, entry.Name)
		if err != nil {
			return fmt.Errorf("zip entry %q: %w", entry.Name, err)
		}

		if entry.FileInfo().IsDir() {
			if err := EnsureDir(target); err != nil {
				return err
			}
			continue
		}

		var limit int64 = -1
		if maxSize > 0 {
			limit = maxSize - written
		}
		n, err := writeZipEntry(entry, target, limit)
		if err != nil {
			return fmt.Errorf("zip entry %q: %w", entry.Name, err)
		}
		written += n
	}

	return nil
}

func writeZipEntry(entry *zip.File, target string, limit int64) (int64, error) {
	if err := EnsureDir(filepath.Dir(target)); err != nil {
		return 0, err
	}

	rc, err := entry.Open()
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	mode := entry.Mode().Perm()
	if mode == 0 {
		mode = 0644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return 0, err
	}

	var src io.Reader = rc
	if limit >= 0 {
		src = io.LimitReader(rc, limit+1)
	}

	n, err := io.Copy(out, src)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, err
	}
	if limit >= 0 && n > limit {
		return n, fmt.Errorf("archive exceeds max extract size")
	}
	return n, nil
}
