// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

var (
	// ErrNotFound is returned when an archive or one of its entries does not exist.
	ErrNotFound = errors.New("archive entry not found")

	// ErrIO is returned when an entry cannot be written to its destination.
	ErrIO = errors.New("archive extraction failed")
)

type (
	// Archive is the capability set shared by every archive variant.
	Archive interface {
		// Path returns the location the archive was opened from.
		Path() string
		// List returns every file entry, in a stable order.
		List() ([]string, error)
		// Read returns the content of a single entry.
		Read(name string) ([]byte, error)
		// Extract copies an entry to dest, creating parent directories.
		Extract(name, dest string) error
		// Close releases any handle held by the archive.
		Close() error
	}

	// NotFoundError reports a missing archive (empty Entry) or a missing entry.
	NotFoundError struct {
		Archive string
		Entry   string
	}

	// IOError reports a failure while writing an extracted entry.
	IOError struct {
		Entry string
		Dest  string
		Err   error
	}
)

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.Entry == "" {
		return fmt.Sprintf("archive %s does not exist", e.Archive)
	}
	return fmt.Sprintf("%s: entry %q not found", e.Archive, e.Entry)
}

// Unwrap returns ErrNotFound so callers can use errors.Is.
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// Error implements the error interface.
func (e *IOError) Error() string {
	return fmt.Sprintf("extracting %s to %s: %v", e.Entry, e.Dest, e.Err)
}

// Unwrap exposes both ErrIO and the underlying filesystem error.
func (e *IOError) Unwrap() []error { return []error{ErrIO, e.Err} }

// Open chooses the archive variant for path: directories are read in place,
// anything else is treated as a zip file.
func Open(path string) (Archive, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Archive: path}
		}
		return nil, fmt.Errorf("opening archive %s: %w", path, err)
	}

	if info.IsDir() {
		return OpenDir(path)
	}
	return OpenZip(path)
}

// writeEntry streams r into dest, creating intermediate directories.
func writeEntry(name, dest string, r io.Reader) (err error) {
	if mkErr := os.MkdirAll(filepath.Dir(dest), 0o755); mkErr != nil {
		return &IOError{Entry: name, Dest: dest, Err: mkErr}
	}

	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return &IOError{Entry: name, Dest: dest, Err: err}
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = &IOError{Entry: name, Dest: dest, Err: closeErr}
		}
	}()

	if _, err = io.Copy(f, r); err != nil {
		return &IOError{Entry: name, Dest: dest, Err: err}
	}
	return nil
}
