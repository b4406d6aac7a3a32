// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/klauspost/compress/zip"
)

// Zip is an Archive backed by a compressed .xpi file.
type Zip struct {
	path  string
	rc    *zip.ReadCloser
	files map[string]*zip.File
	names []string
}

// OpenZip opens the zip file at path and indexes its file entries.
func OpenZip(path string) (*Zip, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening zip %s: %w", path, err)
	}

	z := &Zip{
		path:  path,
		rc:    rc,
		files: make(map[string]*zip.File, len(rc.File)),
	}
	for _, f := range rc.File {
		if f.FileInfo().IsDir() {
			continue
		}
		// Some old packagers on Windows stored backslash separators.
		name := strings.ReplaceAll(f.Name, `\`, "/")
		if _, dup := z.files[name]; dup {
			continue
		}
		z.files[name] = f
		z.names = append(z.names, name)
	}
	slices.Sort(z.names)

	return z, nil
}

// Path returns the zip file location.
func (z *Zip) Path() string { return z.path }

// List returns the file entries sorted by name.
func (z *Zip) List() ([]string, error) {
	return slices.Clone(z.names), nil
}

// Read returns the decompressed content of name.
func (z *Zip) Read(name string) ([]byte, error) {
	f, ok := z.files[name]
	if !ok {
		return nil, &NotFoundError{Archive: z.path, Entry: name}
	}

	r, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("reading %s from %s: %w", name, z.path, err)
	}
	defer func() { _ = r.Close() }() // read-only entry

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s from %s: %w", name, z.path, err)
	}
	return data, nil
}

// Extract decompresses name into dest.
func (z *Zip) Extract(name, dest string) error {
	f, ok := z.files[name]
	if !ok {
		return &NotFoundError{Archive: z.path, Entry: name}
	}

	r, err := f.Open()
	if err != nil {
		return fmt.Errorf("reading %s from %s: %w", name, z.path, err)
	}
	defer func() { _ = r.Close() }() // read-only entry

	return writeEntry(name, dest, r)
}

// Close releases the underlying file handle.
func (z *Zip) Close() error {
	return z.rc.Close()
}
