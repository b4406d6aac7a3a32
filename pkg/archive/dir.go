// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Dir is an Archive backed by an exploded add-on directory.
type Dir struct {
	root string
}

// OpenDir returns a directory-backed Archive rooted at root.
func OpenDir(root string) (*Dir, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Archive: root}
		}
		return nil, fmt.Errorf("opening directory %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("opening directory %s: not a directory", root)
	}
	return &Dir{root: root}, nil
}

// Path returns the directory root.
func (d *Dir) Path() string { return d.root }

// List walks the tree and returns every regular file relative to the root.
func (d *Dir) List() ([]string, error) {
	var names []string
	err := filepath.WalkDir(d.root, func(p string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(d.root, p)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", d.root, err)
	}
	return names, nil
}

// Read returns the content of the file at name.
func (d *Dir) Read(name string) ([]byte, error) {
	p, ok := d.resolve(name)
	if !ok {
		return nil, &NotFoundError{Archive: d.root, Entry: name}
	}

	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Archive: d.root, Entry: name}
		}
		return nil, fmt.Errorf("reading %s from %s: %w", name, d.root, err)
	}
	return data, nil
}

// Extract copies the file at name into dest.
func (d *Dir) Extract(name, dest string) error {
	p, ok := d.resolve(name)
	if !ok {
		return &NotFoundError{Archive: d.root, Entry: name}
	}

	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &NotFoundError{Archive: d.root, Entry: name}
		}
		return fmt.Errorf("reading %s from %s: %w", name, d.root, err)
	}
	defer func() { _ = f.Close() }() // read-only file

	return writeEntry(name, dest, f)
}

// Close is a no-op for directories.
func (d *Dir) Close() error { return nil }

// resolve maps a slash-separated entry name to a host path, refusing names
// that would escape the root.
func (d *Dir) resolve(name string) (string, bool) {
	local := filepath.FromSlash(name)
	if !filepath.IsLocal(local) {
		return "", false
	}
	return filepath.Join(d.root, local), true
}
