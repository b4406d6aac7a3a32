// SPDX-License-Identifier: MPL-2.0

package reftable

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/canuckistani/jetpack-repacker/pkg/sdk"
)

const (
	// SectionLib holds a package's modules.
	SectionLib Section = "lib"
	// SectionData holds a package's static assets.
	SectionData Section = "data"

	appExtension = "app-extension"
	// prefs.js is generated into defaults/preferences but never shipped.
	neverShipped = "prefs.js"

	// maxLineBytes bounds a single record.
	maxLineBytes = 64 * 1024
)

type (
	// Section is a package sub-folder that carries verified files.
	Section string

	// Table maps SDK versions to their reference digests. It is immutable
	// once built.
	Table struct {
		versions map[string]*VersionEntry
	}

	// VersionEntry holds the digests of one SDK release.
	VersionEntry struct {
		// Bootstrap maps a path below app-extension to its digest.
		Bootstrap map[string]string
		// Packages maps package → section → relative path → digest.
		Packages map[string]map[Section]map[string]string
	}
)

// Parse builds a Table from the three-column reference source. Lines with
// fewer than three fields or a malformed digest are skipped.
func Parse(r io.Reader) (*Table, error) {
	t := &Table{versions: map[string]*VersionEntry{}}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		t.add(fields[0], fields[1], fields[2])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading reference data: %w", err)
	}

	return t, nil
}

func (t *Table) add(path, version, digest string) {
	entry, ok := t.versions[version]
	if !ok {
		entry = &VersionEntry{
			Bootstrap: map[string]string{},
			Packages:  map[string]map[Section]map[string]string{},
		}
		t.versions[version] = entry
	}

	digest = strings.ToLower(digest)
	if !isValidHexDigest(digest) {
		return
	}

	segments := strings.Split(path, "/")
	switch {
	case len(segments) > 4 && segments[3] == appExtension && !slices.Contains(segments, neverShipped):
		key := strings.Join(segments[slices.Index(segments, appExtension)+1:], "/")
		entry.Bootstrap[key] = digest

	case len(segments) > 2 && segments[1] == "packages":
		if len(segments) < 5 {
			return
		}
		section := Section(segments[3])
		if section != SectionLib && section != SectionData {
			return
		}
		key := strings.Join(segments[4:], "/")
		if key == "" {
			return
		}

		pkg := segments[2]
		byPackage, ok := entry.Packages[pkg]
		if !ok {
			byPackage = map[Section]map[string]string{}
			entry.Packages[pkg] = byPackage
		}
		bySection, ok := byPackage[section]
		if !ok {
			bySection = map[string]string{}
			byPackage[section] = bySection
		}
		bySection[key] = digest
	}
}

// Lookup returns the entry of version.
func (t *Table) Lookup(version string) (*VersionEntry, bool) {
	e, ok := t.versions[version]
	return e, ok
}

// Versions returns every known SDK version, oldest first.
func (t *Table) Versions() []string {
	versions := make([]string, 0, len(t.versions))
	for v := range t.versions {
		versions = append(versions, v)
	}
	slices.SortFunc(versions, sdk.Compare)
	return versions
}

// BootstrapPaths returns the bootstrap file paths in sorted order.
func (e *VersionEntry) BootstrapPaths() []string {
	paths := make([]string, 0, len(e.Bootstrap))
	for p := range e.Bootstrap {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// HasPackage reports whether the release ships pkg.
func (e *VersionEntry) HasPackage(pkg string) bool {
	_, ok := e.Packages[pkg]
	return ok
}

// PackageDigest returns the digest of a package file.
func (e *VersionEntry) PackageDigest(pkg string, section Section, relPath string) (string, bool) {
	d, ok := e.Packages[pkg][section][relPath]
	return d, ok
}

// isValidHexDigest reports whether s is a 64-character lowercase hex string.
func isValidHexDigest(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
