// SPDX-License-Identifier: MPL-2.0

// Package verify compares the SDK files shipped inside an add-on with the
// official digests of the SDK release it declares.
package verify

import (
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/minio/sha256-simd"

	"github.com/canuckistani/jetpack-repacker/pkg/archive"
	"github.com/canuckistani/jetpack-repacker/pkg/deps"
	"github.com/canuckistani/jetpack-repacker/pkg/harness"
	"github.com/canuckistani/jetpack-repacker/pkg/reftable"
)

var (
	// ErrUnknownSDKVersion is returned when the reference table has no entry
	// for the add-on's SDK version.
	ErrUnknownSDKVersion = errors.New("SDK version has no official digests")

	// ErrVerificationFailed is returned by Require when files differ from
	// the official release.
	ErrVerificationFailed = errors.New("files differ from the official SDK release")
)

// verifiedExtensions lists the package file types that are digest-checked.
var verifiedExtensions = []string{".js", ".html"}

type (
	// Mismatches lists archive entries whose digest differs from the
	// reference. Empty means verified.
	Mismatches []string

	// UnknownVersionError names the SDK version missing from the table.
	UnknownVersionError struct {
		Version string
	}

	// FailedError carries the mismatching entries.
	FailedError struct {
		Files Mismatches
	}
)

// Error implements the error interface.
func (e *UnknownVersionError) Error() string {
	return fmt.Sprintf("SDK version %q has no official digests", e.Version)
}

// Unwrap returns ErrUnknownSDKVersion for errors.Is compatibility.
func (e *UnknownVersionError) Unwrap() error { return ErrUnknownSDKVersion }

// Error implements the error interface.
func (e *FailedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrVerificationFailed, strings.Join(e.Files, ", "))
}

// Unwrap returns ErrVerificationFailed for errors.Is compatibility.
func (e *FailedError) Unwrap() error { return ErrVerificationFailed }

// OK reports whether nothing mismatched.
func (m Mismatches) OK() bool { return len(m) == 0 }

// Require turns a non-empty mismatch list into a *FailedError.
func Require(m Mismatches) error {
	if m.OK() {
		return nil
	}
	return &FailedError{Files: m}
}

// Bootstrap checks every bootstrap file of entry against arc, in sorted path
// order. A file that cannot be read counts as a mismatch.
func Bootstrap(arc archive.Archive, entry *reftable.VersionEntry) Mismatches {
	var bad Mismatches
	for _, p := range entry.BootstrapPaths() {
		if !matches(arc, p, entry.Bootstrap[p]) {
			bad = append(bad, p)
		}
	}
	return bad
}

// Package checks the .js and .html files stored under pkg's resource folder.
// Files without a reference digest count as mismatches.
func Package(arc archive.Archive, opts *harness.Options, entry *reftable.VersionEntry, pkg string) (Mismatches, error) {
	names, err := arc.List()
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", arc.Path(), err)
	}

	var bad Mismatches
	for _, f := range opts.PackageFiles(names, pkg) {
		if !isVerified(f.Name) {
			continue
		}
		want, ok := entry.PackageDigest(pkg, reftable.Section(f.Section), f.RelPath)
		if !ok || !matches(arc, f.Name, want) {
			bad = append(bad, f.Name)
		}
	}
	return bad, nil
}

// Addon verifies the bootstrap files and the SDK packages the add-on lists.
func Addon(arc archive.Archive, opts *harness.Options, table *reftable.Table) (Mismatches, error) {
	entry, ok := table.Lookup(opts.SDKVersion())
	if !ok {
		return nil, &UnknownVersionError{Version: opts.SDKVersion()}
	}

	bad := Bootstrap(arc, entry)
	for _, pkg := range []string{deps.AddonKit, deps.APIUtils} {
		if !opts.HasPackage(pkg) {
			continue
		}
		pkgBad, err := Package(arc, opts, entry, pkg)
		if err != nil {
			return nil, err
		}
		bad = append(bad, pkgBad...)
	}
	return bad, nil
}

// Digest returns the lowercase hex SHA-256 of data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func matches(arc archive.Archive, name, want string) bool {
	data, err := arc.Read(name)
	if err != nil {
		return false
	}
	return Digest(data) == want
}

func isVerified(name string) bool {
	return slices.Contains(verifiedExtensions, path.Ext(name))
}
