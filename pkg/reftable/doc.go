// SPDX-License-Identifier: MPL-2.0

// Package reftable builds the versioned reference table of official SDK file
// digests used to verify add-ons.
//
// The source is a flat text file with one "<path> <sdk-version> <sha256>"
// record per line, covering every file of every SDK release. Two kinds of
// records are kept:
//
//   - bootstrap files from python-lib/cuddlefish/app-extension, keyed by their
//     path below app-extension (e.g. "bootstrap.js", "components/harness.js")
//   - lib and data files of SDK packages, keyed by package, section and the
//     path below the section folder
//
// A Loader owns the lazily built table; it downloads the source once with a
// Fetcher when the local copy is missing.
package reftable
