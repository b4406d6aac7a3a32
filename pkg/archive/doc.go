// SPDX-License-Identifier: MPL-2.0

// Package archive provides a uniform read/list/extract view over add-on
// archives, backed either by a compressed .xpi file or by an exploded
// directory tree.
//
// Entry names always use forward slashes, whatever the host filesystem,
// because they double as lookup keys into the reference hash table and the
// harness-options manifest.
package archive
