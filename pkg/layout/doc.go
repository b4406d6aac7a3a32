// SPDX-License-Identifier: MPL-2.0

// Package layout rebuilds an editable SDK add-on source tree from a verified
// archive.
//
// The tree holds only the add-on's own package:
//
//	lib/          modules of the application package
//	data/         static assets of the application package
//	locale/       one <lang>.properties file per locale/<lang>.json entry
//	package.json  the package metadata with the add-on id restored
//
// Only add-ons built from a single application package on top of the
// high-level addon-kit APIs can be rebuilt; everything else is refused with
// ErrUnsupportedLayout before anything is written.
package layout
