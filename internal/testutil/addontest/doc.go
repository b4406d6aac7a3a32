// SPDX-License-Identifier: MPL-2.0

// Package addontest builds add-on fixtures (zip or exploded) for tests.
//
// # Usage
//
//	files := addontest.Files{
//	    "harness-options.json": addontest.HarnessJSON(t, opts),
//	    "bootstrap.js":         "...",
//	}
//	xpi := files.WriteZip(t, filepath.Join(t.TempDir(), "demo.xpi"))
package addontest
