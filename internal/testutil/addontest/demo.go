// SPDX-License-Identifier: MPL-2.0

package addontest

import (
	"maps"
	"slices"
	"strings"
	"testing"
)

// DemoVersion is the SDK version the Demo add-on declares.
const DemoVersion = "1.4"

// demoSDKFiles are the SDK files shipped in Demo, keyed by their path in the
// SDK source tree.
var demoSDKFiles = map[string]string{
	"python-lib/cuddlefish/app-extension/bootstrap.js":          "// bootstrap\n",
	"python-lib/cuddlefish/app-extension/components/harness.js": "// harness\n",
	"packages/addon-kit/lib/panel.js":                           "// panel\n",
	"packages/addon-kit/lib/self.js":                            "// self\n",
	"packages/api-utils/lib/cuddlefish.js":                      "// loader\n",
}

// Demo returns a small genuine SDK 1.4 add-on: one application package
// "demo" using addon-kit's panel and self modules, with an English locale.
func Demo(t testing.TB) Files {
	t.Helper()

	files := Files{
		"harness-options.json": HarnessJSON(t, map[string]any{
			"sdkVersion": DemoVersion,
			"jetpackID":  "jid1-demo@jetpack",
			"mainPath":   "demo/lib/main.js",
			"metadata": map[string]any{
				"addon-kit": map[string]any{"name": "addon-kit"},
				"api-utils": map[string]any{"name": "api-utils"},
				"demo":      map[string]any{"name": "demo", "version": "0.1"},
			},
			"manifest": map[string]any{
				"demo/lib/main.js": map[string]any{
					"packageName": "demo",
					"moduleName":  "main",
					"requirements": map[string]any{
						"panel": map[string]any{"path": "addon-kit/lib/panel.js"},
						"self":  map[string]any{},
					},
				},
				"addon-kit/lib/panel.js": map[string]any{
					"packageName":  "addon-kit",
					"moduleName":   "panel",
					"requirements": map[string]any{},
				},
			},
		}),
		"resources/demo/lib/main.js":     "require('panel');\n",
		"resources/demo/data/panel.html": "<p>demo</p>\n",
		"locale/en-US.json":              `{"hello": "Hello"}`,
	}

	for p, content := range demoSDKFiles {
		files[archivePath(p)] = content
	}
	return files
}

// DemoReference returns reference data with the digests of Demo's SDK files.
func DemoReference() string {
	records := make([][3]string, 0, len(demoSDKFiles))
	for _, p := range slices.Sorted(maps.Keys(demoSDKFiles)) {
		records = append(records, [3]string{"addon-sdk-" + DemoVersion + "/" + p, DemoVersion, Digest(demoSDKFiles[p])})
	}
	return ReferenceLines(records...)
}

// archivePath maps an SDK source path to its location inside an add-on.
func archivePath(p string) string {
	if rest, ok := strings.CutPrefix(p, "python-lib/cuddlefish/app-extension/"); ok {
		return rest
	}
	return "resources/" + strings.TrimPrefix(p, "packages/")
}
