// SPDX-License-Identifier: MPL-2.0

package layout

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/canuckistani/jetpack-repacker/internal/testutil"
	"github.com/canuckistani/jetpack-repacker/internal/testutil/addontest"
	"github.com/canuckistani/jetpack-repacker/pkg/archive"
	"github.com/canuckistani/jetpack-repacker/pkg/deps"
	"github.com/canuckistani/jetpack-repacker/pkg/harness"
	"github.com/canuckistani/jetpack-repacker/pkg/jsonutil"
)

func demoManifest(metadata map[string]any, requirements map[string]any) map[string]any {
	return map[string]any{
		"sdkVersion": "1.4",
		"jetpackID":  "jid1@demo.addon",
		"mainPath":   "demo/lib/main.js",
		"metadata":   metadata,
		"manifest": map[string]any{
			"demo/lib/main.js": map[string]any{
				"packageName":  "demo",
				"moduleName":   "main",
				"requirements": requirements,
			},
			"addon-kit/lib/panel.js": map[string]any{
				"packageName":  "addon-kit",
				"moduleName":   "panel",
				"requirements": map[string]any{},
			},
		},
	}
}

func demoFiles(t *testing.T, manifest map[string]any) addontest.Files {
	t.Helper()

	return addontest.Files{
		harness.FileName:                    addontest.HarnessJSON(t, manifest),
		"bootstrap.js":                      "// bootstrap\n",
		"resources/addon-kit/lib/panel.js":  "// panel\n",
		"resources/demo/lib/main.js":        "require('panel');\n",
		"resources/demo/lib/ui/view.js":     "// view\n",
		"resources/demo/data/icon.png":      "png",
		"resources/demo/tests/test-main.js": "// test\n",
		"locale/en-US.json":                 `{"greeting": {"one": "Hi", "other": "Hello"}, "bye": "Bye"}`,
	}
}

var defaultMetadata = map[string]any{
	"addon-kit": map[string]any{},
	"api-utils": map[string]any{},
	"demo":      map[string]any{"author": "Ann", "name": "demo"},
}

func load(t *testing.T, files addontest.Files) (archive.Archive, *harness.Options, deps.Result) {
	t.Helper()

	p := files.WriteZip(t, filepath.Join(t.TempDir(), "demo.xpi"))
	arc, err := archive.Open(p)
	if err != nil {
		t.Fatalf("archive.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = arc.Close() })

	opts, err := harness.Load(arc)
	if err != nil {
		t.Fatalf("harness.Load() error = %v", err)
	}
	resolved, err := deps.Resolve(t.Context(), opts)
	if err != nil {
		t.Fatalf("deps.Resolve() error = %v", err)
	}
	return arc, opts, resolved
}

func TestUnpack(t *testing.T) {
	t.Parallel()

	arc, opts, resolved := load(t, demoFiles(t, demoManifest(defaultMetadata, map[string]any{
		"panel": map[string]any{"path": "addon-kit/lib/panel.js"},
		"self":  map[string]any{},
	})))

	target := filepath.Join(t.TempDir(), "out")
	if err := Unpack(arc, opts, resolved, target); err != nil {
		t.Fatalf("Unpack() error = %v", err)
	}

	want := map[string]string{
		"lib/main.js":             "require('panel');\n",
		"lib/ui/view.js":          "// view\n",
		"data/icon.png":           "png",
		"locale/en-US.properties": "greeting[one]=Hi\ngreeting=Hello\nbye=Bye\n",
		"package.json":            "{\n  \"author\": \"Ann\",\n  \"name\": \"demo\",\n  \"id\": \"jid1@demo.addon\"\n}\n",
	}
	for name, content := range want {
		if got := testutil.MustReadFile(t, filepath.Join(target, filepath.FromSlash(name))); got != content {
			t.Errorf("%s = %q, want %q", name, got, content)
		}
	}

	for _, absent := range []string{"tests", "lib/test-main.js", "bootstrap.js", "lib/panel.js"} {
		if _, err := os.Stat(filepath.Join(target, absent)); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("%s should not exist (err = %v)", absent, err)
		}
	}
}

func TestUnpack_RefusesExtraPackages(t *testing.T) {
	t.Parallel()

	metadata := map[string]any{
		"addon-kit": map[string]any{},
		"api-utils": map[string]any{},
		"demo":      map[string]any{},
		"helpers":   map[string]any{},
	}
	arc, opts, _ := load(t, demoFiles(t, demoManifest(metadata, map[string]any{})))

	target := t.TempDir()
	err := Unpack(arc, opts, deps.Result{}, target)
	if !errors.Is(err, ErrUnsupportedLayout) {
		t.Fatalf("Unpack() error = %v, want ErrUnsupportedLayout", err)
	}
	var unsupported *UnsupportedError
	if !errors.As(err, &unsupported) {
		t.Errorf("error = %T, want *UnsupportedError", err)
	}

	entries, readErr := os.ReadDir(target)
	if readErr != nil {
		t.Fatalf("ReadDir() error = %v", readErr)
	}
	if len(entries) != 0 {
		t.Errorf("target holds %d entries after refusal", len(entries))
	}
}

func TestUnpack_RefusesLowLevelAPIs(t *testing.T) {
	t.Parallel()

	arc, opts, resolved := load(t, demoFiles(t, demoManifest(defaultMetadata, map[string]any{
		"chrome": map[string]any{},
	})))

	err := Unpack(arc, opts, resolved, t.TempDir())
	if !errors.Is(err, ErrUnsupportedLayout) {
		t.Fatalf("Unpack() error = %v, want ErrUnsupportedLayout", err)
	}
}

func TestUnpack_RefusesNonEmptyTarget(t *testing.T) {
	t.Parallel()

	arc, opts, resolved := load(t, demoFiles(t, demoManifest(defaultMetadata, map[string]any{})))

	target := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(target, "keep.txt"), "mine")

	err := Unpack(arc, opts, resolved, target)
	if !errors.Is(err, ErrUnsupportedLayout) {
		t.Fatalf("Unpack() error = %v, want ErrUnsupportedLayout", err)
	}
}

func TestCheck(t *testing.T) {
	t.Parallel()

	withExtra := map[string]any{
		"addon-kit": map[string]any{},
		"api-utils": map[string]any{},
		"demo":      map[string]any{},
		"helpers":   map[string]any{},
	}
	parse := func(metadata map[string]any) *harness.Options {
		opts, err := harness.Parse([]byte(addontest.HarnessJSON(t, demoManifest(metadata, map[string]any{}))))
		if err != nil {
			t.Fatalf("harness.Parse() error = %v", err)
		}
		return opts
	}

	nonEmpty := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(nonEmpty, "keep.txt"), "mine")

	tests := []struct {
		name     string
		metadata map[string]any
		target   string
		wantErr  bool
	}{
		{name: "absent target", metadata: defaultMetadata, target: filepath.Join(t.TempDir(), "out")},
		{name: "empty target", metadata: defaultMetadata, target: t.TempDir()},
		{name: "no target", metadata: defaultMetadata},
		{name: "non-empty target", metadata: defaultMetadata, target: nonEmpty, wantErr: true},
		{name: "no target still needs one package", metadata: withExtra, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := Check(parse(tt.metadata), tt.target)
			if tt.wantErr && !errors.Is(err, ErrUnsupportedLayout) {
				t.Errorf("Check() error = %v, want ErrUnsupportedLayout", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Check() error = %v", err)
			}
		})
	}
}

func TestUnpack_UnexpectedSection(t *testing.T) {
	t.Parallel()

	files := demoFiles(t, demoManifest(defaultMetadata, map[string]any{}))
	files["resources/demo/docs/readme.md"] = "# demo"
	arc, opts, resolved := load(t, files)

	err := Unpack(arc, opts, resolved, t.TempDir())
	if !errors.Is(err, ErrUnsupportedLayout) {
		t.Fatalf("Unpack() error = %v, want ErrUnsupportedLayout", err)
	}
}

func TestUnpack_InvalidLocale(t *testing.T) {
	t.Parallel()

	files := demoFiles(t, demoManifest(defaultMetadata, map[string]any{}))
	files["locale/fr.json"] = `{"count": 3}`
	arc, opts, resolved := load(t, files)

	err := Unpack(arc, opts, resolved, t.TempDir())
	if !errors.Is(err, ErrInvalidLocale) {
		t.Fatalf("Unpack() error = %v, want ErrInvalidLocale", err)
	}
}

func TestWriteProperties(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		locale  string
		want    string
		wantErr bool
	}{
		{
			name:   "plural forms keep order with bare other",
			locale: `{"greeting": {"one": "Hi", "other": "Hello"}}`,
			want:   "greeting[one]=Hi\ngreeting=Hello\n",
		},
		{
			name:   "strings in document order",
			locale: `{"z": "last letter", "a": "first letter", "note": "naïve café"}`,
			want:   "z=last letter\na=first letter\nnote=naïve café\n",
		},
		{
			name:   "empty",
			locale: `{}`,
			want:   "",
		},
		{
			name:    "number value",
			locale:  `{"count": 3}`,
			wantErr: true,
		},
		{
			name:    "array value",
			locale:  `{"items": ["a"]}`,
			wantErr: true,
		},
		{
			name:    "non-string plural form",
			locale:  `{"items": {"one": 1}}`,
			wantErr: true,
		},
		{
			name:    "null plural form",
			locale:  `{"greeting": {"one": null, "other": "Hello"}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			locale := jsonutil.NewObject()
			if err := json.Unmarshal([]byte(tt.locale), locale); err != nil {
				t.Fatalf("json.Unmarshal() error = %v", err)
			}

			var buf bytes.Buffer
			err := WriteProperties(&buf, locale)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidLocale) || !errors.Is(err, ErrUnsupportedLayout) {
					t.Fatalf("WriteProperties() error = %v, want ErrInvalidLocale", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("WriteProperties() error = %v", err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("WriteProperties() = %q, want %q", got, tt.want)
			}
		})
	}
}
