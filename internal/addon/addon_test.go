// SPDX-License-Identifier: MPL-2.0

package addon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/canuckistani/jetpack-repacker/internal/artifact"
	"github.com/canuckistani/jetpack-repacker/internal/issue"
	"github.com/canuckistani/jetpack-repacker/internal/repack"
	"github.com/canuckistani/jetpack-repacker/internal/testutil"
	"github.com/canuckistani/jetpack-repacker/internal/testutil/addontest"
	"github.com/canuckistani/jetpack-repacker/pkg/archive"
	"github.com/canuckistani/jetpack-repacker/pkg/deps"
	"github.com/canuckistani/jetpack-repacker/pkg/harness"
	"github.com/canuckistani/jetpack-repacker/pkg/layout"
	"github.com/canuckistani/jetpack-repacker/pkg/reftable"
	"github.com/canuckistani/jetpack-repacker/pkg/verify"
)

// cfxStub writes the archive cfx would produce.
type cfxStub struct{}

func (cfxStub) Run(_ context.Context, dir, _ string) (repack.Output, error) {
	if dir == "" {
		return repack.Output{Stdout: "Add-on SDK 1.4\n"}, nil
	}
	if err := os.WriteFile(filepath.Join(dir, "demo.xpi"), []byte("rebuilt"), 0o644); err != nil {
		return repack.Output{}, err
	}
	return repack.Output{Stdout: "Exporting extension to demo.xpi.\n"}, nil
}

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()

	table, err := reftable.Parse(strings.NewReader(addontest.DemoReference()))
	if err != nil {
		t.Fatalf("reftable.Parse() error = %v", err)
	}
	return NewService(reftable.Static(table), opts...)
}

func writeDemo(t *testing.T, tamper bool) string {
	t.Helper()

	files := addontest.Demo(t)
	if tamper {
		files["bootstrap.js"] = "// patched bootstrap\n"
	}
	return files.WriteZip(t, filepath.Join(t.TempDir(), "demo.xpi"))
}

func assertActionable(t *testing.T, err error, operation string, target error) {
	t.Helper()

	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("error = %T (%v), want *issue.ActionableError", err, err)
	}
	if ae.Operation != operation {
		t.Errorf("Operation = %q, want %q", ae.Operation, operation)
	}
	if !errors.Is(err, target) {
		t.Errorf("error = %v, want it to wrap %v", err, target)
	}
}

func TestService_Deps(t *testing.T) {
	t.Parallel()

	path := writeDemo(t, false)
	report, err := newTestService(t).Deps(t.Context(), path)
	if err != nil {
		t.Fatalf("Deps() error = %v", err)
	}

	want := path + `; 1.4; {"addon-kit":["panel","self"],"demo":["main"]}`
	if got := report.DepsLine(); got != want {
		t.Errorf("DepsLine() = %q, want %q", got, want)
	}
}

func TestService_Checksum(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)

	genuine := writeDemo(t, false)
	report, err := svc.Checksum(t.Context(), genuine)
	if err != nil {
		t.Fatalf("Checksum() error = %v", err)
	}
	if got, want := report.ChecksumLine(), genuine+"; 1.4; OK; []"; got != want {
		t.Errorf("ChecksumLine() = %q, want %q", got, want)
	}

	tampered := writeDemo(t, true)
	report, err = svc.Checksum(t.Context(), tampered)
	if err != nil {
		t.Fatalf("Checksum() error = %v", err)
	}
	if got, want := report.ChecksumLine(), tampered+`; 1.4; KO; ["bootstrap.js"]`; got != want {
		t.Errorf("ChecksumLine() = %q, want %q", got, want)
	}
}

func TestService_Unpack(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	target := filepath.Join(t.TempDir(), "src")

	if err := svc.Unpack(t.Context(), writeDemo(t, false), target); err != nil {
		t.Fatalf("Unpack() error = %v", err)
	}
	if got := testutil.MustReadFile(t, filepath.Join(target, "lib", "main.js")); got != "require('panel');\n" {
		t.Errorf("lib/main.js = %q", got)
	}
	if got := testutil.MustReadFile(t, filepath.Join(target, "locale", "en-US.properties")); got != "hello=Hello\n" {
		t.Errorf("en-US.properties = %q", got)
	}
	if got := testutil.MustReadFile(t, filepath.Join(target, layout.PackageJSON)); !strings.Contains(got, `"id": "jid1-demo@jetpack"`) {
		t.Errorf("package.json = %s", got)
	}
}

func TestService_UnpackChecksLayoutBeforeDependencies(t *testing.T) {
	t.Parallel()

	brokenGraph := func(metadata map[string]any) string {
		files := addontest.Demo(t)
		files[harness.FileName] = addontest.HarnessJSON(t, map[string]any{
			"sdkVersion": addontest.DemoVersion,
			"jetpackID":  "jid1-demo@jetpack",
			"mainPath":   "demo/lib/main.js",
			"metadata":   metadata,
			"manifest": map[string]any{
				"demo/lib/main.js": map[string]any{
					"packageName": "demo",
					"moduleName":  "main",
					"requirements": map[string]any{
						"x": map[string]any{"path": "missing/lib/x.js"},
					},
				},
			},
		})
		return files.WriteZip(t, filepath.Join(t.TempDir(), "demo.xpi"))
	}
	single := map[string]any{"addon-kit": map[string]any{}, "api-utils": map[string]any{}, "demo": map[string]any{}}
	extra := map[string]any{"addon-kit": map[string]any{}, "api-utils": map[string]any{}, "demo": map[string]any{}, "other": map[string]any{}}

	t.Run("two application packages", func(t *testing.T) {
		t.Parallel()

		err := newTestService(t).Unpack(t.Context(), brokenGraph(extra), filepath.Join(t.TempDir(), "src"))
		assertActionable(t, err, "unpack add-on", layout.ErrUnsupportedLayout)
	})

	t.Run("non-empty target", func(t *testing.T) {
		t.Parallel()

		target := t.TempDir()
		testutil.MustWriteFile(t, filepath.Join(target, "keep.txt"), "mine")

		err := newTestService(t).Unpack(t.Context(), brokenGraph(single), target)
		assertActionable(t, err, "unpack add-on", layout.ErrUnsupportedLayout)
	})

	t.Run("valid layout reports the broken graph", func(t *testing.T) {
		t.Parallel()

		err := newTestService(t).Unpack(t.Context(), brokenGraph(single), filepath.Join(t.TempDir(), "src"))
		assertActionable(t, err, "unpack add-on", deps.ErrUnknownManifestEntry)
	})
}

func TestService_UnpackRefusesTamperedAddon(t *testing.T) {
	t.Parallel()

	target := filepath.Join(t.TempDir(), "src")
	err := newTestService(t).Unpack(t.Context(), writeDemo(t, true), target)
	assertActionable(t, err, "unpack add-on", verify.ErrVerificationFailed)

	var failed *verify.FailedError
	if !errors.As(err, &failed) || !slices.Equal(failed.Files, verify.Mismatches{"bootstrap.js"}) {
		t.Errorf("FailedError = %+v", failed)
	}
	if _, statErr := os.Stat(target); !errors.Is(statErr, os.ErrNotExist) {
		t.Errorf("target created for a tampered add-on (err = %v)", statErr)
	}
}

func TestService_Repack(t *testing.T) {
	t.Parallel()

	target := t.TempDir()
	svc := newTestService(t, WithRepackOptions(repack.WithRunner(cfxStub{}), repack.WithTempDir(t.TempDir())))

	if err := svc.CheckTool(t.Context()); err != nil {
		t.Fatalf("CheckTool() error = %v", err)
	}

	location, err := svc.Repack(t.Context(), writeDemo(t, false), target)
	if err != nil {
		t.Fatalf("Repack() error = %v", err)
	}
	if want := filepath.Join(target, "demo.xpi"+repack.RepackedSuffix); location != want {
		t.Errorf("location = %q, want %q", location, want)
	}
	if got := testutil.MustReadFile(t, location); got != "rebuilt" {
		t.Errorf("artifact = %q", got)
	}
}

func TestService_RepackUsesSinkResolver(t *testing.T) {
	t.Parallel()

	var gotTarget string
	dir := t.TempDir()
	svc := newTestService(t,
		WithRepackOptions(repack.WithRunner(cfxStub{}), repack.WithTempDir(t.TempDir())),
		WithSinkResolver(func(target string) (artifact.Sink, error) {
			gotTarget = target
			return artifact.LocalSink{Dir: dir}, nil
		}),
	)

	if _, err := svc.Repack(t.Context(), writeDemo(t, false), "s3://addons/out"); err != nil {
		t.Fatalf("Repack() error = %v", err)
	}
	if gotTarget != "s3://addons/out" {
		t.Errorf("resolver got %q", gotTarget)
	}

	failing := newTestService(t, WithSinkResolver(func(string) (artifact.Sink, error) {
		return nil, errors.New("no credentials")
	}))
	_, err := failing.Repack(t.Context(), writeDemo(t, false), "s3://addons/out")
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || ae.Operation != "resolve repack target" {
		t.Errorf("Repack() error = %v", err)
	}
}

func TestService_Errors(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)

	_, err := svc.Deps(t.Context(), filepath.Join(t.TempDir(), "missing.xpi"))
	assertActionable(t, err, "open add-on", archive.ErrNotFound)

	notAddon := addontest.Files{"install.rdf": "<RDF/>"}.WriteDir(t, filepath.Join(t.TempDir(), "plain"))
	_, err = svc.Checksum(t.Context(), notAddon)
	assertActionable(t, err, "read add-on manifest", harness.ErrMissingManifest)

	files := addontest.Demo(t)
	files["harness-options.json"] = `{"sdkVersion": "1.0b1", "manifest": {}}`
	old := files.WriteZip(t, filepath.Join(t.TempDir(), "old.xpi"))
	_, err = svc.Checksum(t.Context(), old)
	assertActionable(t, err, "verify add-on", verify.ErrUnknownSDKVersion)

	var ae *issue.ActionableError
	if errors.As(err, &ae) && !ae.HasSuggestions() {
		t.Error("unknown SDK version error has no suggestions")
	}
}

func TestService_MissingReferenceData(t *testing.T) {
	t.Parallel()

	svc := NewService(reftable.NewLoader(filepath.Join(t.TempDir(), reftable.DataFileName)))

	_, err := svc.Checksum(t.Context(), writeDemo(t, false))
	assertActionable(t, err, "verify add-on", reftable.ErrMissingData)

	_, err = svc.Versions(t.Context())
	assertActionable(t, err, "load reference data", reftable.ErrMissingData)
}

func TestService_Versions(t *testing.T) {
	t.Parallel()

	versions, err := newTestService(t).Versions(t.Context())
	if err != nil {
		t.Fatalf("Versions() error = %v", err)
	}
	if !slices.Equal(versions, []string{addontest.DemoVersion}) {
		t.Errorf("Versions() = %v", versions)
	}
}
