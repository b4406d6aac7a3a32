// SPDX-License-Identifier: MPL-2.0

package repack

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/canuckistani/jetpack-repacker/internal/artifact"
	"github.com/canuckistani/jetpack-repacker/internal/testutil"
	"github.com/canuckistani/jetpack-repacker/internal/testutil/addontest"
	"github.com/canuckistani/jetpack-repacker/pkg/archive"
	"github.com/canuckistani/jetpack-repacker/pkg/deps"
	"github.com/canuckistani/jetpack-repacker/pkg/harness"
	"github.com/canuckistani/jetpack-repacker/pkg/types"
)

// fakePackager mimics cfx: it records where it ran and optionally writes an
// archive there.
type fakePackager struct {
	stdout   string
	exitCode types.ExitCode
	err      error
	write    string

	dirs     []string
	commands []string
	sawFiles []string
}

func (f *fakePackager) Run(_ context.Context, dir, command string) (Output, error) {
	f.dirs = append(f.dirs, dir)
	f.commands = append(f.commands, command)

	if dir != "" {
		if _, err := os.Stat(filepath.Join(dir, "package.json")); err == nil {
			f.sawFiles = append(f.sawFiles, "package.json")
		}
		if f.write != "" {
			if err := os.WriteFile(filepath.Join(dir, f.write), []byte("new xpi"), 0o644); err != nil {
				return Output{}, err
			}
		}
	}
	return Output{Stdout: f.stdout, ExitCode: f.exitCode}, f.err
}

func loadDemo(t *testing.T) (archive.Archive, *harness.Options, deps.Result) {
	t.Helper()

	p := addontest.Demo(t).WriteZip(t, filepath.Join(t.TempDir(), "demo.xpi"))
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

func assertNoBuildFolders(t *testing.T, parent string) {
	t.Helper()

	entries, err := os.ReadDir(parent)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), tempDirPrefix) {
			t.Errorf("build folder %s left behind", e.Name())
		}
	}
}

func TestRepack(t *testing.T) {
	t.Parallel()

	arc, opts, resolved := loadDemo(t)
	tmpParent := t.TempDir()
	target := t.TempDir()
	packager := &fakePackager{
		stdout: "Using lib/main.js as main module\nExporting extension to demo.xpi.\n",
		write:  "demo.xpi",
	}

	o := New(artifact.LocalSink{Dir: target}, WithRunner(packager), WithTempDir(tmpParent))
	location, err := o.Repack(t.Context(), arc, opts, resolved, ArtifactName(arc.Path()))
	if err != nil {
		t.Fatalf("Repack() error = %v", err)
	}

	if want := filepath.Join(target, "demo.xpi-repacked.xpi"); location != want {
		t.Errorf("location = %q, want %q", location, want)
	}
	if got := testutil.MustReadFile(t, location); got != "new xpi" {
		t.Errorf("artifact content = %q", got)
	}
	if len(packager.commands) != 1 || packager.commands[0] != DefaultCommand {
		t.Errorf("commands = %v, want [%s]", packager.commands, DefaultCommand)
	}
	if len(packager.sawFiles) != 1 {
		t.Error("packaging tool ran before the tree was rebuilt")
	}
	if !strings.HasPrefix(packager.dirs[0], filepath.Join(tmpParent, tempDirPrefix)) {
		t.Errorf("tool ran in %s, want a build folder under %s", packager.dirs[0], tmpParent)
	}
	assertNoBuildFolders(t, tmpParent)
}

func TestRepack_NoMarker(t *testing.T) {
	t.Parallel()

	arc, opts, resolved := loadDemo(t)
	tmpParent := t.TempDir()
	target := t.TempDir()
	packager := &fakePackager{stdout: "Error: missing package.json\n"}

	o := New(artifact.LocalSink{Dir: target}, WithRunner(packager), WithTempDir(tmpParent), WithCommand("cfx xpi --strict"))
	_, err := o.Repack(t.Context(), arc, opts, resolved, "demo-repacked.xpi")
	if !errors.Is(err, ErrExternalTool) {
		t.Fatalf("Repack() error = %v, want ErrExternalTool", err)
	}

	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("error = %T, want *ToolError", err)
	}
	if toolErr.Command != "cfx xpi --strict" || !strings.Contains(err.Error(), "missing package.json") {
		t.Errorf("ToolError = %v", err)
	}

	assertNoBuildFolders(t, tmpParent)
	if entries, _ := os.ReadDir(target); len(entries) != 0 {
		t.Errorf("target holds %d entries after failure", len(entries))
	}
}

func TestRepack_LayoutRefusalSkipsTool(t *testing.T) {
	t.Parallel()

	arc, opts, _ := loadDemo(t)
	packager := &fakePackager{}
	tmpParent := t.TempDir()

	// A dependency on api-utils makes the add-on impossible to rebuild.
	lowLevel := parseResolved(t, `{
		"mainPath": "demo/lib/main.js",
		"manifest": {"demo/lib/main.js": {"packageName": "demo", "moduleName": "main", "requirements": {"chrome": {}}}}
	}`)

	o := New(artifact.LocalSink{Dir: t.TempDir()}, WithRunner(packager), WithTempDir(tmpParent))
	if _, err := o.Repack(t.Context(), arc, opts, lowLevel, "demo-repacked.xpi"); err == nil {
		t.Fatal("Repack() succeeded for an add-on using api-utils")
	}
	if len(packager.commands) != 0 {
		t.Errorf("packaging tool ran: %v", packager.commands)
	}
	assertNoBuildFolders(t, tmpParent)
}

func parseResolved(t *testing.T, doc string) deps.Result {
	t.Helper()

	opts, err := harness.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("harness.Parse() error = %v", err)
	}
	resolved, err := deps.Resolve(t.Context(), opts)
	if err != nil {
		t.Fatalf("deps.Resolve() error = %v", err)
	}
	return resolved
}

func TestCheckTool(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		packager *fakePackager
		wantErr  bool
	}{
		{"installed", &fakePackager{stdout: "Add-on SDK 1.4\n"}, false},
		{"missing", &fakePackager{exitCode: 127}, true},
		{"interpreter failure", &fakePackager{err: errors.New("boom")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			o := New(artifact.LocalSink{Dir: t.TempDir()}, WithRunner(tt.packager), WithVersionCommand("cfx --version"))
			err := o.CheckTool(t.Context())
			if tt.wantErr != (err != nil) {
				t.Fatalf("CheckTool() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrExternalTool) {
				t.Errorf("CheckTool() error = %v, want ErrExternalTool", err)
			}
			if tt.packager.commands[0] != "cfx --version" {
				t.Errorf("ran %q", tt.packager.commands[0])
			}
		})
	}
}

func TestExportedPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		stdout string
		want   string
		ok     bool
	}{
		{"Exporting extension to demo.xpi.\n", "demo.xpi", true},
		{"Using main\nExporting extension to /tmp/out/demo.xpi\nDone\n", "/tmp/out/demo.xpi", true},
		{"Exporting extension to nothing\n", "", false},
		{"Built old.xpi without marker\n", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ExportedPath(tt.stdout)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ExportedPath(%q) = %q, %v; want %q, %v", tt.stdout, got, ok, tt.want, tt.ok)
		}
	}
}

func TestArtifactName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"addons/demo.xpi":  "demo.xpi-repacked.xpi",
		"addons/demo-dir/": "demo-dir-repacked.xpi",
	}
	for path, want := range tests {
		if got := ArtifactName(path); got != want {
			t.Errorf("ArtifactName(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestShellRunner(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out, err := NewShellRunner().Run(t.Context(), dir, `echo "hello world"; echo oops >&2; exit 3`)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Stdout != "hello world\n" || out.Stderr != "oops\n" || out.ExitCode != 3 {
		t.Errorf("Run() = %+v", out)
	}

	if _, err := NewShellRunner().Run(t.Context(), dir, `echo "unterminated`); err == nil {
		t.Error("Run() accepted an unparsable command")
	}
}
