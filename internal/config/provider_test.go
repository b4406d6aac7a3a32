// SPDX-License-Identifier: MPL-2.0

package config

import (
	"path/filepath"
	"testing"

	"github.com/canuckistani/jetpack-repacker/internal/testutil"
)

func TestProvider_Load(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(dir, "config.cue"), `ui: verbose: true`)

	p := NewProvider()
	cfg, err := p.Load(t.Context(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.UI.Verbose {
		t.Error("UI.Verbose = false, want true from the file")
	}
}

func TestProvider_Path(t *testing.T) {
	t.Parallel()

	p := NewProvider()
	dir := t.TempDir()

	path, err := p.Path(LoadOptions{ConfigDirPath: dir})
	if err != nil || path != "" {
		t.Errorf("Path() without a file = %q, %v", path, err)
	}

	want := filepath.Join(dir, "config.cue")
	testutil.MustWriteFile(t, want, "")
	if path, err = p.Path(LoadOptions{ConfigDirPath: dir}); err != nil || path != want {
		t.Errorf("Path() = %q, %v, want %q", path, err, want)
	}

	explicit := filepath.Join(t.TempDir(), "other.cue")
	if _, err := p.Path(LoadOptions{ConfigFilePath: explicit}); err == nil {
		t.Error("Path() accepted a missing explicit file")
	}
}

func TestSetConfigDirOverride(t *testing.T) {
	SetConfigDirOverride("/tmp/override")
	t.Cleanup(Reset)

	dir, err := ConfigDir()
	if err != nil || dir != "/tmp/override" {
		t.Errorf("ConfigDir() = %q, %v", dir, err)
	}
}
