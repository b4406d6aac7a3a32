// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"errors"
	"testing"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
)

func TestGetVersionString(t *testing.T) {
	// Not parallel: subtests mutate package-level Version/Commit/BuildDate vars.

	t.Run("ldflags version", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		Version = "v1.2.3"
		Commit = "abc1234"
		BuildDate = "2025-06-15T10:00:00Z"

		got := getVersionString()
		want := "v1.2.3 (commit: abc1234, built: 2025-06-15T10:00:00Z)"
		if got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})

	t.Run("dev build", func(t *testing.T) {
		origVersion := Version
		t.Cleanup(func() { Version = origVersion })

		Version = "dev"
		if got := getVersionString(); got != "dev (built from source)" {
			t.Errorf("getVersionString() = %q", got)
		}
	})
}

func TestHandleError_SkipsRenderedErrors(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	handleError(&buf, fang.Styles{}, &ExitError{Code: 1})
	if buf.Len() != 0 {
		t.Errorf("handleError() wrote %q for an already rendered error", buf.String())
	}
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level   string
		verbose bool
		want    log.Level
		wantErr bool
	}{
		{level: "info", want: log.InfoLevel},
		{level: "WARN", want: log.WarnLevel},
		{level: "error", verbose: true, want: log.DebugLevel},
		{level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		logger, err := newLogger(&bytes.Buffer{}, tt.level, tt.verbose)
		if (err != nil) != tt.wantErr {
			t.Errorf("newLogger(%q) error = %v, wantErr %v", tt.level, err, tt.wantErr)
			continue
		}
		if err == nil && logger.GetLevel() != tt.want {
			t.Errorf("newLogger(%q, %v) level = %v, want %v", tt.level, tt.verbose, logger.GetLevel(), tt.want)
		}
	}
}

func TestExitError(t *testing.T) {
	t.Parallel()

	if got := (&ExitError{Code: 3}).Error(); got != "exit status 3" {
		t.Errorf("Error() = %q", got)
	}

	cause := errors.New("boom")
	err := &ExitError{Code: 1, Err: cause}
	if err.Error() != "boom" || !errors.Is(err, cause) {
		t.Errorf("ExitError does not expose its cause: %v", err)
	}
}
