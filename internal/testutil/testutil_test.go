// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"path/filepath"
	"testing"
)

func TestMustWriteFile_CreatesParents(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "a", "b", "c.txt")
	MustWriteFile(t, path, "hello")

	if got := MustReadFile(t, path); got != "hello" {
		t.Errorf("got %q, want %q", got, "hello")
	}
}
