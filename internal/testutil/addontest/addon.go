// SPDX-License-Identifier: MPL-2.0

package addontest

import (
	"archive/zip"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/minio/sha256-simd"
)

// Files maps slash-separated archive entry names to their content.
type Files map[string]string

// WriteZip stores the files in a new zip at path and returns path.
func (f Files) WriteZip(t testing.TB, path string) string {
	t.Helper()

	out, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	zw := zip.NewWriter(out)
	for _, name := range f.Names() {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("failed to add %s: %v", name, err)
		}
		if _, err := w.Write([]byte(f[name])); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to finish zip: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("failed to close %s: %v", path, err)
	}
	return path
}

// WriteDir lays the files out under dir and returns dir.
func (f Files) WriteDir(t testing.TB, dir string) string {
	t.Helper()

	for _, name := range f.Names() {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("failed to create parent of %s: %v", p, err)
		}
		if err := os.WriteFile(p, []byte(f[name]), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", p, err)
		}
	}
	return dir
}

// Names returns the entry names in sorted order.
func (f Files) Names() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Digest returns the lowercase hex SHA-256 of content.
func Digest(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// HarnessJSON marshals v (usually a map literal) for use as harness-options.json.
func HarnessJSON(t testing.TB, v any) string {
	t.Helper()

	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal harness options: %v", err)
	}
	return string(data)
}

// ReferenceLines renders reference-table records, one "path version digest"
// triple per line.
func ReferenceLines(records ...[3]string) string {
	var sb strings.Builder
	for _, r := range records {
		sb.WriteString(r[0])
		sb.WriteByte(' ')
		sb.WriteString(r[1])
		sb.WriteByte(' ')
		sb.WriteString(r[2])
		sb.WriteByte('\n')
	}
	return sb.String()
}
