// SPDX-License-Identifier: MPL-2.0

package sdk

import (
	"slices"
	"testing"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		version string
		want    Generation
	}{
		{"1.4", GenerationFlat},
		{"1.4.3", GenerationFlat},
		{"1.8.2", GenerationFlat},
		{"1.17", GenerationFlat},
		{"1.3", GenerationPrefixed},
		{"1.0", GenerationPrefixed},
		{"1.0b5", GenerationPrefixed},
		{"1.0rc1", GenerationPrefixed},
		{"0.9", GenerationPrefixed},
		{"1.", GenerationPrefixed},
		{PreManifestVersion, GenerationPrefixed},
		{"", GenerationPrefixed},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			t.Parallel()
			if got := Parse(tt.version); got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.version, got, tt.want)
			}
		})
	}
}

func TestResourceFolder(t *testing.T) {
	t.Parallel()

	if got := Parse("1.4").ResourceFolder("jid1@demo.addon", "demo"); got != "demo" {
		t.Errorf("flat folder: got %q, want %q", got, "demo")
	}
	if got := Parse("1.3").ResourceFolder("jid1@demo.addon", "demo"); got != "jid1-at-demo-dot-addon-demo" {
		t.Errorf("prefixed folder: got %q, want %q", got, "jid1-at-demo-dot-addon-demo")
	}
	if got := GenerationFlat.Separator(); got != "/" {
		t.Errorf("flat separator = %q, want /", got)
	}
	if got := GenerationPrefixed.Separator(); got != "-" {
		t.Errorf("prefixed separator = %q, want -", got)
	}
}

func TestIdentifierPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		jid  string
		want string
	}{
		{"jid with at and dot", "jid1@demo.addon", "jid1-at-demo-dot-addon-"},
		{"uppercase is lowered", "Jid1-ABC@Jetpack", "jid1-abc-at-jetpack-"},
		{"bare uuid loses braces", "{0a1b2c3d-0000-4a4a-8b8b-0123456789ab}", "0a1b2c3d-0000-4a4a-8b8b-0123456789ab-"},
		{"braces kept when not a bare uuid", "{not-a-uuid}", "{not-a-uuid}-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IdentifierPrefix(tt.jid); got != tt.want {
				t.Errorf("IdentifierPrefix(%q) = %q, want %q", tt.jid, got, tt.want)
			}
		})
	}
}

func TestSemver(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"1.0b5":            "v1.0.0-b5",
		"1.4":              "v1.4.0",
		"1.4.3":            "v1.4.3",
		PreManifestVersion: "",
		"1.0rc1":           "",
	}
	for in, want := range tests {
		if got := Semver(in); got != want {
			t.Errorf("Semver(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCompare_SortsReleases(t *testing.T) {
	t.Parallel()

	versions := []string{"1.4", "1.0", PreManifestVersion, "1.10", "1.0b5", "1.2.1"}
	slices.SortFunc(versions, Compare)

	want := []string{PreManifestVersion, "1.0b5", "1.0", "1.2.1", "1.4", "1.10"}
	if !slices.Equal(versions, want) {
		t.Errorf("got %v, want %v", versions, want)
	}
}
