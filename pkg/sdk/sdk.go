// SPDX-License-Identifier: MPL-2.0

// Package sdk classifies add-on SDK releases into generations and holds the
// per-generation rules for locating package resources inside an archive.
package sdk

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// PreManifestVersion is the version reported for archives whose manifest
// predates the sdkVersion field.
const PreManifestVersion = "pre-manifest-version"

const (
	// GenerationPrefixed covers every release before 1.4: package resources
	// live under a folder named after the add-on identifier and the package.
	GenerationPrefixed Generation = iota
	// GenerationFlat covers 1.4 and later: package resources live under a
	// folder named after the package alone.
	GenerationFlat
)

// Generation is the SDK layout generation an archive was built with.
type Generation int

var (
	bareUUID = regexp.MustCompile(`^\{([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})\}$`)

	// betaSuffix matches the pre-1.0 beta tags such as "1.0b5".
	betaSuffix = regexp.MustCompile(`^(\d+(?:\.\d+)*)(?:b(\d+))?$`)
)

// Parse resolves the generation of an SDK version string. Only numeric
// "1.x" versions with x >= 4 use the flat layout; everything else, including
// PreManifestVersion, falls back to the prefixed layout.
func Parse(version string) Generation {
	rest, ok := strings.CutPrefix(version, "1.")
	if !ok {
		return GenerationPrefixed
	}

	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	minor, err := strconv.Atoi(rest[:end])
	if err != nil || minor < 4 {
		return GenerationPrefixed
	}
	return GenerationFlat
}

// String returns a human-readable generation name.
func (g Generation) String() string {
	switch g {
	case GenerationFlat:
		return "flat"
	case GenerationPrefixed:
		return "prefixed"
	default:
		return "unknown"
	}
}

// ResourceFolder returns the folder under resources/ that holds pkg.
func (g Generation) ResourceFolder(jetpackID, pkg string) string {
	if g == GenerationFlat {
		return pkg
	}
	return IdentifierPrefix(jetpackID) + pkg
}

// Separator returns the character between a package's resource folder and
// its section name: "-" in prefixed archives ("<prefix><pkg>-lib/"), "/" in
// flat ones ("<pkg>/lib/").
func (g Generation) Separator() string {
	if g == GenerationFlat {
		return "/"
	}
	return "-"
}

// IdentifierPrefix derives the resource folder prefix used by prefixed
// archives: the identifier lowercased, "@" spelled "-at-", "." spelled
// "-dot-", braces dropped around a bare UUID, followed by "-".
func IdentifierPrefix(jetpackID string) string {
	id := strings.ToLower(jetpackID)
	id = strings.ReplaceAll(id, "@", "-at-")
	id = strings.ReplaceAll(id, ".", "-dot-")
	id = bareUUID.ReplaceAllString(id, "$1")
	return id + "-"
}

// Semver maps an SDK version onto a canonical semantic version so releases
// can be ordered. "1.0b5" becomes "v1.0.0-b5"; versions that cannot be
// mapped (PreManifestVersion included) return "".
func Semver(version string) string {
	m := betaSuffix.FindStringSubmatch(version)
	if m == nil {
		return ""
	}

	v := "v" + m[1]
	if m[2] != "" {
		v += "-b" + m[2]
	}
	return semver.Canonical(v)
}

// Compare orders two SDK versions. Versions without a semantic mapping sort
// before every mapped version and among themselves lexically.
func Compare(a, b string) int {
	sa, sb := Semver(a), Semver(b)
	switch {
	case sa == "" && sb == "":
		return strings.Compare(a, b)
	case sa == "":
		return -1
	case sb == "":
		return 1
	}
	if c := semver.Compare(sa, sb); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}
