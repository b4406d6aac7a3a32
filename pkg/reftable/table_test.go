// SPDX-License-Identifier: MPL-2.0

package reftable

import (
	"slices"
	"strings"
	"testing"

	"github.com/canuckistani/jetpack-repacker/internal/testutil/addontest"
)

var (
	digestA = addontest.Digest("a")
	digestB = addontest.Digest("b")
	digestC = addontest.Digest("c")
)

func TestParse_ClassifiesRecords(t *testing.T) {
	t.Parallel()

	src := addontest.ReferenceLines(
		[3]string{"addon-sdk-1.4/python-lib/cuddlefish/app-extension/bootstrap.js", "1.4", digestA},
		[3]string{"addon-sdk-1.4/python-lib/cuddlefish/app-extension/components/harness.js", "1.4", digestB},
		[3]string{"addon-sdk-1.4/python-lib/cuddlefish/app-extension/defaults/preferences/prefs.js", "1.4", digestC},
		[3]string{"addon-sdk-1.4/packages/addon-kit/lib/panel.js", "1.4", digestA},
		[3]string{"addon-sdk-1.4/packages/api-utils/data/worker.js", "1.4", strings.ToUpper(digestB)},
		[3]string{"addon-sdk-1.4/packages/api-utils/tests/test-x.js", "1.4", digestC},
		[3]string{"addon-sdk-1.4/packages/api-utils/lib/", "1.4", digestC},
	)

	table, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	entry, ok := table.Lookup("1.4")
	if !ok {
		t.Fatal("Lookup(1.4) = false, want true")
	}

	if got, want := entry.BootstrapPaths(), []string{"bootstrap.js", "components/harness.js"}; !slices.Equal(got, want) {
		t.Errorf("BootstrapPaths() = %v, want %v", got, want)
	}
	if d, ok := entry.PackageDigest("addon-kit", SectionLib, "panel.js"); !ok || d != digestA {
		t.Errorf("PackageDigest(addon-kit, lib, panel.js) = %q, %v", d, ok)
	}
	if d, ok := entry.PackageDigest("api-utils", SectionData, "worker.js"); !ok || d != digestB {
		t.Errorf("digest was not lowercased: %q, %v", d, ok)
	}
	if _, ok := entry.Packages["api-utils"]["tests"]; ok {
		t.Error("tests section was kept")
	}
	if got := len(entry.Packages["api-utils"][SectionLib]); got != 0 {
		t.Errorf("record with empty key kept: %d lib entries", got)
	}
}

func TestParse_SkipsMalformedLines(t *testing.T) {
	t.Parallel()

	src := strings.Join([]string{
		"",
		"too few",
		"addon-sdk-1.5/packages/addon-kit/lib/a.js 1.5 nothex",
		"addon-sdk-1.5/packages/addon-kit/lib/b.js 1.5 " + digestA[:63],
		"addon-sdk-1.5/packages/addon-kit/lib/c.js 1.5 " + digestA,
	}, "\n")

	table, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	entry, ok := table.Lookup("1.5")
	if !ok {
		t.Fatal("version 1.5 missing")
	}
	lib := entry.Packages["addon-kit"][SectionLib]
	if len(lib) != 1 || lib["c.js"] != digestA {
		t.Errorf("lib = %v, want only c.js", lib)
	}
}

func TestParse_Idempotent(t *testing.T) {
	t.Parallel()

	src := addontest.ReferenceLines(
		[3]string{"addon-sdk-1.4/packages/addon-kit/lib/panel.js", "1.4", digestA},
		[3]string{"addon-sdk-1.4/packages/addon-kit/lib/panel.js", "1.4", digestA},
	)

	first, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	second, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	a, _ := first.Lookup("1.4")
	b, _ := second.Lookup("1.4")
	if len(a.Packages["addon-kit"][SectionLib]) != 1 || len(b.Packages["addon-kit"][SectionLib]) != 1 {
		t.Error("duplicate records produced extra entries")
	}
}

func TestTable_Versions(t *testing.T) {
	t.Parallel()

	var records [][3]string
	for _, v := range []string{"1.10", "1.0b5", "1.4", "1.0", "1.2.1"} {
		records = append(records, [3]string{"addon-sdk/packages/addon-kit/lib/a.js", v, digestA})
	}

	table, err := Parse(strings.NewReader(addontest.ReferenceLines(records...)))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := []string{"1.0b5", "1.0", "1.2.1", "1.4", "1.10"}
	if got := table.Versions(); !slices.Equal(got, want) {
		t.Errorf("Versions() = %v, want %v", got, want)
	}
	if _, ok := table.Lookup("9.9"); ok {
		t.Error("Lookup(9.9) = true, want false")
	}
}
