// SPDX-License-Identifier: MPL-2.0

package harness

import "strings"

// ResourcesDir is the archive folder holding compiled packages.
const ResourcesDir = "resources/"

// PackageFile is an archive entry belonging to a package.
type PackageFile struct {
	// Name is the archive entry path.
	Name string
	// Section is the first folder below the package, usually lib or data.
	Section string
	// RelPath is the path below the section folder.
	RelPath string
}

// PackageFiles selects the entries of names stored under pkg's resource
// folder, in the order given. The folder follows the archive's SDK
// generation and the entry must continue with the generation's separator.
// In prefixed archives the separator is "-", so an entry that also matches
// the longer folder of another listed package ("api" and "api-utils")
// belongs to that package.
func (o *Options) PackageFiles(names []string, pkg string) []PackageFile {
	prefix := o.resourcePrefix(pkg)

	var longer []string
	for _, other := range o.ListPackages() {
		if p := o.resourcePrefix(other); other != pkg && len(p) > len(prefix) && strings.HasPrefix(p, prefix) {
			longer = append(longer, p)
		}
	}

	var files []PackageFile
	for _, name := range names {
		rest, ok := strings.CutPrefix(name, prefix)
		if !ok || rest == "" || hasAnyPrefix(name, longer) {
			continue
		}
		section, relPath, _ := strings.Cut(rest, "/")
		files = append(files, PackageFile{Name: name, Section: section, RelPath: relPath})
	}
	return files
}

func (o *Options) resourcePrefix(pkg string) string {
	gen := o.Generation()
	return ResourcesDir + gen.ResourceFolder(o.jetpackID, pkg) + gen.Separator()
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
