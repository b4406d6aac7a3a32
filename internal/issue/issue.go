// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

type Id int

const (
	FileNotFoundId Id = iota + 1
	NotAnAddonId
	ReferenceDataUnavailableId
	UnsupportedSchemaId
	UnresolvedEntryPointId
	UnknownManifestEntryId
	UnknownSDKVersionId
	VerificationFailedId
	UnsupportedLayoutId
	PackagingToolFailedId
	ArtifactStoreFailedId
	ConfigLoadFailedId
	PermissionDeniedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.extLinks) > 0 {
		extraMd += "\n\n## See also\n"
		for _, link := range i.extLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	fileNotFoundIssue = &Issue{
		id: FileNotFoundId,
		mdMsg: `
# Add-on not found!

The path you gave does not point to an existing file or folder.

## Things you can try:
- Check the path for typos
- Pass either an .xpi file or an unpacked add-on folder
- In batch mode, pass the folder that holds the add-ons:
~~~
$ jetpack-repacker --batch checksum ./addons
~~~`,
	}

	notAnAddonIssue = &Issue{
		id: NotAnAddonId,
		mdMsg: `
# This is not an SDK add-on!

The archive has no **harness-options.json** at its root. Only add-ons built
with the Add-on SDK (cfx) carry this file.

## Things you can try:
- Make sure the archive is an .xpi built by cfx, not a hand-written extension
- If the add-on is unpacked, pass the folder that contains harness-options.json`,
	}

	referenceDataUnavailableIssue = &Issue{
		id: ReferenceDataUnavailableId,
		mdMsg: `
# Reference digests unavailable!

Verification needs the official SDK file digests (jetpack_data.txt). The file
is missing and could not be downloaded.

## Things you can try:
- Check your network connection and retry
- Download the file manually and point the configuration at it:
~~~cue
reference: data_path: "/path/to/jetpack_data.txt"
~~~
- Or set it through the environment:
~~~
$ export JETPACK_REPACKER_REFERENCE_DATA_PATH=/path/to/jetpack_data.txt
~~~`,
		extLinks: []HttpLink{
			"https://raw.github.com/mattbasta/amo-validator/master/validator/testcases/jetpack_data.txt",
		},
	}

	unsupportedSchemaIssue = &Issue{
		id: UnsupportedSchemaId,
		mdMsg: `
# Unsupported harness-options.json!

The add-on manifest is malformed or was written by an SDK release too old to
process (no manifest block, or a manifest stored as a list).

## Things you can try:
- Check the SDK version reported by:
~~~
$ jetpack-repacker deps <path>
~~~
- Rebuild the add-on with a newer SDK release`,
	}

	unresolvedEntryPointIssue = &Issue{
		id: UnresolvedEntryPointId,
		mdMsg: `
# Main module not found!

The manifest names neither a **mainPath** nor a **main** module that can be
found under its **rootPaths**.

## Things you can try:
- Check the "main" field of the add-on's package.json and rebuild it`,
	}

	unknownManifestEntryIssue = &Issue{
		id: UnknownManifestEntryId,
		mdMsg: `
# Broken module requirement!

A module requires another module that is not listed in the manifest. The
archive is incomplete or was modified after packaging.

## Things you can try:
- Rebuild the add-on from its sources
- Compare the archive with the copy published on the add-ons site`,
	}

	unknownSDKVersionIssue = &Issue{
		id: UnknownSDKVersionId,
		mdMsg: `
# Unknown SDK version!

The reference data has no digests for the SDK release this add-on declares,
so its files cannot be verified.

## Things you can try:
- List the SDK versions the reference data knows about:
~~~
$ jetpack-repacker versions
~~~
- Delete the local reference data to download the latest copy`,
	}

	verificationFailedIssue = &Issue{
		id: VerificationFailedId,
		mdMsg: `
# SDK files differ from the official release!

Some bootstrap or SDK package files do not match the official digests. The
add-on was either modified or built with a patched SDK; it will not be
unpacked or repacked.

## Things you can try:
- Inspect the reported files:
~~~
$ jetpack-repacker checksum <path>
~~~
- Rebuild the add-on with an unmodified SDK`,
	}

	unsupportedLayoutIssue = &Issue{
		id: UnsupportedLayoutId,
		mdMsg: `
# This add-on cannot be rebuilt!

Only add-ons with a single application package that use the high-level
addon-kit APIs can be rebuilt. Add-ons with extra packages or using
api-utils modules are refused, as are non-empty target folders.

## Things you can try:
- Pass an empty target folder:
~~~
$ jetpack-repacker unpack <path> --target ./empty-dir
~~~
- Check which modules the add-on requires:
~~~
$ jetpack-repacker deps <path>
~~~`,
	}

	packagingToolFailedIssue = &Issue{
		id: PackagingToolFailedId,
		mdMsg: `
# Packaging tool failed!

The packaging command (cfx by default) could not be run or did not report an
exported extension.

## Things you can try:
- Install the Add-on SDK and activate its environment:
~~~
$ source bin/activate
$ cfx --version
~~~
- Point the configuration at another command:
~~~cue
packager: command: "cfx xpi"
~~~`,
	}

	artifactStoreFailedIssue = &Issue{
		id: ArtifactStoreFailedId,
		mdMsg: `
# Failed to store the repacked add-on!

The repacked archive was built but could not be moved to its target.

## Things you can try:
- Check that the target folder is writable
- For s3:// targets, check the endpoint and credentials under
  **artifacts.s3** in your configuration`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The configuration file exists but could not be parsed or validated.

## Things you can try:
- Show where the configuration is read from:
~~~
$ jetpack-repacker config path
~~~
- Write a fresh default configuration:
~~~
$ jetpack-repacker config init
~~~`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

A file or folder could not be read or written.

## Things you can try:
- Check the permissions of the add-on, the target folder and the reference data
- Avoid running as root; use a target folder you own`,
	}

	issues = map[Id]*Issue{
		fileNotFoundIssue.Id():             fileNotFoundIssue,
		notAnAddonIssue.Id():               notAnAddonIssue,
		referenceDataUnavailableIssue.Id(): referenceDataUnavailableIssue,
		unsupportedSchemaIssue.Id():        unsupportedSchemaIssue,
		unresolvedEntryPointIssue.Id():     unresolvedEntryPointIssue,
		unknownManifestEntryIssue.Id():     unknownManifestEntryIssue,
		unknownSDKVersionIssue.Id():        unknownSDKVersionIssue,
		verificationFailedIssue.Id():       verificationFailedIssue,
		unsupportedLayoutIssue.Id():        unsupportedLayoutIssue,
		packagingToolFailedIssue.Id():      packagingToolFailedIssue,
		artifactStoreFailedIssue.Id():      artifactStoreFailedIssue,
		configLoadFailedIssue.Id():         configLoadFailedIssue,
		permissionDeniedIssue.Id():         permissionDeniedIssue,
	}
)

// Values returns every issue ordered by id.
func Values() []*Issue {
	values := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		values = append(values, i)
	}
	slices.SortFunc(values, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return values
}

func Get(id Id) *Issue {
	return issues[id]
}
