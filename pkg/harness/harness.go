// SPDX-License-Identifier: MPL-2.0

package harness

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/canuckistani/jetpack-repacker/pkg/archive"
	"github.com/canuckistani/jetpack-repacker/pkg/cueutil"
	"github.com/canuckistani/jetpack-repacker/pkg/jsonutil"
	"github.com/canuckistani/jetpack-repacker/pkg/sdk"
)

// FileName is the manifest location inside an add-on archive.
const FileName = "harness-options.json"

// maxManifestSize bounds harness-options.json; large add-ons reach a few MB.
const maxManifestSize int64 = 32 << 20

var (
	// ErrMissingManifest is returned when an archive has no harness-options.json.
	ErrMissingManifest = errors.New("harness-options.json not found, not an SDK add-on")

	// ErrUnsupportedSchema is returned when the manifest lacks required fields
	// or uses a form too old to process.
	ErrUnsupportedSchema = errors.New("unsupported harness-options schema")

	// ErrUnresolvedEntryPoint is returned when the main module cannot be located.
	ErrUnresolvedEntryPoint = errors.New("unable to resolve main module")
)

//go:embed harness_schema.cue
var schema []byte

type (
	// SchemaError describes why a manifest was rejected.
	SchemaError struct {
		Reason string
		Err    error
	}

	// Options is the decoded harness-options.json.
	Options struct {
		sdkVersion   string
		jetpackID    string
		mainPath     *string
		main         *string
		rootPaths    []string
		hasRootPaths bool
		metadata     *jsonutil.Object
		manifest     *jsonutil.Object
		manifestKind jsonutil.Kind
	}

	wireOptions struct {
		SDKVersion *string          `json:"sdkVersion"`
		JetpackID  string           `json:"jetpackID"`
		MainPath   *string          `json:"mainPath"`
		Main       *string          `json:"main"`
		RootPaths  *[]string        `json:"rootPaths"`
		Metadata   *jsonutil.Object `json:"metadata"`
		Manifest   json.RawMessage  `json:"manifest"`
	}
)

// Error implements the error interface.
func (e *SchemaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrUnsupportedSchema, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrUnsupportedSchema, e.Reason)
}

// Unwrap returns ErrUnsupportedSchema and the underlying cause, if any.
func (e *SchemaError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrUnsupportedSchema, e.Err}
	}
	return []error{ErrUnsupportedSchema}
}

// Load reads and parses the manifest of arc.
func Load(arc archive.Archive) (*Options, error) {
	data, err := arc.Read(FileName)
	if err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", arc.Path(), ErrMissingManifest)
		}
		return nil, err
	}
	return Parse(data)
}

// Parse validates data against the manifest schema and decodes it.
func Parse(data []byte) (*Options, error) {
	if _, err := cueutil.Validate(schema, data, "#HarnessOptions",
		cueutil.WithFilename(FileName),
		cueutil.WithConcrete(false),
		cueutil.WithMaxFileSize(maxManifestSize),
	); err != nil {
		return nil, &SchemaError{Reason: "schema validation failed", Err: err}
	}

	var w wireOptions
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &SchemaError{Reason: "malformed JSON", Err: err}
	}

	o := &Options{
		sdkVersion:   sdk.PreManifestVersion,
		jetpackID:    w.JetpackID,
		mainPath:     w.MainPath,
		main:         w.Main,
		metadata:     w.Metadata,
		manifestKind: jsonutil.KindOf(w.Manifest),
	}
	if w.SDKVersion != nil {
		o.sdkVersion = *w.SDKVersion
	}
	if w.RootPaths != nil {
		o.rootPaths = *w.RootPaths
		o.hasRootPaths = true
	}
	if o.metadata == nil {
		o.metadata = jsonutil.NewObject()
	}
	if o.manifestKind == jsonutil.KindObject {
		o.manifest = jsonutil.NewObject()
		if err := json.Unmarshal(w.Manifest, o.manifest); err != nil {
			return nil, &SchemaError{Reason: "malformed manifest block", Err: err}
		}
	}

	return o, nil
}

// SDKVersion returns the declared SDK version, or sdk.PreManifestVersion.
func (o *Options) SDKVersion() string { return o.sdkVersion }

// JetpackID returns the add-on's global identifier.
func (o *Options) JetpackID() string { return o.jetpackID }

// Generation resolves the SDK generation once for this add-on.
func (o *Options) Generation() sdk.Generation { return sdk.Parse(o.sdkVersion) }

// ListPackages returns the package names of the metadata block in document order.
func (o *Options) ListPackages() []string { return o.metadata.Keys() }

// HasPackage reports whether pkg appears in the metadata block.
func (o *Options) HasPackage(pkg string) bool { return o.metadata.Has(pkg) }

// Metadata returns the metadata block of pkg.
func (o *Options) Metadata(pkg string) (*jsonutil.Object, error) {
	obj := jsonutil.NewObject()
	found, err := o.metadata.Decode(pkg, obj)
	if err != nil {
		return nil, &SchemaError{Reason: fmt.Sprintf("metadata of package %q", pkg), Err: err}
	}
	if !found {
		return nil, &SchemaError{Reason: fmt.Sprintf("package %q missing from metadata", pkg)}
	}
	return obj, nil
}

// CheckManifest fails unless the manifest block is present and keyed by
// resource identifier.
func (o *Options) CheckManifest() error {
	switch o.manifestKind {
	case jsonutil.KindObject:
		return nil
	case jsonutil.KindArray:
		return &SchemaError{Reason: "manifest is a list (SDK release too old)"}
	default:
		return &SchemaError{Reason: "manifest block missing"}
	}
}

// Entry returns the manifest entry stored under key.
func (o *Options) Entry(key string) (*Entry, bool, error) {
	if err := o.CheckManifest(); err != nil {
		return nil, false, err
	}

	raw, ok := o.manifest.Get(key)
	if !ok {
		return nil, false, nil
	}

	var w wireEntry
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, true, &SchemaError{Reason: fmt.Sprintf("manifest entry %q", key), Err: err}
	}
	return w.toEntry(key), true, nil
}

// hasEntry reports whether key is a manifest key.
func (o *Options) hasEntry(key string) bool {
	return o.manifest != nil && o.manifest.Has(key)
}

// ResolveEntryPoint returns the manifest key of the main module. Releases
// from 1.4 on record it directly in mainPath; older ones are searched by
// appending "<main>.js" to each root path in order.
func (o *Options) ResolveEntryPoint() (string, error) {
	if o.mainPath != nil {
		return *o.mainPath, nil
	}

	if !o.hasRootPaths || o.main == nil {
		return "", fmt.Errorf("%w: manifest has neither mainPath nor main and rootPaths", ErrUnresolvedEntryPoint)
	}

	mainFile := *o.main + ".js"
	for _, root := range o.rootPaths {
		if candidate := root + mainFile; o.hasEntry(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s not found under any root path", ErrUnresolvedEntryPoint, mainFile)
}
