// SPDX-License-Identifier: MPL-2.0

package layout

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/canuckistani/jetpack-repacker/pkg/archive"
	"github.com/canuckistani/jetpack-repacker/pkg/deps"
	"github.com/canuckistani/jetpack-repacker/pkg/harness"
	"github.com/canuckistani/jetpack-repacker/pkg/jsonutil"
)

const (
	// PackageJSON is the metadata file written at the tree root.
	PackageJSON = "package.json"

	localeDir = "locale/"
	idField   = "id"
)

var (
	// ErrUnsupportedLayout is returned when an add-on cannot be rebuilt.
	ErrUnsupportedLayout = errors.New("unsupported add-on layout")

	// ErrInvalidLocale is returned for locale values that are neither strings
	// nor plural-form objects.
	ErrInvalidLocale = fmt.Errorf("%w: invalid locale file", ErrUnsupportedLayout)
)

// skippedSections are package folders left out of the rebuilt tree.
var skippedSections = []string{"test", "tests"}

// UnsupportedError explains why an add-on cannot be rebuilt.
type UnsupportedError struct {
	Reason string
}

// Error implements the error interface.
func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnsupportedLayout, e.Reason)
}

// Unwrap returns ErrUnsupportedLayout for errors.Is compatibility.
func (e *UnsupportedError) Unwrap() error { return ErrUnsupportedLayout }

// Unpack rebuilds the source tree of the add-on into target, which must be
// empty or absent. resolved is the add-on's dependency result; it must not
// require anything from api-utils.
func Unpack(arc archive.Archive, opts *harness.Options, resolved deps.Result, target string) error {
	pkg, err := checkPreconditions(opts, resolved, target)
	if err != nil {
		return err
	}

	for _, dir := range []string{"lib", "data", "locale"} {
		if err := os.MkdirAll(filepath.Join(target, dir), 0o755); err != nil {
			return fmt.Errorf("creating %s folder: %w", dir, err)
		}
	}

	names, err := arc.List()
	if err != nil {
		return fmt.Errorf("listing %s: %w", arc.Path(), err)
	}

	if err := copyPackage(arc, opts, names, pkg, target); err != nil {
		return err
	}
	if err := writeLocales(arc, names, filepath.Join(target, "locale")); err != nil {
		return err
	}
	return writePackageJSON(opts, pkg, target)
}

// ApplicationPackage returns the single non-SDK package of opts.
func ApplicationPackage(opts *harness.Options) (string, error) {
	pkgs := slices.DeleteFunc(opts.ListPackages(), func(p string) bool {
		return p == deps.AddonKit || p == deps.APIUtils
	})
	if len(pkgs) != 1 {
		return "", &UnsupportedError{
			Reason: fmt.Sprintf("only add-ons with exactly one application package can be rebuilt, found %q", pkgs),
		}
	}
	return pkgs[0], nil
}

// Check reports whether the add-on can be rebuilt into target without
// looking at its dependencies: target must be empty or absent and the add-on
// must have exactly one application package. An empty target skips the
// folder check.
func Check(opts *harness.Options, target string) error {
	if target != "" {
		entries, err := os.ReadDir(target)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return fmt.Errorf("reading target %s: %w", target, err)
		case len(entries) > 0:
			return &UnsupportedError{Reason: fmt.Sprintf("target %s is not empty", target)}
		}
	}

	_, err := ApplicationPackage(opts)
	return err
}

func checkPreconditions(opts *harness.Options, resolved deps.Result, target string) (string, error) {
	if err := Check(opts, target); err != nil {
		return "", err
	}

	pkg, err := ApplicationPackage(opts)
	if err != nil {
		return "", err
	}

	if resolved.Requires(deps.APIUtils) {
		return "", &UnsupportedError{
			Reason: "add-on uses low-level api-utils modules, only addon-kit based add-ons can be rebuilt",
		}
	}
	return pkg, nil
}

func copyPackage(arc archive.Archive, opts *harness.Options, names []string, pkg, target string) error {
	for _, f := range opts.PackageFiles(names, pkg) {
		if slices.Contains(skippedSections, f.Section) {
			continue
		}
		if f.Section != "lib" && f.Section != "data" {
			return &UnsupportedError{Reason: fmt.Sprintf("unexpected section folder %q in %s", f.Section, f.Name)}
		}
		if f.RelPath == "" {
			continue
		}

		dest := filepath.Join(target, f.Section, filepath.FromSlash(f.RelPath))
		if err := arc.Extract(f.Name, dest); err != nil {
			return err
		}
	}
	return nil
}

func writeLocales(arc archive.Archive, names []string, dir string) error {
	for _, name := range names {
		if !strings.HasPrefix(name, localeDir) {
			continue
		}

		data, err := arc.Read(name)
		if err != nil {
			return err
		}
		locale := jsonutil.NewObject()
		if err := json.Unmarshal(data, locale); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidLocale, name, err)
		}

		base := path.Base(name)
		lang := strings.TrimSuffix(base, path.Ext(base))
		if err := writePropertiesFile(filepath.Join(dir, lang+".properties"), locale); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func writePropertiesFile(dest string, locale *jsonutil.Object) (err error) {
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return WriteProperties(f, locale)
}

func writePackageJSON(opts *harness.Options, pkg, target string) error {
	metadata, err := opts.Metadata(pkg)
	if err != nil {
		return err
	}
	// The packager strips the add-on id from the metadata block.
	if err := metadata.Set(idField, opts.JetpackID()); err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(metadata); err != nil {
		return fmt.Errorf("encoding %s: %w", PackageJSON, err)
	}

	dest := filepath.Join(target, PackageJSON)
	if err := os.WriteFile(dest, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	return nil
}
