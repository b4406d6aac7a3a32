// SPDX-License-Identifier: MPL-2.0

// Package deps resolves the modules an add-on actually requires by walking
// the manifest's requirement graph from the entry point.
package deps

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/canuckistani/jetpack-repacker/pkg/harness"
)

const (
	// AddonKit is the high-level SDK package.
	AddonKit = "addon-kit"
	// APIUtils is the low-level SDK package.
	APIUtils = "api-utils"
)

// ErrUnknownManifestEntry is returned when a requirement points at a key the
// manifest does not contain.
var ErrUnknownManifestEntry = errors.New("unknown manifest entry")

type (
	// UnknownEntryError names the missing manifest key.
	UnknownEntryError struct {
		Key string
		// From is the entry that required Key; empty for the entry point.
		From string
	}

	// Result maps packages to the modules required from them, both in
	// discovery order.
	Result struct {
		packages []string
		modules  map[string][]string
		seen     map[moduleRef]struct{}
	}

	moduleRef struct {
		pkg    string
		module string
	}

	taskKind int

	// task is one step of the walk: either expanding a manifest entry or
	// recording a module that needs no expansion.
	task struct {
		kind taskKind
		key  string
		from string
		ref  moduleRef
	}
)

const (
	taskVisit taskKind = iota
	taskRecord
)

// specialRequirements resolve to fixed SDK modules without a manifest lookup.
var specialRequirements = map[string]moduleRef{
	"self":       {pkg: AddonKit, module: "self"},
	"chrome":     {pkg: APIUtils, module: "chrome"},
	"@packaging": {pkg: APIUtils, module: "@packaging"},
	"@loader":    {pkg: APIUtils, module: "@loader"},
}

// Error implements the error interface.
func (e *UnknownEntryError) Error() string {
	if e.From == "" {
		return fmt.Sprintf("%s: entry point %q", ErrUnknownManifestEntry, e.Key)
	}
	return fmt.Sprintf("%s: %q (required by %q)", ErrUnknownManifestEntry, e.Key, e.From)
}

// Unwrap returns ErrUnknownManifestEntry for errors.Is compatibility.
func (e *UnknownEntryError) Unwrap() error { return ErrUnknownManifestEntry }

func newResult() Result {
	return Result{
		modules: map[string][]string{},
		seen:    map[moduleRef]struct{}{},
	}
}

// add records ref and reports whether it was new.
func (r *Result) add(ref moduleRef) bool {
	if _, ok := r.seen[ref]; ok {
		return false
	}
	r.seen[ref] = struct{}{}
	if _, ok := r.modules[ref.pkg]; !ok {
		r.packages = append(r.packages, ref.pkg)
	}
	r.modules[ref.pkg] = append(r.modules[ref.pkg], ref.module)
	return true
}

// Packages returns the required packages in discovery order.
func (r Result) Packages() []string { return slices.Clone(r.packages) }

// Modules returns the modules required from pkg in discovery order.
func (r Result) Modules(pkg string) []string { return slices.Clone(r.modules[pkg]) }

// Requires reports whether any module of pkg is required.
func (r Result) Requires(pkg string) bool {
	_, ok := r.modules[pkg]
	return ok
}

// Sorted returns a copy with each package's module list sorted, the stable
// form used for reporting.
func (r Result) Sorted() map[string][]string {
	out := make(map[string][]string, len(r.modules))
	for pkg, modules := range r.modules {
		sorted := slices.Clone(modules)
		slices.Sort(sorted)
		out[pkg] = sorted
	}
	return out
}

// SortedPackages returns the package names in sorted order.
func (r Result) SortedPackages() []string {
	return slices.Sorted(maps.Keys(r.modules))
}

// Resolve walks the requirement graph of opts from its entry point.
//
// An entry is expanded the first time its (package, module) pair is seen.
// The SDK packages are recorded but never expanded. Special requirement
// names (self, chrome, @packaging, @loader) are recorded directly; any other
// requirement is followed through its reference descriptor. The walk uses an
// explicit stack and produces the same discovery order as a depth-first
// recursion over requirements in document order.
func Resolve(ctx context.Context, opts *harness.Options) (Result, error) {
	if err := opts.CheckManifest(); err != nil {
		return Result{}, err
	}

	mainKey, err := opts.ResolveEntryPoint()
	if err != nil {
		return Result{}, err
	}

	result := newResult()
	stack := []task{{kind: taskVisit, key: mainKey}}

	for len(stack) > 0 {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		default:
		}

		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if t.kind == taskRecord {
			result.add(t.ref)
			continue
		}

		next, err := expand(opts, &result, t)
		if err != nil {
			return Result{}, err
		}
		// Pushed in reverse so the first requirement is processed first.
		for i := len(next) - 1; i >= 0; i-- {
			stack = append(stack, next[i])
		}
	}

	return result, nil
}

// expand records the entry behind t and returns the tasks for its
// requirements in document order.
func expand(opts *harness.Options, result *Result, t task) ([]task, error) {
	entry, ok, err := opts.Entry(t.key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &UnknownEntryError{Key: t.key, From: t.from}
	}

	pkg, err := entry.Package()
	if err != nil {
		return nil, err
	}
	module, err := entry.Module()
	if err != nil {
		return nil, err
	}

	if !result.add(moduleRef{pkg: pkg, module: module}) {
		return nil, nil
	}
	if pkg == AddonKit || pkg == APIUtils {
		return nil, nil
	}

	reqs, err := entry.Requirements()
	if err != nil {
		return nil, err
	}

	tasks := make([]task, 0, len(reqs))
	for _, req := range reqs {
		if ref, special := specialRequirements[req.Name]; special {
			tasks = append(tasks, task{kind: taskRecord, ref: ref})
			continue
		}
		key, err := req.Reference()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task{kind: taskVisit, key: key, from: t.key})
	}
	return tasks, nil
}
