// SPDX-License-Identifier: MPL-2.0

package harness

import (
	"encoding/json"
	"fmt"

	"github.com/canuckistani/jetpack-repacker/pkg/jsonutil"
)

type (
	// Entry is one module record of the manifest block.
	Entry struct {
		Key          string
		packageName  *string
		moduleName   *string
		name         *string
		requirements *jsonutil.Object
		requires     *jsonutil.Object
	}

	// Requirement is one named dependency of an entry, in document order.
	Requirement struct {
		Name  string
		Value json.RawMessage
	}

	// reference is the descriptor of a non-special requirement.
	reference struct {
		Path *string `json:"path"`
		URI  *string `json:"uri"`
		URL  *string `json:"url"`
	}

	wireEntry struct {
		PackageName  *string          `json:"packageName"`
		ModuleName   *string          `json:"moduleName"`
		Name         *string          `json:"name"`
		Requirements *jsonutil.Object `json:"requirements"`
		Requires     *jsonutil.Object `json:"requires"`
	}
)

func (w wireEntry) toEntry(key string) *Entry {
	return &Entry{
		Key:          key,
		packageName:  w.PackageName,
		moduleName:   w.ModuleName,
		name:         w.Name,
		requirements: w.Requirements,
		requires:     w.Requires,
	}
}

// Package returns the package the module belongs to.
func (e *Entry) Package() (string, error) {
	if e.packageName == nil {
		return "", &SchemaError{Reason: fmt.Sprintf("entry %q has no packageName", e.Key)}
	}
	return *e.packageName, nil
}

// Module returns the module name: moduleName, falling back to name.
func (e *Entry) Module() (string, error) {
	switch {
	case e.moduleName != nil:
		return *e.moduleName, nil
	case e.name != nil:
		return *e.name, nil
	default:
		return "", &SchemaError{Reason: fmt.Sprintf("entry %q has neither moduleName nor name", e.Key)}
	}
}

// Requirements returns the entry's requirements: requirements, falling back
// to requires.
func (e *Entry) Requirements() ([]Requirement, error) {
	obj := e.requirements
	if obj == nil {
		obj = e.requires
	}
	if obj == nil {
		return nil, &SchemaError{Reason: fmt.Sprintf("entry %q has neither requirements nor requires", e.Key)}
	}

	reqs := make([]Requirement, 0, obj.Len())
	for _, name := range obj.Keys() {
		raw, _ := obj.Get(name)
		reqs = append(reqs, Requirement{Name: name, Value: raw})
	}
	return reqs, nil
}

// Reference returns the manifest key a requirement points at, checking path,
// then uri, then url.
func (r Requirement) Reference() (string, error) {
	var ref reference
	if jsonutil.KindOf(r.Value) == jsonutil.KindObject {
		if err := json.Unmarshal(r.Value, &ref); err != nil {
			return "", &SchemaError{Reason: fmt.Sprintf("requirement %q", r.Name), Err: err}
		}
	}

	switch {
	case ref.Path != nil:
		return *ref.Path, nil
	case ref.URI != nil:
		return *ref.URI, nil
	case ref.URL != nil:
		return *ref.URL, nil
	default:
		return "", &SchemaError{Reason: fmt.Sprintf("unknown form of requirement %q: %s", r.Name, r.Value)}
	}
}
