// SPDX-License-Identifier: MPL-2.0

// Package jsonutil decodes JSON objects without losing member order.
//
// Add-on manifests and locale files are order-sensitive: requirements are
// walked in document order and locale keys are written back in the order the
// author declared them. encoding/json maps do not keep that order.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

const (
	KindInvalid Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// ErrNotObject is returned when an Object is decoded from a non-object value.
var ErrNotObject = errors.New("json value is not an object")

type (
	// Kind is the JSON type of a raw value.
	Kind int

	// Object is a JSON object that remembers the order of its members.
	// Duplicate keys keep their first position and their last value.
	Object struct {
		keys   []string
		values map[string]json.RawMessage
	}
)

// String returns the JSON type name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "invalid"
	}
}

// KindOf reports the JSON type of raw from its first significant byte.
func KindOf(raw json.RawMessage) Kind {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 {
		return KindInvalid
	}
	switch c := trimmed[0]; {
	case c == '{':
		return KindObject
	case c == '[':
		return KindArray
	case c == '"':
		return KindString
	case c == 'n':
		return KindNull
	case c == 't' || c == 'f':
		return KindBool
	case c == '-' || (c >= '0' && c <= '9'):
		return KindNumber
	default:
		return KindInvalid
	}
}

// NewObject returns an empty Object.
func NewObject() *Object {
	return &Object{values: map[string]json.RawMessage{}}
}

// UnmarshalJSON implements json.Unmarshaler. A JSON null leaves the object
// untouched.
func (o *Object) UnmarshalJSON(data []byte) error {
	if KindOf(data) == KindNull {
		return nil
	}
	if KindOf(data) != KindObject {
		return fmt.Errorf("%w: got %s", ErrNotObject, KindOf(data))
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return err
	}

	o.keys = nil
	o.values = map[string]json.RawMessage{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected object key %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("decoding member %q: %w", key, err)
		}
		if _, dup := o.values[key]; !dup {
			o.keys = append(o.keys, key)
		}
		o.values[key] = raw
	}

	_, err := dec.Token()
	return err
}

// MarshalJSON implements json.Marshaler, writing members in order.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(o.values[key])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Keys returns the member names in document order.
func (o *Object) Keys() []string {
	return slices.Clone(o.keys)
}

// Len returns the number of members.
func (o *Object) Len() int {
	return len(o.keys)
}

// Has reports whether key is a member.
func (o *Object) Has(key string) bool {
	_, ok := o.values[key]
	return ok
}

// Get returns the raw value of key.
func (o *Object) Get(key string) (json.RawMessage, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Decode unmarshals the value of key into v. It reports false when key is
// not a member.
func (o *Object) Decode(key string, v any) (bool, error) {
	raw, ok := o.values[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("decoding %q: %w", key, err)
	}
	return true, nil
}

// Set marshals v and stores it under key, appending key when it is new.
func (o *Object) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %q: %w", key, err)
	}
	if o.values == nil {
		o.values = map[string]json.RawMessage{}
	}
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = raw
	return nil
}

// Clone returns a copy that can be modified independently.
func (o *Object) Clone() *Object {
	c := &Object{keys: slices.Clone(o.keys), values: make(map[string]json.RawMessage, len(o.values))}
	for k, v := range o.values {
		c.values[k] = v
	}
	return c
}
