// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides shared CUE validation helpers.
//
// Both the configuration file and the add-on harness-options.json manifest
// are checked against embedded schemas with the same flow:
//
//  1. Compile the embedded schema
//  2. Compile the input and unify it with the schema definition
//  3. Validate, returning the unified value for decoding
//
// JSON is valid CUE, so harness-options.json goes through the same path as
// config.cue.
//
// # Usage
//
//	//go:embed harness_schema.cue
//	var schema []byte
//
//	unified, err := cueutil.Validate(schema, data, "#HarnessOptions",
//	    cueutil.WithFilename("harness-options.json"),
//	    cueutil.WithConcrete(false),
//	)
package cueutil
