// SPDX-License-Identifier: MPL-2.0

package cueutil

// DefaultMaxFileSize is the default maximum input size (5MB).
const DefaultMaxFileSize int64 = 5 * 1024 * 1024

type (
	// validateOptions holds configuration for CUE validation.
	validateOptions struct {
		maxFileSize int64
		concrete    bool
		filename    string
	}

	// Option configures validation behavior.
	Option func(*validateOptions)
)

func defaultOptions() validateOptions {
	return validateOptions{
		maxFileSize: DefaultMaxFileSize,
		concrete:    true,
	}
}

// WithMaxFileSize sets the maximum allowed input size.
func WithMaxFileSize(size int64) Option {
	return func(o *validateOptions) {
		o.maxFileSize = size
	}
}

// WithConcrete sets whether all values must be concrete after unification.
// Default is true.
//
// Set to false when the schema declares optional fields that inputs may
// leave unset.
func WithConcrete(concrete bool) Option {
	return func(o *validateOptions) {
		o.concrete = concrete
	}
}

// WithFilename sets the filename used in error messages.
func WithFilename(name string) Option {
	return func(o *validateOptions) {
		o.filename = name
	}
}
