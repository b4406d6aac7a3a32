// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"fmt"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

// ErrInputTooLarge is returned when an input exceeds the configured size limit.
var ErrInputTooLarge = errors.New("input too large")

type (
	// Violation is one schema violation, located by a JSON-style path.
	Violation struct {
		Path    string
		Message string
	}

	// ValidationError lists the schema violations found in File.
	ValidationError struct {
		File       string
		Violations []Violation
		cause      error
	}

	// SizeError reports an input larger than Limit bytes.
	SizeError struct {
		File  string
		Size  int64
		Limit int64
	}
)

// Error renders "<file>: <path>: <message>", one violation per line when
// there are several.
func (e *ValidationError) Error() string {
	lines := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		if v.Path == "" {
			lines = append(lines, v.Message)
			continue
		}
		lines = append(lines, v.Path+": "+v.Message)
	}
	if len(lines) == 1 {
		return e.File + ": " + lines[0]
	}
	return fmt.Sprintf("%s: validation failed:\n  %s", e.File, strings.Join(lines, "\n  "))
}

// Unwrap returns the CUE error the violations were read from.
func (e *ValidationError) Unwrap() error { return e.cause }

func (e *SizeError) Error() string {
	return fmt.Sprintf("%s: file size %d bytes exceeds maximum %d bytes", e.File, e.Size, e.Limit)
}

// Unwrap returns ErrInputTooLarge.
func (e *SizeError) Unwrap() error { return ErrInputTooLarge }

// FormatError turns a CUE error into a *ValidationError for filePath.
// Errors that carry no CUE detail are only prefixed with the file name.
//
//   - harness-options.json: rootPaths[1]: conflicting values 3 and string
//   - config.cue: packager.command: conflicting values true and string
func FormatError(err error, filePath string) error {
	if err == nil {
		return nil
	}

	cueErrs := cueerrors.Errors(err)
	if len(cueErrs) == 0 {
		return fmt.Errorf("%s: %w", filePath, err)
	}

	verr := &ValidationError{File: filePath, cause: err}
	for _, e := range cueErrs {
		path := formatPath(cueerrors.Path(e))
		msg := e.Error()
		// CUE may repeat the path in front of the message.
		if path != "" {
			if rest, ok := strings.CutPrefix(msg, path); ok {
				msg = strings.TrimSpace(strings.TrimPrefix(rest, ":"))
			}
		}
		verr.Violations = append(verr.Violations, Violation{Path: path, Message: msg})
	}
	return verr
}

// formatPath joins a CUE path as JSON-path notation: numeric segments after
// the first become list indexes.
func formatPath(path []string) string {
	var b strings.Builder
	for i, part := range path {
		switch {
		case i > 0 && isIndex(part):
			b.WriteString("[" + part + "]")
		case i > 0:
			b.WriteString("." + part)
		default:
			b.WriteString(part)
		}
	}
	return b.String()
}

// CheckFileSize returns a *SizeError when data is larger than maxSize.
func CheckFileSize(data []byte, maxSize int64, filename string) error {
	if size := int64(len(data)); size > maxSize {
		return &SizeError{File: filename, Size: size, Limit: maxSize}
	}
	return nil
}

func isIndex(part string) bool {
	if part == "" {
		return false
	}
	for _, c := range part {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
