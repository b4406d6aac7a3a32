// SPDX-License-Identifier: MPL-2.0

// Package artifact stores repacked add-ons in their final location: a local
// folder or an S3-compatible bucket.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// s3Scheme selects the S3 sink in a target string.
const s3Scheme = "s3"

// ErrStore is wrapped by errors from storing a produced archive.
var ErrStore = errors.New("failed to store artifact")

type (
	// Sink takes ownership of a produced file.
	Sink interface {
		// Store moves the file at srcPath into the sink under name and
		// returns where it ended up.
		Store(ctx context.Context, srcPath, name string) (location string, err error)
	}

	// LocalSink stores files in a directory.
	LocalSink struct {
		Dir string
	}
)

// Store moves srcPath to Dir/name, copying when a rename is not possible
// (e.g. across devices).
func (s LocalSink) Store(_ context.Context, srcPath, name string) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", s.Dir, err)
	}

	dest := filepath.Join(s.Dir, name)
	if err := os.Rename(srcPath, dest); err == nil {
		return dest, nil
	}

	if err := copyFile(srcPath, dest); err != nil {
		return "", err
	}
	if err := os.Remove(srcPath); err != nil {
		return "", fmt.Errorf("removing %s: %w", srcPath, err)
	}
	return dest, nil
}

// ForTarget returns the sink for a --target value: an "s3://bucket/prefix"
// URL selects an S3 sink built from cfg, anything else is a local directory.
func ForTarget(target string, cfg S3Config) (Sink, error) {
	if !strings.HasPrefix(target, s3Scheme+"://") {
		return LocalSink{Dir: target}, nil
	}

	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid target %q: %w", target, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid target %q: bucket name is required", target)
	}
	cfg.Bucket = u.Host
	cfg.Prefix = strings.Trim(u.Path, "/")

	return NewS3Sink(cfg)
}

func copyFile(src, dest string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer func() { _ = in.Close() }() // read-only file

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", dest, closeErr)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copying to %s: %w", dest, err)
	}
	return nil
}
