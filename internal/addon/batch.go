// SPDX-License-Identifier: MPL-2.0

package addon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// repackedMarker identifies outputs of earlier repack runs.
	repackedMarker = "-repacked"
	xpiExt         = ".xpi"
)

// Failure records a batch item that failed.
type Failure struct {
	Path string
	Err  error
}

// BatchItems lists the add-ons in dir in name order: sub-folders and .xpi
// files, skipping earlier repack outputs.
func BatchItems(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fail("list add-ons", dir, err)
	}

	var items []string
	for _, e := range entries {
		name := e.Name()
		if strings.Contains(name, repackedMarker) {
			continue
		}

		p := filepath.Join(dir, name)
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if info.IsDir() || filepath.Ext(name) == xpiExt {
			items = append(items, p)
		}
	}
	return items, nil
}

// Batch runs fn on every item of dir in order. A failing item is recorded
// and does not stop the batch; cancellation does.
func Batch(ctx context.Context, dir string, fn func(ctx context.Context, path string) error) ([]Failure, error) {
	items, err := BatchItems(dir)
	if err != nil {
		return nil, err
	}

	var failures []Failure
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return failures, fmt.Errorf("batch interrupted before %s: %w", item, err)
		}
		if err := fn(ctx, item); err != nil {
			failures = append(failures, Failure{Path: item, Err: err})
		}
	}
	return failures, nil
}
