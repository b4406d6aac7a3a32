// SPDX-License-Identifier: MPL-2.0

package reftable

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

// DataFileName is the conventional name of the local reference data copy.
const DataFileName = "jetpack_data.txt"

// ErrMissingData is returned when the reference data file is absent and
// downloading is disabled.
var ErrMissingData = errors.New("reference data file not found")

type (
	// Loader owns a lazily built Table. Load is safe for concurrent use and
	// builds the table at most once per successful call.
	Loader struct {
		path    string
		fetcher *Fetcher
		cache   *Cache
		logger  *log.Logger

		mu    sync.Mutex
		table *Table
	}

	// LoaderOption configures a Loader during construction.
	LoaderOption func(*Loader)
)

// WithFetcher enables downloading the data file when it is missing.
func WithFetcher(f *Fetcher) LoaderOption {
	return func(l *Loader) {
		l.fetcher = f
	}
}

// WithCache shares parsed tables through c.
func WithCache(c *Cache) LoaderOption {
	return func(l *Loader) {
		l.cache = c
	}
}

// WithLogger sets the logger used for download progress.
func WithLogger(logger *log.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a Loader for the data file at path.
func NewLoader(path string, opts ...LoaderOption) *Loader {
	l := &Loader{
		path:   path,
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Static returns a Loader that always yields t.
func Static(t *Table) *Loader {
	return &Loader{table: t, logger: log.New(io.Discard)}
}

// Path returns the local data file location.
func (l *Loader) Path() string { return l.path }

// Load returns the table, building it on first use.
func (l *Loader) Load(ctx context.Context) (*Table, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.table != nil {
		return l.table, nil
	}

	if err := l.ensureFile(ctx); err != nil {
		return nil, err
	}

	var (
		t   *Table
		err error
	)
	if l.cache != nil {
		t, err = l.cache.Load(l.path)
	} else {
		t, err = parseFile(l.path)
	}
	if err != nil {
		return nil, err
	}

	l.logger.Debug("reference table loaded", "path", l.path, "versions", len(t.versions))
	l.table = t
	return t, nil
}

func (l *Loader) ensureFile(ctx context.Context) error {
	_, err := os.Stat(l.path)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("reading reference data: %w", err)
	case l.fetcher == nil:
		return fmt.Errorf("%s: %w", l.path, ErrMissingData)
	}

	l.logger.Info("downloading reference data", "url", l.fetcher.URL(), "path", l.path)
	if err := l.fetcher.Download(ctx, l.path); err != nil {
		return err
	}
	l.logger.Info("reference data downloaded", "path", l.path)
	return nil
}
