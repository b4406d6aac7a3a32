// SPDX-License-Identifier: MPL-2.0

package reftable

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultURL is the published reference data of the add-on validator.
	DefaultURL = "https://raw.github.com/mattbasta/amo-validator/master/validator/testcases/jetpack_data.txt"

	// DefaultFetchTimeout bounds a full download.
	DefaultFetchTimeout = 60 * time.Second

	// maxDataBytes bounds the downloaded file (256 MB).
	maxDataBytes = 256 << 20
)

// ErrFetch is returned when the reference data cannot be downloaded.
var ErrFetch = errors.New("reference data download failed")

type (
	// FetchError wraps a download failure with the requested URL.
	FetchError struct {
		URL string
		Err error
	}

	// Fetcher downloads the reference data file.
	Fetcher struct {
		httpClient *http.Client
		url        string
		userAgent  string
		timeout    time.Duration
	}

	// FetchOption configures a Fetcher during construction.
	FetchOption func(*Fetcher)
)

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("%s from %s: %v", ErrFetch, e.URL, e.Err)
}

// Unwrap returns ErrFetch and the underlying cause.
func (e *FetchError) Unwrap() []error { return []error{ErrFetch, e.Err} }

// WithHTTPClient sets a custom HTTP client, useful for tests or proxies.
func WithHTTPClient(c *http.Client) FetchOption {
	return func(f *Fetcher) {
		f.httpClient = c
	}
}

// WithURL overrides the download location.
func WithURL(u string) FetchOption {
	return func(f *Fetcher) {
		f.url = u
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetchOption {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithTimeout bounds the whole download. Zero disables the bound.
func WithTimeout(d time.Duration) FetchOption {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// NewFetcher creates a Fetcher for DefaultURL with http.DefaultClient.
func NewFetcher(opts ...FetchOption) *Fetcher {
	f := &Fetcher{
		httpClient: http.DefaultClient,
		url:        DefaultURL,
		userAgent:  "jetpack-repacker/dev",
		timeout:    DefaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// URL returns the download location.
func (f *Fetcher) URL() string { return f.url }

// Download stores the reference data at dest. The file is written to a
// temporary sibling and renamed, so dest never holds a partial download.
func (f *Fetcher) Download(ctx context.Context, dest string) (err error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, http.NoBody)
	if err != nil {
		return &FetchError{URL: f.url, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return &FetchError{URL: f.url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if resp.StatusCode != http.StatusOK {
		return &FetchError{URL: f.url, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dest), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".jetpack-data-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, io.LimitReader(resp.Body, maxDataBytes)); err != nil {
		_ = tmp.Close()
		return &FetchError{URL: f.url, Err: err}
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("moving reference data into place: %w", err)
	}
	return nil
}
