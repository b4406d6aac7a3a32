// SPDX-License-Identifier: MPL-2.0

// Package addon runs the repacker operations on a single add-on: dependency
// listing, checksum verification, unpacking and repacking. Every error it
// returns is an *issue.ActionableError naming the operation and the add-on.
package addon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/charmbracelet/log"

	"github.com/canuckistani/jetpack-repacker/internal/artifact"
	"github.com/canuckistani/jetpack-repacker/internal/issue"
	"github.com/canuckistani/jetpack-repacker/internal/repack"
	"github.com/canuckistani/jetpack-repacker/pkg/archive"
	"github.com/canuckistani/jetpack-repacker/pkg/deps"
	"github.com/canuckistani/jetpack-repacker/pkg/harness"
	"github.com/canuckistani/jetpack-repacker/pkg/layout"
	"github.com/canuckistani/jetpack-repacker/pkg/reftable"
	"github.com/canuckistani/jetpack-repacker/pkg/verify"
)

type (
	// TableSource provides the reference table; *reftable.Loader implements it.
	TableSource interface {
		Load(ctx context.Context) (*reftable.Table, error)
	}

	// SinkResolver maps a --target value to an artifact sink.
	SinkResolver func(target string) (artifact.Sink, error)

	// Service runs operations against add-ons.
	Service struct {
		tables      TableSource
		resolveSink SinkResolver
		repackOpts  []repack.Option
		logger      *log.Logger
	}

	// Option configures a Service.
	Option func(*Service)

	// Report is the outcome of the deps and checksum operations.
	Report struct {
		Path       string
		Version    string
		Deps       map[string][]string
		Mismatches verify.Mismatches
	}

	// loaded is an opened add-on with its manifest.
	loaded struct {
		arc  archive.Archive
		opts *harness.Options
	}
)

// WithSinkResolver sets how repack targets become sinks.
func WithSinkResolver(r SinkResolver) Option {
	return func(s *Service) {
		s.resolveSink = r
	}
}

// WithRepackOptions configures the orchestrators used by Repack and CheckTool.
func WithRepackOptions(opts ...repack.Option) Option {
	return func(s *Service) {
		s.repackOpts = append(s.repackOpts, opts...)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a Service reading reference digests from tables.
// Repack targets are local directories unless WithSinkResolver is given.
func NewService(tables TableSource, opts ...Option) *Service {
	s := &Service{
		tables: tables,
		resolveSink: func(target string) (artifact.Sink, error) {
			return artifact.LocalSink{Dir: target}, nil
		},
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DepsLine renders the report as "path; version; {deps}".
func (r Report) DepsLine() string {
	return fmt.Sprintf("%s; %s; %s", r.Path, r.Version, toJSON(r.Deps))
}

// ChecksumLine renders the report as "path; version; OK|KO; [files]".
func (r Report) ChecksumLine() string {
	status := "OK"
	if !r.Mismatches.OK() {
		status = "KO"
	}
	files := r.Mismatches
	if files == nil {
		files = verify.Mismatches{}
	}
	return fmt.Sprintf("%s; %s; %s; %s", r.Path, r.Version, status, toJSON(files))
}

// Deps lists the modules the add-on requires, sorted per package.
func (s *Service) Deps(ctx context.Context, path string) (Report, error) {
	a, err := s.open(path)
	if err != nil {
		return Report{}, err
	}
	defer a.close(s.logger)

	resolved, err := deps.Resolve(ctx, a.opts)
	if err != nil {
		return Report{}, fail("resolve dependencies", path, err)
	}
	return Report{Path: path, Version: a.opts.SDKVersion(), Deps: resolved.Sorted()}, nil
}

// Checksum verifies the add-on's SDK files. Mismatches are reported, not
// returned as an error.
func (s *Service) Checksum(ctx context.Context, path string) (Report, error) {
	a, err := s.open(path)
	if err != nil {
		return Report{}, err
	}
	defer a.close(s.logger)

	bad, err := s.verify(ctx, a)
	if err != nil {
		return Report{}, fail("verify add-on", path, err)
	}
	return Report{Path: path, Version: a.opts.SDKVersion(), Mismatches: bad}, nil
}

// Unpack verifies the add-on and rebuilds its source tree into target.
func (s *Service) Unpack(ctx context.Context, path, target string) error {
	a, err := s.open(path)
	if err != nil {
		return err
	}
	defer a.close(s.logger)

	resolved, err := s.prepare(ctx, a, target)
	if err != nil {
		return fail("unpack add-on", path, err)
	}
	if err := layout.Unpack(a.arc, a.opts, resolved, target); err != nil {
		return fail("unpack add-on", path, err)
	}
	s.logger.Debug("add-on unpacked", "path", path, "target", target)
	return nil
}

// Repack verifies the add-on, rebuilds it with the packaging tool and stores
// the result in target. It returns where the archive was stored.
func (s *Service) Repack(ctx context.Context, path, target string) (string, error) {
	a, err := s.open(path)
	if err != nil {
		return "", err
	}
	defer a.close(s.logger)

	// The layout is rebuilt in a fresh temporary folder, not in target.
	resolved, err := s.prepare(ctx, a, "")
	if err != nil {
		return "", fail("repack add-on", path, err)
	}

	sink, err := s.resolveSink(target)
	if err != nil {
		return "", fail("resolve repack target", target, err)
	}

	location, err := repack.New(sink, s.repackOptions()...).
		Repack(ctx, a.arc, a.opts, resolved, repack.ArtifactName(path))
	if err != nil {
		return "", fail("repack add-on", path, err)
	}
	return location, nil
}

// CheckTool fails unless the packaging tool can be run.
func (s *Service) CheckTool(ctx context.Context) error {
	if err := repack.New(nil, s.repackOptions()...).CheckTool(ctx); err != nil {
		return fail("run the packaging tool", "", err)
	}
	return nil
}

// Versions lists the SDK versions known to the reference table.
func (s *Service) Versions(ctx context.Context) ([]string, error) {
	table, err := s.tables.Load(ctx)
	if err != nil {
		return nil, fail("load reference data", "", err)
	}
	return table.Versions(), nil
}

func (s *Service) repackOptions() []repack.Option {
	return append([]repack.Option{repack.WithLogger(s.logger)}, s.repackOpts...)
}

func (s *Service) open(path string) (*loaded, error) {
	arc, err := archive.Open(path)
	if err != nil {
		return nil, fail("open add-on", path, err)
	}
	opts, err := harness.Load(arc)
	if err != nil {
		_ = arc.Close()
		return nil, fail("read add-on manifest", path, err)
	}
	s.logger.Debug("add-on opened", "path", path, "sdk", opts.SDKVersion(), "generation", opts.Generation())
	return &loaded{arc: arc, opts: opts}, nil
}

func (s *Service) verify(ctx context.Context, a *loaded) (verify.Mismatches, error) {
	table, err := s.tables.Load(ctx)
	if err != nil {
		return nil, err
	}
	return verify.Addon(a.arc, a.opts, table)
}

// prepare gates unpack and repack on a clean verification and on the layout
// checks that do not depend on the requirement graph, then resolves the
// dependencies. An empty target skips the target folder check.
func (s *Service) prepare(ctx context.Context, a *loaded, target string) (deps.Result, error) {
	bad, err := s.verify(ctx, a)
	if err != nil {
		return deps.Result{}, err
	}
	if err := verify.Require(bad); err != nil {
		return deps.Result{}, err
	}
	if err := layout.Check(a.opts, target); err != nil {
		return deps.Result{}, err
	}
	return deps.Resolve(ctx, a.opts)
}

func (a *loaded) close(logger *log.Logger) {
	if err := a.arc.Close(); err != nil {
		logger.Warn("failed to close add-on", "path", a.arc.Path(), "error", err)
	}
}

// fail wraps err with the operation, the resource and hints matching its
// failure class.
func fail(operation, resource string, err error) error {
	return issue.NewErrorContext().
		WithOperation(operation).
		WithResource(resource).
		WithSuggestions(suggestionsFor(err)...).
		Wrap(err).
		BuildError()
}

func suggestionsFor(err error) []string {
	switch {
	case errors.Is(err, harness.ErrMissingManifest):
		return []string{"Only add-ons built with the Add-on SDK (cfx) can be processed"}
	case errors.Is(err, archive.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return []string{"Check the path; pass an .xpi file or an unpacked add-on folder"}
	case errors.Is(err, reftable.ErrMissingData), errors.Is(err, reftable.ErrFetch):
		return []string{
			"Check your network connection, or download jetpack_data.txt manually",
			"Point reference.data_path in your configuration at the downloaded file",
		}
	case errors.Is(err, verify.ErrUnknownSDKVersion):
		return []string{"Run 'jetpack-repacker versions' to list the SDK versions with known digests"}
	case errors.Is(err, verify.ErrVerificationFailed):
		return []string{"Run 'jetpack-repacker checksum' to list the modified files"}
	case errors.Is(err, layout.ErrUnsupportedLayout):
		return []string{"Use an empty target folder; only single-package addon-kit add-ons can be rebuilt"}
	case errors.Is(err, repack.ErrExternalTool):
		return []string{"Install the Add-on SDK and activate it so that 'cfx --version' works"}
	case errors.Is(err, artifact.ErrStore):
		return []string{"Check that the target folder is writable, or the artifacts.s3 settings for s3:// targets"}
	case errors.Is(err, fs.ErrPermission):
		return []string{"Check the file permissions of the add-on and the target folder"}
	default:
		return nil
	}
}

func toJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
