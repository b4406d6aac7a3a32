// SPDX-License-Identifier: MPL-2.0

// Package repack rebuilds an add-on with the SDK packaging tool.
//
// The add-on is unpacked into a temporary folder, the packaging command runs
// there, and the archive it reports on standard output is handed to an
// artifact sink.
package repack

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/canuckistani/jetpack-repacker/internal/artifact"
	"github.com/canuckistani/jetpack-repacker/pkg/archive"
	"github.com/canuckistani/jetpack-repacker/pkg/deps"
	"github.com/canuckistani/jetpack-repacker/pkg/harness"
	"github.com/canuckistani/jetpack-repacker/pkg/layout"
)

const (
	// DefaultCommand builds an .xpi from the current folder.
	DefaultCommand = "cfx xpi"
	// DefaultVersionCommand checks that the packaging tool is installed.
	DefaultVersionCommand = "cfx --version"

	// RepackedSuffix is appended to the add-on name of every repacked file.
	RepackedSuffix = "-repacked.xpi"

	exportMarker  = "Exporting extension to "
	tempDirPrefix = "tmp-addon-folder"
)

// ErrExternalTool is returned when the packaging tool fails or produces no
// recognizable output.
var ErrExternalTool = errors.New("packaging tool failed")

var exportedXPI = regexp.MustCompile(` (\S+\.xpi)`)

type (
	// ToolError carries the raw output of a failed packaging run.
	ToolError struct {
		Command string
		Reason  string
		Output  Output
		Err     error
	}

	// Orchestrator drives the packaging tool.
	Orchestrator struct {
		sink           artifact.Sink
		runner         Runner
		command        string
		versionCommand string
		tempDir        string
		logger         *log.Logger
	}

	// Option configures an Orchestrator.
	Option func(*Orchestrator)
)

// Error implements the error interface.
func (e *ToolError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s: %s", ErrExternalTool, e.Command, e.Reason)
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	if out := strings.TrimSpace(e.Output.Stdout); out != "" {
		fmt.Fprintf(&sb, "\nstdout:\n%s", out)
	}
	if out := strings.TrimSpace(e.Output.Stderr); out != "" {
		fmt.Fprintf(&sb, "\nstderr:\n%s", out)
	}
	return sb.String()
}

// Unwrap returns ErrExternalTool and the underlying cause, if any.
func (e *ToolError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrExternalTool, e.Err}
	}
	return []error{ErrExternalTool}
}

// WithRunner replaces the shell runner.
func WithRunner(r Runner) Option {
	return func(o *Orchestrator) {
		o.runner = r
	}
}

// WithCommand sets the packaging command line.
func WithCommand(command string) Option {
	return func(o *Orchestrator) {
		o.command = command
	}
}

// WithVersionCommand sets the command used by CheckTool.
func WithVersionCommand(command string) Option {
	return func(o *Orchestrator) {
		o.versionCommand = command
	}
}

// WithTempDir sets the parent of the temporary build folders.
func WithTempDir(dir string) Option {
	return func(o *Orchestrator) {
		o.tempDir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// New creates an Orchestrator that stores its results in sink.
func New(sink artifact.Sink, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		sink:           sink,
		runner:         NewShellRunner(),
		command:        DefaultCommand,
		versionCommand: DefaultVersionCommand,
		logger:         log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ArtifactName returns the repacked file name for the add-on at path.
func ArtifactName(path string) string {
	return filepath.Base(filepath.Clean(path)) + RepackedSuffix
}

// CheckTool runs the version command and fails unless it succeeds.
func (o *Orchestrator) CheckTool(ctx context.Context) error {
	out, err := o.runner.Run(ctx, "", o.versionCommand)
	if err != nil {
		return &ToolError{Command: o.versionCommand, Reason: "unable to run", Output: out, Err: err}
	}
	if !out.ExitCode.IsSuccess() {
		reason := fmt.Sprintf("exited with status %d", out.ExitCode)
		if out.ExitCode.IsNotFound() {
			reason = "command not found"
		}
		return &ToolError{Command: o.versionCommand, Reason: reason, Output: out}
	}
	o.logger.Debug("packaging tool available", "version", strings.TrimSpace(out.Stdout))
	return nil
}

// Repack unpacks the add-on into a temporary folder, runs the packaging
// command there and stores the produced archive under name. The temporary
// folder is removed whatever the outcome.
func (o *Orchestrator) Repack(ctx context.Context, arc archive.Archive, opts *harness.Options, resolved deps.Result, name string) (string, error) {
	tmp, err := os.MkdirTemp(o.tempDir, tempDirPrefix)
	if err != nil {
		return "", fmt.Errorf("creating build folder: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tmp); err != nil {
			o.logger.Warn("failed to remove build folder", "path", tmp, "error", err)
		}
	}()

	if err := layout.Unpack(arc, opts, resolved, tmp); err != nil {
		return "", err
	}

	o.logger.Debug("running packaging tool", "command", o.command, "dir", tmp)
	out, err := o.runner.Run(ctx, tmp, o.command)
	if err != nil {
		return "", &ToolError{Command: o.command, Reason: "unable to run", Output: out, Err: err}
	}

	xpi, ok := ExportedPath(out.Stdout)
	if !ok {
		return "", &ToolError{Command: o.command, Reason: "no exported extension reported", Output: out}
	}
	if !filepath.IsAbs(xpi) {
		xpi = filepath.Join(tmp, xpi)
	}

	location, err := o.sink.Store(ctx, xpi, name)
	if err != nil {
		return "", fmt.Errorf("%w %s: %w", artifact.ErrStore, name, err)
	}
	return location, nil
}

// ExportedPath extracts the archive path following the export marker in the
// packaging tool output.
func ExportedPath(stdout string) (string, bool) {
	i := strings.Index(stdout, exportMarker)
	if i < 0 {
		return "", false
	}
	m := exportedXPI.FindStringSubmatch(stdout[i+len(exportMarker)-1:])
	if m == nil {
		return "", false
	}
	return m[1], true
}
