// SPDX-License-Identifier: MPL-2.0

package repack

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/canuckistani/jetpack-repacker/pkg/types"
)

type (
	// Output is the captured result of a command.
	Output struct {
		Stdout   string
		Stderr   string
		ExitCode types.ExitCode
	}

	// Runner runs a command line inside a directory and captures its output.
	// A non-zero exit status is reported in Output, not as an error.
	Runner interface {
		Run(ctx context.Context, dir, command string) (Output, error)
	}

	// ShellRunner interprets command lines with a POSIX shell interpreter,
	// so quoting and variables behave the same on every platform.
	ShellRunner struct {
		env []string
	}
)

// NewShellRunner creates a ShellRunner inheriting the process environment.
func NewShellRunner() *ShellRunner {
	return &ShellRunner{env: os.Environ()}
}

// Run implements Runner.
func (r *ShellRunner) Run(ctx context.Context, dir, command string) (Output, error) {
	prog, err := syntax.NewParser().Parse(strings.NewReader(command), "command")
	if err != nil {
		return Output{}, fmt.Errorf("failed to parse command %q: %w", command, err)
	}

	var stdout, stderr bytes.Buffer

	opts := []interp.RunnerOption{
		interp.Env(expand.ListEnviron(r.env...)),
		interp.StdIO(nil, &stdout, &stderr),
	}
	if dir != "" {
		opts = append(opts, interp.Dir(dir))
	}

	runner, err := interp.New(opts...)
	if err != nil {
		return Output{}, fmt.Errorf("failed to create interpreter: %w", err)
	}

	err = runner.Run(ctx, prog)
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitStatus interp.ExitStatus
		if !errors.As(err, &exitStatus) {
			return out, err
		}
		out.ExitCode = types.ExitCode(exitStatus)
	}
	return out, nil
}
