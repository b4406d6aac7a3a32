// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/canuckistani/jetpack-repacker/internal/addon"
	"github.com/canuckistani/jetpack-repacker/pkg/types"
)

// defaultTarget is where unpack and repack write when --target is not given.
const defaultTarget = "."

// operation runs one command on a single add-on.
type operation func(ctx context.Context, path string) error

func newDepsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "deps <path>",
		Short: "List the modules an add-on requires",
		Long: `List the modules an add-on requires, grouped by package.

Prints one line per add-on: path; SDK version; {"package": [modules]}.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, args[0], func(ctx context.Context, path string) error {
				report, err := app.service.Deps(ctx, path)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), report.DepsLine())
				return nil
			})
		},
	}
}

func newChecksumCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "checksum <path>",
		Short: "Compare an add-on's SDK files with the official release",
		Long: `Compare an add-on's bootstrap and SDK package files with the digests of
the official SDK release it declares.

Prints one line per add-on: path; SDK version; OK or KO; [modified files].`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, args[0], func(ctx context.Context, path string) error {
				report, err := app.service.Checksum(ctx, path)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), report.ChecksumLine())
				return nil
			})
		},
	}
}

func newUnpackCommand(app *App) *cobra.Command {
	var target string

	unpackCmd := &cobra.Command{
		Use:   "unpack <path>",
		Short: "Rebuild the source tree of a verified add-on",
		Long: `Rebuild the source tree of a verified add-on into an empty folder:
lib/, data/, locale/*.properties and package.json.

With --batch every add-on is unpacked into <target>/<add-on name>.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, args[0], func(ctx context.Context, path string) error {
				dest := target
				if app.flags.batch {
					dest = batchUnpackTarget(target, path)
				}
				if err := app.service.Unpack(ctx, path, dest); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s unpacked to %s\n", path, dest)
				return nil
			})
		},
	}
	unpackCmd.Flags().StringVar(&target, "target", defaultTarget, "folder receiving the source tree")

	return unpackCmd
}

func newRepackCommand(app *App) *cobra.Command {
	var target string

	repackCmd := &cobra.Command{
		Use:   "repack <path>",
		Short: "Rebuild a verified add-on with the packaging tool",
		Long: `Rebuild a verified add-on: unpack it into a temporary folder, run the
packaging tool (cfx xpi by default) and store the result as
<name>-repacked.xpi in the target.

The target is a folder or an s3://bucket/prefix URL; S3 endpoint and
credentials come from the artifacts.s3 configuration.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.service.CheckTool(cmd.Context()); err != nil {
				return app.fail(cmd, err)
			}
			return app.run(cmd, args[0], func(ctx context.Context, path string) error {
				location, err := app.service.Repack(ctx, path, target)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s repacked to %s\n", path, location)
				return nil
			})
		},
	}
	repackCmd.Flags().StringVar(&target, "target", defaultTarget, "folder or s3://bucket/prefix receiving the repacked add-on")

	return repackCmd
}

func newVersionsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "versions",
		Short: "List the SDK versions with known digests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			versions, err := app.service.Versions(cmd.Context())
			if err != nil {
				return app.fail(cmd, err)
			}
			for _, v := range versions {
				fmt.Fprintln(cmd.OutOrStdout(), v)
			}
			return nil
		},
	}
}

// run applies op to path, or to every add-on of the folder path in batch
// mode. A batch keeps going after a failure and fails at the end if any
// add-on failed.
func (a *App) run(cmd *cobra.Command, path string, op operation) error {
	ctx := cmd.Context()

	if !a.flags.batch {
		if err := op(ctx, path); err != nil {
			return a.fail(cmd, err)
		}
		return nil
	}

	failures, err := addon.Batch(ctx, path, func(ctx context.Context, item string) error {
		if err := op(ctx, item); err != nil {
			a.logger.Error("add-on failed", "command", cmd.Name(), "path", item, "error", err)
			renderError(cmd.ErrOrStderr(), a.logger, err, a.flags.verbose)
			return err
		}
		return nil
	})
	if err != nil {
		return a.fail(cmd, err)
	}
	if len(failures) > 0 {
		a.logger.Warn("batch finished with failures", "command", cmd.Name(), "failed", len(failures))
		return &ExitError{Code: types.ExitFailure}
	}
	return nil
}

// batchUnpackTarget returns the folder an add-on of a batch is unpacked to.
func batchUnpackTarget(target, path string) string {
	return filepath.Join(target, strings.TrimSuffix(filepath.Base(path), ".xpi"))
}
