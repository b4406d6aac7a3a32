// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/canuckistani/jetpack-repacker/pkg/types"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree bound to app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "jetpack-repacker",
		Short: "Inspect, verify and rebuild Add-on SDK extensions",
		Long: TitleStyle.Render("jetpack-repacker") + SubtitleStyle.Render(" - inspect, verify and rebuild Add-on SDK extensions") + `

Reads add-ons built with the Mozilla Add-on SDK (cfx), compares their SDK
files with the official release digests and rebuilds them from a clean
source tree.

` + SubtitleStyle.Render("Examples:") + `
  jetpack-repacker deps addon.xpi               List required modules
  jetpack-repacker checksum addon.xpi           Verify SDK files
  jetpack-repacker --batch checksum ./addons    Verify every add-on of a folder
  jetpack-repacker unpack addon.xpi --target src
  jetpack-repacker repack addon.xpi --target s3://addons/repacked`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadDotEnv(); err != nil {
				app.logger.Warn("failed to load .env", "error", err)
			}
			if err := app.setup(cmd.Context()); err != nil {
				return app.fail(cmd, err)
			}
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&app.flags.batch, "batch", false, "treat <path> as a folder of add-ons")
	flags.BoolVarP(&app.flags.verbose, "verbose", "v", false, "enable verbose output")
	flags.StringVar(&app.flags.configPath, "config", "", "config file (default is $HOME/.config/jetpack-repacker/config.cue)")
	flags.StringVar(&app.flags.logLevel, "log-level", "", "log level: debug, info, warn, error (default from config)")

	rootCmd.AddCommand(
		newDepsCommand(app),
		newChecksumCommand(app),
		newUnpackCommand(app),
		newRepackCommand(app),
		newVersionsCommand(app),
		newConfigCommand(app),
	)
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI. This is called by main.main().
func Execute() {
	rootCmd := NewRootCommand(NewApp(Dependencies{}))

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(handleError),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(1)
	}
}

// handleError prints errors the commands have not rendered themselves, such
// as flag and argument errors.
func handleError(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}

// fail renders err and returns the ExitError ending the run.
func (a *App) fail(cmd *cobra.Command, err error) error {
	renderError(cmd.ErrOrStderr(), a.logger, err, a.flags.verbose)
	return &ExitError{Code: types.ExitFailure}
}

// loadDotEnv loads ./.env when present, without overriding variables that
// are already set.
func loadDotEnv() error {
	if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load()
}
