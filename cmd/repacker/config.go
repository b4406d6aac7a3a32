// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/canuckistani/jetpack-repacker/internal/config"
)

// newConfigCommand creates the `config` command tree. Its subcommands do not
// need a valid configuration, so the root setup is skipped.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage jetpack-repacker configuration",
		Long: `Manage jetpack-repacker configuration.

Configuration is stored in:
  - Linux: ~/.config/jetpack-repacker/config.cue
  - macOS: ~/Library/Application Support/jetpack-repacker/config.cue
  - Windows: %APPDATA%\jetpack-repacker\config.cue

Every value can be overridden with JETPACK_REPACKER_<SECTION>_<KEY>, for
example JETPACK_REPACKER_REFERENCE_DATA_PATH.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadDotEnv(); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), WarningStyle.Render("Warning: ")+err.Error())
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config.Load(cmd.Context(), app.loadOptions())
			if err != nil {
				return app.fail(cmd, err)
			}
			path, err := app.Config.Path(app.loadOptions())
			if err != nil {
				return app.fail(cmd, err)
			}
			showConfig(cmd.OutOrStdout(), cfg, path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigPath(cmd, app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, created, err := config.CreateDefaultConfig("")
			if err != nil {
				return app.fail(cmd, err)
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Configuration already exists at %s\n", path)
			}
			return nil
		},
	})

	return cfgCmd
}

func showConfig(w io.Writer, cfg *config.Config, path string) {
	keyStyle := CmdStyle
	valueStyle := SuccessStyle

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)

	if path != "" {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), path)
	} else {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}

	dataPath, err := cfg.Reference.ResolveDataPath()
	if err != nil {
		dataPath = SubtitleStyle.Render("(unresolved: " + err.Error() + ")")
	}

	fmt.Fprintf(w, "\n%s:\n", keyStyle.Render("reference"))
	fmt.Fprintf(w, "  data_path: %s\n", valueStyle.Render(dataPath))
	fmt.Fprintf(w, "  url: %s\n", valueStyle.Render(cfg.Reference.URL.String()))
	fmt.Fprintf(w, "  fetch_timeout: %s\n", valueStyle.Render(cfg.Reference.FetchTimeout.String()))
	fmt.Fprintf(w, "  auto_fetch: %s\n", valueStyle.Render(fmt.Sprint(cfg.Reference.AutoFetch)))
	fmt.Fprintf(w, "  cache_size: %s\n", valueStyle.Render(fmt.Sprint(cfg.Reference.CacheSize)))

	fmt.Fprintf(w, "\n%s:\n", keyStyle.Render("packager"))
	fmt.Fprintf(w, "  command: %s\n", valueStyle.Render(cfg.Packager.Command))
	fmt.Fprintf(w, "  version_command: %s\n", valueStyle.Render(cfg.Packager.VersionCommand))

	s3 := cfg.Artifacts.S3
	fmt.Fprintf(w, "\n%s:\n", keyStyle.Render("artifacts.s3"))
	if s3.Endpoint == "" {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("(not configured)"))
	} else {
		fmt.Fprintf(w, "  endpoint: %s\n", valueStyle.Render(s3.Endpoint))
		fmt.Fprintf(w, "  region: %s\n", valueStyle.Render(s3.Region))
		fmt.Fprintf(w, "  use_ssl: %s\n", valueStyle.Render(fmt.Sprint(s3.UseSSL)))
		credentials := "anonymous"
		if s3.AccessKey != "" {
			credentials = "static keys"
		}
		fmt.Fprintf(w, "  credentials: %s\n", valueStyle.Render(credentials))
	}

	fmt.Fprintf(w, "\n%s: %s\n", keyStyle.Render("log.level"), valueStyle.Render(cfg.Log.Level.String()))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("ui.verbose"), valueStyle.Render(fmt.Sprint(cfg.UI.Verbose)))
}

func showConfigPath(cmd *cobra.Command, app *App) error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return app.fail(cmd, err)
	}
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Config directory: %s\n", cfgDir)

	path, err := app.Config.Path(app.loadOptions())
	if err != nil {
		return app.fail(cmd, err)
	}
	if path == "" {
		fmt.Fprintf(w, "Config file: %s\n", SubtitleStyle.Render("(none, using defaults)"))
	} else {
		fmt.Fprintf(w, "Config file: %s\n", path)
	}
	return nil
}
