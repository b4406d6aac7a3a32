// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/canuckistani/jetpack-repacker/internal/issue"
	"github.com/canuckistani/jetpack-repacker/pkg/cueutil"
	"github.com/canuckistani/jetpack-repacker/pkg/reftable"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "jetpack-repacker"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides: reference.url is read from
	// JETPACK_REPACKER_REFERENCE_URL.
	EnvPrefix = "JETPACK_REPACKER"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// ResolveDataPath returns the reference data file: DataPath when set, otherwise
// jetpack_data.txt in the configuration directory.
func (c ReferenceConfig) ResolveDataPath() (string, error) {
	if c.DataPath != "" {
		return c.DataPath, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, reftable.DataFileName), nil
}

// loadWithOptions performs option-driven config loading without mutating
// package-level state. It returns the path of the file that was read, empty
// when only defaults and the environment apply.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := newViper()

	resolvedPath, err := locate(opts)
	if err != nil {
		return nil, "", err
	}
	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("Use 'jetpack-repacker config init' to write a default configuration").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Check the values set in the file and in JETPACK_REPACKER_* variables").
			Wrap(errors.Join(errs...)).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// newViper returns a viper instance holding the defaults and reading
// JETPACK_REPACKER_* overrides.
func newViper() *viper.Viper {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("reference.data_path", defaults.Reference.DataPath)
	v.SetDefault("reference.url", string(defaults.Reference.URL))
	v.SetDefault("reference.fetch_timeout", defaults.Reference.FetchTimeout)
	v.SetDefault("reference.auto_fetch", defaults.Reference.AutoFetch)
	v.SetDefault("reference.cache_size", defaults.Reference.CacheSize)
	v.SetDefault("packager.command", defaults.Packager.Command)
	v.SetDefault("packager.version_command", defaults.Packager.VersionCommand)
	v.SetDefault("artifacts.s3.endpoint", defaults.Artifacts.S3.Endpoint)
	v.SetDefault("artifacts.s3.region", defaults.Artifacts.S3.Region)
	v.SetDefault("artifacts.s3.access_key", defaults.Artifacts.S3.AccessKey)
	v.SetDefault("artifacts.s3.secret_key", defaults.Artifacts.S3.SecretKey)
	v.SetDefault("artifacts.s3.use_ssl", defaults.Artifacts.S3.UseSSL)
	v.SetDefault("log.level", string(defaults.Log.Level))
	v.SetDefault("ui.verbose", defaults.UI.Verbose)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// locate returns the config file to read. An explicit ConfigFilePath must
// exist; otherwise the config directory and then the working directory are
// searched, and no file at all is not an error.
func locate(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Check that the file exists and is readable").
				WithSuggestion("Use 'jetpack-repacker config show' to see the default configuration").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}

	cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
	if err != nil {
		return "", err
	}

	fileName := ConfigFileName + "." + ConfigFileExt
	for _, candidate := range []string{filepath.Join(cfgDir, fileName), fileName} {
		if fileExists(candidate) {
			return candidate, nil
		}
	}
	return "", nil
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}

	return ConfigDir()
}

// loadCUEIntoViper validates a CUE file against #Config and merges it into v.
// Absent keys keep their defaults and the environment still wins.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	unified, err := cueutil.Validate([]byte(configSchema), data, "#Config",
		cueutil.WithFilename(path),
		cueutil.WithConcrete(false),
	)
	if err != nil {
		return err
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return cueutil.FormatError(err, path)
	}
	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes a default config file into dir, or into
// ConfigDir when dir is empty. An existing file is left untouched. It
// returns the file path and whether it was created.
func CreateDefaultConfig(dir string) (string, bool, error) {
	cfgDir, err := configDirWithOverride(dir)
	if err != nil {
		return "", false, err
	}

	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return "", false, fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)

	if _, err := os.Stat(cfgPath); err == nil {
		return cfgPath, false, nil
	}

	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", false, fmt.Errorf("failed to write config file: %w", err)
	}

	return cfgPath, true, nil
}

// GenerateCUE generates a CUE representation of the configuration. Secrets
// are never written.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// jetpack-repacker configuration file\n")
	sb.WriteString("// Every value can be overridden with JETPACK_REPACKER_<SECTION>_<KEY>.\n\n")

	sb.WriteString("reference: {\n")
	if cfg.Reference.DataPath != "" {
		fmt.Fprintf(&sb, "\tdata_path: %q\n", cfg.Reference.DataPath)
	}
	fmt.Fprintf(&sb, "\turl: %q\n", cfg.Reference.URL)
	fmt.Fprintf(&sb, "\tfetch_timeout: %q\n", cfg.Reference.FetchTimeout.String())
	fmt.Fprintf(&sb, "\tauto_fetch: %v\n", cfg.Reference.AutoFetch)
	fmt.Fprintf(&sb, "\tcache_size: %d\n", cfg.Reference.CacheSize)
	sb.WriteString("}\n")

	sb.WriteString("\npackager: {\n")
	fmt.Fprintf(&sb, "\tcommand: %q\n", cfg.Packager.Command)
	fmt.Fprintf(&sb, "\tversion_command: %q\n", cfg.Packager.VersionCommand)
	sb.WriteString("}\n")

	s3 := cfg.Artifacts.S3
	if s3.Endpoint != "" || s3.Region != "" || s3.UseSSL {
		sb.WriteString("\nartifacts: s3: {\n")
		if s3.Endpoint != "" {
			fmt.Fprintf(&sb, "\tendpoint: %q\n", s3.Endpoint)
		}
		if s3.Region != "" {
			fmt.Fprintf(&sb, "\tregion: %q\n", s3.Region)
		}
		fmt.Fprintf(&sb, "\tuse_ssl: %v\n", s3.UseSSL)
		sb.WriteString("}\n")
	}

	fmt.Fprintf(&sb, "\nlog: level: %q\n", cfg.Log.Level)
	fmt.Fprintf(&sb, "\nui: verbose: %v\n", cfg.UI.Verbose)

	return sb.String()
}
