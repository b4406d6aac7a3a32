// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/canuckistani/jetpack-repacker/internal/repack"
	"github.com/canuckistani/jetpack-repacker/pkg/reftable"
)

const (
	// LogLevelDebug logs every step, including reference table loads.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo is the default level.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn logs warnings and errors only.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError logs errors only.
	LogLevelError LogLevel = "error"
)

var (
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidReferenceURL is returned when the reference URL is not an http(s) URL.
	ErrInvalidReferenceURL = errors.New("invalid reference url")
	// ErrInvalidReferenceConfig is the sentinel error wrapped by InvalidReferenceConfigError.
	ErrInvalidReferenceConfig = errors.New("invalid reference config")
	// ErrInvalidPackagerConfig is returned when a packager command is blank.
	ErrInvalidPackagerConfig = errors.New("invalid packager config")
	// ErrInvalidS3Config is returned when only one half of the S3 credentials is set.
	ErrInvalidS3Config = errors.New("invalid s3 config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// LogLevel is the minimum level written by the CLI logger.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	// It wraps ErrInvalidLogLevel for errors.Is() compatibility.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// ReferenceURL is the download location of the reference data.
	ReferenceURL string

	// InvalidReferenceURLError is returned when a ReferenceURL is not an
	// absolute http or https URL.
	InvalidReferenceURLError struct {
		Value ReferenceURL
	}

	// InvalidReferenceConfigError collects the field errors of a ReferenceConfig.
	InvalidReferenceConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// Reference configures where SDK reference digests come from.
		Reference ReferenceConfig `json:"reference" mapstructure:"reference"`
		// Packager configures the external packaging tool.
		Packager PackagerConfig `json:"packager" mapstructure:"packager"`
		// Artifacts configures where repacked add-ons can be stored.
		Artifacts ArtifactsConfig `json:"artifacts" mapstructure:"artifacts"`
		// Log configures the CLI logger.
		Log LogConfig `json:"log" mapstructure:"log"`
		// UI configures the user interface.
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// ReferenceConfig configures the reference data file and its download.
	ReferenceConfig struct {
		// DataPath is the local jetpack_data.txt. Empty means
		// <config dir>/jetpack_data.txt.
		DataPath string `json:"data_path" mapstructure:"data_path"`
		// URL is downloaded when DataPath does not exist and AutoFetch is set.
		URL ReferenceURL `json:"url" mapstructure:"url"`
		// FetchTimeout bounds the download.
		FetchTimeout time.Duration `json:"fetch_timeout" mapstructure:"fetch_timeout"`
		// AutoFetch enables the download of a missing data file (default: true).
		AutoFetch bool `json:"auto_fetch" mapstructure:"auto_fetch"`
		// CacheSize is the number of parsed reference tables kept in memory.
		CacheSize int `json:"cache_size" mapstructure:"cache_size"`
	}

	// PackagerConfig configures the command lines run by repack.
	PackagerConfig struct {
		// Command builds the add-on; it runs inside the unpacked tree.
		Command string `json:"command" mapstructure:"command"`
		// VersionCommand checks that the tool is installed.
		VersionCommand string `json:"version_command" mapstructure:"version_command"`
	}

	// ArtifactsConfig configures artifact sinks.
	ArtifactsConfig struct {
		// S3 is used for s3://bucket/prefix repack targets.
		S3 S3Config `json:"s3" mapstructure:"s3"`
	}

	// S3Config describes the S3-compatible endpoint for s3:// targets.
	S3Config struct {
		Endpoint  string `json:"endpoint" mapstructure:"endpoint"`
		Region    string `json:"region" mapstructure:"region"`
		AccessKey string `json:"access_key" mapstructure:"access_key"`
		SecretKey string `json:"secret_key" mapstructure:"secret_key"`
		UseSSL    bool   `json:"use_ssl" mapstructure:"use_ssl"`
	}

	// LogConfig configures logging.
	LogConfig struct {
		// Level is one of debug, info, warn, error.
		Level LogLevel `json:"level" mapstructure:"level"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// Verbose renders the issue guide and the error chain on failure.
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// Error implements the error interface for InvalidLogLevelError.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the LogLevel is one of the defined levels.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// Error implements the error interface for InvalidReferenceURLError.
func (e *InvalidReferenceURLError) Error() string {
	return fmt.Sprintf("invalid reference url %q: must be an absolute http(s) url", e.Value)
}

// Unwrap returns ErrInvalidReferenceURL for errors.Is() compatibility.
func (e *InvalidReferenceURLError) Unwrap() error { return ErrInvalidReferenceURL }

// String returns the string representation of the ReferenceURL.
func (u ReferenceURL) String() string { return string(u) }

// IsValid returns whether the ReferenceURL is an absolute http or https URL.
func (u ReferenceURL) IsValid() (bool, []error) {
	parsed, err := url.Parse(string(u))
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return false, []error{&InvalidReferenceURLError{Value: u}}
	}
	return true, nil
}

// IsValid returns whether the ReferenceConfig has valid fields.
func (c ReferenceConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.URL.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if c.FetchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("fetch timeout must be positive, got %s", c.FetchTimeout))
	}
	if c.CacheSize < 1 {
		errs = append(errs, fmt.Errorf("cache size must be at least 1, got %d", c.CacheSize))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidReferenceConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidReferenceConfigError.
func (e *InvalidReferenceConfigError) Error() string {
	return fmt.Sprintf("invalid reference config: %s", errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidReferenceConfig for errors.Is() compatibility.
func (e *InvalidReferenceConfigError) Unwrap() error { return ErrInvalidReferenceConfig }

// IsValid returns whether both packager commands are set.
func (c PackagerConfig) IsValid() (bool, []error) {
	var errs []error
	if strings.TrimSpace(c.Command) == "" {
		errs = append(errs, fmt.Errorf("%w: command must not be empty", ErrInvalidPackagerConfig))
	}
	if strings.TrimSpace(c.VersionCommand) == "" {
		errs = append(errs, fmt.Errorf("%w: version command must not be empty", ErrInvalidPackagerConfig))
	}
	return len(errs) == 0, errs
}

// IsValid rejects half-configured credentials. Empty credentials are valid
// and select anonymous access.
func (c S3Config) IsValid() (bool, []error) {
	if (c.AccessKey == "") != (c.SecretKey == "") {
		return false, []error{fmt.Errorf("%w: access_key and secret_key must be set together", ErrInvalidS3Config)}
	}
	return true, nil
}

// IsValid returns whether the Config has valid fields.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Reference.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Packager.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Artifacts.S3.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Log.Level.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s", errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidConfig and the field errors for errors.Is().
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Reference: ReferenceConfig{
			DataPath:     "", // <config dir>/jetpack_data.txt
			URL:          ReferenceURL(reftable.DefaultURL),
			FetchTimeout: reftable.DefaultFetchTimeout,
			AutoFetch:    true,
			CacheSize:    reftable.DefaultCacheSize,
		},
		Packager: PackagerConfig{
			Command:        repack.DefaultCommand,
			VersionCommand: repack.DefaultVersionCommand,
		},
		Log: LogConfig{
			Level: LogLevelInfo,
		},
	}
}
