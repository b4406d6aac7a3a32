// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/canuckistani/jetpack-repacker/internal/addon"
	"github.com/canuckistani/jetpack-repacker/internal/artifact"
	"github.com/canuckistani/jetpack-repacker/internal/config"
	"github.com/canuckistani/jetpack-repacker/internal/repack"
	"github.com/canuckistani/jetpack-repacker/pkg/reftable"
)

type (
	// App wires CLI services and shared dependencies. It is the composition
	// root for the CLI layer: command handlers receive an App and delegate to
	// its addon.Service.
	App struct {
		Config     ConfigProvider
		tables     addon.TableSource
		repackOpts []repack.Option
		stdout     io.Writer
		stderr     io.Writer

		flags   rootFlags
		cfg     *config.Config
		logger  *log.Logger
		service *addon.Service
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config ConfigProvider
		// Tables replaces the reference data loader built from the configuration.
		Tables addon.TableSource
		// RepackOptions are appended after the options built from the configuration.
		RepackOptions []repack.Option
		Stdout        io.Writer
		Stderr        io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
		Path(opts config.LoadOptions) (string, error)
	}

	// rootFlags are the persistent flags shared by every command.
	rootFlags struct {
		batch      bool
		verbose    bool
		configPath string
		logLevel   string
	}
)

// NewApp creates an App, filling unset dependencies with production defaults.
func NewApp(deps Dependencies) *App {
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	return &App{
		Config:     deps.Config,
		tables:     deps.Tables,
		repackOpts: deps.RepackOptions,
		stdout:     deps.Stdout,
		stderr:     deps.Stderr,
		logger:     log.New(io.Discard),
	}
}

// setup loads the configuration and builds the logger and the service.
// It runs once per invocation, before the selected command.
func (a *App) setup(ctx context.Context) error {
	cfg, err := a.Config.Load(ctx, a.loadOptions())
	if err != nil {
		return err
	}
	a.cfg = cfg

	if !a.flags.verbose {
		a.flags.verbose = cfg.UI.Verbose
	}

	level := string(cfg.Log.Level)
	if a.flags.logLevel != "" {
		level = a.flags.logLevel
	}
	logger, err := newLogger(a.stderr, level, a.flags.verbose)
	if err != nil {
		return err
	}
	a.logger = logger

	service, err := a.buildService()
	if err != nil {
		return err
	}
	a.service = service
	return nil
}

func (a *App) loadOptions() config.LoadOptions {
	return config.LoadOptions{ConfigFilePath: a.flags.configPath}
}

func (a *App) buildService() (*addon.Service, error) {
	tables := a.tables
	if tables == nil {
		loader, err := newReferenceLoader(a.cfg.Reference, a.logger)
		if err != nil {
			return nil, err
		}
		tables = loader
	}

	s3 := a.cfg.Artifacts.S3
	repackOpts := append([]repack.Option{
		repack.WithCommand(a.cfg.Packager.Command),
		repack.WithVersionCommand(a.cfg.Packager.VersionCommand),
	}, a.repackOpts...)

	return addon.NewService(tables,
		addon.WithLogger(a.logger),
		addon.WithRepackOptions(repackOpts...),
		addon.WithSinkResolver(func(target string) (artifact.Sink, error) {
			return artifact.ForTarget(target, artifact.S3Config{
				Endpoint:  s3.Endpoint,
				Region:    s3.Region,
				AccessKey: s3.AccessKey,
				SecretKey: s3.SecretKey,
				UseSSL:    s3.UseSSL,
			})
		}),
	), nil
}

// newReferenceLoader builds the reference data loader described by cfg. The
// data file is downloaded on first use when AutoFetch is set.
func newReferenceLoader(cfg config.ReferenceConfig, logger *log.Logger) (*reftable.Loader, error) {
	path, err := cfg.ResolveDataPath()
	if err != nil {
		return nil, fmt.Errorf("resolving reference data path: %w", err)
	}

	cache, err := reftable.NewCache(cfg.CacheSize)
	if err != nil {
		return nil, err
	}

	opts := []reftable.LoaderOption{reftable.WithCache(cache), reftable.WithLogger(logger)}
	if cfg.AutoFetch {
		opts = append(opts, reftable.WithFetcher(reftable.NewFetcher(
			reftable.WithURL(cfg.URL.String()),
			reftable.WithTimeout(cfg.FetchTimeout),
			reftable.WithUserAgent("jetpack-repacker/"+Version),
		)))
	}
	return reftable.NewLoader(path, opts...), nil
}

// newLogger returns the CLI logger writing to w. Verbose forces debug.
func newLogger(w io.Writer, level string, verbose bool) (*log.Logger, error) {
	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if verbose {
		lvl = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Prefix: "repacker",
		Level:  lvl,
	}), nil
}
