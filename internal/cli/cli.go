// Package cli implements the migrator command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"

	"github.com/getpup/pupsourcing-migrator"
	"github.com/getpup/pupsourcing-migrator/adapter/registry"
	"github.com/getpup/pupsourcing-migrator/config"
	"github.com/getpup/pupsourcing-migrator/manager"
	"github.com/getpup/pupsourcing-migrator/metrics"
	"github.com/getpup/pupsourcing-migrator/source"
)

// IOStreams holds the command's standard streams.
type IOStreams struct {
	Out    io.Writer
	ErrOut io.Writer
}

// StdStreams returns IOStreams bound to the process streams.
func StdStreams() IOStreams {
	return IOStreams{Out: os.Stdout, ErrOut: os.Stderr}
}

// envDefaults are read from the environment and used as flag defaults.
type envDefaults struct {
	Config      string `env:"MIGRATOR_CONFIG"`
	Environment string `env:"MIGRATOR_ENVIRONMENT"`
	MetricsAddr string `env:"MIGRATOR_METRICS_ADDR"`
	Verbose     bool   `env:"MIGRATOR_VERBOSE"`
}

// Option customises the command, typically for programs that embed it.
type Option func(*rootOptions)

// WithSource adds a migration source, such as a registry of Go-coded
// migrations, next to the SQL directories named in the config file.
func WithSource(src source.Source) Option {
	return func(o *rootOptions) {
		o.sources = append(o.sources, src)
	}
}

// WithRegistry replaces the adapter registry.
func WithRegistry(r *registry.Registry) Option {
	return func(o *rootOptions) {
		o.registry = r
	}
}

type rootOptions struct {
	streams IOStreams

	configPath  string
	environment string
	metricsAddr string
	verbose     bool
	noColor     bool

	sources  []source.Source
	registry *registry.Registry
}

// session is everything an operation command needs, built from the config file.
type session struct {
	file    *config.File
	manager *manager.Manager
	printer *printer
	server  *metrics.Server
}

func (s *session) close(ctx context.Context) {
	if s.server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

// NewRootCommand creates the `migrator` command with its sub-commands.
func NewRootCommand(streams IOStreams, args []string, opts ...Option) *cobra.Command {
	o := &rootOptions{streams: streams}
	for _, opt := range opts {
		opt(o)
	}
	if o.registry == nil {
		o.registry = registry.New()
	}

	var defaults envDefaults
	envErr := env.Parse(&defaults)

	cmd := &cobra.Command{
		Use:   "migrator",
		Short: "Versioned database schema migrations",
		Long: `migrator applies and reverts versioned schema migrations across the
databases of an environment, recording each applied version in a ledger table.

Environment Variables:
    MIGRATOR_CONFIG: overrides the default config path: "migrator.toml".
    MIGRATOR_ENVIRONMENT: default for --environment.
    MIGRATOR_METRICS_ADDR: default for --metrics-addr.
    MIGRATOR_VERBOSE: default for --verbose.`,
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if envErr != nil {
				return fmt.Errorf("environment: %w", envErr)
			}
			return nil
		},
	}

	cmd.SetArgs(args)
	cmd.SetOut(streams.Out)
	cmd.SetErr(streams.ErrOut)

	flags := cmd.PersistentFlags()
	flags.StringVarP(&o.configPath, "config", "c", defaults.Config,
		fmt.Sprintf("configuration file path (default: %s)", config.DefaultPath))
	flags.StringVarP(&o.environment, "environment", "e", defaults.Environment, "the target environment")
	flags.BoolVarP(&o.verbose, "verbose", "v", defaults.Verbose, "enable verbose logging on stderr")
	flags.BoolVar(&o.noColor, "no-color", false, "disable colored output")
	flags.StringVar(&o.metricsAddr, "metrics-addr", defaults.MetricsAddr,
		"serve Prometheus metrics on this address while the command runs, e.g. :9090")

	cmd.AddCommand(newMoveCommand(o, migrator.Up))
	cmd.AddCommand(newMoveCommand(o, migrator.Down))
	cmd.AddCommand(newStatusCommand(o))
	cmd.AddCommand(newBreakpointCommand(o))
	cmd.AddCommand(newCreateCommand(o))

	return cmd
}

func (o *rootOptions) printer() *printer {
	return newPrinter(o.streams.Out, o.noColor)
}

func (o *rootOptions) logger() migrator.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(o.streams.ErrOut, &slog.HandlerOptions{Level: level})
	return migrator.NewSlogLogger(slog.New(handler))
}

func (o *rootOptions) loadConfig() (*config.File, error) {
	return config.Load(o.configPath)
}

// open loads the config file and builds the manager.
func (o *rootOptions) open() (*session, error) {
	file, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	sources := make([]source.Source, 0, len(o.sources)+1)
	for _, dir := range file.MigrationDirs() {
		sources = append(sources, source.NewDir(os.DirFS(dir), "."))
	}
	sources = append(sources, o.sources...)

	mgr, err := manager.New(manager.Config{
		Environments:       file.Environments(),
		DefaultEnvironment: file.DefaultEnvironment(),
		Source:             source.Multi(sources...),
		Factory:            o.registry.Open,
		Parallelism:        file.Settings.Parallelism,
		Logger:             o.logger(),
	})
	if err != nil {
		return nil, err
	}

	s := &session{file: file, manager: mgr, printer: o.printer()}

	if o.metricsAddr != "" {
		s.server = metrics.NewServer(o.metricsAddr)
		if err := s.server.Start(); err != nil {
			return nil, fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	return s, nil
}

// environment resolves the environment, printing which one is used.
func (o *rootOptions) environmentFor(s *session) (migrator.Environment, error) {
	e, err := s.manager.Environment(o.environment)
	if err != nil {
		if o.environment == "" {
			return e, errors.New("no environment specified and no default environment configured")
		}
		return e, err
	}

	if o.environment == "" {
		s.printer.comment("warning", "no environment specified, defaulting to: "+e.Name)
	} else {
		s.printer.info("using environment", e.Name)
	}
	s.printer.info("using adapter", e.Adapter)

	return e, nil
}

func parseTarget(s string) (*migrator.Version, error) {
	if s == "" {
		return nil, nil
	}
	v, err := migrator.ParseVersion(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
