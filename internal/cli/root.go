package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/custody/internal/config"
	"github.com/roach88/custody/internal/metrics"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose     bool
	Format      string // "json" | "text"
	Database    string
	Actor       string
	MetricsFile string

	// LogLevel comes from configuration; --verbose forces debug.
	LogLevel string

	// Set up by the root command before any subcommand runs.
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the custody CLI. cfg supplies
// flag defaults.
func NewRootCommand(cfg config.Config) *cobra.Command {
	opts := &RootOptions{LogLevel: cfg.LogLevel}

	cmd := &cobra.Command{
		Use:   "custody",
		Short: "custody - product chain-of-custody ledger",
		Long: `A product-tracking contract over a local reference ledger.

Products are issued by manufacturers, listed for shipment, and transferred
between owners. Every change is a ledger transaction with a recorded history.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.setup(cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.MetricsFile == "" {
				return nil
			}
			if err := metrics.WriteTextfile(opts.Registry, opts.MetricsFile); err != nil {
				return WrapExitError(ExitCommandError, "failed to write metrics", err)
			}
			opts.Logger.Debug("metrics written", "path", opts.MetricsFile)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", cfg.Format, "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", cfg.DBPath, "path to the ledger database")
	cmd.PersistentFlags().StringVar(&opts.Actor, "actor", cfg.Actor, "identity recorded as transaction creator")
	cmd.PersistentFlags().StringVar(&opts.MetricsFile, "metrics-file", cfg.MetricsFile, "write Prometheus metrics to this file after the command")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewInvokeCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewDigestCommand(opts))
	cmd.AddCommand(NewLogCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// setup installs the logger and a fresh metrics registry.
func (o *RootOptions) setup(stderr io.Writer) error {
	level := slog.LevelInfo
	if o.LogLevel != "" {
		lvl, err := config.Config{LogLevel: o.LogLevel}.Level()
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid configuration", err)
		}
		level = lvl
	}
	if o.Verbose {
		level = slog.LevelDebug
	}

	o.Logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	o.Registry = prometheus.NewRegistry()
	o.Metrics = metrics.New(o.Registry)
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
