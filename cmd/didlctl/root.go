package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/nainya/didlcore/internal/config"
	"github.com/nainya/didlcore/internal/logger"
	"github.com/nainya/didlcore/internal/metrics"
	"github.com/nainya/didlcore/pkg/didl"
	"github.com/nainya/didlcore/pkg/didlerr"
)

// Exit codes
const (
	ExitSuccess       = 0
	ExitGeneralError  = 1
	ExitUsageError    = 2
	ExitPanic         = 3
	ExitConfigError   = 10
	ExitInvalidInput  = 11
	ExitMetricsFailed = 12
)

var errMetricsExport = errors.New("metrics export failed")

func exitCodeForError(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, config.ErrInvalidConfig), errors.Is(err, config.ErrConfigNotFound):
		return ExitConfigError
	case errors.Is(err, didlerr.ErrParse), errors.Is(err, didlerr.ErrValidation), errors.Is(err, didlerr.ErrTypeMismatch):
		return ExitInvalidInput
	case errors.Is(err, errMetricsExport):
		return ExitMetricsFailed
	case errors.Is(err, errUsage):
		return ExitUsageError
	}
	return ExitGeneralError
}

var errUsage = errors.New("usage error")

type globalFlags struct {
	configPath  string
	logLevel    string
	pretty      bool
	metricsFile string
}

// env is the per-invocation wiring shared by subcommands.
type env struct {
	cfg      *config.Config
	log      *logger.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   "didlctl",
		Short: "DIDL-Lite metadata tool",
		Long: `didlctl parses, sorts, filters and re-emits DIDL-Lite documents,
merges container update-id fragments into snapshots, and moderates a
stream of fragments into rate-limited emissions.

Exit Codes:
  0  - Success
  1  - General error
  2  - CLI usage error
  3  - Panic or unexpected system error
  10 - Invalid configuration
  11 - Invalid input document, sort criteria or update fragment
  12 - Metrics export failed`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", errUsage, err)
	})

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Path to a YAML config file")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides config")
	pf.BoolVar(&flags.pretty, "pretty", false, "Human-readable log output")
	pf.StringVar(&flags.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")

	root.AddCommand(newFormatCmd(flags), newMergeCmd(flags), newModerateCmd(flags))
	return root
}

// setup loads configuration and builds the logger and metrics for a command.
func setup(cmd *cobra.Command, flags *globalFlags) (*env, error) {
	cfg := config.Default()
	if flags.configPath != "" {
		loaded, err := config.Load(flags.configPath)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", flags.configPath, err)
		}
		cfg = loaded
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if flags.pretty {
		cfg.Log.Pretty = true
	}

	e := &env{
		cfg: cfg,
		log: logger.NewLogger(logger.Config{
			Level:      cfg.Log.Level,
			Pretty:     cfg.Log.Pretty,
			Output:     cmd.ErrOrStderr(),
			WithCaller: cfg.Log.Caller,
		}).WithFields(map[string]interface{}{"command": cmd.Name()}),
	}
	if cfg.Metrics.Enabled || flags.metricsFile != "" {
		e.registry = prometheus.NewRegistry()
		e.metrics = metrics.NewMetrics(e.registry)
	}
	return e, nil
}

// contextOptions maps configuration onto engine options.
func (e *env) contextOptions() []didl.Option {
	opts := []didl.Option{didl.WithLogger(e.log.Component("didl"))}
	if e.cfg.Interner.Kind == config.InternerOrdered {
		opts = append(opts, didl.WithOrderedInterning())
	}
	if e.cfg.Interner.Capacity > 0 {
		opts = append(opts, didl.WithInternCapacity(e.cfg.Interner.Capacity))
	}
	if e.metrics != nil {
		opts = append(opts, didl.WithRecorder(e.metrics))
	}
	return opts
}

// finish logs the command outcome and exports metrics when requested.
func (e *env) finish(command string, start time.Time, records int, err error, flags *globalFlags) error {
	e.log.LogCommand(command, time.Since(start), records, err)
	if flags.metricsFile != "" && e.registry != nil {
		if werr := prometheus.WriteToTextfile(flags.metricsFile, e.registry); werr != nil {
			if err == nil {
				return fmt.Errorf("%w: %v", errMetricsExport, werr)
			}
			e.log.Error("metrics export failed").Err(werr).Send()
		}
	}
	return err
}
