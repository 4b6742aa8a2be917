package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ahrav/go-amour/infrastructure/middleware"
	"github.com/ahrav/go-amour/internal/application"
)

// cli holds flag values shared by every subcommand.
type cli struct {
	// deps lets tests substitute the oracle and runner.
	deps application.Dependencies

	configPath  string
	provider    string
	model       string
	samples     int
	timeout     time.Duration
	runner      string
	logLevel    string
	metricsAddr string
	tracing     bool
}

func newRootCmd(deps application.Dependencies) *cobra.Command {
	c := &cli{deps: deps}

	root := &cobra.Command{
		Use:   "amour",
		Short: "Score love-letter artifacts with an LLM critic",
		Long: `amour extracts the letter an artifact produces, asks an LLM critic to grade
it against a fixed rubric one or more times, and prints a normalized fitness
record as JSON.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&c.configPath, "config", "c", "", "YAML configuration file")
	flags.StringVar(&c.provider, "provider", "", "oracle provider (claude-cli, anthropic, openai, google)")
	flags.StringVar(&c.model, "model", "", "provider model override")
	flags.IntVarP(&c.samples, "samples", "n", 0, "critiques per artifact")
	flags.DurationVar(&c.timeout, "timeout", 0, "wall-clock budget per evaluation (0 disables)")
	flags.StringVar(&c.runner, "runner", "", "artifact runner (subprocess, docker)")
	flags.StringVar(&c.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&c.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on host:port while running")
	flags.BoolVar(&c.tracing, "tracing", false, "write OpenTelemetry spans to stderr")

	root.AddCommand(c.evaluateCmd(), c.calibrateCmd())
	return root
}

// config layers defaults, the config file, the environment and any flags
// set on the command line, then validates the result.
func (c *cli) config(cmd *cobra.Command) (application.Config, error) {
	cfg, err := application.LoadConfig(cmd.Context(), c.configPath)
	if err != nil {
		return application.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.Oracle.Provider = c.provider
	}
	if flags.Changed("model") {
		cfg.Oracle.Model = c.model
	}
	if flags.Changed("samples") {
		cfg.Evaluation.Samples = c.samples
	}
	if flags.Changed("timeout") {
		cfg.Evaluation.Timeout = c.timeout
	}
	if flags.Changed("runner") {
		cfg.Runner.Kind = c.runner
	}
	if flags.Changed("log-level") {
		cfg.Telemetry.LogLevel = c.logLevel
	}
	if flags.Changed("metrics-addr") {
		cfg.Telemetry.MetricsAddr = c.metricsAddr
	}
	if flags.Changed("tracing") {
		cfg.Telemetry.Tracing = c.tracing
	}

	if err := cfg.Validate(); err != nil {
		return application.Config{}, err
	}
	return cfg, nil
}

// run builds an Evaluator for the command's configuration, with logging,
// tracing and metrics installed, and hands it to fn.
func (c *cli) run(cmd *cobra.Command, fn func(context.Context, *application.Evaluator) error) error {
	cfg, err := c.config(cmd)
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	ctx := clog.WithLogger(cmd.Context(), newLogger(stderr, cfg.Telemetry.LogLevel))

	shutdown, err := setupTracing(cfg.Telemetry.Tracing, stderr)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			clog.FromContext(ctx).Warnf("flushing spans: %v", err)
		}
	}()

	deps := c.deps
	var reg *prometheus.Registry
	if cfg.Telemetry.MetricsAddr != "" && deps.Metrics == nil {
		reg = prometheus.NewRegistry()
		deps.Metrics = middleware.NewPrometheusMetrics(reg)
	}
	if deps.Observer == nil {
		deps.Observer = middleware.NewOTelEvaluationObserver(nil, deps.Metrics)
	}

	ev, err := application.Build(ctx, cfg, deps)
	if err != nil {
		return err
	}
	defer func() {
		if err := ev.Close(); err != nil {
			clog.FromContext(ctx).Warnf("closing evaluator: %v", err)
		}
	}()

	if reg == nil {
		return fn(ctx, ev)
	}
	ln, err := listenMetrics(cfg.Telemetry.MetricsAddr)
	if err != nil {
		return err
	}
	return serveMetrics(ctx, ln, reg, func(ctx context.Context) error { return fn(ctx, ev) })
}

// newLogger writes JSON logs to w. Unknown levels fall back to info.
func newLogger(w io.Writer, level string) *clog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return clog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}
