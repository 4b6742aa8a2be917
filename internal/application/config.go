// Package application wires the evaluation pipeline together and exposes the
// top-level Evaluator used by the CLI and the outer search loop.
package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-amour/infrastructure/extractor"
	"github.com/ahrav/go-amour/infrastructure/llm"
	"github.com/ahrav/go-amour/infrastructure/units"
	"github.com/ahrav/go-amour/internal/domain"
	"github.com/ahrav/go-amour/internal/ports"
)

// Runner kinds.
const (
	RunnerSubprocess = "subprocess"
	RunnerDocker     = "docker"
)

// Defaults not owned by an infrastructure package.
const (
	DefaultProvider          = "claude-cli"
	DefaultEvaluationTimeout = 10 * time.Minute
	DefaultRequestTimeout    = 5 * time.Minute
	DefaultCircuitFailures   = 5
	DefaultCircuitCooldown   = 30 * time.Second
)

// Config is the complete evaluator configuration. Values are layered:
// DefaultConfig, then an optional YAML file, then AMOUR_* environment
// variables, then CLI flags.
type Config struct {
	// Oracle selects and tunes the critique provider.
	Oracle OracleConfig `yaml:"oracle"`
	// Evaluation controls sampling and the wall-clock budget.
	Evaluation EvaluationConfig `yaml:"evaluation"`
	// Runner controls how artifacts are executed.
	Runner RunnerConfig `yaml:"runner"`
	// Telemetry controls logging, metrics and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// OracleConfig selects the critique provider and shapes its transport.
type OracleConfig struct {
	// Provider is one of the registry providers (claude-cli, anthropic,
	// openai, google).
	Provider string `yaml:"provider" env:"AMOUR_PROVIDER, overwrite" validate:"required,provider"`
	// Model overrides the provider default.
	Model string `yaml:"model" env:"AMOUR_MODEL, overwrite" validate:"omitempty,modelname"`
	// Binary overrides the claude executable for the claude-cli provider.
	Binary string `yaml:"binary" env:"AMOUR_CLAUDE_BINARY, overwrite"`
	// BaseURL overrides the API endpoint of hosted providers.
	BaseURL string `yaml:"base_url" env:"AMOUR_BASE_URL, overwrite" validate:"omitempty,url"`
	// RequestTimeout bounds a single critique request.
	RequestTimeout time.Duration `yaml:"request_timeout" env:"AMOUR_REQUEST_TIMEOUT, overwrite" validate:"min=1s,max=30m"`
	// Temperature is left to the provider when unset.
	Temperature *float64 `yaml:"temperature" env:"AMOUR_TEMPERATURE, overwrite, noinit" validate:"omitempty,min=0,max=2"`
	// MaxTokens bounds the critique length.
	MaxTokens int `yaml:"max_tokens" env:"AMOUR_MAX_TOKENS, overwrite" validate:"min=1,max=32768"`
	// RateLimit is the sustained request rate per second. Zero disables
	// rate limiting.
	RateLimit float64 `yaml:"rate_limit" env:"AMOUR_RATE_LIMIT, overwrite" validate:"min=0,max=100"`
	// Burst is the token bucket size used with RateLimit.
	Burst int `yaml:"burst" env:"AMOUR_RATE_BURST, overwrite" validate:"min=1,max=100"`
	// CircuitFailures opens the breaker after this many consecutive
	// failures. Zero disables the breaker.
	CircuitFailures int `yaml:"circuit_failures" env:"AMOUR_CIRCUIT_FAILURES, overwrite" validate:"min=0,max=100"`
	// CircuitCooldown is how long an open breaker rejects requests.
	CircuitCooldown time.Duration `yaml:"circuit_cooldown" env:"AMOUR_CIRCUIT_COOLDOWN, overwrite" validate:"min=0s,max=1h"`
}

// EvaluationConfig controls sampling.
type EvaluationConfig struct {
	// Samples is the number of independent critiques per artifact.
	Samples int `yaml:"samples" env:"AMOUR_SAMPLES, overwrite" validate:"min=1,max=100"`
	// SampleDelay separates consecutive critiques.
	SampleDelay time.Duration `yaml:"sample_delay" env:"AMOUR_SAMPLE_DELAY, overwrite" validate:"min=0s,max=1m"`
	// Timeout bounds a whole evaluation. Zero disables it.
	Timeout time.Duration `yaml:"timeout" env:"AMOUR_TIMEOUT, overwrite" validate:"min=0s,max=24h"`
}

// RunnerConfig controls artifact execution.
type RunnerConfig struct {
	// Kind is "subprocess" or "docker".
	Kind string `yaml:"kind" env:"AMOUR_RUNNER, overwrite" validate:"required,oneof=subprocess docker"`
	// EntryPoint is the zero-argument function whose result is judged.
	EntryPoint string `yaml:"entry_point" env:"AMOUR_ENTRY_POINT, overwrite" validate:"required"`
	// Interpreter runs the artifact.
	Interpreter string `yaml:"interpreter" env:"AMOUR_INTERPRETER, overwrite" validate:"required"`
	// Timeout bounds one execution.
	Timeout time.Duration `yaml:"timeout" env:"AMOUR_RUNNER_TIMEOUT, overwrite" validate:"min=1s,max=10m"`
	// MaxOutput caps captured output in bytes.
	MaxOutput int `yaml:"max_output" env:"AMOUR_MAX_OUTPUT, overwrite" validate:"min=1,max=16777216"`
	// Image is the container image used by the docker runner.
	Image string `yaml:"image" env:"AMOUR_DOCKER_IMAGE, overwrite" validate:"required_if=Kind docker"`
	// Pull fetches Image before every run.
	Pull bool `yaml:"pull" env:"AMOUR_DOCKER_PULL, overwrite"`
	// MemoryBytes limits container memory.
	MemoryBytes int64 `yaml:"memory_bytes" env:"AMOUR_DOCKER_MEMORY, overwrite" validate:"min=0"`
	// NanoCPUs limits container CPU.
	NanoCPUs int64 `yaml:"nano_cpus" env:"AMOUR_DOCKER_NANO_CPUS, overwrite" validate:"min=0"`
}

// TelemetryConfig controls logging, metrics and tracing.
type TelemetryConfig struct {
	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level" env:"AMOUR_LOG_LEVEL, overwrite" validate:"oneof=debug info warn error"`
	// MetricsAddr serves Prometheus metrics when set.
	MetricsAddr string `yaml:"metrics_addr" env:"AMOUR_METRICS_ADDR, overwrite" validate:"omitempty,hostname_port"`
	// Tracing writes OpenTelemetry spans to stderr when true.
	Tracing bool `yaml:"tracing" env:"AMOUR_TRACING, overwrite"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	subprocess := extractor.DefaultSubprocessConfig()
	docker := extractor.DefaultDockerConfig()
	aggregator := units.DefaultSampleAggregatorConfig()

	return Config{
		Oracle: OracleConfig{
			Provider:        DefaultProvider,
			RequestTimeout:  DefaultRequestTimeout,
			MaxTokens:       llm.DefaultMaxTokens,
			Burst:           1,
			CircuitFailures: DefaultCircuitFailures,
			CircuitCooldown: DefaultCircuitCooldown,
		},
		Evaluation: EvaluationConfig{
			Samples:     1,
			SampleDelay: aggregator.SampleDelay,
			Timeout:     DefaultEvaluationTimeout,
		},
		Runner: RunnerConfig{
			Kind:        RunnerSubprocess,
			EntryPoint:  extractor.DefaultEntryPoint,
			Interpreter: subprocess.Interpreter,
			Timeout:     subprocess.Timeout,
			MaxOutput:   subprocess.MaxOutput,
			Image:       docker.Image,
			MemoryBytes: docker.MemoryBytes,
			NanoCPUs:    docker.NanoCPUs,
		},
		Telemetry: TelemetryConfig{
			LogLevel: "info",
		},
	}
}

// LoadConfig layers the YAML file at path (when non-empty) and the AMOUR_*
// environment over DefaultConfig. The result is not validated; call
// Validate after applying flag overrides.
func LoadConfig(ctx context.Context, path string) (Config, error) {
	return loadConfig(ctx, path, envconfig.OsLookuper())
}

func loadConfig(ctx context.Context, path string, lookuper envconfig.Lookuper) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				err = fmt.Errorf("%w: %w", ports.ErrConfigNotFound, err)
			}
			return Config{}, ports.NewConfigError(path, err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, ports.NewConfigError(path, err)
		}
	}

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return Config{}, ports.NewConfigError("environment", err)
	}

	return cfg, nil
}

// decodeYAML overlays data onto cfg, rejecting unknown keys.
func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// Validate checks every field and reports all violations at once.
func (c Config) Validate() error {
	err := configValidator.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	verr := domain.NewValidationError("config")
	for _, fe := range fieldErrs {
		verr.AddError(describeFieldError(fe))
	}
	return verr
}

// SubprocessConfig projects the runner settings for the subprocess runner.
func (r RunnerConfig) SubprocessConfig() extractor.SubprocessConfig {
	return extractor.SubprocessConfig{
		Interpreter: r.Interpreter,
		Timeout:     r.Timeout,
		MaxOutput:   r.MaxOutput,
	}
}

// DockerConfig projects the runner settings for the docker runner.
func (r RunnerConfig) DockerConfig() extractor.DockerConfig {
	return extractor.DockerConfig{
		Image:       r.Image,
		Interpreter: r.Interpreter,
		Pull:        r.Pull,
		Timeout:     r.Timeout,
		MaxOutput:   r.MaxOutput,
		MemoryBytes: r.MemoryBytes,
		NanoCPUs:    r.NanoCPUs,
	}
}

// Spec returns the registry spec, "provider" or "provider/model".
func (o OracleConfig) Spec() string {
	if o.Model == "" {
		return o.Provider
	}
	return o.Provider + "/" + o.Model
}
