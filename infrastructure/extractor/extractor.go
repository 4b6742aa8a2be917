// Package extractor turns a candidate artifact into the text that gets
// judged. Artifacts that define the entry point are executed in a
// disposable environment and their output is judged; everything else,
// including artifacts whose execution fails, is judged verbatim.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode"

	"github.com/chainguard-dev/clog"
	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-amour/internal/domain"
	"github.com/ahrav/go-amour/internal/ports"
)

// DefaultEntryPoint is the function an artifact defines to produce its letter.
const DefaultEntryPoint = "generate_love_letter"

var validate = validator.New()

// errEmptyOutput is reported when the entry point ran but printed nothing.
var errEmptyOutput = errors.New("entry point produced no text")

// Config configures an Extractor.
type Config struct {
	// EntryPoint names the module attribute called with no arguments.
	EntryPoint string `yaml:"entry_point" json:"entry_point" validate:"required,identifier"`
}

// Option configures optional collaborators of an Extractor.
type Option func(*Extractor)

// WithMetrics counts extractions by mode on collector.
func WithMetrics(collector ports.MetricsCollector) Option {
	return func(e *Extractor) { e.metrics = collector }
}

// Extractor implements the artifact extraction step.
type Extractor struct {
	entry   string
	pattern *regexp.Regexp
	runner  ports.Runner
	metrics ports.MetricsCollector
}

// New creates an Extractor that executes artifacts with runner.
func New(config Config, runner ports.Runner, opts ...Option) (*Extractor, error) {
	if runner == nil {
		return nil, errors.New("runner cannot be nil")
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	e := &Extractor{
		entry:   config.EntryPoint,
		pattern: EntryPointPattern(config.EntryPoint),
		runner:  runner,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// EntryPointPattern matches a line that may bind entry as a module
// attribute: a def or class statement, an assignment, or an import. A match
// only means the artifact is worth running; the harness makes the final
// call and reports ErrEntryPointMissing when the attribute never appears.
func EntryPointPattern(entry string) *regexp.Regexp {
	name := regexp.QuoteMeta(entry)
	return regexp.MustCompile(`(?m)^[ \t]*(?:` +
		`def[ \t]+` + name + `[ \t]*\(` +
		`|class[ \t]+` + name + `\b` +
		`|` + name + `[ \t]*(?::[^=\n]*)?=[^=]` +
		`|from[ \t]+\S+[ \t]+import\b.*\b` + name + `\b` +
		`|import\b.*\bas[ \t]+` + name + `\b` +
		`)`)
}

// Extract loads the artifact at path and returns the text to judge. It
// never fails outright: Err is diagnostic unless it wraps
// domain.ErrArtifactUnreadable, in which case there is nothing to judge.
func (e *Extractor) Extract(ctx context.Context, path string) domain.Extraction {
	log := clog.FromContext(ctx).With("artifact", path)

	source, err := os.ReadFile(path)
	if err != nil {
		log.Errorf("cannot read artifact: %v", err)
		return e.done(domain.Extraction{
			Mode: domain.ExtractionFallback,
			Err:  domain.NewExtractionError(path, "read", fmt.Errorf("%w: %w", domain.ErrArtifactUnreadable, err)),
		})
	}

	artifact := domain.Artifact{Path: path, Source: string(source)}
	if !e.pattern.MatchString(artifact.Source) {
		log.Debugf("no %s entry point, judging artifact verbatim", e.entry)
		return e.done(domain.Extraction{Text: domain.JudgedText(artifact.Source), Mode: domain.ExtractionRaw})
	}

	out, err := e.runner.Run(ctx, artifact, e.entry)
	if errors.Is(err, ErrEntryPointMissing) {
		log.Debugf("module defines no %s, judging artifact verbatim", e.entry)
		return e.done(domain.Extraction{Text: domain.JudgedText(artifact.Source), Mode: domain.ExtractionRaw})
	}
	stage := "run"
	if err == nil {
		out = strings.TrimRightFunc(out, unicode.IsSpace)
		if strings.TrimSpace(out) == "" {
			err, stage = errEmptyOutput, "output"
		}
	}
	if err != nil {
		log.With("stage", stage).Warnf("executing %s failed, judging artifact verbatim: %v", e.entry, err)
		return e.done(domain.Extraction{
			Text: domain.JudgedText(artifact.Source),
			Mode: domain.ExtractionFallback,
			Err:  domain.NewExtractionError(path, stage, err),
		})
	}

	log.With("chars", len(out)).Debugf("extracted letter from %s", e.entry)
	return e.done(domain.Extraction{Text: domain.JudgedText(out), Mode: domain.ExtractionExecuted})
}

func (e *Extractor) done(x domain.Extraction) domain.Extraction {
	if e.metrics != nil {
		e.metrics.RecordCounter(ports.MetricExtractions, 1, map[string]string{"mode": string(x.Mode)})
	}
	return x
}

func init() {
	_ = validate.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
		return identifierPattern.MatchString(fl.Field().String())
	})
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
