package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ahrav/go-amour/internal/domain"
	"github.com/ahrav/go-amour/internal/ports"
)

var _ ports.Runner = (*SubprocessRunner)(nil)

// Runner defaults shared by the subprocess and docker runners.
const (
	DefaultInterpreter = "python3"
	DefaultRunTimeout  = 30 * time.Second
	DefaultMaxOutput   = 64 << 10
)

var (
	// ErrOutputTooLarge is returned when an artifact prints more than the
	// configured cap.
	ErrOutputTooLarge = errors.New("artifact output exceeds limit")
	// ErrEntryPointMissing is returned when the artifact loaded cleanly but
	// does not define the entry point.
	ErrEntryPointMissing = errors.New("entry point not defined")
)

// SubprocessConfig configures a SubprocessRunner.
type SubprocessConfig struct {
	// Interpreter is resolved on PATH unless it is a path.
	Interpreter string `yaml:"interpreter" json:"interpreter" validate:"required"`
	// Timeout bounds a single execution.
	Timeout time.Duration `yaml:"timeout" json:"timeout" validate:"min=1s,max=10m"`
	// MaxOutput caps captured stdout in bytes.
	MaxOutput int `yaml:"max_output" json:"max_output" validate:"min=1,max=16777216"`
}

// DefaultSubprocessConfig returns the defaults used by the CLI.
func DefaultSubprocessConfig() SubprocessConfig {
	return SubprocessConfig{
		Interpreter: DefaultInterpreter,
		Timeout:     DefaultRunTimeout,
		MaxOutput:   DefaultMaxOutput,
	}
}

// SubprocessRunner executes artifacts with a local interpreter inside a
// private temporary directory that is removed after every run.
type SubprocessRunner struct {
	config SubprocessConfig
}

// NewSubprocessRunner creates a SubprocessRunner.
func NewSubprocessRunner(config SubprocessConfig) (*SubprocessRunner, error) {
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &SubprocessRunner{config: config}, nil
}

// Run executes entry from artifact and returns its stdout.
func (r *SubprocessRunner) Run(ctx context.Context, artifact domain.Artifact, entry string) (string, error) {
	dir, err := os.MkdirTemp("", "amour-artifact-*")
	if err != nil {
		return "", fmt.Errorf("create sandbox: %w", err)
	}
	defer os.RemoveAll(dir)

	if err := os.WriteFile(filepath.Join(dir, artifactFile), []byte(artifact.Source), 0o600); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, harnessFile), []byte(harnessSource), 0o600); err != nil {
		return "", fmt.Errorf("write harness: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.config.Interpreter, harnessFile, artifactFile, entry)
	cmd.Dir = dir
	cmd.Env = sandboxEnv(dir)

	stdout := &cappedBuffer{limit: r.config.MaxOutput}
	stderr := &cappedBuffer{limit: 4 << 10}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err = cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", fmt.Errorf("run %s: %w", entry, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == exitMissingEntry {
		return "", fmt.Errorf("run %s: %w", entry, ErrEntryPointMissing)
	}
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("run %s: %w: %s", entry, err, lastLine(msg))
		}
		return "", fmt.Errorf("run %s: %w", entry, err)
	}
	if stdout.overflow {
		return "", fmt.Errorf("run %s: %w (%d bytes)", entry, ErrOutputTooLarge, r.config.MaxOutput)
	}
	return stdout.String(), nil
}

// sandboxEnv passes through only what an interpreter needs to start.
func sandboxEnv(dir string) []string {
	env := []string{
		"HOME=" + dir,
		"TMPDIR=" + dir,
		"PYTHONDONTWRITEBYTECODE=1",
		"PYTHONIOENCODING=utf-8",
	}
	if path, ok := os.LookupEnv("PATH"); ok {
		env = append(env, "PATH="+path)
	}
	return env
}

// lastLine returns the final line of a traceback, which carries the error.
func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// cappedBuffer keeps the first limit bytes written and records overflow
// without failing the writer, so the child never blocks on a full pipe.
type cappedBuffer struct {
	buf      bytes.Buffer
	limit    int
	overflow bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if room := b.limit - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
			b.overflow = true
		} else {
			b.buf.Write(p)
		}
	} else if len(p) > 0 {
		b.overflow = true
	}
	return len(p), nil
}

func (b *cappedBuffer) String() string { return b.buf.String() }
