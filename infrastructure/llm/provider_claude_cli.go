package llm

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"strings"
)

const (
	// ClaudeCLIDefaultBinary is the executable looked up on PATH.
	ClaudeCLIDefaultBinary = "claude"
	// ClaudeCLIInstallHint is reported when the executable cannot be found.
	ClaudeCLIInstallHint = "Claude Code CLI not found. Please install: npm install -g @anthropic-ai/claude-code"

	maxCLIOutput = 1 << 20
)

func init() {
	RegisterProviderFactory("claude-cli", newClaudeCLIProvider)
}

// claudeCLIProvider runs one non-interactive turn of the local claude
// executable. The prompt is written to stdin and stdout is the response.
// It needs no API key; the CLI owns its own credentials.
type claudeCLIProvider struct {
	BaseProvider
	binary          string
	tokenCounter    *TokenCounter
	errorClassifier *ErrorClassifier
}

func newClaudeCLIProvider(config ClientConfig) (CoreLLM, error) {
	binary := config.Binary
	if binary == "" {
		binary = ClaudeCLIDefaultBinary
	}

	return &claudeCLIProvider{
		BaseProvider:    BaseProvider{model: config.Model},
		binary:          binary,
		tokenCounter:    NewTokenCounter(),
		errorClassifier: &ErrorClassifier{Provider: "claude-cli"},
	}, nil
}

// DoRequest runs the CLI once with max turns pinned to one.
func (p *claudeCLIProvider) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	options := ParseRequestOptions(opts, p.GetModel())

	path, err := exec.LookPath(p.binary)
	if err != nil {
		return "", 0, 0, NewProviderError("claude-cli", ErrorTypeUnavailable, 0, ClaudeCLIInstallHint, err)
	}

	cmd := exec.CommandContext(ctx, path, p.buildArgs(options)...)
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitedWriter{w: &stdout, limit: maxCLIOutput}
	cmd.Stderr = &limitedWriter{w: &stderr, limit: maxCLIOutput}

	runErr := cmd.Run()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", 0, 0, p.errorClassifier.ClassifyContextError(ctxErr)
	}
	if runErr != nil {
		return "", 0, 0, p.errorClassifier.ClassifyExecError(runErr, strings.TrimSpace(stderr.String()))
	}

	content := strings.TrimSpace(stdout.String())
	if content == "" {
		return "", 0, 0, NewProviderError("claude-cli", ErrorTypeProcess, 0, "no output", ErrEmptyResponse)
	}

	return content, p.tokenCounter.EstimateTokens(prompt), p.tokenCounter.EstimateTokens(content), nil
}

func (p *claudeCLIProvider) buildArgs(options RequestOptions) []string {
	args := []string{"-p", "--output-format", "text", "--max-turns", "1"}
	if options.System != "" {
		args = append(args, "--system-prompt", options.System)
	}
	if options.Model != "" {
		args = append(args, "--model", options.Model)
	}
	return args
}

// limitedWriter discards writes past limit while reporting them as
// consumed so the child process never blocks on a full pipe.
type limitedWriter struct {
	w       io.Writer
	limit   int
	written int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	remaining := lw.limit - lw.written
	if remaining <= 0 {
		return n, nil
	}
	if len(p) > remaining {
		p = p[:remaining]
	}
	written, err := lw.w.Write(p)
	lw.written += written
	if err != nil {
		return written, err
	}
	return n, nil
}
