package extractor

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/google/uuid"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/ahrav/go-amour/internal/domain"
	"github.com/ahrav/go-amour/internal/ports"
)

var _ ports.Runner = (*DockerRunner)(nil)

// Docker runner defaults.
const (
	DefaultDockerImage = "python:3.12-slim"
	DefaultMemoryBytes = 256 << 20
	DefaultNanoCPUs    = 1e9

	sandboxDir     = "/sandbox"
	cleanupTimeout = 10 * time.Second
)

// DockerConfig configures a DockerRunner.
type DockerConfig struct {
	// Image must provide the interpreter.
	Image string `yaml:"image" json:"image" validate:"required"`
	// Interpreter is run inside the container.
	Interpreter string `yaml:"interpreter" json:"interpreter" validate:"required"`
	// Pull fetches the image before every run when true.
	Pull bool `yaml:"pull" json:"pull"`
	// Timeout bounds a single execution including container setup.
	Timeout time.Duration `yaml:"timeout" json:"timeout" validate:"min=1s,max=10m"`
	// MaxOutput caps captured stdout in bytes.
	MaxOutput int `yaml:"max_output" json:"max_output" validate:"min=1,max=16777216"`
	// MemoryBytes limits container memory.
	MemoryBytes int64 `yaml:"memory_bytes" json:"memory_bytes" validate:"min=0"`
	// NanoCPUs limits container CPU in units of 1e-9 CPUs.
	NanoCPUs int64 `yaml:"nano_cpus" json:"nano_cpus" validate:"min=0"`
}

// DefaultDockerConfig returns the defaults used by the CLI.
func DefaultDockerConfig() DockerConfig {
	return DockerConfig{
		Image:       DefaultDockerImage,
		Interpreter: DefaultInterpreter,
		Timeout:     DefaultRunTimeout,
		MaxOutput:   DefaultMaxOutput,
		MemoryBytes: DefaultMemoryBytes,
		NanoCPUs:    DefaultNanoCPUs,
	}
}

// dockerAPI is the subset of the docker client the runner uses.
type dockerAPI interface {
	ImagePull(ctx context.Context, ref string, options image.PullOptions) (io.ReadCloser, error)
	ContainerCreate(
		ctx context.Context,
		config *container.Config,
		hostConfig *container.HostConfig,
		networkingConfig *network.NetworkingConfig,
		platform *ocispec.Platform,
		containerName string,
	) (container.CreateResponse, error)
	CopyToContainer(ctx context.Context, containerID, dstPath string, content io.Reader, options container.CopyToContainerOptions) error
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
}

// DockerRunner executes artifacts in a throwaway container with networking
// disabled. The container is force-removed after every run.
type DockerRunner struct {
	api    dockerAPI
	closer io.Closer
	config DockerConfig
}

// NewDockerRunner connects to the daemon described by the DOCKER_* environment.
func NewDockerRunner(config DockerConfig) (*DockerRunner, error) {
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}

	return &DockerRunner{api: cli, closer: cli, config: config}, nil
}

// Close releases the docker client.
func (r *DockerRunner) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// Run executes entry from artifact inside a fresh container.
func (r *DockerRunner) Run(ctx context.Context, artifact domain.Artifact, entry string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	log := clog.FromContext(ctx).With("image", r.config.Image)

	if r.config.Pull {
		if err := r.pull(ctx); err != nil {
			return "", fmt.Errorf("pull %s: %w", r.config.Image, err)
		}
	}

	name := "amour-" + uuid.NewString()
	created, err := r.api.ContainerCreate(ctx, &container.Config{
		Image:           r.config.Image,
		Cmd:             []string{r.config.Interpreter, harnessFile, artifactFile, entry},
		WorkingDir:      sandboxDir,
		Env:             []string{"PYTHONDONTWRITEBYTECODE=1", "PYTHONIOENCODING=utf-8"},
		NetworkDisabled: true,
		Tty:             false,
	}, &container.HostConfig{
		NetworkMode: container.NetworkMode("none"),
		Resources: container.Resources{
			Memory:   r.config.MemoryBytes,
			NanoCPUs: r.config.NanoCPUs,
		},
	}, nil, nil, name)
	if err != nil {
		return "", fmt.Errorf("create container: %w", err)
	}
	id := created.ID
	defer func() {
		// The run context may already be done; cleanup gets its own.
		cleanupCtx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()
		if err := r.api.ContainerRemove(cleanupCtx, id, container.RemoveOptions{Force: true}); err != nil {
			log.With("container", name).Warnf("remove container: %v", err)
		}
	}()

	archive, err := sandboxArchive(artifact.Source)
	if err != nil {
		return "", err
	}
	if err := r.api.CopyToContainer(ctx, id, "/", archive, container.CopyToContainerOptions{}); err != nil {
		return "", fmt.Errorf("copy artifact: %w", err)
	}

	if err := r.api.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return "", fmt.Errorf("start container: %w", err)
	}

	var exitCode int64
	statusCh, errCh := r.api.ContainerWait(ctx, id, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			return "", fmt.Errorf("wait container: %w", err)
		}
	case st := <-statusCh:
		if st.Error != nil {
			return "", fmt.Errorf("wait container: %s", st.Error.Message)
		}
		exitCode = st.StatusCode
	case <-ctx.Done():
		return "", fmt.Errorf("wait container: %w", ctx.Err())
	}

	logs, err := r.api.ContainerLogs(ctx, id, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return "", fmt.Errorf("container logs: %w", err)
	}
	defer logs.Close()

	stdout := &cappedBuffer{limit: r.config.MaxOutput}
	stderr := &cappedBuffer{limit: 4 << 10}
	if _, err := stdcopy.StdCopy(stdout, stderr, logs); err != nil {
		return "", fmt.Errorf("read container logs: %w", err)
	}

	if exitCode == exitMissingEntry {
		return "", fmt.Errorf("run %s: %w", entry, ErrEntryPointMissing)
	}
	if exitCode != 0 {
		return "", fmt.Errorf("run %s: exit status %d: %s", entry, exitCode, lastLine(strings.TrimSpace(stderr.String())))
	}
	if stdout.overflow {
		return "", fmt.Errorf("run %s: %w (%d bytes)", entry, ErrOutputTooLarge, r.config.MaxOutput)
	}
	return stdout.String(), nil
}

func (r *DockerRunner) pull(ctx context.Context) error {
	reader, err := r.api.ImagePull(ctx, r.config.Image, image.PullOptions{})
	if err != nil {
		return err
	}
	defer reader.Close()
	_, err = io.Copy(io.Discard, reader)
	return err
}

// sandboxArchive packs the artifact and harness under sandboxDir.
func sandboxArchive(source string) (io.Reader, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	dir := strings.TrimPrefix(sandboxDir, "/") + "/"
	if err := tw.WriteHeader(&tar.Header{Name: dir, Typeflag: tar.TypeDir, Mode: 0o777}); err != nil {
		return nil, fmt.Errorf("archive sandbox: %w", err)
	}
	for name, body := range map[string]string{artifactFile: source, harnessFile: harnessSource} {
		hdr := &tar.Header{Name: path.Join(dir, name), Mode: 0o644, Size: int64(len(body))}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, fmt.Errorf("archive %s: %w", name, err)
		}
		if _, err := tw.Write([]byte(body)); err != nil {
			return nil, fmt.Errorf("archive %s: %w", name, err)
		}
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("archive sandbox: %w", err)
	}
	return &buf, nil
}
