package gdal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

const (
	// GDALImage is the default Docker image for GDAL commands.
	GDALImage = "ghcr.io/osgeo/gdal:latest"
	// ImageEnv overrides GDALImage.
	ImageEnv = "LOFARGEOTIFF_GDAL_IMAGE"
	// ContainerWorkDir is the container directory host directories are
	// mounted under.
	ContainerWorkDir = "/work"
)

var (
	clientMu sync.RWMutex
	client   *Client
)

// Initialize sets up the process-wide Docker client unless local mode is
// forced. A missing Docker daemon is not an error; commands then run
// against local GDAL binaries.
func Initialize(ctx context.Context) error {
	mode := strings.ToLower(strings.TrimSpace(os.Getenv(ModeEnv)))
	if mode == "local" {
		return nil
	}

	c, err := NewClient(ctx)
	if err != nil {
		if mode == "docker" {
			return fmt.Errorf("initialize gdal: %w", err)
		}
		slog.Debug("docker unavailable, using local gdal", "error", err)
		return nil
	}

	clientMu.Lock()
	client = c
	clientMu.Unlock()
	return nil
}

// GetClient returns the client set up by Initialize, or nil.
func GetClient() *Client {
	clientMu.RLock()
	defer clientMu.RUnlock()
	return client
}

// Shutdown releases the client set up by Initialize.
func Shutdown() {
	clientMu.Lock()
	defer clientMu.Unlock()
	if client != nil {
		_ = client.Close()
		client = nil
	}
}

// Client runs GDAL commands with the docker CLI. Every host directory that
// holds a path argument (input image, staging directory, output) is
// bind-mounted into the container, so staged rasters next to an output
// outside the working directory stay reachable.
type Client struct {
	image   string
	workDir string

	pullOnce sync.Once
	pullErr  error
}

// NewClient checks that the Docker daemon answers and returns a client
// resolving relative paths against the current directory.
func NewClient(ctx context.Context) (*Client, error) {
	if err := exec.CommandContext(ctx, "docker", "version", "--format", "{{.Server.Version}}").Run(); err != nil {
		return nil, fmt.Errorf("docker not available: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	image := strings.TrimSpace(os.Getenv(ImageEnv))
	if image == "" {
		image = GDALImage
	}
	return &Client{image: image, workDir: cwd}, nil
}

// Close releases nothing; containers are started with --rm.
func (c *Client) Close() error {
	return nil
}

// Image returns the Docker image commands run in.
func (c *Client) Image() string {
	if c.image == "" {
		return GDALImage
	}
	return c.image
}

// RunDocker runs name with args in a throwaway container.
func (c *Client) RunDocker(ctx context.Context, name string, args ...string) (stdout string, stderr string, err error) {
	if err := c.ensureImage(ctx); err != nil {
		return "", "", err
	}

	m := newMounts(c.workDir)
	containerArgs := make([]string, len(args))
	for i, arg := range args {
		containerArgs[i] = m.arg(arg)
	}

	dockerArgs := append([]string{"run", "--rm"}, m.volumes()...)
	dockerArgs = append(dockerArgs, "-w", ContainerWorkDir, c.Image(), name)
	dockerArgs = append(dockerArgs, containerArgs...)

	return execute(ctx, "docker", dockerArgs, formatCommand(name, args))
}

// ensureImage pulls the image the first time it is missing locally.
func (c *Client) ensureImage(ctx context.Context) error {
	c.pullOnce.Do(func() {
		if exec.CommandContext(ctx, "docker", "image", "inspect", c.Image()).Run() == nil {
			return
		}
		_, _, err := execute(ctx, "docker", []string{"pull", c.Image()}, "docker pull "+c.Image())
		if err != nil {
			c.pullErr = fmt.Errorf("pull gdal image: %w", err)
		}
	})
	return c.pullErr
}

// mounts assigns each host directory a numbered container directory in
// first-seen order.
type mounts struct {
	workDir string
	dirs    []string
	index   map[string]int
}

func newMounts(workDir string) *mounts {
	return &mounts{workDir: workDir, index: make(map[string]int)}
}

// arg rewrites a path argument to its container path. Flags, KEY=VALUE
// metadata items and other plain values pass through.
func (m *mounts) arg(arg string) string {
	if strings.HasPrefix(arg, "-") || strings.Contains(arg, "=") || !looksLikePath(arg) {
		return arg
	}
	return m.containerPath(arg)
}

func (m *mounts) containerPath(hostPath string) string {
	abs := hostPath
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(m.workDir, abs)
	}
	dir := filepath.Clean(filepath.Dir(abs))

	n, ok := m.index[dir]
	if !ok {
		n = len(m.dirs)
		m.index[dir] = n
		m.dirs = append(m.dirs, dir)
	}
	return path.Join(ContainerWorkDir, strconv.Itoa(n), filepath.Base(abs))
}

// volumes returns the -v flags for every directory seen so far.
func (m *mounts) volumes() []string {
	out := make([]string, 0, 2*len(m.dirs))
	for n, dir := range m.dirs {
		out = append(out, "-v", dir+":"+path.Join(ContainerWorkDir, strconv.Itoa(n)))
	}
	return out
}

// looksLikePath reports whether a gdal argument names a file.
func looksLikePath(arg string) bool {
	if arg == "" {
		return false
	}
	if strings.ContainsAny(arg, "/\\") || strings.HasPrefix(arg, ".") {
		return true
	}
	switch strings.ToLower(filepath.Ext(arg)) {
	case ".tif", ".tiff", ".vrt", ".raw", ".asc", ".npy", ".fits", ".img", ".json":
		return true
	}
	return false
}
