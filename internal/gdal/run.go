package gdal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// ModeEnv selects where GDAL commands run: "local", "docker", or unset to
// use docker when a client has been initialised and local binaries otherwise.
const ModeEnv = "LOFARGEOTIFF_GDAL_MODE"

// Run executes a GDAL command locally or in a Docker container and returns
// its stdout and stderr. A failed command's error names the command line
// and carries the trimmed stderr.
func Run(ctx context.Context, name string, args ...string) (stdout string, stderr string, err error) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(ModeEnv))) {
	case "local":
		return runLocal(ctx, name, args...)
	case "docker":
		client := GetClient()
		if client == nil {
			return "", "", errors.New("docker client not initialized; call gdal.Initialize first")
		}
		return client.RunDocker(ctx, name, args...)
	default:
		if client := GetClient(); client != nil {
			return client.RunDocker(ctx, name, args...)
		}
		return runLocal(ctx, name, args...)
	}
}

func runLocal(ctx context.Context, name string, args ...string) (string, string, error) {
	return execute(ctx, name, args, formatCommand(name, args))
}

// execute runs bin with binArgs. display is the command line reported in
// errors, which for docker runs is the GDAL command rather than docker's.
func execute(ctx context.Context, bin string, binArgs []string, display string) (string, string, error) {
	cmd := exec.CommandContext(ctx, bin, binArgs...)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	stdout, stderr := stdoutBuf.String(), stderrBuf.String()
	if err == nil {
		return stdout, stderr, nil
	}
	if detail := strings.TrimSpace(stderr); detail != "" {
		return stdout, stderr, fmt.Errorf("command %s failed: %w: %s", display, err, detail)
	}
	return stdout, stderr, fmt.Errorf("command %s failed: %w", display, err)
}

func formatCommand(name string, args []string) string {
	parts := []string{quoteArg(name)}
	for _, arg := range args {
		parts = append(parts, quoteArg(arg))
	}
	return strings.Join(parts, " ")
}

func quoteArg(arg string) string {
	if arg == "" || strings.ContainsAny(arg, " \t\n\r\"\\") {
		return strconv.Quote(arg)
	}
	return arg
}
