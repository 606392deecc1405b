// Package tools runs the external executables of the conversion pipeline:
// vgmstream to decode game audio, sox to resample and adpcmencode3 to encode
// MS-ADPCM.
package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// DefaultTimeout bounds a single tool invocation.
const DefaultTimeout = 5 * time.Minute

var (
	// ErrToolFailed is returned when a tool exits with a non-zero status.
	ErrToolFailed = errors.New("tool failed")
	// ErrToolTimeout is returned when a tool doesn't finish in time.
	ErrToolTimeout = errors.New("tool timed out")
	// ErrNoOutput is returned when a tool succeeded without producing the
	// expected output file.
	ErrNoOutput = errors.New("tool produced no output")
	// ErrToolNotFound is returned when an executable can't be located.
	ErrToolNotFound = errors.New("tool not found")
)

// ExitError describes a tool that exited with a non-zero status.
type ExitError struct {
	Tool   string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Tool, e.Code)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}

	return msg
}

// Unwrap makes an ExitError match ErrToolFailed.
func (e *ExitError) Unwrap() error {
	return ErrToolFailed
}

// Runner locates and runs executables.
type Runner struct {
	// Dir is searched for executables before PATH. It may be empty.
	Dir     string
	Timeout time.Duration
	Logger  *slog.Logger

	newCommand func(ctx context.Context, name string, arg ...string) *exec.Cmd
}

// NewRunner creates a runner looking for tools in dir first. A zero timeout
// selects DefaultTimeout.
func NewRunner(dir string, timeout time.Duration, logger *slog.Logger) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		Dir:        dir,
		Timeout:    timeout,
		Logger:     logger,
		newCommand: exec.CommandContext,
	}
}

// Find returns the path of the first executable called one of names. Each
// name is looked up in Dir, in Dir/<name> and then in PATH.
func (r *Runner) Find(names ...string) (string, error) {
	for _, name := range names {
		if r.Dir != "" {
			for _, candidate := range []string{
				filepath.Join(r.Dir, executableName(name)),
				filepath.Join(r.Dir, name, executableName(name)),
			} {
				if isExecutable(candidate) {
					return candidate, nil
				}
			}
		}

		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("%w: looked for %s in %q and PATH", ErrToolNotFound, strings.Join(names, ", "), r.Dir)
}

func executableName(name string) string {
	if runtime.GOOS == "windows" && filepath.Ext(name) == "" {
		return name + ".exe"
	}

	return name
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}

	return runtime.GOOS == "windows" || info.Mode()&0o111 != 0
}

// Run executes the tool at path and returns its standard output.
func (r *Runner) Run(ctx context.Context, path string, args ...string) ([]byte, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	newCommand := r.newCommand
	if newCommand == nil {
		newCommand = exec.CommandContext
	}

	var stdout, stderr bytes.Buffer

	cmd := newCommand(ctx, path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	tool := filepath.Base(path)
	start := time.Now()

	if r.Logger != nil {
		r.Logger.Debug("running tool", "tool", tool, "args", args)
	}

	err := cmd.Run()

	if r.Logger != nil {
		r.Logger.Debug("tool finished", "tool", tool, "duration", time.Since(start), "error", err)
	}

	if err == nil {
		return stdout.Bytes(), nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: %s after %s", ErrToolTimeout, tool, timeout)
	}

	if ctx.Err() != nil {
		return nil, fmt.Errorf("%s: %w", tool, ctx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil, &ExitError{Tool: tool, Code: exitErr.ExitCode(), Stderr: strings.TrimSpace(stderr.String())}
	}

	return nil, fmt.Errorf("%w: %s: %w", ErrToolFailed, tool, err)
}

// checkOutput makes sure a tool wrote a non-empty file at path.
func checkOutput(tool, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s didn't write %s", ErrNoOutput, tool, path)
	}

	if info.Size() == 0 {
		return fmt.Errorf("%w: %s wrote an empty %s", ErrNoOutput, tool, path)
	}

	return nil
}
