package ocr

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Runner lets us stub external commands in tests.
type Runner interface {
	Run(ctx context.Context, name string, logger *slog.Logger, args ...string) (stdout, stderr []byte, err error)
}

// CommandError is returned when an external tool exits unsuccessfully.
type CommandError struct {
	Cmd    string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s: %v", e.Cmd, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Cmd, e.Err, e.Stderr)
}

func (e *CommandError) Unwrap() error { return e.Err }

func commandErr(cmd string, stderr []byte, err error) error {
	return &CommandError{
		Cmd:    cmd,
		Stderr: truncate(strings.TrimSpace(string(stderr)), 512),
		Err:    err,
	}
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, logger *slog.Logger, args ...string) ([]byte, []byte, error) {
	start := time.Now()
	logger.Debug("running command", "cmd_line", strings.Join(append([]string{name}, args...), " "))

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	attrs := []any{"cmd", name, "duration_ms", time.Since(start).Milliseconds()}
	if err != nil {
		logger.Error("exec failed", append(attrs,
			"error", err,
			"stderr", truncate(errb.String(), 8<<10), // cap at 8KB
		)...)
		return out.Bytes(), errb.Bytes(), err
	}
	logger.Debug("exec ok", append(attrs, "stdout_bytes", out.Len(), "stderr_bytes", errb.Len())...)
	return out.Bytes(), errb.Bytes(), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
