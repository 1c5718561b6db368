package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// CommandRunner executes an external binary and returns its standard output.
// Adapters accept one so tests can substitute canned output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner is the default CommandRunner backed by os/exec. Non-zero exits
// are tagged ErrExternalTool with the trimmed stderr attached; a deadline is
// tagged ErrTimeout.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err == nil {
		return output, nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return output, Wrap(ErrTimeout, "", name, "deadline exceeded", err)
	}
	detail := strings.TrimSpace(stderr.String())
	if len(detail) > 512 {
		detail = detail[len(detail)-512:]
	}
	if detail == "" {
		return output, Wrap(ErrExternalTool, "", name, "command failed", err)
	}
	return output, Wrap(ErrExternalTool, "", name, fmt.Sprintf("command failed: %s", detail), err)
}
