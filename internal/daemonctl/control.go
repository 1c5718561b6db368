// Package daemonctl starts, inspects, and stops a detached "briefcast run"
// process through its pid file and data-directory lock.
package daemonctl

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"briefcast/internal/config"
	"briefcast/internal/daemon"
)

// ErrNotRunning indicates no process holds the data-directory lock.
var ErrNotRunning = errors.New("briefcast is not running")

// PIDPath returns the pid file written by the running pipeline.
func PIDPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.DataDir, "briefcast.pid")
}

// WritePIDFile records the current process id.
func WritePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

// ReadPID returns the pid recorded at path, or 0 when the file is absent.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read pid file %q: %w", path, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("pid file %q is malformed", path)
	}
	return pid, nil
}

// ProcessInfo reports whether a pipeline holds the lock and its pid when known.
func ProcessInfo(cfg *config.Config) (bool, int) {
	if !daemon.Locked(cfg) {
		return false, 0
	}
	pid, _ := ReadPID(PIDPath(cfg))
	return true, pid
}

// Launch starts a detached "briefcast run" using executablePath.
func Launch(executablePath, configPath string) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}
	args := []string{"run"}
	if cfg := strings.TrimSpace(configPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	proc := exec.Command(executablePath, args...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch briefcast: %w", err)
	}
	return proc.Process.Release()
}

// WaitForStart waits until some process holds the lock.
func WaitForStart(cfg *config.Config, timeout time.Duration) error {
	if waitFor(timeout, func() bool { return daemon.Locked(cfg) }) {
		return nil
	}
	return fmt.Errorf("briefcast did not start within %s; check the log", timeout)
}

// StopResult captures the stop outcome.
type StopResult struct {
	PID        int
	ForcedKill bool
}

// Stop sends SIGTERM to the running pipeline and waits up to grace for it to
// release the lock, then sends SIGKILL. In-flight items normally finish within
// the grace period.
func Stop(cfg *config.Config, grace time.Duration) (StopResult, error) {
	running, pid := ProcessInfo(cfg)
	if !running {
		return StopResult{}, ErrNotRunning
	}
	if pid <= 0 {
		return StopResult{}, fmt.Errorf("unable to determine pid (pid file: %s)", PIDPath(cfg))
	}
	if pid == os.Getpid() {
		return StopResult{}, fmt.Errorf("refusing to signal current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return StopResult{}, fmt.Errorf("locate process %d: %w", pid, err)
	}
	result := StopResult{PID: pid}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return result, fmt.Errorf("signal process %d: %w", pid, err)
	}
	if waitFor(grace, func() bool { return !daemon.Locked(cfg) }) {
		return result, nil
	}
	if err := proc.Kill(); err != nil {
		return result, fmt.Errorf("kill process %d: %w", pid, err)
	}
	if err := os.Remove(PIDPath(cfg)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return result, fmt.Errorf("remove pid file: %w", err)
	}
	result.ForcedKill = true
	return result, nil
}

func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(200 * time.Millisecond)
	}
}
