package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// RunLogPath returns the per-run log file path for a pipeline started at ts.
func RunLogPath(logDir string, ts time.Time) string {
	return filepath.Join(logDir, fmt.Sprintf("briefcast-%s.log", ts.UTC().Format("20060102T150405.000Z")))
}

// CurrentLogPath is the stable pointer at the latest run's log file.
func CurrentLogPath(logDir string) string {
	return filepath.Join(logDir, "briefcast.log")
}

// PointCurrentLog replaces the briefcast.log pointer in logDir with a link to
// target. A symlink is preferred; a hard link is used where symlinks fail.
func PointCurrentLog(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := CurrentLogPath(logDir)
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}
