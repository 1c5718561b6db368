// Package daemonrun runs the briefcast pipeline in the foreground until it is
// signalled.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"

	"briefcast/internal/config"
	"briefcast/internal/daemon"
	"briefcast/internal/daemonctl"
	"briefcast/internal/logging"
	"briefcast/internal/preflight"
)

// Options configures process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run acquires the data-directory lock, verifies the environment, and runs the
// scheduler until SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	lock, err := daemon.AcquireLock(cfg)
	if err != nil {
		return err
	}
	defer lock.Release()

	logPath := logging.RunLogPath(cfg.Paths.LogDir, time.Now())
	level := opts.LogLevel
	if strings.TrimSpace(level) == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{logPath},
		Development:      opts.Development,
		Color:            isatty.IsTerminal(os.Stdout.Fd()),
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := logging.PointCurrentLog(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update briefcast.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "briefcast-*.log", Exclude: []string{logPath}},
	)

	pidPath := daemonctl.PIDPath(cfg)
	if err := daemonctl.WritePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	results := preflight.RunAll(signalCtx, cfg)
	logPreflight(logger, results)
	if err := preflight.Err(results); err != nil {
		logger.Error("preflight failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "preflight_failed"),
			logging.String(logging.FieldErrorHint, "run briefcast config validate and fix the reported checks"),
		)
		return err
	}

	pipeline, err := daemon.Build(cfg, logger, daemon.BuildOptions{})
	if err != nil {
		logger.Error("build pipeline", logging.Error(err))
		return err
	}
	defer pipeline.Close()

	logger.Info("briefcast started",
		logging.String(logging.FieldEventType, "pipeline_started"),
		logging.Int("sources", len(cfg.Sources.URLs)),
		logging.String("lock", lock.Path()),
		logging.String("log_path", logPath),
		logging.String("notifier", pipeline.Notifier.Provider()),
	)
	if err := pipeline.Manager.Run(signalCtx); err != nil {
		return err
	}
	logger.Info("briefcast shutting down")
	return nil
}

func logPreflight(logger *slog.Logger, results []preflight.Result) {
	for _, r := range results {
		if r.Passed {
			logger.Debug("preflight check passed", logging.String("check", r.Name), logging.String("detail", r.Detail))
			continue
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_check_failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
		)
	}
}
