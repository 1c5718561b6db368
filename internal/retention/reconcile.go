package retention

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"briefcast/internal/logging"
	"briefcast/internal/queue"
)

// ReconcileReport lists what a Reconcile pass removed.
type ReconcileReport struct {
	Removed   []string
	Reclaimed int64
	Errors    []CleanupError
}

// Reconcile removes artifacts whose video_id has no row. Hidden names are
// never touched. In the audio directory only fingerprint-shaped names are
// considered, since anything else is a dropped file awaiting import.
func (s *Sweeper) Reconcile(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport
	known, err := s.store.VideoIDs(ctx)
	if err != nil {
		return report, err
	}
	protected := s.protected()
	layout := s.opts.Layout

	s.reconcileDir(layout.AudioDir, known, protected, true, &report)
	s.reconcileDir(layout.OutputDir, known, protected, false, &report)
	s.reconcileDir(layout.TemporaryDir, known, protected, false, &report)

	if len(report.Removed) > 0 || len(report.Errors) > 0 {
		s.logger.Info("artifact reconciliation complete",
			logging.String(logging.FieldEventType, "reconcile_complete"),
			logging.Bool("dry_run", s.opts.DryRun),
			logging.Int("removed", len(report.Removed)),
			logging.Int("errors", len(report.Errors)),
			logging.String("reclaimed", humanize.Bytes(uint64(report.Reclaimed))),
		)
	}
	return report, nil
}

func (s *Sweeper) reconcileDir(dir string, known, protected map[string]struct{}, audio bool, report *ReconcileReport) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			report.Errors = append(report.Errors, CleanupError{Path: dir, Error: err})
		}
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		path := filepath.Join(dir, name)
		if strings.HasPrefix(name, ".") {
			continue
		}
		if _, ok := protected[path]; ok {
			continue
		}
		key := name
		if audio {
			key = artifactKey(name)
		}
		if _, ok := known[key]; ok {
			continue
		}
		if audio && !queue.IsVideoID(key) {
			continue
		}

		size, _ := dirSize(path)
		if !s.opts.DryRun {
			if err := os.RemoveAll(path); err != nil {
				report.Errors = append(report.Errors, CleanupError{Path: path, Error: err})
				logging.WarnWithContext(s.logger, "failed to remove orphaned artifact", "reconcile_failed",
					logging.String("path", path),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check data directory permissions"),
					logging.String(logging.FieldImpact, "disk space not reclaimed"),
				)
				continue
			}
		}
		report.Removed = append(report.Removed, path)
		report.Reclaimed += size
		s.logger.Debug("removed orphaned artifact", logging.String("path", path))
	}
}
