package retention

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"briefcast/internal/artifacts"
	"briefcast/internal/fileutil"
	"briefcast/internal/logging"
	"briefcast/internal/queue"
)

// Store is the subset of queue.Store the sweeper uses.
type Store interface {
	VideoIDs(ctx context.Context) (map[string]struct{}, error)
	StalePending(ctx context.Context, before time.Time) ([]*queue.Entry, error)
	Processed(ctx context.Context, source string) ([]*queue.Entry, error)
	Sources(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, id int64) error
}

// Unindexer drops a pruned entry's brief from the search index.
type Unindexer interface {
	Delete(videoID string) error
}

// CleanupError pairs a path or entry with the error that stopped its removal.
type CleanupError struct {
	Path  string
	Error error
}

// Report summarizes one Prune pass.
type Report struct {
	StaleDeleted int
	Pruned       int
	Retained     int
	Reclaimed    int64
	// Planned lists the video_ids selected for deletion; in dry-run mode
	// nothing else happens to them.
	Planned []string
	Errors  []CleanupError
}

// Options configures a Sweeper.
type Options struct {
	Layout       artifacts.Layout
	Policies     Policies
	StalePending time.Duration
	// Protected returns paths the sweeper must not touch, such as files the
	// stable-file detector is still observing.
	Protected func() []string
	Index     Unindexer
	DryRun    bool
	Logger    *slog.Logger
	Now       func() time.Time
}

// Sweeper prunes entries and reconciles artifact directories.
type Sweeper struct {
	store  Store
	opts   Options
	logger *slog.Logger
}

// New builds a Sweeper.
func New(store Store, opts Options) *Sweeper {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.StalePending <= 0 {
		opts.StalePending = 24 * time.Hour
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Sweeper{store: store, opts: opts, logger: logging.NewComponentLogger(logger, "retention")}
}

// Prune deletes stale pending entries, then applies each source's policy to
// its fully processed entries.
func (s *Sweeper) Prune(ctx context.Context) (Report, error) {
	var report Report
	now := s.opts.Now()

	stale, err := s.store.StalePending(ctx, now.Add(-s.opts.StalePending))
	if err != nil {
		return report, err
	}
	for _, entry := range stale {
		if s.remove(ctx, entry, &report) {
			report.StaleDeleted++
		}
	}

	sources, err := s.store.Sources(ctx)
	if err != nil {
		return report, err
	}
	for _, source := range sources {
		processed, err := s.store.Processed(ctx, source)
		if err != nil {
			return report, err
		}
		policy := s.opts.Policies.For(source)
		expired := policy.Expired(processed, now)
		report.Retained += len(processed) - len(expired)
		for _, entry := range expired {
			if s.remove(ctx, entry, &report) {
				report.Pruned++
			}
		}
		if len(expired) > 0 {
			s.logger.Debug("applied retention policy",
				logging.String("source", source),
				logging.String("policy", policy.String()),
				logging.Int("expired", len(expired)),
			)
		}
	}

	s.logger.Info("retention sweep complete",
		logging.String(logging.FieldEventType, "sweep_complete"),
		logging.Bool("dry_run", s.opts.DryRun),
		logging.Int("stale_deleted", report.StaleDeleted),
		logging.Int("pruned", report.Pruned),
		logging.Int("retained", report.Retained),
		logging.Int("errors", len(report.Errors)),
		logging.String("reclaimed", humanize.Bytes(uint64(report.Reclaimed))),
	)
	return report, nil
}

// remove deletes one entry's audio, then its row, then its remaining
// artifacts. It reports whether the row is gone.
func (s *Sweeper) remove(ctx context.Context, entry *queue.Entry, report *Report) bool {
	report.Planned = append(report.Planned, entry.VideoID)
	if s.opts.DryRun {
		return true
	}
	layout := s.opts.Layout

	for _, path := range s.audioFiles(entry) {
		size := fileSize(path)
		if err := fileutil.RemoveIfExists(path); err != nil {
			s.fail(report, path, err)
			return false
		}
		report.Reclaimed += size
	}

	if err := s.store.Delete(ctx, entry.ID); err != nil {
		s.fail(report, entry.VideoID, err)
		return false
	}

	for _, dir := range []string{layout.EntryOutputDir(entry.VideoID), layout.EntryTemporaryDir(entry.VideoID)} {
		size, _ := dirSize(dir)
		if err := os.RemoveAll(dir); err != nil {
			s.fail(report, dir, err)
			continue
		}
		report.Reclaimed += size
	}
	if s.opts.Index != nil {
		if err := s.opts.Index.Delete(entry.VideoID); err != nil {
			s.fail(report, entry.VideoID, fmt.Errorf("unindex brief: %w", err))
		}
	}
	return true
}

// audioFiles returns the recorded audio path plus any other file in the
// audio directory keyed by the entry's video_id.
func (s *Sweeper) audioFiles(entry *queue.Entry) []string {
	seen := map[string]struct{}{}
	var paths []string
	add := func(p string) {
		if _, ok := seen[p]; !ok && p != "" {
			seen[p] = struct{}{}
			paths = append(paths, p)
		}
	}
	add(entry.FilePath)
	if matches, err := filepath.Glob(filepath.Join(s.opts.Layout.AudioDir, entry.VideoID+".*")); err == nil {
		for _, m := range matches {
			add(m)
		}
	}
	return paths
}

func (s *Sweeper) fail(report *Report, path string, err error) {
	report.Errors = append(report.Errors, CleanupError{Path: path, Error: err})
	logging.WarnWithContext(s.logger, "retention delete failed", "retention_delete_failed",
		logging.String("path", path),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check data directory permissions"),
		logging.String(logging.FieldImpact, "entry kept until the next sweep"),
	)
}

func (s *Sweeper) protected() map[string]struct{} {
	set := map[string]struct{}{}
	if s.opts.Protected == nil {
		return set
	}
	for _, p := range s.opts.Protected() {
		set[filepath.Clean(p)] = struct{}{}
	}
	return set
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// dirSize calculates the total size of a directory recursively.
func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	return size, err
}

// artifactKey returns the video_id an artifact name belongs to: everything
// before the first dot.
func artifactKey(name string) string {
	key, _, _ := strings.Cut(name, ".")
	return key
}
