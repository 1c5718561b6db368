package stablefile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/dhowden/tag"

	"briefcast/internal/config"
	"briefcast/internal/fileutil"
	"briefcast/internal/logging"
	"briefcast/internal/queue"
)

// PartialSuffixes mark files that are still being downloaded or copied.
var PartialSuffixes = []string{".part", ".tmp", ".download", ".partial", ".crdownload", ".ytdl"}

// Store is the subset of the entry store the detector needs.
type Store interface {
	InsertEntry(ctx context.Context, e *queue.Entry) (bool, error)
	VideoIDs(ctx context.Context) (map[string]struct{}, error)
}

// Options configures a Detector.
type Options struct {
	Dir         string
	PendingPath string
	Extensions  []string
	MinSize     int64
	MinAge      time.Duration
	// StaleAfter drops observations of files that never settled.
	StaleAfter time.Duration
}

// OptionsFromConfig maps configuration onto detector options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Dir:         cfg.Paths.AudioDir,
		PendingPath: cfg.Paths.PendingPath,
		Extensions:  cfg.StableFile.Extensions,
		MinSize:     cfg.StableFile.MinSizeBytes,
		MinAge:      time.Duration(cfg.StableFile.MinAgeSeconds) * time.Second,
		StaleAfter:  config.Hours(cfg.Retention.StalePendingHours),
	}
}

// Report summarizes one sweep.
type Report struct {
	Candidates int
	Observed   int
	Imported   []string
	Conflicts  int
	Errors     int
}

// Detector tracks candidate files across sweeps.
type Detector struct {
	opts    Options
	store   Store
	logger  *slog.Logger
	now     func() time.Time
	pending map[string]observation
}

// Option customizes a Detector.
type Option func(*Detector)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(d *Detector) {
		if now != nil {
			d.now = now
		}
	}
}

// New loads the persisted pending map and returns a Detector.
func New(opts Options, store Store, logger *slog.Logger, options ...Option) (*Detector, error) {
	if strings.TrimSpace(opts.Dir) == "" {
		return nil, fmt.Errorf("stable file detector: directory is required")
	}
	pending, err := loadPending(opts.PendingPath)
	if err != nil {
		return nil, err
	}
	d := &Detector{
		opts:    opts,
		store:   store,
		logger:  logging.NewComponentLogger(logger, "stablefile"),
		now:     time.Now,
		pending: pending,
	}
	for _, opt := range options {
		opt(d)
	}
	return d, nil
}

// PendingPaths returns the files currently awaiting a second observation.
func (d *Detector) PendingPaths() []string {
	paths := make([]string, 0, len(d.pending))
	for path := range d.pending {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Sweep scans the directory once, importing files that were unchanged since
// the previous sweep. The pending map is saved before returning.
func (d *Detector) Sweep(ctx context.Context) (Report, error) {
	var report Report
	now := d.now()

	known, err := d.store.VideoIDs(ctx)
	if err != nil {
		return report, fmt.Errorf("load known video ids: %w", err)
	}
	dirEntries, err := os.ReadDir(d.opts.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return report, d.save()
		}
		return report, fmt.Errorf("read %s: %w", d.opts.Dir, err)
	}
	names := make(map[string]struct{}, len(dirEntries))
	for _, entry := range dirEntries {
		names[entry.Name()] = struct{}{}
	}

	for _, entry := range dirEntries {
		if ctx.Err() != nil {
			break
		}
		if !entry.Type().IsRegular() {
			continue
		}
		path := filepath.Join(d.opts.Dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !d.candidate(entry.Name(), info, names, known, now) {
			continue
		}
		report.Candidates++

		prev, seen := d.pending[path]
		switch {
		case !seen:
			d.pending[path] = observation{Size: info.Size(), ModTime: info.ModTime().UnixNano(), FirstSeen: now}
			report.Observed++
		case !prev.matches(info.Size(), info.ModTime()):
			prev.Size = info.Size()
			prev.ModTime = info.ModTime().UnixNano()
			d.pending[path] = prev
			report.Observed++
		default:
			delete(d.pending, path)
			id, inserted, err := d.promote(ctx, path, now)
			switch {
			case err != nil:
				report.Errors++
				logging.WarnWithContext(d.logger, "stable file import failed", "stable_file_import_failed",
					logging.String("path", path),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check audio_dir permissions"),
				)
			case !inserted:
				report.Conflicts++
				d.logger.Info("stable file already tracked",
					logging.String("path", path),
					logging.String(logging.FieldVideoID, id),
					logging.String(logging.FieldEventType, "stable_file_conflict"),
				)
			default:
				report.Imported = append(report.Imported, id)
				known[id] = struct{}{}
				d.logger.Info("imported stable file",
					logging.String("path", path),
					logging.String(logging.FieldVideoID, id),
					logging.String(logging.FieldEventType, "stable_file_imported"),
				)
			}
		}
	}

	d.prune(now)
	if err := d.save(); err != nil {
		return report, err
	}
	return report, nil
}

func (d *Detector) candidate(name string, info os.FileInfo, names map[string]struct{}, known map[string]struct{}, now time.Time) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if slices.Contains(PartialSuffixes, ext) {
		return false
	}
	if !slices.Contains(d.opts.Extensions, ext) {
		return false
	}
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	for _, suffix := range PartialSuffixes {
		if _, ok := names[stem+suffix]; ok {
			return false
		}
		if _, ok := names[name+suffix]; ok {
			return false
		}
	}
	if _, ok := known[stem]; ok {
		return false
	}
	if info.Size() < d.opts.MinSize {
		return false
	}
	return now.Sub(info.ModTime()) >= d.opts.MinAge
}

// promote renames a stable file to its fingerprint name and inserts the
// entry. A file whose stem is already a local fingerprint was renamed by an
// earlier interrupted sweep and keeps its name.
func (d *Detector) promote(ctx context.Context, path string, now time.Time) (string, bool, error) {
	base := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(base))
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	id := stem
	if !queue.IsLocalVideoID(stem) {
		id = queue.LocalVideoID(base)
	}
	title := readTitle(path, stem)

	target := filepath.Join(d.opts.Dir, id+ext)
	if target != path {
		if _, err := os.Stat(target); err == nil {
			return id, false, fmt.Errorf("target %s already exists", target)
		}
		if err := fileutil.MoveFile(path, target); err != nil {
			return id, false, err
		}
	}

	entry := &queue.Entry{
		VideoID:      id,
		WebpageURL:   queue.LocalWebpageURL(id),
		Source:       queue.LocalSource,
		Extractor:    queue.LocalSource,
		Title:        title,
		InsertedAt:   now,
		DownloadedAt: now,
		Downloaded:   true,
		FilePath:     target,
	}
	inserted, err := d.store.InsertEntry(ctx, entry)
	if err != nil {
		return id, false, fmt.Errorf("insert entry: %w", err)
	}
	return id, inserted, nil
}

// prune forgets files that vanished or never settled within StaleAfter.
func (d *Detector) prune(now time.Time) {
	for path, obs := range d.pending {
		if _, err := os.Stat(path); err != nil {
			delete(d.pending, path)
			continue
		}
		if d.opts.StaleAfter > 0 && now.Sub(obs.FirstSeen) > d.opts.StaleAfter {
			delete(d.pending, path)
		}
	}
}

func (d *Detector) save() error {
	if d.opts.PendingPath == "" {
		return nil
	}
	return savePending(d.opts.PendingPath, d.pending)
}

// readTitle prefers the embedded tag title and falls back to the file stem.
func readTitle(path, fallback string) string {
	f, err := os.Open(path)
	if err != nil {
		return fallback
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return fallback
	}
	if title := strings.TrimSpace(m.Title()); title != "" {
		return title
	}
	return fallback
}
