package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// DatabaseHealth describes the state of the entries database for `status`.
type DatabaseHealth struct {
	DBPath           string
	SchemaVersion    int
	DatabaseExists   bool
	DatabaseReadable bool
	TableExists      bool
	MissingColumns   []string
	TotalEntries     int
	IntegrityCheck   bool
	Error            string
}

// Healthy reports whether every check passed.
func (h DatabaseHealth) Healthy() bool {
	return h.DatabaseExists && h.DatabaseReadable && h.TableExists &&
		len(h.MissingColumns) == 0 && h.IntegrityCheck && h.SchemaVersion == schemaVersion
}

// Stats returns per-stage entry counts.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{BySource: make(map[string]int)}
	query, args, err := sq.Select(
		"source",
		"COUNT(1)",
		"SUM(downloaded)",
		"SUM(transcribed)",
		"SUM(summarized)",
		"SUM(pushed)",
		"SUM(CASE WHEN downloaded = 0 AND transcribed = 0 AND summarized = 0 AND pushed = 0 THEN 1 ELSE 0 END)",
		"SUM(CASE WHEN download_error IS NOT NULL THEN 1 ELSE 0 END)",
	).From("entries").GroupBy("source").ToSql()
	if err != nil {
		return stats, fmt.Errorf("build stats query: %w", err)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return stats, fmt.Errorf("entry stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			source                                        string
			total, down, trans, summ, push, pending, errs int
		)
		if err := rows.Scan(&source, &total, &down, &trans, &summ, &push, &pending, &errs); err != nil {
			return stats, err
		}
		stats.BySource[source] = total
		stats.Total += total
		stats.Downloaded += down
		stats.Transcribed += trans
		stats.Summarized += summ
		stats.Pushed += push
		stats.Pending += pending
		stats.DownloadErrs += errs
	}
	return stats, rows.Err()
}

// CheckHealth returns diagnostic information about the entries database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}
	if s.path == "" {
		return health, errors.New("entries database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat entries database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("entries database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	if s.db == nil {
		return health, errors.New("entries database connection unavailable")
	}

	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping entries database: %w", err)
	}
	health.DatabaseReadable = true

	version, _, err := readSchemaVersion(connCtx, s.db)
	if err != nil {
		health.Error = err.Error()
		return health, err
	}
	health.SchemaVersion = version

	columns, err := s.tableColumns(connCtx, "entries")
	if err != nil {
		health.Error = err.Error()
		return health, err
	}
	health.TableExists = len(columns) > 0
	if health.TableExists {
		for _, col := range entryColumns {
			if !slices.Contains(columns, col) {
				health.MissingColumns = append(health.MissingColumns, col)
			}
		}
		if err := s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM entries").Scan(&health.TotalEntries); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("count entries: %w", err)
		}
	}

	var integrity string
	if err := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&integrity); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrity, "ok")
	return health, nil
}

func (s *Store) tableColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "PRAGMA table_info("+table+")")
	if err != nil {
		return nil, fmt.Errorf("table info: %w", err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var (
			cid     int
			name    string
			typeStr string
			notNull int
			dflt    any
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typeStr, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan table info: %w", err)
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table info: %w", err)
	}
	return columns, nil
}
