package queue

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// stagePredicate selects entries waiting at stage: the stage's own flag is
// clear and every predecessor flag is set.
func stagePredicate(stage Stage) (sq.Eq, error) {
	switch stage {
	case StageDownload:
		return sq.Eq{"downloaded": 0}, nil
	case StageTranscribe:
		return sq.Eq{"downloaded": 1, "transcribed": 0}, nil
	case StageSummarize:
		return sq.Eq{"downloaded": 1, "transcribed": 1, "summarized": 0}, nil
	case StagePush:
		return sq.Eq{"downloaded": 1, "transcribed": 1, "summarized": 1, "pushed": 0}, nil
	default:
		return nil, fmt.Errorf("unknown stage %q", stage)
	}
}

func applyFilter(stmt sq.SelectBuilder, filter Filter) sq.SelectBuilder {
	if filter.Source != "" {
		stmt = stmt.Where(sq.Eq{"source": filter.Source})
	}
	stmt = stmt.OrderBy("id ASC")
	if filter.Limit > 0 {
		stmt = stmt.Limit(uint64(filter.Limit))
	}
	return stmt
}

// Query returns the entries waiting at stage, oldest first.
func (s *Store) Query(ctx context.Context, stage Stage, filter Filter) ([]*Entry, error) {
	predicate, err := stagePredicate(stage)
	if err != nil {
		return nil, err
	}
	entries, err := s.queryEntries(ctx, applyFilter(selectEntries().Where(predicate), filter))
	if err != nil {
		return nil, fmt.Errorf("query %s entries: %w", stage, err)
	}
	return entries, nil
}

// Undownloaded returns entries from source that have not been downloaded.
func (s *Store) Undownloaded(ctx context.Context, source string, limit int) ([]*Entry, error) {
	return s.Query(ctx, StageDownload, Filter{Source: source, Limit: limit})
}

// Untranscribed returns downloaded entries without a transcript.
func (s *Store) Untranscribed(ctx context.Context, limit int) ([]*Entry, error) {
	return s.Query(ctx, StageTranscribe, Filter{Limit: limit})
}

// Unsummarized returns transcribed entries without a brief.
func (s *Store) Unsummarized(ctx context.Context, limit int) ([]*Entry, error) {
	return s.Query(ctx, StageSummarize, Filter{Limit: limit})
}

// Unpushed returns summarized entries that have not been delivered.
func (s *Store) Unpushed(ctx context.Context, limit int) ([]*Entry, error) {
	return s.Query(ctx, StagePush, Filter{Limit: limit})
}

// StalePending returns entries with no stage flag set that were inserted
// before the cutoff.
func (s *Store) StalePending(ctx context.Context, before time.Time) ([]*Entry, error) {
	stmt := selectEntries().
		Where(sq.Eq{"downloaded": 0, "transcribed": 0, "summarized": 0, "pushed": 0}).
		Where(sq.Lt{"inserted_at": formatTime(before)}).
		OrderBy("id ASC")
	entries, err := s.queryEntries(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("query stale pending entries: %w", err)
	}
	return entries, nil
}

// Processed returns fully processed entries for source, newest first.
func (s *Store) Processed(ctx context.Context, source string) ([]*Entry, error) {
	stmt := selectEntries().
		Where(sq.Eq{"source": source, "downloaded": 1, "transcribed": 1, "summarized": 1, "pushed": 1}).
		OrderBy("inserted_at DESC", "id DESC")
	entries, err := s.queryEntries(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("query processed entries for %s: %w", source, err)
	}
	return entries, nil
}

// Sources returns the distinct sources with at least one entry.
func (s *Store) Sources(ctx context.Context) ([]string, error) {
	query, args, err := sq.Select("DISTINCT source").From("entries").OrderBy("source").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var sources []string
	for rows.Next() {
		var source string
		if err := rows.Scan(&source); err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}
	return sources, rows.Err()
}
