package queue

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Insert stores a newly discovered candidate. It returns false without an
// error when an entry with the same webpage_url (or fingerprint) already exists.
func (s *Store) Insert(ctx context.Context, c Candidate) (bool, error) {
	c.Source = strings.TrimSpace(c.Source)
	c.WebpageURL = strings.TrimSpace(c.WebpageURL)
	if c.Source == "" || c.WebpageURL == "" {
		return false, fmt.Errorf("%w: source and webpage_url are required", ErrInvalidCandidate)
	}
	videoID := strings.TrimSpace(c.VideoID)
	if videoID == "" {
		videoID = RemoteVideoID(c.WebpageURL)
	}
	entry := &Entry{
		VideoID:    videoID,
		WebpageURL: c.WebpageURL,
		Source:     c.Source,
		Extractor:  c.Extractor,
		Title:      c.Title,
		UploadDate: c.UploadDate,
		Duration:   c.Duration,
		Language:   c.Language,
	}
	return s.InsertEntry(ctx, entry)
}

// InsertEntry stores a fully formed entry, assigning its ID on success.
// Stage flags are taken as given, so imported files may arrive already
// downloaded.
func (s *Store) InsertEntry(ctx context.Context, e *Entry) (bool, error) {
	if e == nil || strings.TrimSpace(e.Source) == "" || strings.TrimSpace(e.WebpageURL) == "" {
		return false, fmt.Errorf("%w: source and webpage_url are required", ErrInvalidCandidate)
	}
	if strings.TrimSpace(e.VideoID) == "" {
		e.VideoID = RemoteVideoID(e.WebpageURL)
	}
	if err := e.checkStageOrder(); err != nil {
		return false, err
	}
	if e.InsertedAt.IsZero() {
		e.InsertedAt = s.now()
	}
	filePath := e.FilePath
	if !e.Downloaded {
		filePath = ""
	}

	stmt := sq.Insert("entries").
		Columns(
			"video_id", "webpage_url", "source", "extractor", "title",
			"upload_date", "duration", "language", "inserted_at", "downloaded_at",
			"downloaded", "transcribed", "summarized", "pushed",
			"file_path", "download_error",
		).
		Values(
			e.VideoID, e.WebpageURL, e.Source,
			nullableString(e.Extractor), nullableString(e.Title),
			nullableString(e.UploadDate), nullableInt(e.Duration), nullableString(e.Language),
			formatTime(e.InsertedAt), nullableTime(e.DownloadedAt),
			boolToInt(e.Downloaded), boolToInt(e.Transcribed), boolToInt(e.Summarized), boolToInt(e.Pushed),
			nullableString(filePath), nullableString(e.DownloadError),
		).
		Suffix("ON CONFLICT DO NOTHING")

	res, err := s.exec(ctx, stmt)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert entry %s: %w", e.WebpageURL, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert entry rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("insert entry last id: %w", err)
	}
	e.ID = id
	return true, nil
}

// Update persists an entry's mutable fields by primary key. Stage flags are
// OR-ed with the stored values so a stale snapshot can never roll an entry
// back; file_path and downloaded_at keep their stored value when the snapshot
// leaves them empty.
func (s *Store) Update(ctx context.Context, e *Entry) error {
	if e == nil || e.ID == 0 {
		return fmt.Errorf("%w: update requires a stored entry", ErrInvalidCandidate)
	}
	if err := e.checkStageOrder(); err != nil {
		return err
	}
	stmt := sq.Update("entries").
		Set("extractor", sq.Expr("COALESCE(?, extractor)", nullableString(e.Extractor))).
		Set("title", sq.Expr("COALESCE(?, title)", nullableString(e.Title))).
		Set("upload_date", sq.Expr("COALESCE(?, upload_date)", nullableString(e.UploadDate))).
		Set("duration", sq.Expr("COALESCE(?, duration)", nullableInt(e.Duration))).
		Set("language", sq.Expr("COALESCE(?, language)", nullableString(e.Language))).
		Set("downloaded_at", sq.Expr("COALESCE(?, downloaded_at)", nullableTime(e.DownloadedAt))).
		Set("downloaded", sq.Expr("MAX(downloaded, ?)", boolToInt(e.Downloaded))).
		Set("transcribed", sq.Expr("MAX(transcribed, ?)", boolToInt(e.Transcribed))).
		Set("summarized", sq.Expr("MAX(summarized, ?)", boolToInt(e.Summarized))).
		Set("pushed", sq.Expr("MAX(pushed, ?)", boolToInt(e.Pushed))).
		Set("file_path", sq.Expr("COALESCE(?, file_path)", nullableString(e.FilePath))).
		Set("download_error", nullableString(e.DownloadError)).
		Where(sq.Eq{"id": e.ID})

	res, err := s.exec(ctx, stmt)
	if err != nil {
		return fmt.Errorf("update entry %d: %w", e.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update entry rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %d", ErrEntryNotFound, e.ID)
	}
	return nil
}

// Get returns the entry with the given ID, or nil when it does not exist.
func (s *Store) Get(ctx context.Context, id int64) (*Entry, error) {
	return s.queryEntry(ctx, selectEntries().Where(sq.Eq{"id": id}))
}

// GetByVideoID returns the entry with the given fingerprint, or nil.
func (s *Store) GetByVideoID(ctx context.Context, videoID string) (*Entry, error) {
	return s.queryEntry(ctx, selectEntries().Where(sq.Eq{"video_id": videoID}))
}

// List returns entries oldest first, optionally restricted to one source.
func (s *Store) List(ctx context.Context, filter Filter) ([]*Entry, error) {
	return s.queryEntries(ctx, applyFilter(selectEntries(), filter))
}

// VideoIDs returns the set of fingerprints currently stored.
func (s *Store) VideoIDs(ctx context.Context) (map[string]struct{}, error) {
	query, args, err := sq.Select("video_id").From("entries").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list video ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// Delete removes one entry row. Artifacts are the caller's responsibility.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if _, err := s.exec(ctx, sq.Delete("entries").Where(sq.Eq{"id": id})); err != nil {
		return fmt.Errorf("delete entry %d: %w", id, err)
	}
	return nil
}
