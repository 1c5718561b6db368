package queue

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

const sqliteConstraintUniqueCode = 2067

// timeLayout is fixed-width so stored timestamps compare lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z"

var entryColumns = []string{
	"id", "video_id", "webpage_url", "source", "extractor", "title",
	"upload_date", "duration", "language", "inserted_at", "downloaded_at",
	"downloaded", "transcribed", "summarized", "pushed",
	"file_path", "download_error",
}

func selectEntries() sq.SelectBuilder {
	return sq.Select(entryColumns...).From("entries")
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		entry         Entry
		extractor     sql.NullString
		title         sql.NullString
		uploadDate    sql.NullString
		duration      sql.NullInt64
		language      sql.NullString
		insertedRaw   string
		downloadedRaw sql.NullString
		downloaded    int
		transcribed   int
		summarized    int
		pushed        int
		filePath      sql.NullString
		downloadErr   sql.NullString
	)
	if err := scanner.Scan(
		&entry.ID,
		&entry.VideoID,
		&entry.WebpageURL,
		&entry.Source,
		&extractor,
		&title,
		&uploadDate,
		&duration,
		&language,
		&insertedRaw,
		&downloadedRaw,
		&downloaded,
		&transcribed,
		&summarized,
		&pushed,
		&filePath,
		&downloadErr,
	); err != nil {
		return nil, err
	}

	entry.Extractor = extractor.String
	entry.Title = title.String
	entry.UploadDate = uploadDate.String
	entry.Duration = duration.Int64
	entry.Language = language.String
	entry.InsertedAt = parseTimeString(insertedRaw)
	entry.DownloadedAt = parseTimeString(downloadedRaw.String)
	entry.Downloaded = downloaded == 1
	entry.Transcribed = transcribed == 1
	entry.Summarized = summarized == 1
	entry.Pushed = pushed == 1
	entry.FilePath = filePath.String
	entry.DownloadError = downloadErr.String
	return &entry, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func nullableInt(value int64) any {
	if value <= 0 {
		return nil
	}
	return value
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func parseTimeString(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{timeLayout, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts
		}
	}
	return time.Time{}
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteConstraintUniqueCode {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
