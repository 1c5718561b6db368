package download

import (
	"context"
	"log/slog"
	"strings"

	"briefcast/internal/logging"
	"briefcast/internal/queue"
	"briefcast/internal/services/feed"
)

// SourceReader enumerates the newest items of one source.
type SourceReader interface {
	FetchEntries(ctx context.Context, source string, limit int) ([]queue.Candidate, error)
}

// Inserter stores discovered candidates. queue.Store satisfies it.
type Inserter interface {
	Insert(ctx context.Context, c queue.Candidate) (bool, error)
}

// Router dispatches feed sources to Feeds and everything else to Default.
type Router struct {
	Default SourceReader
	Feeds   SourceReader
}

// FetchEntries implements SourceReader.
func (r Router) FetchEntries(ctx context.Context, source string, limit int) ([]queue.Candidate, error) {
	if feed.IsFeedSource(source) && r.Feeds != nil {
		return r.Feeds.FetchEntries(ctx, source, limit)
	}
	return r.Default.FetchEntries(ctx, source, limit)
}

// FetchReport counts one source's discovery results.
type FetchReport struct {
	Source   string
	Fetched  int
	Inserted int
	Known    int
	Failed   int
}

// Fetcher discovers items and records them as pending entries.
type Fetcher struct {
	reader SourceReader
	store  Inserter
	limit  int
	logger *slog.Logger
}

// NewFetcher builds a Fetcher that asks each source for at most limit items.
func NewFetcher(reader SourceReader, store Inserter, limit int, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Fetcher{
		reader: reader,
		store:  store,
		limit:  limit,
		logger: logging.NewComponentLogger(logger, "fetcher"),
	}
}

// Fetch enumerates source and inserts every candidate. Duplicates count as
// known. A candidate that fails to insert is logged and counted as failed;
// the rest of the source still goes in. Cancellation stops the loop.
func (f *Fetcher) Fetch(ctx context.Context, source string) (FetchReport, error) {
	report := FetchReport{Source: source}
	source = strings.TrimSpace(source)
	candidates, err := f.reader.FetchEntries(ctx, source, f.limit)
	if err != nil {
		return report, err
	}
	report.Fetched = len(candidates)
	for _, candidate := range candidates {
		if candidate.Source == "" {
			candidate.Source = source
		}
		inserted, err := f.store.Insert(ctx, candidate)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			report.Failed++
			logging.WarnWithContext(f.logger, "entry insert failed", "entry_insert_failed",
				logging.String("source", source),
				logging.String("webpage_url", candidate.WebpageURL),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the queue database and the candidate fields"),
				logging.String(logging.FieldImpact, "item is retried on the next fetch"),
			)
			continue
		}
		if inserted {
			report.Inserted++
		} else {
			report.Known++
		}
	}
	f.logger.Info(
		"source fetched",
		logging.String(logging.FieldEventType, "source_fetched"),
		logging.String("source", source),
		logging.Int("fetched", report.Fetched),
		logging.Int("inserted", report.Inserted),
		logging.Int("known", report.Known),
		logging.Int("failed", report.Failed),
	)
	return report, nil
}
