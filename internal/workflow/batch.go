package workflow

import (
	"context"

	"briefcast/internal/queue"
)

// StageBatch loads entries waiting at a stage from the store, optionally
// restricted to one source.
type StageBatch struct {
	Store  *queue.Store
	Name   queue.Stage
	Source string
}

// Stage names the batch's stage.
func (b StageBatch) Stage() queue.Stage { return b.Name }

// Load returns at most limit waiting entries, oldest first.
func (b StageBatch) Load(ctx context.Context, limit int) ([]*queue.Entry, error) {
	return b.Store.Query(ctx, b.Name, queue.Filter{Source: b.Source, Limit: limit})
}
