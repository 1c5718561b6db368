// Package briefindex keeps a full-text index of pushed briefs so past digests
// can be searched from the command line.
package briefindex

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	_ "github.com/blevesearch/bleve/v2/search/highlight/highlighter/ansi"
)

// Document is one indexed brief, keyed by video_id.
type Document struct {
	VideoID    string
	Title      string
	Source     string
	Extractor  string
	UploadDate string
	Brief      string
	PushedAt   time.Time
}

// Hit is one search result.
type Hit struct {
	VideoID   string
	Title     string
	Source    string
	Score     float64
	Fragments map[string][]string
}

// Index wraps a bleve index on disk.
type Index struct {
	index bleve.Index
}

// Open opens the index at path, creating it on first use. An existing empty
// directory at path counts as first use.
func Open(path string) (*Index, error) {
	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexMetaMissing) && emptyDir(path) {
		if rmErr := os.Remove(path); rmErr != nil {
			return nil, fmt.Errorf("reset brief index dir: %w", rmErr)
		}
		err = bleve.ErrorIndexPathDoesNotExist
	}
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		idx, err = bleve.New(path, buildMapping())
		if err != nil {
			return nil, fmt.Errorf("create brief index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("open brief index: %w", err)
	}
	return &Index{index: idx}, nil
}

func emptyDir(path string) bool {
	entries, err := os.ReadDir(path)
	return err == nil && len(entries) == 0
}

// OpenReadOnly opens an existing index for searching while another process may
// hold it for writing. It gives up after timeout instead of waiting for the
// writer.
func OpenReadOnly(path string, timeout time.Duration) (*Index, error) {
	idx, err := bleve.OpenUsing(path, map[string]interface{}{
		"read_only":    true,
		"bolt_timeout": timeout.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("open brief index read-only: %w", err)
	}
	return &Index{index: idx}, nil
}

func buildMapping() mapping.IndexMapping {
	keyword := bleve.NewKeywordFieldMapping()
	text := bleve.NewTextFieldMapping()

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("VideoID", keyword)
	doc.AddFieldMappingsAt("Title", text)
	doc.AddFieldMappingsAt("Source", keyword)
	doc.AddFieldMappingsAt("Extractor", keyword)
	doc.AddFieldMappingsAt("UploadDate", keyword)
	doc.AddFieldMappingsAt("Brief", text)
	doc.AddFieldMappingsAt("PushedAt", bleve.NewDateTimeFieldMapping())

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

// Close releases the index files.
func (i *Index) Close() error {
	return i.index.Close()
}

// Add indexes docs in one batch, replacing any previous version.
func (i *Index) Add(docs ...Document) error {
	if len(docs) == 0 {
		return nil
	}
	batch := i.index.NewBatch()
	for _, doc := range docs {
		if doc.VideoID == "" {
			continue
		}
		if err := batch.Index(doc.VideoID, doc); err != nil {
			return fmt.Errorf("index brief %s: %w", doc.VideoID, err)
		}
	}
	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("commit brief batch: %w", err)
	}
	return nil
}

// Delete drops a brief. Unknown IDs are ignored.
func (i *Index) Delete(videoID string) error {
	return i.index.Delete(videoID)
}

// Count returns the number of indexed briefs.
func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}

// Search runs a query-string search over titles and briefs.
func (i *Index) Search(query string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}
	req := bleve.NewSearchRequestOptions(bleve.NewQueryStringQuery(query), limit, 0, false)
	req.Highlight = bleve.NewHighlightWithStyle("ansi")
	req.Highlight.AddField("Brief")
	req.Fields = []string{"Title", "Source"}

	res, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search briefs: %w", err)
	}
	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := Hit{VideoID: h.ID, Score: h.Score, Fragments: h.Fragments}
		if title, ok := h.Fields["Title"].(string); ok {
			hit.Title = title
		}
		if source, ok := h.Fields["Source"].(string); ok {
			hit.Source = source
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
