// Package search maintains a full-text index over approved posts. The index
// is rebuilt from the post store at startup and kept current by the content
// service as posts move through moderation.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/blugelabs/bluge"

	"shahid/internal/content/models"
	id "shahid/pkg/domain"
)

// Result is one search hit. Only stored fields are returned; callers fetch
// the full post through the content API.
type Result struct {
	PostID   string  `json:"post_id"`
	Title    string  `json:"title"`
	Language string  `json:"language,omitempty"`
	Score    float64 `json:"score"`
}

// Index wraps a bluge writer. Writer operations are cheap; reads open a
// point-in-time reader per query.
type Index struct {
	mu     sync.Mutex
	writer *bluge.Writer
	logger *slog.Logger
}

// New opens an index at path. An empty path keeps the index in memory,
// which suits demo mode and tests.
func New(path string, logger *slog.Logger) (*Index, error) {
	var cfg bluge.Config
	if path == "" {
		cfg = bluge.InMemoryOnlyConfig()
	} else {
		cfg = bluge.DefaultConfig(path)
	}
	writer, err := bluge.OpenWriter(cfg)
	if err != nil {
		return nil, fmt.Errorf("open search index: %w", err)
	}
	return &Index{writer: writer, logger: logger}, nil
}

func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.writer.Close()
}

// IndexPost adds or replaces the post's document.
func (i *Index) IndexPost(p *models.Post) error {
	doc := bluge.NewDocument(p.ID.String()).
		AddField(bluge.NewTextField("title", p.Title).StoreValue()).
		AddField(bluge.NewTextField("body", p.Body)).
		AddField(bluge.NewKeywordField("language", p.Language).StoreValue())

	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.writer.Update(doc.ID(), doc); err != nil {
		return fmt.Errorf("index post: %w", err)
	}
	return nil
}

// DeletePost removes the post's document. Deleting an unindexed post is a
// no-op.
func (i *Index) DeletePost(postID id.PostID) error {
	doc := bluge.NewDocument(postID.String())

	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.writer.Delete(doc.ID()); err != nil {
		return fmt.Errorf("delete post from index: %w", err)
	}
	return nil
}

// Search runs a match query over title and body, title weighted higher.
// When nothing matches exactly, a fuzzy pass catches near-miss spellings,
// which matters for transliterated names.
func (i *Index) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	reader, err := i.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("open index reader: %w", err)
	}
	defer reader.Close()

	exact := bluge.NewBooleanQuery().
		AddShould(bluge.NewMatchQuery(query).SetField("title").SetBoost(2)).
		AddShould(bluge.NewMatchQuery(query).SetField("body"))

	results, err := i.runQuery(ctx, reader, exact, limit)
	if err != nil {
		return nil, err
	}
	if len(results) > 0 {
		return results, nil
	}

	fuzzy := bluge.NewBooleanQuery().
		AddShould(bluge.NewMatchQuery(query).SetField("title").SetFuzziness(1).SetBoost(2)).
		AddShould(bluge.NewMatchQuery(query).SetField("body").SetFuzziness(1))
	return i.runQuery(ctx, reader, fuzzy, limit)
}

func (i *Index) runQuery(ctx context.Context, reader *bluge.Reader, q bluge.Query, limit int) ([]Result, error) {
	iter, err := reader.Search(ctx, bluge.NewTopNSearch(limit, q))
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	var results []Result
	match, err := iter.Next()
	for err == nil && match != nil {
		result := Result{Score: match.Score}
		visitErr := match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				result.PostID = string(value)
			case "title":
				result.Title = string(value)
			case "language":
				result.Language = string(value)
			}
			return true
		})
		if visitErr != nil {
			return nil, fmt.Errorf("read stored fields: %w", visitErr)
		}
		results = append(results, result)
		match, err = iter.Next()
	}
	if err != nil {
		return nil, fmt.Errorf("iterate search results: %w", err)
	}
	return results, nil
}

// Rebuild replaces the index contents with the given posts. Called at
// startup so a fresh in-memory index reflects the store.
func (i *Index) Rebuild(posts []*models.Post) error {
	for _, p := range posts {
		if !p.IsApproved() {
			continue
		}
		if err := i.IndexPost(p); err != nil {
			return err
		}
	}
	return nil
}
