// Package comment provides the comment stores.
package comment

import (
	"context"
	"sort"
	"sync"

	"shahid/internal/content/models"
	id "shahid/pkg/domain"
	"shahid/pkg/platform/sentinel"
)

// MemoryStore keeps comments in a map guarded by a mutex.
type MemoryStore struct {
	mu       sync.RWMutex
	comments map[id.CommentID]*models.Comment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{comments: make(map[id.CommentID]*models.Comment)}
}

func (s *MemoryStore) Create(ctx context.Context, comment *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.comments[comment.ID]; exists {
		return sentinel.ErrConflict
	}
	clone := *comment
	s.comments[comment.ID] = &clone
	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, commentID id.CommentID) (*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	comment, ok := s.comments[commentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *comment
	return &clone, nil
}

func (s *MemoryStore) ListByPost(ctx context.Context, postID id.PostID, limit, offset int) ([]*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*models.Comment, 0)
	for _, c := range s.comments {
		if c.PostID == postID {
			matched = append(matched, c)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	if limit <= 0 {
		limit = 100
	}
	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}

	out := make([]*models.Comment, 0, end-offset)
	for _, c := range matched[offset:end] {
		clone := *c
		out = append(out, &clone)
	}
	return out, nil
}

func (s *MemoryStore) Update(ctx context.Context, comment *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.comments[comment.ID]; !ok {
		return sentinel.ErrNotFound
	}
	clone := *comment
	s.comments[comment.ID] = &clone
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, commentID id.CommentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.comments[commentID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.comments, commentID)
	return nil
}

// DeleteByPost removes all comments on a post. Called when a post is deleted.
func (s *MemoryStore) DeleteByPost(ctx context.Context, postID id.PostID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for commentID, c := range s.comments {
		if c.PostID == postID {
			delete(s.comments, commentID)
		}
	}
	return nil
}
