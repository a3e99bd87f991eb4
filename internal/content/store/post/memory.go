// Package post provides the post stores.
package post

import (
	"context"
	"sort"
	"sync"

	"shahid/internal/content/models"
	id "shahid/pkg/domain"
	"shahid/pkg/platform/sentinel"
)

// ListFilter narrows List results. Nil fields match everything.
type ListFilter struct {
	Status   *models.PostStatus
	AuthorID *id.UserID
	Limit    int
	Offset   int
}

// MemoryStore keeps posts in a map guarded by a mutex.
type MemoryStore struct {
	mu    sync.RWMutex
	posts map[id.PostID]*models.Post
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{posts: make(map[id.PostID]*models.Post)}
}

func clonePost(p *models.Post) *models.Post {
	clone := *p
	clone.PeopleIDs = append([]id.PersonID(nil), p.PeopleIDs...)
	return &clone
}

func (s *MemoryStore) Create(ctx context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.posts[post.ID]; exists {
		return sentinel.ErrConflict
	}
	s.posts[post.ID] = clonePost(post)
	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, postID id.PostID) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	post, ok := s.posts[postID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clonePost(post), nil
}

func (s *MemoryStore) List(ctx context.Context, filter ListFilter) ([]*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*models.Post, 0, len(s.posts))
	for _, p := range s.posts {
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		if filter.AuthorID != nil && p.AuthorID != *filter.AuthorID {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}

	out := make([]*models.Post, 0, end-offset)
	for _, p := range matched[offset:end] {
		out = append(out, clonePost(p))
	}
	return out, nil
}

// Execute validates and mutates a post while holding the store lock.
func (s *MemoryStore) Execute(ctx context.Context, postID id.PostID, validate func(*models.Post) error, mutate func(*models.Post)) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[postID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(post); err != nil {
		return nil, err
	}
	mutate(post)
	return clonePost(post), nil
}

func (s *MemoryStore) Delete(ctx context.Context, postID id.PostID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[postID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.posts, postID)
	return nil
}

func (s *MemoryStore) CountByStatus(ctx context.Context, status models.PostStatus) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, p := range s.posts {
		if p.Status == status {
			count++
		}
	}
	return count, nil
}
