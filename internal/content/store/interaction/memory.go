// Package interaction provides the stores for likes, trusts, and typed
// confirmations. Toggle operations return the resulting state and count so
// the service can update the post's cached counters atomically afterwards.
package interaction

import (
	"context"
	"sync"
	"time"

	"shahid/internal/content/models"
	id "shahid/pkg/domain"
	"shahid/pkg/platform/sentinel"
)

type likeKey struct {
	post id.PostID
	user id.UserID
}

type confirmKey struct {
	post id.PostID
	user id.UserID
	typ  models.ConfirmationType
}

// MemoryStore keeps interactions in maps guarded by a mutex.
type MemoryStore struct {
	mu            sync.Mutex
	likes         map[likeKey]struct{}
	trusts        map[likeKey]struct{}
	confirmations map[confirmKey]models.Confirmation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		likes:         make(map[likeKey]struct{}),
		trusts:        make(map[likeKey]struct{}),
		confirmations: make(map[confirmKey]models.Confirmation),
	}
}

// ToggleLike flips the user's like on the post and returns the new state and
// total like count.
func (s *MemoryStore) ToggleLike(ctx context.Context, postID id.PostID, userID id.UserID) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := likeKey{post: postID, user: userID}
	_, liked := s.likes[key]
	if liked {
		delete(s.likes, key)
	} else {
		s.likes[key] = struct{}{}
	}
	return !liked, s.countLocked(s.likes, postID), nil
}

// ToggleTrust flips the user's trust on the post and returns the new state
// and total trust count. Role eligibility is the service's concern.
func (s *MemoryStore) ToggleTrust(ctx context.Context, postID id.PostID, userID id.UserID) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := likeKey{post: postID, user: userID}
	_, trusted := s.trusts[key]
	if trusted {
		delete(s.trusts, key)
	} else {
		s.trusts[key] = struct{}{}
	}
	return !trusted, s.countLocked(s.trusts, postID), nil
}

func (s *MemoryStore) countLocked(set map[likeKey]struct{}, postID id.PostID) int {
	count := 0
	for key := range set {
		if key.post == postID {
			count++
		}
	}
	return count
}

// AddConfirmation records a typed confirmation. Duplicate (post, user, type)
// returns ErrConflict.
func (s *MemoryStore) AddConfirmation(ctx context.Context, confirmation models.Confirmation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := confirmKey{post: confirmation.PostID, user: confirmation.UserID, typ: confirmation.Type}
	if _, exists := s.confirmations[key]; exists {
		return sentinel.ErrConflict
	}
	if confirmation.CreatedAt.IsZero() {
		confirmation.CreatedAt = time.Now()
	}
	s.confirmations[key] = confirmation
	return nil
}

func (s *MemoryStore) ListConfirmations(ctx context.Context, postID id.PostID) ([]models.Confirmation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Confirmation
	for key, c := range s.confirmations {
		if key.post == postID {
			out = append(out, c)
		}
	}
	return out, nil
}
