// Package report provides the post report stores.
package report

import (
	"context"
	"sort"
	"sync"

	"shahid/internal/content/models"
	id "shahid/pkg/domain"
	"shahid/pkg/platform/sentinel"
)

type reporterKey struct {
	post id.PostID
	user id.UserID
}

// MemoryStore keeps reports in maps guarded by a mutex. One report per
// (post, reporter) pair.
type MemoryStore struct {
	mu         sync.Mutex
	reports    map[id.ReportID]*models.Report
	byReporter map[reporterKey]id.ReportID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reports:    make(map[id.ReportID]*models.Report),
		byReporter: make(map[reporterKey]id.ReportID),
	}
}

func (s *MemoryStore) Create(ctx context.Context, report *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := reporterKey{post: report.PostID, user: report.ReporterID}
	if _, exists := s.byReporter[key]; exists {
		return sentinel.ErrConflict
	}
	clone := *report
	s.reports[report.ID] = &clone
	s.byReporter[key] = report.ID
	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, reportID id.ReportID) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	report, ok := s.reports[reportID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *report
	return &clone, nil
}

func (s *MemoryStore) CountByPost(ctx context.Context, postID id.PostID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, r := range s.reports {
		if r.PostID == postID {
			count++
		}
	}
	return count, nil
}

// List returns reports filtered by status (empty status matches all),
// newest first.
func (s *MemoryStore) List(ctx context.Context, status models.ReportStatus, limit, offset int) ([]*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]*models.Report, 0, len(s.reports))
	for _, r := range s.reports {
		if status != "" && r.Status != status {
			continue
		}
		matched = append(matched, r)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if limit <= 0 {
		limit = 50
	}
	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}

	out := make([]*models.Report, 0, end-offset)
	for _, r := range matched[offset:end] {
		clone := *r
		out = append(out, &clone)
	}
	return out, nil
}

func (s *MemoryStore) Execute(ctx context.Context, reportID id.ReportID, validate func(*models.Report) error, mutate func(*models.Report)) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.reports[reportID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(report); err != nil {
		return nil, err
	}
	mutate(report)
	clone := *report
	return &clone, nil
}
