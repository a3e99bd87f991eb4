package bucket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type MemoryBucketSuite struct {
	suite.Suite
	store *MemoryStore
	ctx   context.Context
}

func (s *MemoryBucketSuite) SetupTest() {
	s.store = NewMemoryStore()
	s.ctx = context.Background()
}

func TestMemoryBucketSuite(t *testing.T) {
	suite.Run(t, new(MemoryBucketSuite))
}

func (s *MemoryBucketSuite) TestAllow() {
	s.Run("counts down remaining and denies at the limit", func() {
		for i := 0; i < 3; i++ {
			result, err := s.store.Allow(s.ctx, "k1", 3, time.Minute)
			s.Require().NoError(err)
			s.True(result.Allowed)
			s.Equal(3, result.Limit)
			s.Equal(2-i, result.Remaining)
		}

		result, err := s.store.Allow(s.ctx, "k1", 3, time.Minute)
		s.Require().NoError(err)
		s.False(result.Allowed)
		s.Zero(result.Remaining)
		s.Positive(result.RetryAfter)
		s.WithinDuration(time.Now().Add(time.Minute), result.ResetAt, 2*time.Second)
	})

	s.Run("old entries fall out of the window", func() {
		result, err := s.store.Allow(s.ctx, "k2", 1, 10*time.Millisecond)
		s.Require().NoError(err)
		s.True(result.Allowed)

		result, err = s.store.Allow(s.ctx, "k2", 1, 10*time.Millisecond)
		s.Require().NoError(err)
		s.False(result.Allowed)

		time.Sleep(15 * time.Millisecond)

		result, err = s.store.Allow(s.ctx, "k2", 1, 10*time.Millisecond)
		s.Require().NoError(err)
		s.True(result.Allowed)
	})

	s.Run("keys do not interfere", func() {
		_, err := s.store.Allow(s.ctx, "k3", 1, time.Minute)
		s.Require().NoError(err)

		result, err := s.store.Allow(s.ctx, "k4", 1, time.Minute)
		s.Require().NoError(err)
		s.True(result.Allowed)
	})
}

func (s *MemoryBucketSuite) TestReset() {
	_, err := s.store.Allow(s.ctx, "k5", 1, time.Minute)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Reset(s.ctx, "k5"))

	result, err := s.store.Allow(s.ctx, "k5", 1, time.Minute)
	s.Require().NoError(err)
	s.True(result.Allowed)
}
