//go:build integration

package bucket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"shahid/pkg/testutil/containers"
)

type RedisBucketSuite struct {
	suite.Suite
	rc    *containers.RedisContainer
	store *RedisStore
	ctx   context.Context
}

func TestRedisBucketSuite(t *testing.T) {
	suite.Run(t, new(RedisBucketSuite))
}

func (s *RedisBucketSuite) SetupSuite() {
	s.rc = containers.NewRedisContainer(s.T())
	s.store = NewRedisStore(s.rc.Client)
	s.ctx = context.Background()
}

func (s *RedisBucketSuite) SetupTest() {
	s.Require().NoError(s.rc.FlushAll(s.ctx))
}

func (s *RedisBucketSuite) TestAllowCountsDown() {
	const limit = 3
	for i := 0; i < limit; i++ {
		res, err := s.store.Allow(s.ctx, "ip:203.0.113.1:read", limit, time.Minute)
		s.Require().NoError(err)
		s.True(res.Allowed)
		s.Equal(limit-i-1, res.Remaining)
	}

	res, err := s.store.Allow(s.ctx, "ip:203.0.113.1:read", limit, time.Minute)
	s.Require().NoError(err)
	s.False(res.Allowed)
	s.Zero(res.Remaining)
	s.GreaterOrEqual(res.RetryAfter, 1)
}

func (s *RedisBucketSuite) TestKeysAreIndependent() {
	_, err := s.store.Allow(s.ctx, "ip:203.0.113.1:read", 1, time.Minute)
	s.Require().NoError(err)

	res, err := s.store.Allow(s.ctx, "ip:203.0.113.2:read", 1, time.Minute)
	s.Require().NoError(err)
	s.True(res.Allowed)
}

func (s *RedisBucketSuite) TestWindowExpires() {
	res, err := s.store.Allow(s.ctx, "ip:203.0.113.1:auth", 1, time.Second)
	s.Require().NoError(err)
	s.True(res.Allowed)

	res, err = s.store.Allow(s.ctx, "ip:203.0.113.1:auth", 1, time.Second)
	s.Require().NoError(err)
	s.False(res.Allowed)

	time.Sleep(1100 * time.Millisecond)

	res, err = s.store.Allow(s.ctx, "ip:203.0.113.1:auth", 1, time.Second)
	s.Require().NoError(err)
	s.True(res.Allowed)
}

func (s *RedisBucketSuite) TestReset() {
	_, err := s.store.Allow(s.ctx, "user:u1:write", 1, time.Minute)
	s.Require().NoError(err)

	s.Require().NoError(s.store.Reset(s.ctx, "user:u1:write"))

	res, err := s.store.Allow(s.ctx, "user:u1:write", 1, time.Minute)
	s.Require().NoError(err)
	s.True(res.Allowed)
}
