//go:build integration

package revocation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"sessiongate/internal/revocation"
	"sessiongate/pkg/platform/sentinel"
	"sessiongate/pkg/testutil/containers"
)

type RedisDenylistSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *revocation.RedisDenylist
}

func TestRedisDenylistSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisDenylistSuite))
}

func (s *RedisDenylistSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = revocation.NewRedis(s.redis.Client)
}

func (s *RedisDenylistSuite) SetupTest() {
	ctx := context.Background()
	err := s.redis.FlushAll(ctx)
	s.Require().NoError(err)
}

func (s *RedisDenylistSuite) TestRevokeAndCheck() {
	ctx := context.Background()

	s.Require().NoError(s.store.Revoke(ctx, "jti-int-1", time.Hour))

	revoked, err := s.store.IsRevoked(ctx, "jti-int-1")
	s.Require().NoError(err)
	s.True(revoked)

	revoked, err = s.store.IsRevoked(ctx, "jti-other")
	s.Require().NoError(err)
	s.False(revoked)
}

func (s *RedisDenylistSuite) TestEntryExpiresWithTTL() {
	ctx := context.Background()

	s.Require().NoError(s.store.Revoke(ctx, "jti-short", 500*time.Millisecond))

	revoked, err := s.store.IsRevoked(ctx, "jti-short")
	s.Require().NoError(err)
	s.True(revoked)

	s.Eventually(func() bool {
		revoked, err := s.store.IsRevoked(ctx, "jti-short")
		return err == nil && !revoked
	}, 5*time.Second, 100*time.Millisecond, "entry should lapse with its TTL")
}

func (s *RedisDenylistSuite) TestEmptyTokenIDIsNoOp() {
	ctx := context.Background()

	s.Require().NoError(s.store.Revoke(ctx, "", time.Hour))

	revoked, err := s.store.IsRevoked(ctx, "")
	s.Require().NoError(err)
	s.False(revoked)
}

func (s *RedisDenylistSuite) TestInvalidTTLRejected() {
	ctx := context.Background()

	err := s.store.Revoke(ctx, "jti-bad-ttl", 0)
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)
}

func (s *RedisDenylistSuite) TestReRevokeRefreshesWindow() {
	ctx := context.Background()

	s.Require().NoError(s.store.Revoke(ctx, "jti-refresh", time.Second))
	s.Require().NoError(s.store.Revoke(ctx, "jti-refresh", time.Hour))

	time.Sleep(1500 * time.Millisecond)

	revoked, err := s.store.IsRevoked(ctx, "jti-refresh")
	s.Require().NoError(err)
	s.True(revoked, "second revoke should have extended the TTL")
}
