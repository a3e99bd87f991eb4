package token

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"shahid/internal/identity/models"
	id "shahid/pkg/domain"
	dErrors "shahid/pkg/domain-errors"
)

type TokenSuite struct {
	suite.Suite
	svc  *Service
	user *models.User
	ctx  context.Context
}

func (s *TokenSuite) SetupTest() {
	s.svc = NewService("test-signing-key", time.Hour, nil)
	user, err := models.NewUser(id.NewUserID(), "holder", "", "hash", time.Now())
	s.Require().NoError(err)
	user.Role = models.RoleJournalist
	s.user = user
	s.ctx = context.Background()
}

func TestTokenSuite(t *testing.T) {
	suite.Run(t, new(TokenSuite))
}

func (s *TokenSuite) TestIssueAndValidate() {
	signed, err := s.svc.Issue(s.user, time.Now())
	s.Require().NoError(err)

	claims, err := s.svc.ValidateToken(s.ctx, signed)
	s.Require().NoError(err)
	s.Equal(s.user.ID, claims.UserID)
	s.Equal("journalist", claims.Role)
	s.NotEmpty(claims.JTI)
}

func (s *TokenSuite) TestExpiredTokenRejected() {
	short := NewService("test-signing-key", -time.Minute, nil)
	signed, err := short.Issue(s.user, time.Now())
	s.Require().NoError(err)

	_, err = short.ValidateToken(s.ctx, signed)
	s.Require().True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *TokenSuite) TestWrongKeyRejected() {
	signed, err := s.svc.Issue(s.user, time.Now())
	s.Require().NoError(err)

	other := NewService("different-key", time.Hour, nil)
	_, err = other.ValidateToken(s.ctx, signed)
	s.Require().True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *TokenSuite) TestRevocation() {
	signed, err := s.svc.Issue(s.user, time.Now())
	s.Require().NoError(err)

	claims, err := s.svc.ValidateToken(s.ctx, signed)
	s.Require().NoError(err)

	s.Require().NoError(s.svc.Revoke(s.ctx, claims.JTI))

	_, err = s.svc.ValidateToken(s.ctx, signed)
	s.Require().True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	s.Require().Error(s.svc.Revoke(s.ctx, ""))
}

func (s *TokenSuite) TestGarbageRejected() {
	_, err := s.svc.ValidateToken(s.ctx, "not.a.jwt")
	s.Require().True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
