// Package token issues and validates the access tokens used by the API.
// Tokens are HS256 JWTs carrying the user's role; revocation is tracked in
// Redis by JWT ID so logout and bans take effect before expiry.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"shahid/internal/identity/models"
	"shahid/internal/platform/middleware"
	id "shahid/pkg/domain"
	dErrors "shahid/pkg/domain-errors"
)

const issuer = "shahid"

// Claims are the JWT claims carried by access tokens.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// RevocationList tracks revoked JWT IDs until their natural expiry.
type RevocationList interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Service issues, validates, and revokes access tokens.
type Service struct {
	signingKey []byte
	ttl        time.Duration
	revoked    RevocationList
}

func NewService(signingKey string, ttl time.Duration, revoked RevocationList) *Service {
	if revoked == nil {
		revoked = NewMemoryRevocationList()
	}
	return &Service{signingKey: []byte(signingKey), ttl: ttl, revoked: revoked}
}

// Issue creates a signed access token for the user.
func (s *Service) Issue(user *models.User, now time.Time) (string, error) {
	claims := Claims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// ValidateToken implements middleware.JWTValidator.
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*middleware.JWTClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		// Fail closed: if the revocation list is unreachable we reject the
		// token rather than honoring a possibly-revoked one.
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "revocation check failed")
	}
	if revoked {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token has been revoked")
	}

	userID, err := id.ParseUserID(claims.Subject)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject")
	}
	return &middleware.JWTClaims{UserID: userID, Role: claims.Role, JTI: claims.ID}, nil
}

// Revoke invalidates a token by its JWT ID for the remainder of its life.
func (s *Service) Revoke(ctx context.Context, jti string) error {
	if jti == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "token id is required")
	}
	return s.revoked.Revoke(ctx, jti, s.ttl)
}

// RedisRevocationList stores revoked JWT IDs as expiring Redis keys.
type RedisRevocationList struct {
	client *goredis.Client
}

func NewRedisRevocationList(client *goredis.Client) *RedisRevocationList {
	return &RedisRevocationList{client: client}
}

func revocationKey(jti string) string { return "shahid:revoked:" + jti }

func (r *RedisRevocationList) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if err := r.client.Set(ctx, revocationKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (r *RedisRevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, revocationKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	return n > 0, nil
}
