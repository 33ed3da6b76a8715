package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/good-yellow-bee/taskboard/internal/models"
	"github.com/good-yellow-bee/taskboard/internal/storage"
)

// TokenService issues and rotates opaque refresh tokens.
// Methods take the storage session of the caller's transaction.
type TokenService struct {
	ttl time.Duration
}

// NewTokenService creates a new token service.
func NewTokenService(ttl time.Duration) *TokenService {
	return &TokenService{ttl: ttl}
}

// Create stores a new refresh token for the user and returns the plaintext.
func (s *TokenService) Create(ctx context.Context, sess storage.Session, userID int64) (string, error) {
	token, plain, err := models.NewRefreshToken(userID, s.ttl)
	if err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	if err := sess.Tokens().Create(ctx, token); err != nil {
		return "", fmt.Errorf("store refresh token: %w", err)
	}
	return plain, nil
}

// Validate returns the user owning a live refresh token.
func (s *TokenService) Validate(ctx context.Context, sess storage.Session, plain string) (*models.User, error) {
	if plain == "" {
		return nil, fmt.Errorf("%w: empty refresh token", ErrInvalidToken)
	}

	token, err := sess.Tokens().GetByTokenHash(ctx, models.HashToken(plain))
	if err != nil {
		return nil, fmt.Errorf("lookup refresh token: %w", err)
	}
	if token == nil {
		return nil, fmt.Errorf("%w: refresh token not found", ErrInvalidToken)
	}
	if !token.IsValid() {
		return nil, fmt.Errorf("%w: refresh token expired or revoked", ErrInvalidToken)
	}

	user, err := sess.Users().GetByID(ctx, token.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user not found", ErrInvalidToken)
	}
	return user, nil
}

// Revoke revokes a refresh token. Unknown tokens are ignored.
func (s *TokenService) Revoke(ctx context.Context, sess storage.Session, plain string) error {
	return sess.Tokens().RevokeByTokenHash(ctx, models.HashToken(plain))
}

// RevokeAll revokes all refresh tokens of a user.
func (s *TokenService) RevokeAll(ctx context.Context, sess storage.Session, userID int64) error {
	return sess.Tokens().RevokeAllForUser(ctx, userID)
}

// Rotate revokes the old token and issues a new one.
func (s *TokenService) Rotate(ctx context.Context, sess storage.Session, oldPlain string, userID int64) (string, error) {
	if err := s.Revoke(ctx, sess, oldPlain); err != nil {
		return "", fmt.Errorf("revoke refresh token: %w", err)
	}
	return s.Create(ctx, sess, userID)
}
