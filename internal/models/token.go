package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"time"

	"github.com/google/uuid"
)

// RefreshToken is an opaque refresh token persisted as a hash.
type RefreshToken struct {
	ID        string     `db:"id" json:"id"`
	UserID    int64      `db:"user_id" json:"user_id"`
	TokenHash string     `db:"token_hash" json:"-"`
	ExpiresAt time.Time  `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	Revoked   bool       `db:"revoked" json:"revoked"`
	RevokedAt *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
}

// NewRefreshToken returns the stored model and the plaintext token handed to
// the client. Only the hash is ever persisted.
func NewRefreshToken(userID int64, ttl time.Duration) (*RefreshToken, string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, "", err
	}
	plain := base64.RawURLEncoding.EncodeToString(buf)

	now := time.Now().UTC()
	return &RefreshToken{
		ID:        uuid.New().String(),
		UserID:    userID,
		TokenHash: HashToken(plain),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}, plain, nil
}

// HashToken returns the lookup hash of a plaintext token.
func HashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// IsExpired returns true if the token has expired.
func (t *RefreshToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// IsValid returns true if the token is not revoked and not expired.
func (t *RefreshToken) IsValid() bool {
	return !t.Revoked && !t.IsExpired()
}
