package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/good-yellow-bee/taskboard/internal/models"
)

// sqliteTokenRepo implements TokenRepository using SQLite.
type sqliteTokenRepo struct {
	db sqlx.ExtContext
}

// Create inserts a new refresh token.
func (r *sqliteTokenRepo) Create(ctx context.Context, token *models.RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.New().String()
	}

	query := `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at, revoked, revoked_at)
		VALUES (:id, :user_id, :token_hash, :expires_at, :created_at, :revoked, :revoked_at)
	`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, token); err != nil {
		return mapWriteError("insert refresh token", err)
	}
	return nil
}

// GetByTokenHash retrieves a refresh token by its hash.
func (r *sqliteTokenRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	query := `
		SELECT id, user_id, token_hash, expires_at, created_at, revoked, revoked_at
		FROM refresh_tokens
		WHERE token_hash = ?
	`
	token := &models.RefreshToken{}
	err := sqlx.GetContext(ctx, r.db, token, query, tokenHash)
	if errors.Is(err, sql.ErrNoRows) {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get refresh token: %w", err)
	}
	return token, nil
}

// RevokeByTokenHash marks a token as revoked. Unknown hashes are ignored.
func (r *sqliteTokenRepo) RevokeByTokenHash(ctx context.Context, tokenHash string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked = 1, revoked_at = ? WHERE token_hash = ? AND revoked = 0",
		time.Now().UTC(), tokenHash,
	)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeAllForUser revokes every live token of a user.
func (r *sqliteTokenRepo) RevokeAllForUser(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked = 1, revoked_at = ? WHERE user_id = ? AND revoked = 0",
		time.Now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	return nil
}

// DeleteExpired removes expired and revoked tokens.
func (r *sqliteTokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE expires_at < ? OR revoked = 1",
		time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	return res.RowsAffected()
}
