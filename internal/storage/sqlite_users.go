package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/good-yellow-bee/taskboard/internal/models"
)

const userColumns = `id, username, name, email, password_hash, created_at, updated_at`

type sqliteUserRepo struct {
	db sqlx.ExtContext
}

func (r *sqliteUserRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (username, name, email, password_hash, created_at, updated_at)
		VALUES (:username, :name, :email, :password_hash, :created_at, :updated_at)
	`
	res, err := sqlx.NamedExecContext(ctx, r.db, query, user)
	if err != nil {
		return mapWriteError("insert user", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert user id: %w", err)
	}
	user.ID = id
	return nil
}

func (r *sqliteUserRepo) get(ctx context.Context, what, where string, arg any) (*models.User, error) {
	user := &models.User{}
	err := sqlx.GetContext(ctx, r.db, user, "SELECT "+userColumns+" FROM users WHERE "+where, arg)
	if errors.Is(err, sql.ErrNoRows) {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by %s: %w", what, err)
	}
	return user, nil
}

func (r *sqliteUserRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.get(ctx, "id", "id = ?", id)
}

func (r *sqliteUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.get(ctx, "username", "username = ?", username)
}

func (r *sqliteUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.get(ctx, "email", "email = ?", email)
}

func (r *sqliteUserRepo) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users SET username = :username, name = :name, email = :email,
			password_hash = :password_hash, updated_at = :updated_at
		WHERE id = :id
	`
	res, err := sqlx.NamedExecContext(ctx, r.db, query, user)
	if err != nil {
		return mapWriteError("update user", err)
	}
	return expectOne(res, "update user")
}

// Delete removes the user. Owned projects, memberships and tokens cascade;
// tasks assigned to the user are unassigned.
func (r *sqliteUserRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return expectOne(res, "delete user")
}

func (r *sqliteUserRepo) List(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	if err := sqlx.SelectContext(ctx, r.db, &users, "SELECT "+userColumns+" FROM users ORDER BY id"); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (r *sqliteUserRepo) ListMissingEmail(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	query := "SELECT " + userColumns + " FROM users WHERE email IS NULL OR email = '' ORDER BY id"
	if err := sqlx.SelectContext(ctx, r.db, &users, query); err != nil {
		return nil, fmt.Errorf("list users missing email: %w", err)
	}
	return users, nil
}
