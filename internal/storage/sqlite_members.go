package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/good-yellow-bee/taskboard/internal/models"
)

type sqliteMemberRepo struct {
	db sqlx.ExtContext
}

const memberSelect = `
	SELECT m.id, m.project_id, m.user_id, m.role, m.joined_at, u.username, u.name
	FROM project_members m
	JOIN users u ON u.id = m.user_id
`

// Add inserts a membership. A repeated (project, user) pair yields ErrConflict.
func (r *sqliteMemberRepo) Add(ctx context.Context, member *models.ProjectMember) error {
	query := `
		INSERT INTO project_members (project_id, user_id, role, joined_at)
		VALUES (:project_id, :user_id, :role, :joined_at)
	`
	res, err := sqlx.NamedExecContext(ctx, r.db, query, member)
	if err != nil {
		return mapWriteError("insert project member", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert project member id: %w", err)
	}
	member.ID = id
	return nil
}

func (r *sqliteMemberRepo) getOne(ctx context.Context, what, where string, args ...any) (*models.ProjectMember, error) {
	member := &models.ProjectMember{}
	err := sqlx.GetContext(ctx, r.db, member, memberSelect+" WHERE "+where, args...)
	if errors.Is(err, sql.ErrNoRows) {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project member by %s: %w", what, err)
	}
	return member, nil
}

// GetByID returns the membership only when it belongs to projectID.
func (r *sqliteMemberRepo) GetByID(ctx context.Context, projectID, memberID int64) (*models.ProjectMember, error) {
	return r.getOne(ctx, "id", "m.project_id = ? AND m.id = ?", projectID, memberID)
}

func (r *sqliteMemberRepo) GetByProjectAndUser(ctx context.Context, projectID, userID int64) (*models.ProjectMember, error) {
	return r.getOne(ctx, "user", "m.project_id = ? AND m.user_id = ?", projectID, userID)
}

func (r *sqliteMemberRepo) ListByProject(ctx context.Context, projectID int64) ([]*models.ProjectMember, error) {
	var members []*models.ProjectMember
	query := memberSelect + " WHERE m.project_id = ? ORDER BY m.id"
	if err := sqlx.SelectContext(ctx, r.db, &members, query, projectID); err != nil {
		return nil, fmt.Errorf("list project members: %w", err)
	}
	return members, nil
}

func (r *sqliteMemberRepo) UpdateRole(ctx context.Context, projectID, memberID int64, role models.Role) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE project_members SET role = ? WHERE project_id = ? AND id = ?",
		role, projectID, memberID,
	)
	if err != nil {
		return fmt.Errorf("update member role: %w", err)
	}
	return expectOne(res, "update member role")
}

func (r *sqliteMemberRepo) Delete(ctx context.Context, projectID, memberID int64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM project_members WHERE project_id = ? AND id = ?",
		projectID, memberID,
	)
	if err != nil {
		return fmt.Errorf("delete project member: %w", err)
	}
	return expectOne(res, "delete project member")
}
