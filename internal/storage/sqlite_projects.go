package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/good-yellow-bee/taskboard/internal/models"
)

type sqliteProjectRepo struct {
	db sqlx.ExtContext
}

// summarySelect yields one row per project. Membership is tested with
// EXISTS so a project is never repeated for a user.
const summarySelect = `
	SELECT p.id, p.name, p.description, p.owner_id, p.created_at, p.updated_at,
		COALESCE(NULLIF(u.name, ''), u.username) AS owner_name,
		(SELECT COUNT(*) FROM project_members pm WHERE pm.project_id = p.id) AS member_count,
		(SELECT COUNT(*) FROM tasks t WHERE t.project_id = p.id) AS task_count
	FROM projects p
	JOIN users u ON u.id = p.owner_id
`

func (r *sqliteProjectRepo) Create(ctx context.Context, project *models.Project) error {
	query := `
		INSERT INTO projects (name, description, owner_id, created_at, updated_at)
		VALUES (:name, :description, :owner_id, :created_at, :updated_at)
	`
	res, err := sqlx.NamedExecContext(ctx, r.db, query, project)
	if err != nil {
		return mapWriteError("insert project", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert project id: %w", err)
	}
	project.ID = id
	return nil
}

func (r *sqliteProjectRepo) GetByID(ctx context.Context, id int64) (*models.Project, error) {
	project := &models.Project{}
	query := `
		SELECT id, name, description, owner_id, created_at, updated_at
		FROM projects WHERE id = ?
	`
	err := sqlx.GetContext(ctx, r.db, project, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project by id: %w", err)
	}
	return project, nil
}

func (r *sqliteProjectRepo) Update(ctx context.Context, project *models.Project) error {
	query := `
		UPDATE projects SET name = :name, description = :description, updated_at = :updated_at
		WHERE id = :id
	`
	res, err := sqlx.NamedExecContext(ctx, r.db, query, project)
	if err != nil {
		return mapWriteError("update project", err)
	}
	return expectOne(res, "update project")
}

// Delete removes the project; members and tasks cascade.
func (r *sqliteProjectRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return expectOne(res, "delete project")
}

func (r *sqliteProjectRepo) List(ctx context.Context) ([]*models.ProjectSummary, error) {
	var projects []*models.ProjectSummary
	if err := sqlx.SelectContext(ctx, r.db, &projects, summarySelect+" ORDER BY p.id"); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// ListForUser returns projects owned by userID or having userID as a member.
func (r *sqliteProjectRepo) ListForUser(ctx context.Context, userID int64) ([]*models.ProjectSummary, error) {
	query := summarySelect + `
		WHERE p.owner_id = ?
			OR EXISTS (SELECT 1 FROM project_members m WHERE m.project_id = p.id AND m.user_id = ?)
		ORDER BY p.id
	`
	var projects []*models.ProjectSummary
	if err := sqlx.SelectContext(ctx, r.db, &projects, query, userID, userID); err != nil {
		return nil, fmt.Errorf("list projects for user: %w", err)
	}
	return projects, nil
}
