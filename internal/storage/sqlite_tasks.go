package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/good-yellow-bee/taskboard/internal/models"
)

const taskColumns = `id, project_id, title, description, status, assignee_id, created_at, updated_at`

type sqliteTaskRepo struct {
	db sqlx.ExtContext
}

func (r *sqliteTaskRepo) Create(ctx context.Context, task *models.Task) error {
	query := `
		INSERT INTO tasks (project_id, title, description, status, assignee_id, created_at, updated_at)
		VALUES (:project_id, :title, :description, :status, :assignee_id, :created_at, :updated_at)
	`
	res, err := sqlx.NamedExecContext(ctx, r.db, query, task)
	if err != nil {
		return mapWriteError("insert task", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert task id: %w", err)
	}
	task.ID = id
	return nil
}

// GetByID returns nil, nil when the task is absent or lives in another project.
func (r *sqliteTaskRepo) GetByID(ctx context.Context, projectID, taskID int64) (*models.Task, error) {
	task := &models.Task{}
	query := "SELECT " + taskColumns + " FROM tasks WHERE project_id = ? AND id = ?"
	err := sqlx.GetContext(ctx, r.db, task, query, projectID, taskID)
	if errors.Is(err, sql.ErrNoRows) {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task by id: %w", err)
	}
	return task, nil
}

func (r *sqliteTaskRepo) Update(ctx context.Context, task *models.Task) error {
	query := `
		UPDATE tasks SET title = :title, description = :description, status = :status,
			assignee_id = :assignee_id, updated_at = :updated_at
		WHERE project_id = :project_id AND id = :id
	`
	res, err := sqlx.NamedExecContext(ctx, r.db, query, task)
	if err != nil {
		return mapWriteError("update task", err)
	}
	return expectOne(res, "update task")
}

func (r *sqliteTaskRepo) Delete(ctx context.Context, projectID, taskID int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM tasks WHERE project_id = ? AND id = ?", projectID, taskID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return expectOne(res, "delete task")
}

// List returns tasks matching every non-zero field of filter.
func (r *sqliteTaskRepo) List(ctx context.Context, filter models.TaskFilter) ([]*models.Task, error) {
	var (
		where []string
		args  []any
	)
	if filter.ProjectID != 0 {
		where = append(where, "project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.AssigneeID != 0 {
		where = append(where, "assignee_id = ?")
		args = append(args, filter.AssigneeID)
	}
	if filter.VisibleTo != 0 {
		where = append(where, `project_id IN (
			SELECT id FROM projects WHERE owner_id = ?
			UNION SELECT project_id FROM project_members WHERE user_id = ?)`)
		args = append(args, filter.VisibleTo, filter.VisibleTo)
	}

	query := "SELECT " + taskColumns + " FROM tasks"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	var tasks []*models.Task
	if err := sqlx.SelectContext(ctx, r.db, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}
