// Package storage provides database storage interfaces and implementations.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/good-yellow-bee/taskboard/internal/models"
)

var (
	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("storage: conflict")
	// ErrNotFound is returned by updates and deletes that matched no row.
	ErrNotFound = errors.New("storage: not found")
)

// ConflictError reports which uniqueness constraint a write violated.
type ConflictError struct {
	Op         string
	Constraint string // table.column as reported by SQLite, e.g. users.email
}

func (e *ConflictError) Error() string {
	if e.Constraint == "" {
		return fmt.Sprintf("%s: %v", e.Op, ErrConflict)
	}
	return fmt.Sprintf("%s: %v on %s", e.Op, ErrConflict, e.Constraint)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// ConflictOn reports whether err is a uniqueness violation of constraint.
func ConflictOn(err error, constraint string) bool {
	var ce *ConflictError
	return errors.As(err, &ce) && ce.Constraint == constraint
}

// Session exposes the repositories bound to one connection or transaction.
type Session interface {
	Users() UserRepository
	Projects() ProjectRepository
	Members() MemberRepository
	Tasks() TaskRepository
	Tokens() TokenRepository
}

// Storage is the main interface for database operations.
type Storage interface {
	Session

	// Open initializes the database connection.
	Open() error
	// Close closes the database connection.
	Close() error
	// Migrate runs database migrations.
	Migrate() error
	// DB returns the underlying handle for health checks.
	DB() *sqlx.DB
	// WithTx runs fn inside a transaction. The transaction commits when fn
	// returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(Session) error) error
}

// UserRepository defines operations for user management.
// Getters return nil, nil when no row matches.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]*models.User, error)
	ListMissingEmail(ctx context.Context) ([]*models.User, error)
}

// ProjectRepository defines operations for project management.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	GetByID(ctx context.Context, id int64) (*models.Project, error)
	Update(ctx context.Context, project *models.Project) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]*models.ProjectSummary, error)
	ListForUser(ctx context.Context, userID int64) ([]*models.ProjectSummary, error)
}

// MemberRepository defines operations on project memberships.
type MemberRepository interface {
	Add(ctx context.Context, member *models.ProjectMember) error
	GetByID(ctx context.Context, projectID, memberID int64) (*models.ProjectMember, error)
	GetByProjectAndUser(ctx context.Context, projectID, userID int64) (*models.ProjectMember, error)
	ListByProject(ctx context.Context, projectID int64) ([]*models.ProjectMember, error)
	UpdateRole(ctx context.Context, projectID, memberID int64, role models.Role) error
	Delete(ctx context.Context, projectID, memberID int64) error
}

// TaskRepository defines operations on tasks.
type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, projectID, taskID int64) (*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, projectID, taskID int64) error
	List(ctx context.Context, filter models.TaskFilter) ([]*models.Task, error)
}

// TokenRepository defines operations for refresh token management.
type TokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	RevokeByTokenHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID int64) error
	DeleteExpired(ctx context.Context) (int64, error)
}
