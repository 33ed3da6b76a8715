// Package service implements the user, project, membership and task
// operations. Every operation runs inside one storage transaction.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/good-yellow-bee/taskboard/internal/api/auth"
	"github.com/good-yellow-bee/taskboard/internal/metrics"
	"github.com/good-yellow-bee/taskboard/internal/models"
	"github.com/good-yellow-bee/taskboard/internal/storage"
)

const backend = "sqlite"

// Options configures the services.
type Options struct {
	JWT     *auth.JWTService
	Tokens  *auth.TokenService
	Lockout *auth.LockoutTracker

	// RequireTaskMembership restricts every task operation to the project
	// owner and members. When false, task writes only need an
	// authenticated caller and task listing needs no caller at all.
	RequireTaskMembership bool

	// StrictPasswords adds the complexity rules of auth.ValidatePassword to
	// register and password change.
	StrictPasswords bool
}

// Services groups the domain services sharing one storage.
type Services struct {
	Users    *UserService
	Projects *ProjectService
	Members  *MemberService
	Tasks    *TaskService
}

// New wires the services over store.
func New(store storage.Storage, opts Options) *Services {
	b := base{store: store}
	return &Services{
		Users: &UserService{
			base:    b,
			jwt:     opts.JWT,
			tokens:  opts.Tokens,
			lockout: opts.Lockout,
			strict:  opts.StrictPasswords,
		},
		Projects: &ProjectService{base: b},
		Members:  &MemberService{base: b},
		Tasks:    &TaskService{base: b, requireMembership: opts.RequireTaskMembership},
	}
}

type base struct {
	store storage.Storage
}

// tx runs fn in a transaction and records its latency under op.
// Domain errors are not counted as storage errors.
func (b base) tx(ctx context.Context, op string, fn func(storage.Session) error) error {
	start := time.Now()
	err := b.store.WithTx(ctx, fn)
	metrics.StorageQueryDuration.WithLabelValues(op, backend).Observe(time.Since(start).Seconds())
	if err != nil {
		if IsDomainError(err) {
			if errors.Is(err, ErrForbidden) {
				metrics.AuthorizationDenied.WithLabelValues(op).Inc()
			}
		} else {
			metrics.StorageErrors.WithLabelValues(op, backend).Inc()
		}
	}
	return err
}

func changed(entity, action string) {
	metrics.EntityChangesTotal.WithLabelValues(entity, action).Inc()
}

// loadProject returns the project or a NotFound error.
func loadProject(ctx context.Context, s storage.Session, projectID int64) (*models.Project, error) {
	project, err := s.Projects().GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, newError(ErrNotFound, msgProjectNotFound)
	}
	return project, nil
}

// hasAccess reports whether userID owns project or holds a membership row.
func hasAccess(ctx context.Context, s storage.Session, project *models.Project, userID int64) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	if project.IsOwner(userID) {
		return true, nil
	}
	member, err := s.Members().GetByProjectAndUser(ctx, project.ID, userID)
	if err != nil {
		return false, err
	}
	return member != nil, nil
}

// loadAccessibleProject loads the project and requires owner or member access.
func loadAccessibleProject(ctx context.Context, s storage.Session, projectID, callerID int64) (*models.Project, error) {
	project, err := loadProject(ctx, s, projectID)
	if err != nil {
		return nil, err
	}
	ok, err := hasAccess(ctx, s, project, callerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newError(ErrForbidden, msgProjectForbidden)
	}
	return project, nil
}

// loadOwnedProject loads the project and requires the caller to own it.
func loadOwnedProject(ctx context.Context, s storage.Session, projectID, callerID int64, message string) (*models.Project, error) {
	project, err := loadProject(ctx, s, projectID)
	if err != nil {
		return nil, err
	}
	if !project.IsOwner(callerID) {
		return nil, newError(ErrForbidden, "%s", message)
	}
	return project, nil
}
