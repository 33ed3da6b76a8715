package service

import (
	"context"
	"strings"
	"time"

	"github.com/good-yellow-bee/taskboard/internal/models"
	"github.com/good-yellow-bee/taskboard/internal/storage"
)

// ProjectService manages projects.
type ProjectService struct {
	base
}

// Create creates a project owned by ownerID. The owner gets no membership row.
func (s *ProjectService) Create(ctx context.Context, ownerID int64, name, description string) (*models.Project, error) {
	name = strings.TrimSpace(name)
	if err := validateText("name", name, true, maxNameLength); err != nil {
		return nil, err
	}
	if err := validateText("description", description, false, maxDescriptionLength); err != nil {
		return nil, err
	}

	project := models.NewProject(ownerID, name, description)
	err := s.tx(ctx, "project_create", func(sess storage.Session) error {
		owner, err := sess.Users().GetByID(ctx, ownerID)
		if err != nil {
			return err
		}
		if owner == nil {
			return newError(ErrUnauthenticated, msgCredentials)
		}
		return sess.Projects().Create(ctx, project)
	})
	if err != nil {
		return nil, err
	}

	changed("project", "create")
	return project, nil
}

// ListForUser returns the projects userID owns or is a member of, each once.
func (s *ProjectService) ListForUser(ctx context.Context, userID int64) ([]*models.ProjectSummary, error) {
	var projects []*models.ProjectSummary
	err := s.tx(ctx, "project_list", func(sess storage.Session) error {
		var err error
		projects, err = sess.Projects().ListForUser(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return projects, nil
}

// ListAll returns every project. Used by the admin CLI.
func (s *ProjectService) ListAll(ctx context.Context) ([]*models.ProjectSummary, error) {
	var projects []*models.ProjectSummary
	err := s.tx(ctx, "project_list_all", func(sess storage.Session) error {
		var err error
		projects, err = sess.Projects().List(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return projects, nil
}

// Get returns the project with its members and tasks. The caller must be
// the owner or a member.
func (s *ProjectService) Get(ctx context.Context, id, callerID int64) (*models.ProjectDetail, error) {
	var detail *models.ProjectDetail
	err := s.tx(ctx, "project_get", func(sess storage.Session) error {
		project, err := loadAccessibleProject(ctx, sess, id, callerID)
		if err != nil {
			return err
		}
		detail, err = loadDetail(ctx, sess, project)
		return err
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

// Inspect returns project detail without an access check. Used by the admin CLI.
func (s *ProjectService) Inspect(ctx context.Context, id int64) (*models.ProjectDetail, error) {
	var detail *models.ProjectDetail
	err := s.tx(ctx, "project_inspect", func(sess storage.Session) error {
		project, err := loadProject(ctx, sess, id)
		if err != nil {
			return err
		}
		detail, err = loadDetail(ctx, sess, project)
		return err
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

func loadDetail(ctx context.Context, sess storage.Session, project *models.Project) (*models.ProjectDetail, error) {
	owner, err := sess.Users().GetByID(ctx, project.OwnerID)
	if err != nil {
		return nil, err
	}
	members, err := sess.Members().ListByProject(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	tasks, err := sess.Tasks().List(ctx, models.TaskFilter{ProjectID: project.ID})
	if err != nil {
		return nil, err
	}

	detail := &models.ProjectDetail{
		Project: *project,
		Members: members,
		Tasks:   tasks,
	}
	if owner != nil {
		detail.OwnerName = owner.DisplayName()
	}
	if detail.Members == nil {
		detail.Members = []*models.ProjectMember{}
	}
	if detail.Tasks == nil {
		detail.Tasks = []*models.Task{}
	}
	return detail, nil
}

// Update applies patch. Only the owner may update a project.
func (s *ProjectService) Update(ctx context.Context, id int64, patch models.ProjectPatch, callerID int64) (*models.Project, error) {
	if patch.Name != nil {
		v := strings.TrimSpace(*patch.Name)
		if err := validateText("name", v, true, maxNameLength); err != nil {
			return nil, err
		}
		patch.Name = &v
	}
	if patch.Description != nil {
		if err := validateText("description", *patch.Description, false, maxDescriptionLength); err != nil {
			return nil, err
		}
	}

	var project *models.Project
	err := s.tx(ctx, "project_update", func(sess storage.Session) error {
		var err error
		project, err = loadOwnedProject(ctx, sess, id, callerID, "Not authorized to update this project")
		if err != nil {
			return err
		}
		if patch.Name != nil {
			project.Name = *patch.Name
		}
		if patch.Description != nil {
			project.Description = *patch.Description
		}
		project.UpdatedAt = time.Now().UTC()
		return sess.Projects().Update(ctx, project)
	})
	if err != nil {
		return nil, err
	}

	changed("project", "update")
	return project, nil
}

// Delete removes the project with its members and tasks. Owner only.
func (s *ProjectService) Delete(ctx context.Context, id, callerID int64) error {
	err := s.tx(ctx, "project_delete", func(sess storage.Session) error {
		if _, err := loadOwnedProject(ctx, sess, id, callerID, "Not authorized to delete this project"); err != nil {
			return err
		}
		return sess.Projects().Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	changed("project", "delete")
	return nil
}

// ForceDelete removes a project without an ownership check. Used by the
// admin CLI.
func (s *ProjectService) ForceDelete(ctx context.Context, id int64) error {
	err := s.tx(ctx, "project_force_delete", func(sess storage.Session) error {
		if _, err := loadProject(ctx, sess, id); err != nil {
			return err
		}
		return sess.Projects().Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	changed("project", "delete")
	return nil
}
