package service

import (
	"context"
	"strings"
	"time"

	"github.com/good-yellow-bee/taskboard/internal/models"
	"github.com/good-yellow-bee/taskboard/internal/storage"
)

// TaskInput holds the fields of a new task.
type TaskInput struct {
	Title       string
	Description string
	AssigneeID  *int64
	Status      string
}

// TaskService manages tasks inside projects.
type TaskService struct {
	base
	requireMembership bool
}

// RequiresMembership reports whether task operations are limited to the
// project owner and members.
func (s *TaskService) RequiresMembership() bool {
	return s.requireMembership
}

// authorize loads the project and applies the task access policy.
func (s *TaskService) authorize(ctx context.Context, sess storage.Session, projectID, callerID int64) (*models.Project, error) {
	if s.requireMembership {
		return loadAccessibleProject(ctx, sess, projectID, callerID)
	}
	return loadProject(ctx, sess, projectID)
}

// checkAssignee requires the assignee to exist and, under the membership
// policy, to be the owner or a member of the project.
func (s *TaskService) checkAssignee(ctx context.Context, sess storage.Session, project *models.Project, assigneeID int64) error {
	user, err := sess.Users().GetByID(ctx, assigneeID)
	if err != nil {
		return err
	}
	if user == nil {
		return newError(ErrNotFound, msgUserNotFound)
	}
	if !s.requireMembership {
		return nil
	}
	ok, err := hasAccess(ctx, sess, project, assigneeID)
	if err != nil {
		return err
	}
	if !ok {
		return newError(ErrValidation, "assignee must be the project owner or a member")
	}
	return nil
}

// Create adds a task to the project. Status defaults to To Do.
func (s *TaskService) Create(ctx context.Context, projectID int64, in TaskInput, callerID int64) (*models.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateText("title", in.Title, true, maxTitleLength); err != nil {
		return nil, err
	}
	if err := validateText("description", in.Description, false, maxDescriptionLength); err != nil {
		return nil, err
	}

	task := models.NewTask(projectID, in.Title, in.Description, in.AssigneeID)
	if in.Status != "" {
		status, err := ValidateStatus(in.Status)
		if err != nil {
			return nil, err
		}
		task.Status = status
	}

	err := s.tx(ctx, "task_create", func(sess storage.Session) error {
		project, err := s.authorize(ctx, sess, projectID, callerID)
		if err != nil {
			return err
		}
		if task.AssigneeID != nil {
			if err := s.checkAssignee(ctx, sess, project, *task.AssigneeID); err != nil {
				return err
			}
		}
		return sess.Tasks().Create(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	changed("task", "create")
	return task, nil
}

// List returns the project's tasks matching the optional status and
// assignee filters. callerID may be zero when membership is not required.
func (s *TaskService) List(ctx context.Context, projectID int64, status string, assigneeID int64, callerID int64) ([]*models.Task, error) {
	filter := models.TaskFilter{ProjectID: projectID, AssigneeID: assigneeID}
	if status != "" {
		st, err := ValidateStatus(status)
		if err != nil {
			return nil, err
		}
		filter.Status = st
	}

	var tasks []*models.Task
	err := s.tx(ctx, "task_list", func(sess storage.Session) error {
		if _, err := s.authorize(ctx, sess, projectID, callerID); err != nil {
			return err
		}
		var err error
		tasks, err = sess.Tasks().List(ctx, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	return tasks, nil
}

// Get returns one task of the project.
func (s *TaskService) Get(ctx context.Context, projectID, taskID, callerID int64) (*models.Task, error) {
	var task *models.Task
	err := s.tx(ctx, "task_get", func(sess storage.Session) error {
		if _, err := s.authorize(ctx, sess, projectID, callerID); err != nil {
			return err
		}
		var err error
		task, err = loadTask(ctx, sess, projectID, taskID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// Update applies patch to a task of the project. Any status may follow any other.
func (s *TaskService) Update(ctx context.Context, projectID, taskID int64, patch models.TaskPatch, callerID int64) (*models.Task, error) {
	if patch.Title != nil {
		v := strings.TrimSpace(*patch.Title)
		if err := validateText("title", v, true, maxTitleLength); err != nil {
			return nil, err
		}
		patch.Title = &v
	}
	if patch.Description != nil {
		if err := validateText("description", *patch.Description, false, maxDescriptionLength); err != nil {
			return nil, err
		}
	}

	var task *models.Task
	err := s.tx(ctx, "task_update", func(sess storage.Session) error {
		project, err := s.authorize(ctx, sess, projectID, callerID)
		if err != nil {
			return err
		}
		task, err = loadTask(ctx, sess, projectID, taskID)
		if err != nil {
			return err
		}

		if patch.Title != nil {
			task.Title = *patch.Title
		}
		if patch.Description != nil {
			task.Description = *patch.Description
		}
		if patch.Status != nil {
			task.Status = *patch.Status
		}
		switch {
		case patch.ClearAssignee:
			task.AssigneeID = nil
		case patch.AssigneeID != nil:
			if err := s.checkAssignee(ctx, sess, project, *patch.AssigneeID); err != nil {
				return err
			}
			id := *patch.AssigneeID
			task.AssigneeID = &id
		}
		task.UpdatedAt = time.Now().UTC()
		return sess.Tasks().Update(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	changed("task", "update")
	return task, nil
}

// Delete removes a task of the project.
func (s *TaskService) Delete(ctx context.Context, projectID, taskID, callerID int64) error {
	err := s.tx(ctx, "task_delete", func(sess storage.Session) error {
		if _, err := s.authorize(ctx, sess, projectID, callerID); err != nil {
			return err
		}
		if _, err := loadTask(ctx, sess, projectID, taskID); err != nil {
			return err
		}
		return sess.Tasks().Delete(ctx, projectID, taskID)
	})
	if err != nil {
		return err
	}

	changed("task", "delete")
	return nil
}

// ListAssigned returns tasks across all projects assigned to the caller.
// Under the membership policy, projects the caller has left are skipped.
func (s *TaskService) ListAssigned(ctx context.Context, callerID int64, status string) ([]*models.Task, error) {
	filter := models.TaskFilter{AssigneeID: callerID}
	if s.requireMembership {
		filter.VisibleTo = callerID
	}
	if status != "" {
		st, err := ValidateStatus(status)
		if err != nil {
			return nil, err
		}
		filter.Status = st
	}

	var tasks []*models.Task
	err := s.tx(ctx, "task_list_assigned", func(sess storage.Session) error {
		var err error
		tasks, err = sess.Tasks().List(ctx, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	return tasks, nil
}

func loadTask(ctx context.Context, sess storage.Session, projectID, taskID int64) (*models.Task, error) {
	task, err := sess.Tasks().GetByID(ctx, projectID, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, newError(ErrNotFound, msgTaskNotFound)
	}
	return task, nil
}
