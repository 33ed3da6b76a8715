package models

import (
	"strings"
	"time"
)

// TaskStatus is the workflow state of a task.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "To Do"
	StatusInProgress TaskStatus = "In Progress"
	StatusDone       TaskStatus = "Done"
)

// ParseTaskStatus accepts the canonical labels and their snake/lower-case
// forms ("todo", "to_do", "in_progress", "done").
func ParseTaskStatus(s string) (TaskStatus, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(key)
	switch key {
	case "todo":
		return StatusTodo, true
	case "inprogress":
		return StatusInProgress, true
	case "done":
		return StatusDone, true
	}
	return "", false
}

// Task is a unit of work inside a project.
type Task struct {
	ID          int64      `db:"id" json:"id"`
	ProjectID   int64      `db:"project_id" json:"project_id"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description"`
	Status      TaskStatus `db:"status" json:"status"`
	AssigneeID  *int64     `db:"assignee_id" json:"assignee_id"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// NewTask creates a task in the To Do state.
func NewTask(projectID int64, title, description string, assigneeID *int64) *Task {
	now := time.Now().UTC()
	return &Task{
		ProjectID:   projectID,
		Title:       title,
		Description: description,
		Status:      StatusTodo,
		AssigneeID:  assigneeID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// TaskPatch lists the task fields that may change on update.
// ClearAssignee unassigns the task; it wins over AssigneeID.
type TaskPatch struct {
	Title         *string
	Description   *string
	Status        *TaskStatus
	AssigneeID    *int64
	ClearAssignee bool
}

// TaskFilter narrows task listings. Zero values match everything.
type TaskFilter struct {
	ProjectID  int64
	Status     TaskStatus
	AssigneeID int64
	// VisibleTo keeps tasks of projects this user owns or is a member of.
	VisibleTo int64
}
