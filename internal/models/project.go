package models

import (
	"time"
)

// Role represents a member's role inside a project.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// IsValid reports whether r is a known project role.
func (r Role) IsValid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

// Project is a named container of tasks owned by exactly one user.
type Project struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
	OwnerID     int64     `db:"owner_id" json:"owner_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// NewProject creates a new Project with initialized timestamps.
func NewProject(ownerID int64, name, description string) *Project {
	now := time.Now().UTC()
	return &Project{
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsOwner reports whether userID owns the project.
func (p *Project) IsOwner(userID int64) bool {
	return userID != 0 && p.OwnerID == userID
}

// ProjectPatch lists the project fields that may change on update.
type ProjectPatch struct {
	Name        *string
	Description *string
}

// ProjectSummary is a project row as shown in listings.
// MemberCount counts project_members rows; the owner is never one of them.
type ProjectSummary struct {
	Project
	OwnerName   string `db:"owner_name" json:"owner_name"`
	MemberCount int    `db:"member_count" json:"member_count"`
	TaskCount   int    `db:"task_count" json:"task_count"`
}

// ProjectDetail is a project with its owner, members and tasks.
type ProjectDetail struct {
	Project
	OwnerName string           `json:"owner_name"`
	Members   []*ProjectMember `json:"members"`
	Tasks     []*Task          `json:"tasks"`
}

// ProjectMember represents a user's membership in a project.
// Username and Name are filled from the users table on reads.
type ProjectMember struct {
	ID        int64     `db:"id" json:"id"`
	ProjectID int64     `db:"project_id" json:"project_id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Role      Role      `db:"role" json:"role"`
	JoinedAt  time.Time `db:"joined_at" json:"joined_at"`
	Username  string    `db:"username" json:"username"`
	Name      string    `db:"name" json:"name"`
}

// NewProjectMember creates a membership joined now.
func NewProjectMember(projectID, userID int64, role Role) *ProjectMember {
	return &ProjectMember{
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
		JoinedAt:  time.Now().UTC(),
	}
}
