package models

import (
	"strings"
	"time"
)

// User represents a registered account.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Name         string    `db:"name" json:"name"`
	Email        *string   `db:"email" json:"email,omitempty"`
	PasswordHash string    `db:"password_hash" json:"-"` // Never expose in JSON
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// NewUser creates a new User with initialized timestamps.
func NewUser(username, name string, email *string) *User {
	now := time.Now().UTC()
	return &User{
		Username:  username,
		Name:      name,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// DisplayName returns the user's name, falling back to the username.
func (u *User) DisplayName() string {
	if strings.TrimSpace(u.Name) != "" {
		return u.Name
	}
	return u.Username
}

// EmailOrEmpty returns the email address or "" when none is set.
func (u *User) EmailOrEmpty() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}

// UserPatch lists the user fields that may change on update.
// Nil fields are left untouched.
type UserPatch struct {
	Username *string
	Name     *string
	Email    *string
	Password *string
}

// IsEmpty reports whether the patch changes nothing.
func (p UserPatch) IsEmpty() bool {
	return p.Username == nil && p.Name == nil && p.Email == nil && p.Password == nil
}

// PlaceholderEmail is the address assigned to accounts created before email
// was collected.
func PlaceholderEmail(username string) string {
	return username + "@placeholder.local"
}
