package service

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/good-yellow-bee/taskboard/internal/api/auth"
	"github.com/good-yellow-bee/taskboard/internal/models"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

const (
	maxUsernameLength    = 64
	maxNameLength        = 100
	maxDescriptionLength = 2000
	maxTitleLength       = 200
)

// ValidateUsername requires a non-empty username of at most
// maxUsernameLength characters.
func ValidateUsername(username string) error {
	if username == "" {
		return newError(ErrValidation, "username is required")
	}
	if utf8.RuneCountInString(username) > maxUsernameLength {
		return newError(ErrValidation, "username must be at most %d characters", maxUsernameLength)
	}
	return nil
}

// validatePassword applies the basic or, when strict, the complexity policy.
func validatePassword(password string, strict bool) error {
	if err := auth.ValidatePasswordOrError(password, strict); err != nil {
		return newError(ErrValidation, "%s", err.Error())
	}
	return nil
}

// NormalizeEmail trims, lower-cases and validates an optional email.
// A nil or blank address yields nil.
func NormalizeEmail(email *string) (*string, error) {
	if email == nil {
		return nil, nil
	}
	trimmed := strings.ToLower(strings.TrimSpace(*email))
	if trimmed == "" {
		return nil, nil
	}
	if len(trimmed) > 255 {
		return nil, newError(ErrValidation, "email must be at most 255 characters")
	}
	if !emailRegex.MatchString(trimmed) {
		return nil, newError(ErrValidation, "invalid email format")
	}
	return &trimmed, nil
}

// ValidateRole parses a membership role. An empty role means member.
func ValidateRole(role string) (models.Role, error) {
	r := models.Role(strings.TrimSpace(strings.ToLower(role)))
	if r == "" {
		return models.RoleMember, nil
	}
	if !r.IsValid() {
		return "", newError(ErrValidation, "role must be one of: owner, admin, member")
	}
	return r, nil
}

// ValidateStatus parses a task status label.
func ValidateStatus(status string) (models.TaskStatus, error) {
	s, ok := models.ParseTaskStatus(status)
	if !ok {
		return "", newError(ErrValidation, "status must be one of: To Do, In Progress, Done")
	}
	return s, nil
}

func validateText(field, value string, required bool, limit int) error {
	if required && strings.TrimSpace(value) == "" {
		return newError(ErrValidation, "%s is required", field)
	}
	if utf8.RuneCountInString(value) > limit {
		return newError(ErrValidation, "%s must be %d characters or less", field, limit)
	}
	return nil
}
