package auth

import (
	"errors"
	"strings"
	"sync/atomic"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

var hashCost atomic.Int64

func init() {
	hashCost.Store(int64(bcrypt.DefaultCost))
}

// SetHashCost changes the bcrypt cost used by HashPassword.
// Tests lower it to bcrypt.MinCost.
func SetHashCost(cost int) {
	hashCost.Store(int64(cost))
}

// HashPassword returns a salted bcrypt hash of plain.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), int(hashCost.Load()))
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether plain matches hash.
func VerifyPassword(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// PasswordValidationError contains details about password validation failure.
type PasswordValidationError struct {
	Messages []string
}

func (e *PasswordValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

// MaxPasswordBytes is the longest password bcrypt can hash.
const MaxPasswordBytes = 72

// ValidatePassword checks a password against the policy. Every password must
// be non-empty and fit in MaxPasswordBytes. strict additionally requires at
// least MinPasswordLength characters with an upper-case letter, a lower-case
// letter and a digit.
func ValidatePassword(password string, strict bool) error {
	var messages []string

	if password == "" {
		messages = append(messages, "password is required")
	}
	if len(password) > MaxPasswordBytes {
		messages = append(messages, "password must be at most 72 bytes")
	}
	if !strict {
		if len(messages) > 0 {
			return &PasswordValidationError{Messages: messages}
		}
		return nil
	}

	if password != "" && len([]rune(password)) < MinPasswordLength {
		messages = append(messages, "password must be at least 8 characters")
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if !hasUpper {
		messages = append(messages, "password must contain at least 1 uppercase letter")
	}
	if !hasLower {
		messages = append(messages, "password must contain at least 1 lowercase letter")
	}
	if !hasDigit {
		messages = append(messages, "password must contain at least 1 digit")
	}

	if len(messages) > 0 {
		return &PasswordValidationError{Messages: messages}
	}
	return nil
}

// ValidatePasswordOrError returns the first policy violation, suitable for
// API responses.
func ValidatePasswordOrError(password string, strict bool) error {
	if err := ValidatePassword(password, strict); err != nil {
		var validErr *PasswordValidationError
		if errors.As(err, &validErr) {
			return errors.New(validErr.Messages[0])
		}
		return err
	}
	return nil
}
