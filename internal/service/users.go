package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/good-yellow-bee/taskboard/internal/api/auth"
	"github.com/good-yellow-bee/taskboard/internal/metrics"
	"github.com/good-yellow-bee/taskboard/internal/models"
	"github.com/good-yellow-bee/taskboard/internal/storage"
)

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	UserID       int64  `json:"user_id"`
	Username     string `json:"username"`
}

// RegisterInput holds the fields of a new account.
type RegisterInput struct {
	Username string
	Name     string
	Password string
	Email    *string
}

// UserService manages accounts and credentials.
type UserService struct {
	base
	jwt     *auth.JWTService
	tokens  *auth.TokenService
	lockout *auth.LockoutTracker
	strict  bool
}

// CheckPassword applies the configured password policy.
func (s *UserService) CheckPassword(password string) error {
	return validatePassword(password, s.strict)
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// equalizeTiming spends one bcrypt comparison so a login for an unknown
// username costs the same as a wrong password.
func equalizeTiming(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = auth.HashPassword("timing-equalizer-Pw1")
	})
	auth.VerifyPassword(password, dummyHash)
}

// Register creates an account.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Name = strings.TrimSpace(in.Name)

	if err := ValidateUsername(in.Username); err != nil {
		return nil, err
	}
	if err := validateText("name", in.Name, false, maxNameLength); err != nil {
		return nil, err
	}
	if err := s.CheckPassword(in.Password); err != nil {
		return nil, err
	}
	email, err := NormalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.NewUser(in.Username, in.Name, email)
	user.PasswordHash = hash

	err = s.tx(ctx, "user_register", func(sess storage.Session) error {
		if err := ensureUnique(ctx, sess, user, 0); err != nil {
			return err
		}
		if err := sess.Users().Create(ctx, user); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				return userConflict(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	changed("user", "create")
	return user, nil
}

// userConflict names the unique column a user write collided on.
func userConflict(err error) error {
	if storage.ConflictOn(err, "users.email") {
		return newError(ErrDuplicateEmail, msgEmailExists)
	}
	return newError(ErrDuplicateUsername, msgUsernameExists)
}

// ensureUnique checks username and email against every user except selfID.
func ensureUnique(ctx context.Context, sess storage.Session, user *models.User, selfID int64) error {
	existing, err := sess.Users().GetByUsername(ctx, user.Username)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != selfID {
		return newError(ErrDuplicateUsername, msgUsernameExists)
	}

	if user.Email == nil {
		return nil
	}
	existing, err = sess.Users().GetByEmail(ctx, *user.Email)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != selfID {
		return newError(ErrDuplicateEmail, msgEmailExists)
	}
	return nil
}

// Login verifies credentials and issues a token pair. Unknown usernames,
// wrong passwords and locked accounts all yield ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	username = strings.TrimSpace(username)
	invalid := newError(ErrInvalidCredentials, msgCredentials)

	if s.lockout != nil && s.lockout.IsLocked(username) {
		equalizeTiming(password)
		metrics.AuthAttemptsTotal.WithLabelValues("locked").Inc()
		return nil, invalid
	}

	var pair *TokenPair
	err := s.tx(ctx, "user_login", func(sess storage.Session) error {
		user, err := sess.Users().GetByUsername(ctx, username)
		if err != nil {
			return err
		}
		if user == nil {
			equalizeTiming(password)
			return invalid
		}
		if !auth.VerifyPassword(password, user.PasswordHash) {
			return invalid
		}

		pair, err = s.issue(ctx, sess, user)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			metrics.AuthAttemptsTotal.WithLabelValues("failure").Inc()
			if s.lockout != nil && s.lockout.RecordFailure(username) {
				log.Printf("login locked for user %q", username)
			}
		}
		return nil, err
	}

	if s.lockout != nil {
		s.lockout.ClearFailures(username)
	}
	metrics.AuthAttemptsTotal.WithLabelValues("success").Inc()
	return pair, nil
}

// issue creates a refresh token for user and pairs it with an access token.
func (s *UserService) issue(ctx context.Context, sess storage.Session, user *models.User) (*TokenPair, error) {
	refresh, err := s.tokens.Create(ctx, sess, user.ID)
	if err != nil {
		return nil, err
	}
	return s.pair(user, refresh)
}

func (s *UserService) pair(user *models.User, refresh string) (*TokenPair, error) {
	access, err := s.jwt.GenerateToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	metrics.AuthTokensIssued.WithLabelValues("access").Inc()
	metrics.AuthTokensIssued.WithLabelValues("refresh").Inc()

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    s.jwt.TTLSeconds(),
		UserID:       user.ID,
		Username:     user.Username,
	}, nil
}

// Refresh rotates a refresh token and issues a new pair.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var pair *TokenPair
	err := s.tx(ctx, "user_refresh", func(sess storage.Session) error {
		user, err := s.tokens.Validate(ctx, sess, refreshToken)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				return newError(ErrInvalidToken, "Invalid or expired refresh token")
			}
			return err
		}
		refresh, err := s.tokens.Rotate(ctx, sess, refreshToken, user.ID)
		if err != nil {
			return err
		}
		pair, err = s.pair(user, refresh)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout revokes a refresh token. Unknown tokens are accepted silently.
func (s *UserService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return newError(ErrValidation, "refresh_token is required")
	}
	return s.tx(ctx, "user_logout", func(sess storage.Session) error {
		return s.tokens.Revoke(ctx, sess, refreshToken)
	})
}

// Current returns the authenticated caller. A token for a deleted account
// yields ErrUnauthenticated.
func (s *UserService) Current(ctx context.Context, callerID int64) (*models.User, error) {
	var user *models.User
	err := s.tx(ctx, "user_current", func(sess storage.Session) error {
		var err error
		user, err = sess.Users().GetByID(ctx, callerID)
		if err != nil {
			return err
		}
		if user == nil {
			return newError(ErrUnauthenticated, msgCredentials)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Get returns a user by id.
func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	var user *models.User
	err := s.tx(ctx, "user_get", func(sess storage.Session) error {
		var err error
		user, err = sess.Users().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if user == nil {
			return newError(ErrNotFound, msgUserNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetByUsername returns a user by username.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user *models.User
	err := s.tx(ctx, "user_get", func(sess storage.Session) error {
		var err error
		user, err = sess.Users().GetByUsername(ctx, username)
		if err != nil {
			return err
		}
		if user == nil {
			return newError(ErrNotFound, msgUserNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// List returns all users.
func (s *UserService) List(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	err := s.tx(ctx, "user_list", func(sess storage.Session) error {
		var err error
		users, err = sess.Users().List(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// Update applies patch to user id. Only the user may update themselves.
// A password change revokes every refresh token of the user. An empty patch
// returns the user unchanged.
func (s *UserService) Update(ctx context.Context, id int64, patch models.UserPatch, callerID int64) (*models.User, error) {
	if callerID != id {
		return nil, newError(ErrForbidden, "Not authorized to update this user")
	}
	if patch.IsEmpty() {
		return s.Get(ctx, id)
	}

	var hash string
	if patch.Username != nil {
		v := strings.TrimSpace(*patch.Username)
		if err := ValidateUsername(v); err != nil {
			return nil, err
		}
		patch.Username = &v
	}
	if patch.Name != nil {
		v := strings.TrimSpace(*patch.Name)
		if err := validateText("name", v, false, maxNameLength); err != nil {
			return nil, err
		}
		patch.Name = &v
	}
	if patch.Email != nil {
		email, err := NormalizeEmail(patch.Email)
		if err != nil {
			return nil, err
		}
		if email == nil {
			return nil, newError(ErrValidation, "email cannot be empty")
		}
		patch.Email = email
	}
	if patch.Password != nil {
		if err := s.CheckPassword(*patch.Password); err != nil {
			return nil, err
		}
		h, err := auth.HashPassword(*patch.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		hash = h
	}

	var user *models.User
	err := s.tx(ctx, "user_update", func(sess storage.Session) error {
		var err error
		user, err = sess.Users().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if user == nil {
			return newError(ErrNotFound, msgUserNotFound)
		}

		if patch.Username != nil {
			user.Username = *patch.Username
		}
		if patch.Name != nil {
			user.Name = *patch.Name
		}
		if patch.Email != nil {
			user.Email = patch.Email
		}
		if hash != "" {
			user.PasswordHash = hash
		}
		user.UpdatedAt = time.Now().UTC()

		if patch.Username != nil || patch.Email != nil {
			if err := ensureUnique(ctx, sess, user, user.ID); err != nil {
				return err
			}
		}
		if err := sess.Users().Update(ctx, user); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				return userConflict(err)
			}
			return err
		}
		if hash != "" {
			return s.tokens.RevokeAll(ctx, sess, user.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	changed("user", "update")
	return user, nil
}

// Delete removes user id. Only the user may delete themselves. Owned
// projects are deleted and assigned tasks are unassigned.
func (s *UserService) Delete(ctx context.Context, id, callerID int64) error {
	if callerID != id {
		return newError(ErrForbidden, "Not authorized to delete this user")
	}

	err := s.tx(ctx, "user_delete", func(sess storage.Session) error {
		user, err := sess.Users().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if user == nil {
			return newError(ErrNotFound, msgUserNotFound)
		}
		return sess.Users().Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	changed("user", "delete")
	return nil
}

// BackfillEmails assigns <username>@placeholder.local to users without an
// email and returns how many were updated.
func (s *UserService) BackfillEmails(ctx context.Context) (int, error) {
	var n int
	err := s.tx(ctx, "user_backfill_emails", func(sess storage.Session) error {
		users, err := sess.Users().ListMissingEmail(ctx)
		if err != nil {
			return err
		}
		for _, u := range users {
			email := models.PlaceholderEmail(strings.ToLower(u.Username))
			u.Email = &email
			u.UpdatedAt = time.Now().UTC()
			if err := sess.Users().Update(ctx, u); err != nil {
				if errors.Is(err, storage.ErrConflict) {
					return newError(ErrDuplicateEmail, "placeholder email %s is already taken", email)
				}
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// CleanupTokens deletes expired and revoked refresh tokens.
func (s *UserService) CleanupTokens(ctx context.Context) (int64, error) {
	var n int64
	err := s.tx(ctx, "token_cleanup", func(sess storage.Session) error {
		var err error
		n, err = sess.Tokens().DeleteExpired(ctx)
		return err
	})
	return n, err
}
