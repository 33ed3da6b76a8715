package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	path string
	db   *sqlx.DB

	*session
}

// NewSQLiteStorage creates a new SQLite storage.
func NewSQLiteStorage(path string) *SQLiteStorage {
	return &SQLiteStorage{path: path}
}

// Open initializes the database connection.
func (s *SQLiteStorage) Open() error {
	ctx := context.Background()

	if s.path == "" {
		return fmt.Errorf("database path is required")
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
		s.path,
	)

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	s.db = db
	s.session = newSession(db)
	return nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying database connection for health checks.
func (s *SQLiteStorage) DB() *sqlx.DB {
	return s.db
}

// Migrate runs database migrations.
func (s *SQLiteStorage) Migrate() error {
	return runMigrations(s.db)
}

// WithTx runs fn inside a single transaction.
// The pool holds one connection, so fn must only use the session it is given.
func (s *SQLiteStorage) WithTx(ctx context.Context, fn func(Session) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(newSession(tx)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// session binds repositories to a *sqlx.DB or *sqlx.Tx.
type session struct {
	users    *sqliteUserRepo
	projects *sqliteProjectRepo
	members  *sqliteMemberRepo
	tasks    *sqliteTaskRepo
	tokens   *sqliteTokenRepo
}

func newSession(ext sqlx.ExtContext) *session {
	return &session{
		users:    &sqliteUserRepo{db: ext},
		projects: &sqliteProjectRepo{db: ext},
		members:  &sqliteMemberRepo{db: ext},
		tasks:    &sqliteTaskRepo{db: ext},
		tokens:   &sqliteTokenRepo{db: ext},
	}
}

// Users returns the user repository.
func (s *session) Users() UserRepository { return s.users }

// Projects returns the project repository.
func (s *session) Projects() ProjectRepository { return s.projects }

// Members returns the membership repository.
func (s *session) Members() MemberRepository { return s.members }

// Tasks returns the task repository.
func (s *session) Tasks() TaskRepository { return s.tasks }

// Tokens returns the token repository.
func (s *session) Tokens() TokenRepository { return s.tokens }

// mapWriteError converts unique-constraint failures to a ConflictError.
func mapWriteError(op string, err error) error {
	if isUniqueViolation(err) {
		return &ConflictError{Op: op, Constraint: uniqueConstraint(err)}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// uniqueConstraint extracts the columns from "UNIQUE constraint failed: users.email".
func uniqueConstraint(err error) string {
	const marker = "UNIQUE constraint failed: "
	msg := err.Error()
	i := strings.Index(msg, marker)
	if i < 0 {
		return ""
	}
	cols := msg[i+len(marker):]
	if j := strings.Index(cols, " ("); j >= 0 {
		cols = cols[:j]
	}
	return strings.TrimSpace(cols)
}

func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		switch serr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// expectOne turns a zero-row update or delete into ErrNotFound.
func expectOne(res interface{ RowsAffected() (int64, error) }, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
