package health

import (
	"context"
	"fmt"
)

// Pinger is a database handle that can be pinged. *sqlx.DB and *sql.DB
// both satisfy it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// SQLiteChecker checks SQLite database connectivity.
type SQLiteChecker struct {
	db Pinger
}

// NewSQLiteChecker creates a new SQLite health checker.
func NewSQLiteChecker(db Pinger) *SQLiteChecker {
	return &SQLiteChecker{db: db}
}

// Name returns the checker name.
func (c *SQLiteChecker) Name() string {
	return "sqlite"
}

// Check verifies the SQLite database is accessible.
func (c *SQLiteChecker) Check(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return c.db.PingContext(ctx)
}

// FuncChecker adapts a function to the Checker interface.
type FuncChecker struct {
	name  string
	check func(ctx context.Context) error
}

// NewFuncChecker creates a checker named name that runs check.
func NewFuncChecker(name string, check func(ctx context.Context) error) *FuncChecker {
	return &FuncChecker{name: name, check: check}
}

// Name returns the checker name.
func (c *FuncChecker) Name() string {
	return c.name
}

// Check runs the wrapped function.
func (c *FuncChecker) Check(ctx context.Context) error {
	return c.check(ctx)
}
