package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/good-yellow-bee/taskboard/internal/api/auth"
	"github.com/good-yellow-bee/taskboard/internal/models"
	"github.com/good-yellow-bee/taskboard/internal/storage"
)

const testPassword = "Passw0rd1"

func TestMain(m *testing.M) {
	auth.SetHashCost(bcrypt.MinCost)
	os.Exit(m.Run())
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *storage.SQLiteStorage
	svc   *Services
}

func newFixture(t *testing.T, requireMembership bool) *fixture {
	t.Helper()

	store := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, store.Open())
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate())

	svc := New(store, Options{
		JWT:                   auth.NewJWTService([]byte("test-secret-key-32-bytes-long!!"), 15*time.Minute),
		Tokens:                auth.NewTokenService(time.Hour),
		Lockout:               auth.NewLockoutTracker(3, time.Minute),
		RequireTaskMembership: requireMembership,
	})

	return &fixture{t: t, ctx: context.Background(), store: store, svc: svc}
}

func (f *fixture) user(username string) *models.User {
	f.t.Helper()
	u, err := f.svc.Users.Register(f.ctx, RegisterInput{Username: username, Password: testPassword})
	require.NoError(f.t, err)
	return u
}

func (f *fixture) project(owner *models.User, name string) *models.Project {
	f.t.Helper()
	p, err := f.svc.Projects.Create(f.ctx, owner.ID, name, "")
	require.NoError(f.t, err)
	return p
}

func (f *fixture) member(p *models.Project, u *models.User) *models.ProjectMember {
	f.t.Helper()
	m, err := f.svc.Members.Add(f.ctx, p.ID, u.ID, "member", p.OwnerID)
	require.NoError(f.t, err)
	return m
}

// requireKind asserts that err wraps kind.
func requireKind(t *testing.T, err, kind error) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, errors.Is(err, kind), "error %v is not %v", err, kind)
}
