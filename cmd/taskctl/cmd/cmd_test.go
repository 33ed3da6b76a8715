package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/good-yellow-bee/taskboard/internal/api/auth"
	"github.com/good-yellow-bee/taskboard/internal/models"
	"github.com/good-yellow-bee/taskboard/internal/service"
	"github.com/good-yellow-bee/taskboard/internal/storage"
)

const testPassword = "Passw0rd1"

func TestMain(m *testing.M) {
	auth.SetHashCost(bcrypt.MinCost)
	os.Exit(m.Run())
}

// setupTestDB creates a migrated database file and returns its path.
func setupTestDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")

	store := storage.NewSQLiteStorage(path)
	if err := store.Open(); err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	store.Close()
	return path
}

func openTestServices(t *testing.T, path string) *service.Services {
	t.Helper()
	svc, closeDB, err := openServices(path)
	if err != nil {
		t.Fatalf("open services: %v", err)
	}
	t.Cleanup(closeDB)
	return svc
}

func register(t *testing.T, svc *service.Services, username string) *models.User {
	t.Helper()
	u, err := svc.Users.Register(context.Background(), service.RegisterInput{Username: username, Password: testPassword})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return u
}

// run executes the root command with args against the database at path.
func run(t *testing.T, path string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--db", path}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestOpenServices_MissingFile(t *testing.T) {
	_, _, err := openServices(filepath.Join(t.TempDir(), "missing.db"))
	if err == nil || !strings.Contains(err.Error(), "database file not found") {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestCreateAndListUsers(t *testing.T) {
	path := setupTestDB(t)
	svc := openTestServices(t, path)
	ctx := context.Background()

	email := "alice@example.com"
	var buf bytes.Buffer
	err := createUser(ctx, &buf, svc, service.RegisterInput{
		Username: "alice",
		Name:     "Alice",
		Password: testPassword,
		Email:    &email,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if !strings.Contains(buf.String(), "User created successfully") {
		t.Errorf("output = %q", buf.String())
	}

	err = createUser(ctx, &buf, svc, service.RegisterInput{Username: "alice", Password: testPassword})
	if err == nil || !strings.Contains(err.Error(), "Username already exists") {
		t.Errorf("duplicate err = %v", err)
	}

	buf.Reset()
	if err := listUsers(ctx, &buf, svc); err != nil {
		t.Fatalf("list users: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "alice@example.com") || !strings.Contains(out, "Total: 1 user(s)") {
		t.Errorf("list output = %q", out)
	}
	if strings.Contains(out, "$2a$") {
		t.Error("list output leaks a password hash")
	}
}

func TestSetPassword_RevokesSessions(t *testing.T) {
	path := setupTestDB(t)
	svc := openTestServices(t, path)
	ctx := context.Background()
	user := register(t, svc, "bob")

	var buf bytes.Buffer
	if err := setPassword(ctx, &buf, svc, user, "N3wPassword"); err != nil {
		t.Fatalf("set password: %v", err)
	}

	updated, err := svc.Users.Get(ctx, user.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if !auth.VerifyPassword("N3wPassword", updated.PasswordHash) {
		t.Error("new password does not verify")
	}
	if auth.VerifyPassword(testPassword, updated.PasswordHash) {
		t.Error("old password still verifies")
	}

	if err := setPassword(ctx, &buf, svc, user, ""); err == nil {
		t.Error("expected error for empty password")
	}
}

func TestProjectCommands(t *testing.T) {
	path := setupTestDB(t)
	svc := openTestServices(t, path)
	ctx := context.Background()

	alice := register(t, svc, "alice")
	bob := register(t, svc, "bob")
	project, err := svc.Projects.Create(ctx, alice.ID, "Launch", "ship v1")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if _, err := svc.Members.Add(ctx, project.ID, bob.ID, "member", alice.ID); err != nil {
		t.Fatalf("add member: %v", err)
	}
	if _, err := svc.Tasks.Create(ctx, project.ID, service.TaskInput{Title: "Write docs", AssigneeID: &bob.ID}, alice.ID); err != nil {
		t.Fatalf("create task: %v", err)
	}

	var buf bytes.Buffer
	if err := listProjects(ctx, &buf, svc); err != nil {
		t.Fatalf("list projects: %v", err)
	}
	if !strings.Contains(buf.String(), "Launch") || !strings.Contains(buf.String(), "alice") {
		t.Errorf("list output = %q", buf.String())
	}

	buf.Reset()
	if err := showProject(ctx, &buf, svc, project.ID); err != nil {
		t.Fatalf("show project: %v", err)
	}
	if !strings.Contains(buf.String(), "Write docs") || !strings.Contains(buf.String(), "Members:     1") {
		t.Errorf("show output = %q", buf.String())
	}

	buf.Reset()
	if err := listMembers(ctx, &buf, svc, project.ID); err != nil {
		t.Fatalf("list members: %v", err)
	}
	if !strings.Contains(buf.String(), "bob") {
		t.Errorf("members output = %q", buf.String())
	}

	if err := showProject(ctx, &buf, svc, 999); err == nil || !strings.Contains(err.Error(), "Project not found") {
		t.Errorf("missing project err = %v", err)
	}
}

func TestListProjects_JSON(t *testing.T) {
	path := setupTestDB(t)
	svc := openTestServices(t, path)
	ctx := context.Background()

	alice := register(t, svc, "alice")
	if _, err := svc.Projects.Create(ctx, alice.ID, "Launch", ""); err != nil {
		t.Fatalf("create project: %v", err)
	}

	output = "json"
	defer func() { output = "table" }()

	var buf bytes.Buffer
	if err := listProjects(ctx, &buf, svc); err != nil {
		t.Fatalf("list projects: %v", err)
	}

	var projects []models.ProjectSummary
	if err := json.Unmarshal(buf.Bytes(), &projects); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(projects) != 1 || projects[0].OwnerName != "alice" {
		t.Errorf("projects = %+v", projects)
	}
}

func TestExecute_BackfillAndForceDelete(t *testing.T) {
	path := setupTestDB(t)
	svc := openTestServices(t, path)
	ctx := context.Background()

	alice := register(t, svc, "Alice")
	project, err := svc.Projects.Create(ctx, alice.ID, "Launch", "")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}

	out, err := run(t, path, "user", "backfill-emails")
	if err != nil {
		t.Fatalf("backfill: %v", err)
	}
	if !strings.Contains(out, "Updated 1 user(s)") {
		t.Errorf("backfill output = %q", out)
	}
	u, err := svc.Users.Get(ctx, alice.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.EmailOrEmpty() != "alice@placeholder.local" {
		t.Errorf("email = %q", u.EmailOrEmpty())
	}

	out, err = run(t, path, "project", "delete", "--id", strconv.FormatInt(project.ID, 10), "--force")
	if err != nil {
		t.Fatalf("delete project: %v", err)
	}
	if !strings.Contains(out, "Project deleted: Launch") {
		t.Errorf("delete output = %q", out)
	}
	if _, err := svc.Projects.Inspect(ctx, project.ID); err == nil {
		t.Error("project still exists after delete")
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"y", true},
	}

	for _, tt := range tests {
		if got := confirm(strings.NewReader(tt.input), "Proceed?"); got != tt.want {
			t.Errorf("confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly-10", 10, "exactly-10"},
		{"much too long", 8, "much t.."},
		{"abc", 2, "ab"},
	}

	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestParseHosts(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a.local", []string{"a.local"}},
		{" a.local, 10.0.0.5 ,,", []string{"a.local", "10.0.0.5"}},
	}

	for _, tt := range tests {
		got := parseHosts(tt.in)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") {
			t.Errorf("parseHosts(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestExecute_Cert(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, filepath.Join(dir, "unused.db"), "cert", "--out", dir, "--name", "api", "--hosts", "tasks.internal")
	if err != nil {
		t.Fatalf("cert: %v", err)
	}
	if !strings.Contains(out, filepath.Join(dir, "api.crt")) {
		t.Errorf("output = %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "api.key")); err != nil {
		t.Errorf("key not written: %v", err)
	}
}
