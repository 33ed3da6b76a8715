package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/taskboard/internal/models"
	"github.com/good-yellow-bee/taskboard/internal/service"
)

var (
	userUsername string
	userName     string
	userEmail    string
	userForce    bool
)

// userCmd represents the user command group
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "User management commands",
	Long: `Commands for managing taskboard accounts.

These commands operate directly on the database file.

Examples:
  # List all users
  taskctl user list

  # Create a user
  taskctl user create --username alice --name "Alice" --email alice@example.com

  # Change a user's password
  taskctl user passwd --username alice`,
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all users",
	Long: `List all users in the database.

Displays id, username, name, email and creation date for each user.
Passwords are never displayed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeDB, err := openServices(dbPath)
		if err != nil {
			return err
		}
		defer closeDB()

		return listUsers(cmd.Context(), cmd.OutOrStdout(), svc)
	},
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new user",
	Long: `Create a new user in the database.

The password is prompted interactively so it does not end up in shell
history. It must not be empty.

Example:
  taskctl user create --username bob --email bob@example.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := service.ValidateUsername(strings.TrimSpace(userUsername)); err != nil {
			return fmt.Errorf("invalid username: %s", service.Message(err))
		}

		svc, closeDB, err := openServices(dbPath)
		if err != nil {
			return err
		}
		defer closeDB()

		password, err := promptNewPassword(svc, "Enter password: ")
		if err != nil {
			return err
		}

		in := service.RegisterInput{
			Username: userUsername,
			Name:     userName,
			Password: password,
		}
		if userEmail != "" {
			in.Email = &userEmail
		}
		return createUser(cmd.Context(), cmd.OutOrStdout(), svc, in)
	},
}

var userPasswdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change a user's password",
	Long: `Change the password for an existing user.

The new password is prompted interactively. All refresh tokens of the
user are revoked, so every session has to log in again.

Example:
  taskctl user passwd --username alice`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeDB, err := openServices(dbPath)
		if err != nil {
			return err
		}
		defer closeDB()

		ctx := cmd.Context()
		user, err := svc.Users.GetByUsername(ctx, userUsername)
		if err != nil {
			return fmt.Errorf("find user: %s", service.Message(err))
		}

		password, err := promptNewPassword(svc, "Enter new password: ")
		if err != nil {
			return err
		}
		return setPassword(ctx, cmd.OutOrStdout(), svc, user, password)
	},
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a user",
	Long: `Delete a user. Projects owned by the user are deleted with their
tasks, and tasks assigned to the user become unassigned.

Example:
  taskctl user delete --username bob --force  # skip confirmation`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeDB, err := openServices(dbPath)
		if err != nil {
			return err
		}
		defer closeDB()

		ctx := cmd.Context()
		user, err := svc.Users.GetByUsername(ctx, userUsername)
		if err != nil {
			return fmt.Errorf("find user: %s", service.Message(err))
		}

		if !userForce && !confirm(os.Stdin, fmt.Sprintf("Delete user '%s' and every project they own?", user.Username)) {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}

		// act as the user; self-deletion is the only allowed delete
		if err := svc.Users.Delete(ctx, user.ID, user.ID); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "User deleted: %s\n", user.Username)
		return nil
	},
}

var userBackfillCmd = &cobra.Command{
	Use:   "backfill-emails",
	Short: "Assign placeholder emails to users without one",
	Long: `Give every user without an email the address
<username>@placeholder.local. Accounts created before email was collected
need this before email can be made mandatory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeDB, err := openServices(dbPath)
		if err != nil {
			return err
		}
		defer closeDB()

		n, err := svc.Users.BackfillEmails(cmd.Context())
		if err != nil {
			return fmt.Errorf("backfill emails: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %d user(s).\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userListCmd, userCreateCmd, userPasswdCmd, userDeleteCmd, userBackfillCmd)

	userCreateCmd.Flags().StringVar(&userUsername, "username", "", "username for the new user (required)")
	userCreateCmd.Flags().StringVar(&userName, "name", "", "display name")
	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "email address")
	userCreateCmd.MarkFlagRequired("username")

	userPasswdCmd.Flags().StringVar(&userUsername, "username", "", "username of the user to update (required)")
	userPasswdCmd.MarkFlagRequired("username")

	userDeleteCmd.Flags().StringVar(&userUsername, "username", "", "username of the user to delete (required)")
	userDeleteCmd.Flags().BoolVar(&userForce, "force", false, "skip confirmation prompt")
	userDeleteCmd.MarkFlagRequired("username")
}

func listUsers(ctx context.Context, w io.Writer, svc *service.Services) error {
	users, err := svc.Users.List(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	if GetOutput() == "json" {
		return writeJSON(w, users)
	}

	if len(users) == 0 {
		fmt.Fprintln(w, "No users found.")
		return nil
	}

	fmt.Fprintf(w, "\n%-6s  %-20s  %-20s  %-30s  %s\n", "ID", "USERNAME", "NAME", "EMAIL", "CREATED")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, u := range users {
		fmt.Fprintf(w, "%-6d  %-20s  %-20s  %-30s  %s\n",
			u.ID,
			truncate(u.Username, 20),
			truncate(u.Name, 20),
			truncate(u.EmailOrEmpty(), 30),
			u.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}
	fmt.Fprintf(w, "\nTotal: %d user(s)\n", len(users))
	return nil
}

func createUser(ctx context.Context, w io.Writer, svc *service.Services, in service.RegisterInput) error {
	user, err := svc.Users.Register(ctx, in)
	if err != nil {
		if service.IsDomainError(err) {
			return fmt.Errorf("create user: %s", service.Message(err))
		}
		return fmt.Errorf("create user: %w", err)
	}

	fmt.Fprintf(w, "\nUser created successfully:\n")
	fmt.Fprintf(w, "  ID:       %d\n", user.ID)
	fmt.Fprintf(w, "  Username: %s\n", user.Username)
	fmt.Fprintf(w, "  Email:    %s\n", user.EmailOrEmpty())
	return nil
}

func setPassword(ctx context.Context, w io.Writer, svc *service.Services, user *models.User, password string) error {
	if _, err := svc.Users.Update(ctx, user.ID, models.UserPatch{Password: &password}, user.ID); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	fmt.Fprintf(w, "\nPassword changed successfully for user '%s'.\n", user.Username)
	fmt.Fprintln(w, "All existing sessions have been revoked.")
	return nil
}
