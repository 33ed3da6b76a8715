package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/taskboard/internal/service"
)

var (
	projectID    int64
	projectForce bool
)

// projectCmd represents the project command group
var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Project management commands",
	Long: `Commands for inspecting and removing projects.

These commands operate directly on the database file and bypass the
owner checks of the HTTP API.

Examples:
  # List all projects
  taskctl project list

  # Show project details
  taskctl project show --id 3

  # List project members
  taskctl project members --id 3`,
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all projects",
	Long: `List all projects in the database.

Displays project ID, name, owner, member count, task count and creation date.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeDB, err := openServices(dbPath)
		if err != nil {
			return err
		}
		defer closeDB()

		return listProjects(cmd.Context(), cmd.OutOrStdout(), svc)
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show project details",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeDB, err := openServices(dbPath)
		if err != nil {
			return err
		}
		defer closeDB()

		return showProject(cmd.Context(), cmd.OutOrStdout(), svc, projectID)
	},
}

var projectMembersCmd = &cobra.Command{
	Use:   "members",
	Short: "List project members",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeDB, err := openServices(dbPath)
		if err != nil {
			return err
		}
		defer closeDB()

		return listMembers(cmd.Context(), cmd.OutOrStdout(), svc, projectID)
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a project",
	Long: `Delete a project together with its memberships and tasks.

Example:
  taskctl project delete --id 3 --force  # skip confirmation`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeDB, err := openServices(dbPath)
		if err != nil {
			return err
		}
		defer closeDB()

		ctx := cmd.Context()
		detail, err := svc.Projects.Inspect(ctx, projectID)
		if err != nil {
			return fmt.Errorf("find project: %s", service.Message(err))
		}

		if !projectForce && !confirm(os.Stdin, fmt.Sprintf("Delete project '%s' with %d task(s)?", detail.Name, len(detail.Tasks))) {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}

		if err := svc.Projects.ForceDelete(ctx, projectID); err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Project deleted: %s\n", detail.Name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectListCmd, projectShowCmd, projectMembersCmd, projectDeleteCmd)

	for _, c := range []*cobra.Command{projectShowCmd, projectMembersCmd, projectDeleteCmd} {
		c.Flags().Int64Var(&projectID, "id", 0, "project ID (required)")
		c.MarkFlagRequired("id")
	}
	projectDeleteCmd.Flags().BoolVar(&projectForce, "force", false, "skip confirmation prompt")
}

func listProjects(ctx context.Context, w io.Writer, svc *service.Services) error {
	projects, err := svc.Projects.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}

	if GetOutput() == "json" {
		return writeJSON(w, projects)
	}

	if len(projects) == 0 {
		fmt.Fprintln(w, "No projects found.")
		return nil
	}

	fmt.Fprintf(w, "\n%-6s  %-24s  %-16s  %-8s  %-6s  %s\n",
		"ID", "NAME", "OWNER", "MEMBERS", "TASKS", "CREATED")
	fmt.Fprintln(w, strings.Repeat("-", 86))
	for _, p := range projects {
		fmt.Fprintf(w, "%-6d  %-24s  %-16s  %-8d  %-6d  %s\n",
			p.ID,
			truncate(p.Name, 24),
			truncate(p.OwnerName, 16),
			p.MemberCount,
			p.TaskCount,
			p.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	fmt.Fprintf(w, "\nTotal: %d project(s)\n", len(projects))
	return nil
}

func showProject(ctx context.Context, w io.Writer, svc *service.Services, id int64) error {
	detail, err := svc.Projects.Inspect(ctx, id)
	if err != nil {
		return fmt.Errorf("show project: %s", service.Message(err))
	}

	if GetOutput() == "json" {
		return writeJSON(w, detail)
	}

	fmt.Fprintf(w, "\nProject: %s\n", detail.Name)
	fmt.Fprintf(w, "  ID:          %d\n", detail.ID)
	fmt.Fprintf(w, "  Description: %s\n", detail.Description)
	fmt.Fprintf(w, "  Owner:       %s (id %d)\n", detail.OwnerName, detail.OwnerID)
	fmt.Fprintf(w, "  Members:     %d\n", len(detail.Members))
	fmt.Fprintf(w, "  Created:     %s\n", detail.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "  Updated:     %s\n", detail.UpdatedAt.Format("2006-01-02 15:04:05"))

	if len(detail.Tasks) == 0 {
		fmt.Fprintln(w, "\nNo tasks.")
		return nil
	}

	fmt.Fprintf(w, "\n%-6s  %-32s  %-12s  %s\n", "ID", "TITLE", "STATUS", "ASSIGNEE")
	fmt.Fprintln(w, strings.Repeat("-", 64))
	for _, t := range detail.Tasks {
		assignee := "-"
		if t.AssigneeID != nil {
			assignee = fmt.Sprintf("%d", *t.AssigneeID)
		}
		fmt.Fprintf(w, "%-6d  %-32s  %-12s  %s\n", t.ID, truncate(t.Title, 32), t.Status, assignee)
	}
	return nil
}

func listMembers(ctx context.Context, w io.Writer, svc *service.Services, id int64) error {
	detail, err := svc.Projects.Inspect(ctx, id)
	if err != nil {
		return fmt.Errorf("list members: %s", service.Message(err))
	}

	if GetOutput() == "json" {
		return writeJSON(w, detail.Members)
	}

	fmt.Fprintf(w, "\nMembers of project '%s' (owner: %s):\n\n", detail.Name, detail.OwnerName)
	if len(detail.Members) == 0 {
		fmt.Fprintln(w, "No members.")
		return nil
	}

	fmt.Fprintf(w, "%-6s  %-8s  %-20s  %-8s  %s\n", "ID", "USER ID", "USERNAME", "ROLE", "JOINED")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	for _, m := range detail.Members {
		fmt.Fprintf(w, "%-6d  %-8d  %-20s  %-8s  %s\n",
			m.ID, m.UserID, truncate(m.Username, 20), m.Role, m.JoinedAt.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(w, "\nTotal: %d member(s)\n", len(detail.Members))
	return nil
}
