package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/daap14/useradmin/internal/notify"
	"github.com/daap14/useradmin/internal/rbac"
	"github.com/daap14/useradmin/internal/users"
)

func usersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List, delete and change the role of users",
	}
	cmd.AddCommand(
		listUsersCmd(a),
		deleteUserCmd(a),
		setRoleCmd(a),
	)
	return cmd
}

func listUsersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := a.projector().List(cmd.Context())
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(list))
			for _, u := range list {
				name := strings.TrimSpace(u.FirstName + " " + u.LastName)
				rows = append(rows, []string{u.Email, name, rbac.Label(u.Role)})
			}

			r := lipgloss.NewRenderer(cmd.OutOrStdout())
			t := table.New().
				Border(lipgloss.NormalBorder()).
				BorderStyle(r.NewStyle().Faint(true)).
				Headers("EMAIL", "NAME", "ROLE").
				Rows(rows...)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), t.String())
			return err
		},
	}
}

func deleteUserCmd(a *app) *cobra.Command {
	var (
		transferTo string
		confirm    string
	)

	cmd := &cobra.Command{
		Use:   "delete EMAIL",
		Short: "Delete a user, transferring or deleting the data they own",
		Long: fmt.Sprintf(`Delete a user.

The data owned by the user is either transferred to another project
(--transfer-to) or deleted with them (--confirm %q).
Without either flag an interactive form asks which one to do.`, users.ConfirmationPhrase),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sink := notify.NewWriter(cmd.OutOrStdout())
			projector := a.projector()

			target, err := projector.FindByEmail(ctx, args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			var answers DeletionAnswers
			switch {
			case cmd.Flags().Changed("transfer-to"):
				id, err := uuid.Parse(transferTo)
				if err != nil {
					return fmt.Errorf("--transfer-to must be a project id: %w", err)
				}
				answers = DeletionAnswers{Mode: users.ModeTransfer, ProjectID: &id}
			case cmd.Flags().Changed("confirm"):
				answers = DeletionAnswers{Mode: users.ModeConfirm, Text: confirm}
			default:
				candidates, err := projector.CandidateTransferProjects(ctx, target.ID)
				if err != nil {
					return err
				}
				answers, err = a.opts.Prompter.PromptDeletion(ctx, target, candidates)
				if err != nil {
					return err
				}
			}

			d := users.NewDeletion(target.ID)
			if err := answers.Apply(d); err != nil {
				return err
			}
			if !d.IsValid() {
				return fmt.Errorf("%w: choose a project to transfer to or type %q", users.ErrNotReady, users.ConfirmationPhrase)
			}

			slog.Debug("submitting deletion", "user", target.ID, "mode", d.Mode())
			if err := d.Submit(ctx, a.api.DeleteUser); err != nil {
				sink.ShowError(ctx, uuid.Nil, "Could not delete user", err)
				return reportedError{err}
			}

			sink.ShowToast(ctx, uuid.Nil, notify.Toast{
				Type:    notify.ToastSuccess,
				Title:   "User deleted",
				Message: fmt.Sprintf("%s has been deleted", target.FullName()),
			})
			return nil
		},
	}

	cmd.Flags().StringVar(&transferTo, "transfer-to", "", "id of the project receiving the user's data")
	cmd.Flags().StringVar(&confirm, "confirm", "", fmt.Sprintf("type %q to delete the user's data", users.ConfirmationPhrase))
	cmd.MarkFlagsMutuallyExclusive("transfer-to", "confirm")
	return cmd
}

func setRoleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set-role EMAIL ROLE",
		Short: "Change a user's global role",
		Long:  "Change a user's global role. ROLE is global:member or global:admin; member and admin are accepted too.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			role, err := parseRole(args[1])
			if err != nil {
				return err
			}

			target, err := a.projector().FindByEmail(ctx, args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			changer := users.NewRoleChanger(uuid.Nil, notify.NewWriter(cmd.OutOrStdout()))
			err = changer.Change(ctx, target, role, a.api.UpdateGlobalRole)
			if err != nil && !errors.Is(err, users.ErrRoleChangeInProgress) {
				return reportedError{err}
			}
			return err
		},
	}
}

// parseRole accepts a role name or its label, case-insensitively.
func parseRole(s string) (rbac.Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, r := range rbac.AssignableRoles() {
		if s == string(r) || s == strings.ToLower(rbac.Label(r)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q (choose member or admin)", users.ErrInvalidRole, s)
}
