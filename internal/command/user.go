package command

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"ems/internal/app"
	"ems/internal/domain"
)

func userCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "User commands",
	}
	cmd.AddCommand(
		userCreateCommand(),
		userDeleteCommand(),
	)
	return cmd
}

func userCreateCommand() *cobra.Command {
	var (
		roleName   string
		employeeID int64
	)
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create user",
		Long: "Creates a login for the provided username, role and optional employee link.\n" +
			"Passwords may be provided via stdin or through the interactive prompt.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (runErr error) {
			role, err := domain.ParseRole(roleName)
			if err != nil {
				return fmt.Errorf("--role: %w", err)
			}
			cfg, err := configFrom(cmd.Context())
			if err != nil {
				return err
			}
			logger := slog.Default()
			b, err := openPersistentBackend(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := b.Close(); err != nil {
					runErr = errors.Join(runErr, err)
				}
			}()

			name := args[0]
			passwd, err := prompt("password: ", true)
			if err != nil {
				return err
			}
			auth := app.NewAuthService(b.users, b.sessions)
			if _, err = auth.CreateUser(cmd.Context(), name, string(bytes.TrimSpace(passwd)), role, employeeID); err != nil {
				return err
			}

			logger.InfoContext(cmd.Context(), "created user",
				slog.String("name", name), slog.String("role", string(role)), slog.Int64("employee", employeeID))
			return nil
		},
	}
	cmd.Flags().StringVarP(&roleName, "role", "r", string(domain.RoleEmployee), "one of Employee, HR, Manager, Admin")
	cmd.Flags().Int64Var(&employeeID, "employee", 0, "employee id this login may view as its profile")
	return cmd
}

func userDeleteCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete user",
		Long: "Permanently deletes the login. Employee records are not touched; " +
			"sessions already issued end when they expire.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (runErr error) {
			cfg, err := configFrom(cmd.Context())
			if err != nil {
				return err
			}
			logger := slog.Default()
			b, err := openPersistentBackend(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := b.Close(); err != nil {
					runErr = errors.Join(runErr, err)
				}
			}()

			name := args[0]
			logger = logger.With(slog.String("name", name))
			if !yes {
				resp, err := prompt("Are you sure you want to delete this user? [y|N] ", false)
				if !bytes.Equal(resp, []byte{'y'}) || err != nil {
					logger.InfoContext(cmd.Context(), "aborted user deletion")
					return err
				}
			}
			ok, err := app.NewAuthService(b.users, b.sessions).DeleteUser(cmd.Context(), name)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("user %q not found", name)
			}
			logger.InfoContext(cmd.Context(), "user deleted")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
