package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/aihub/pkg/apperrors"
	"github.com/ekaya-inc/aihub/pkg/audit"
	"github.com/ekaya-inc/aihub/pkg/auth"
	"github.com/ekaya-inc/aihub/pkg/models"
	"github.com/ekaya-inc/aihub/pkg/repositories"
	"github.com/ekaya-inc/aihub/pkg/services"
)

func newSetRoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-role <email> <role>",
		Short: "Grant or revoke the moderator role",
		Long: `Sets the role of an existing user. The user must have signed in at least once.

Roles: ` + strings.Join(models.ValidRoles, ", ") + `

Example:
  aihubctl set-role jane.doe@corp.example moderator`,
		Args: validateSetRoleArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			policy := auth.NewDomainPolicy(cfg.Auth.AllowedDomain, cfg.Auth.AllowedEmails)
			users := services.NewUserService(repositories.NewUserRepository(db), policy, logger)

			user, err := users.SetRole(cmd.Context(), args[0], args[1])
			if errors.Is(err, apperrors.ErrNotFound) {
				return fmt.Errorf("no user with email %s; they must sign in first", args[0])
			}
			if err != nil {
				return err
			}
			audit.NewSecurityAuditor(logger).LogRoleChanged(cmd.Context(), user.ID.String(), user.Role)
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", user.Email, user.Role)
			return nil
		},
	}
}

func validateSetRoleArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.ExactArgs(2)(cmd, args); err != nil {
		return err
	}
	if !strings.Contains(args[0], "@") {
		return fmt.Errorf("%q is not an email address", args[0])
	}
	if !models.IsValidRole(args[1]) {
		return fmt.Errorf("invalid role %q (want one of %s)", args[1], strings.Join(models.ValidRoles, ", "))
	}
	return nil
}
