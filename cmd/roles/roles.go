// Package roles provides CLI commands to manage user role grants.
package roles

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/safetrack/safetrack/internal/app"
	"github.com/safetrack/safetrack/internal/conf"
	"github.com/safetrack/safetrack/internal/datastore"
	"github.com/safetrack/safetrack/internal/inspection"
)

// Command creates the roles command group.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roles",
		Short: "List, grant and revoke user roles",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list <user-id>",
			Short: "List the roles of a user",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRepository(settings, func(repo *datastore.RoleRepository) error {
					roles, err := repo.Roles(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					names := make([]string, len(roles))
					for i, r := range roles {
						names[i] = string(r)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], strings.Join(names, ", "))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "grant <user-id> <role>",
			Short: "Grant a role (admin, supervisor, operario, auditor)",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRepository(settings, func(repo *datastore.RoleRepository) error {
					if err := repo.Grant(cmd.Context(), args[0], inspection.Role(args[1])); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Granted %s to %s\n", args[1], args[0])
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "revoke <user-id> <role>",
			Short: "Revoke a role",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRepository(settings, func(repo *datastore.RoleRepository) error {
					if err := repo.Revoke(cmd.Context(), args[0], inspection.Role(args[1])); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Revoked %s from %s\n", args[1], args[0])
					return nil
				})
			},
		},
	)
	return cmd
}

func withRepository(settings *conf.Settings, fn func(*datastore.RoleRepository) error) error {
	db, err := app.OpenDatastore(&settings.Database, nil)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(datastore.NewRoleRepository(db, 0))
}
