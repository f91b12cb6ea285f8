package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dynamicdna/academy/pkg/models"
)

func newUserCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	cmd.AddCommand(newUserAddCommand(opts))
	cmd.AddCommand(newUserPromoteCommand(opts))
	return cmd
}

func checkRole(role string) error {
	if role != models.RoleAdmin && role != models.RoleUser {
		return fmt.Errorf("role must be %q or %q, got %q", models.RoleAdmin, models.RoleUser, role)
	}
	return nil
}

func newUserAddCommand(opts *rootOptions) *cobra.Command {
	var email, name, openID, role string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create or update a user that can sign in with local login",
		Example: `  academyctl user add --email admin@example.com --name "Site Admin"
  academyctl user add --email staff@example.com --role user`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			email = strings.TrimSpace(email)
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			if err := checkRole(role); err != nil {
				return err
			}
			if openID == "" {
				openID = "local:" + email
			}

			ctx := cmd.Context()
			repo, closeFn, err := opts.repo(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			method := "local"
			up := &models.UserUpsert{OpenID: openID, Email: &email, LoginMethod: &method, Role: &role}
			if name = strings.TrimSpace(name); name != "" {
				up.Name = &name
			}
			if err := repo.UpsertUser(ctx, up); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %s saved with role %s.\n", email, role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&openID, "open-id", "", `OAuth openId; defaults to "local:<email>"`)
	cmd.Flags().StringVar(&role, "role", models.RoleAdmin, "Role: admin or user")
	return cmd
}

func newUserPromoteCommand(opts *rootOptions) *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "promote <email>",
		Short: "Change the role of an existing user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkRole(role); err != nil {
				return err
			}
			ctx := cmd.Context()
			repo, closeFn, err := opts.repo(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			email := strings.TrimSpace(args[0])
			u, err := repo.GetUserByEmail(ctx, email)
			if err != nil {
				return err
			}
			if u == nil {
				return fmt.Errorf("no user with email %s", email)
			}
			if err := repo.UpsertUser(ctx, &models.UserUpsert{OpenID: u.OpenID, Role: &role}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %s is now %s.\n", email, role)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", models.RoleAdmin, "Role to assign: admin or user")
	return cmd
}
