package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/ordermgmt/internal/service"
)

var (
	emailFlag    string
	passwordFlag string
	roleFlag     string
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage accounts",
}

var usersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStores()
		if err != nil {
			return err
		}
		defer st.Close()
		svc, _, err := newAuthService(st, nil)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		u, err := svc.Register(ctx, service.RegisterInput{Email: emailFlag, Password: passwordFlag, RoleName: roleFlag})
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) id=%s\n", u.Email, u.Role.Name, u.ID)
		return nil
	},
}

var usersDeactivateCmd = &cobra.Command{
	Use:   "deactivate",
	Short: "Deactivate an account and revoke its refresh tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStores()
		if err != nil {
			return err
		}
		defer st.Close()
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		n, err := service.NewAdminService(st.users, st.tokens, log).Deactivate(ctx, emailFlag)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deactivated %s, revoked %d refresh token(s)\n", emailFlag, n)
		return nil
	},
}

var usersSessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List the refresh tokens of an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStores()
		if err != nil {
			return err
		}
		defer st.Close()
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		list, err := service.NewAdminService(st.users, st.tokens, log).Sessions(ctx, emailFlag)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCREATED\tEXPIRES\tSTATE")
		for _, t := range list {
			state := "active"
			switch {
			case t.Revoked:
				state = "revoked"
			case t.Expired(now):
				state = "expired"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.ID,
				t.CreatedAt.Format(time.RFC3339), t.ExpiresAt.Format(time.RFC3339), state)
		}
		return w.Flush()
	},
}

var usersRolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "List the roles an account can be created with",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStores()
		if err != nil {
			return err
		}
		defer st.Close()
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		roles, err := st.roles.List(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tCAPABILITIES")
		for _, r := range roles {
			caps := make([]string, 0, 4)
			for _, c := range r.Name.Capabilities() {
				caps = append(caps, string(c))
			}
			fmt.Fprintf(w, "%d\t%s\t%s\n", r.ID, r.Name, strings.Join(caps, ","))
		}
		return w.Flush()
	},
}

func init() {
	usersCreateCmd.Flags().StringVar(&emailFlag, "email", "", "account email")
	usersCreateCmd.Flags().StringVar(&passwordFlag, "password", "", "account password")
	usersCreateCmd.Flags().StringVar(&roleFlag, "role", "CUSTOMER", "ADMIN or CUSTOMER")
	_ = usersCreateCmd.MarkFlagRequired("email")
	_ = usersCreateCmd.MarkFlagRequired("password")

	for _, c := range []*cobra.Command{usersDeactivateCmd, usersSessionsCmd} {
		c.Flags().StringVar(&emailFlag, "email", "", "account email")
		_ = c.MarkFlagRequired("email")
	}

	usersCmd.AddCommand(usersCreateCmd, usersDeactivateCmd, usersSessionsCmd, usersRolesCmd)
}
