package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tagattend/internal/accounts"
	"tagattend/internal/auth"
	"tagattend/internal/config"
	"tagattend/internal/store"
)

func migrateCmd(cfg *config.App) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := store.NewDB(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func userCmd(cfg *config.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	var username, password, role string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a user account",
		Example: `  attendctl user add --username admin --password changeme --role admin
  attendctl user add --username office --password s3cret --role viewer`,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := store.NewDB(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()

			svc := accounts.NewService(accounts.NewPostgresRepository(db.Client), 0)
			a, err := svc.Create(cmd.Context(), username, password, role)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (id %d, role %s)\n", a.Username, a.ID, a.Role)
			return nil
		},
	}
	add.Flags().StringVar(&username, "username", "", "Login name")
	add.Flags().StringVar(&password, "password", "", "Password (at least 6 characters)")
	add.Flags().StringVar(&role, "role", accounts.RoleViewer, "admin or viewer")
	_ = add.MarkFlagRequired("username")
	_ = add.MarkFlagRequired("password")

	cmd.AddCommand(add)
	return cmd
}

func scannerCmd(cfg *config.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scanner",
		Short: "Manage scanner devices",
	}

	var name string
	var ttl time.Duration
	token := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a scanner",
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := issueScannerToken(cmd.Context(), cfg, name, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok.Value)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", tok.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}
	token.Flags().StringVar(&name, "name", "", "Device name recorded as the token subject")
	token.Flags().DurationVar(&ttl, "ttl", cfg.ScannerTTL, "Token lifetime")
	_ = token.MarkFlagRequired("name")

	cmd.AddCommand(token)
	return cmd
}

func issueScannerToken(_ context.Context, cfg *config.App, name string, ttl time.Duration) (auth.Token, error) {
	if name == "" {
		return auth.Token{}, fmt.Errorf("scanner name required")
	}
	return auth.Issue(name, auth.RoleScanner, cfg.JWTIssuer, cfg.JWTSigningKey, ttl)
}
