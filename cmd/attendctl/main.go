// Command attendctl performs administrative tasks against the attendance
// database: migrations, user accounts and scanner tokens.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tagattend/internal/config"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cfg := config.Load()

	cmd := &cobra.Command{
		Use:           "attendctl",
		Short:         "Administer the attendance backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "Postgres connection string")

	cmd.AddCommand(migrateCmd(&cfg))
	cmd.AddCommand(userCmd(&cfg))
	cmd.AddCommand(scannerCmd(&cfg))
	return cmd
}
