package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"opticpos/internal/config"
	"opticpos/internal/domain"
	"opticpos/internal/httpapi"
	"opticpos/internal/logger"
	pgstore "opticpos/internal/store/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long: `Apply the embedded SQL migrations to the database named by DATABASE_URL.

With --admin-user and --admin-password an administrator account is created
after the schema is up to date.`,
	Example: `  # Apply pending migrations
  opticpos migrate

  # Apply migrations and provision the first admin
  opticpos migrate --admin-user owner --admin-password 's3cret-pass'`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().String("admin-user", "", "Username of an admin account to create")
	migrateCmd.Flags().String("admin-password", "", "Password for --admin-user (min 8 characters)")
	migrateCmd.Flags().Duration("timeout", 30*time.Second, "Overall timeout for the migration run")
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	if err := setupLogging(cfg); err != nil {
		return fmt.Errorf("invalid logging configuration: %w", err)
	}
	log := logger.WithComponent("migrate")

	adminUser, _ := cmd.Flags().GetString("admin-user")
	adminPassword, _ := cmd.Flags().GetString("admin-password")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for migrate")
	}
	if (adminUser == "") != (adminPassword == "") {
		return fmt.Errorf("--admin-user and --admin-password must be given together")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	pg, err := pgstore.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	applied, err := pg.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Info().Int("applied", applied).Msg("migrations complete")

	if adminUser == "" {
		return nil
	}
	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Minute, pg)
	if err := auth.CreateUser(ctx, adminUser, adminPassword, domain.RoleAdmin); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	log.Info().Str("username", adminUser).Msg("admin account created")
	return nil
}
