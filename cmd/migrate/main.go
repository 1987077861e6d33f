package main

import (
	"context"
	"io/fs"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/givers/contacts/internal/config"
	"github.com/givers/contacts/internal/logging"
	"github.com/givers/contacts/migrations"
)

var (
	databaseURL  string
	migrationDir string
)

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending Postgres migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd.Context(), func(m *migrator) error {
			return m.incremental(cmd.Context())
		})
	},
	SilenceUsage: true,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop all tables and recreate them from the consolidated schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd.Context(), func(m *migrator) error {
			if err := m.dropAll(cmd.Context()); err != nil {
				return err
			}
			return m.consolidated(cmd.Context())
		})
	},
}

var freshCmd = &cobra.Command{
	Use:   "fresh",
	Short: "Drop all tables and apply every migration in order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd.Context(), func(m *migrator) error {
			if err := m.dropAll(cmd.Context()); err != nil {
				return err
			}
			return m.incremental(cmd.Context())
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "Postgres connection string (default $DATABASE_URL)")
	rootCmd.PersistentFlags().StringVar(&migrationDir, "dir", "", "read migrations from this directory instead of the embedded set")
	rootCmd.AddCommand(resetCmd, freshCmd)
}

func withMigrator(ctx context.Context, fn func(*migrator) error) error {
	url := databaseURL
	if url == "" {
		cfg, err := config.Load(".env", "../.env")
		if err != nil {
			return err
		}
		url = cfg.DatabaseURL
	}

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return err
	}
	defer pool.Close()

	var files fs.FS = migrations.FS
	if migrationDir != "" {
		files = os.DirFS(migrationDir)
	}
	return fn(&migrator{db: pool, files: files})
}

func main() {
	logging.Setup(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logging.Fatal("migrate failed", "error", err)
	}
}
