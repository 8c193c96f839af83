package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/socialhub/client/internal/db"
	"github.com/socialhub/client/internal/repositories"
)

func (c *cli) migrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the schema of the postgres session backend",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: c.withMigrator(func(ctx context.Context, m *repositories.Migrator, pool *pgxpool.Pool) error {
			done, err := m.Up(ctx, pool)
			for _, name := range done {
				fmt.Fprintf(c.out, "applied %s\n", name)
			}
			if err != nil {
				return err
			}
			if len(done) == 0 {
				fmt.Fprintln(c.out, "no migrations to apply")
			}
			return nil
		}),
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they have been applied",
		Args:  cobra.NoArgs,
		RunE: c.withMigrator(func(ctx context.Context, m *repositories.Migrator, pool *pgxpool.Pool) error {
			list, err := m.Status(ctx, pool)
			if err != nil {
				return err
			}
			for _, s := range list {
				mark := " "
				if s.Applied {
					mark = "x"
				}
				fmt.Fprintf(c.out, "[%s] %s\n", mark, s.Name)
			}
			return nil
		}),
	}

	cmd.AddCommand(up, status)
	return cmd
}

func (c *cli) withMigrator(fn func(ctx context.Context, m *repositories.Migrator, pool *pgxpool.Pool) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := c.loadConfig()
		if err != nil {
			return err
		}
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("database_url is required to run migrations")
		}

		dir := cfg.MigrationDir
		if !filepath.IsAbs(dir) {
			wd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("determine working directory: %w", err)
			}
			dir = filepath.Join(wd, dir)
		}

		ctx := cmd.Context()
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		return fn(ctx, repositories.NewMigrator(dir, c.logOut), pool)
	}
}
