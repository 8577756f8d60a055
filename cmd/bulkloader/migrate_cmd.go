package main

import (
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/ntsowef/eff-membership-system-sub020/pkg/configuration"
)

func newMigrateCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf := configuration.Use()
			if strings.TrimSpace(dir) == "" {
				dir = conf.MigrationsDir
			}

			db, err := goose.OpenDBWithDriver("pgx", conf.Database.Opts)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer func() { _ = db.Close() }()

			if err := goose.UpContext(cmd.Context(), db, dir); err != nil {
				return fmt.Errorf("apply migrations: %w", err)
			}

			version, err := goose.GetDBVersionContext(cmd.Context(), db)
			if err != nil {
				return err
			}
			fmt.Printf("database is at migration version %d\n", version)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "migrations directory (defaults to MIGRATIONS_DIR)")
	return cmd
}
