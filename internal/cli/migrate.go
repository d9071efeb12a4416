package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"freeshare/internal/config"
	"freeshare/internal/db"
)

func newMigrateCommand() *cobra.Command {
	var driver, dsn string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(ctx)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if driver != "" {
				cfg.DBDriver = driver
			}
			if dsn != "" {
				cfg.DBDSN = dsn
			}
			log.Logger = newLogger(cfg, cmd.ErrOrStderr())

			database, err := db.Connect(ctx, cfg.DBDriver, cfg.DBDSN)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer database.Close()

			if err := db.Migrate(ctx, database); err != nil {
				return fmt.Errorf("migrate database: %w", err)
			}
			log.Info().Str("driver", cfg.DBDriver).Msg("migrations applied")
			return nil
		},
	}

	cmd.Flags().StringVar(&driver, "driver", "", "database driver, overrides DB_DRIVER")
	cmd.Flags().StringVar(&dsn, "dsn", "", "database DSN, overrides DB_DSN")
	return cmd
}
