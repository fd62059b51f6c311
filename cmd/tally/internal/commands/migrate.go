package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/tally/internal/config"
	"github.com/MrJamesThe3rd/tally/internal/database"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			db, err := database.New(cfg.ConnectionString(), database.PoolOptions{
				MaxOpenConns:    1,
				MaxIdleConns:    1,
				ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
			})
			if err != nil {
				return fmt.Errorf("connecting to database: %w", err)
			}
			defer db.Close()

			if err := database.Migrate(cmd.Context(), db); err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), "schema applied")

			return err
		},
	}
}
