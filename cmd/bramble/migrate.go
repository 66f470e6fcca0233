package main

import (
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long:  `Applies the migrations in DB_MIGRATION_FOLDER_PATH up to DB_MIGRATION_VERSION (latest when 0).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(appOptions{})
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			if err := a.start(ctx); err != nil {
				return err
			}
			if err := a.migrate(ctx); err != nil {
				return err
			}
			a.logger.WithContext(ctx).Info("Migrations applied")
			return nil
		},
	}
}
