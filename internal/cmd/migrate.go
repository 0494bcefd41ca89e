package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/vacstatus/vacstatus/internal/config"
	"github.com/vacstatus/vacstatus/internal/database"
	"github.com/vacstatus/vacstatus/pkg/log"
)

// migrateCmd applies the database schema.
func migrateCmd() *cobra.Command {
	var downAll bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			conf, errConfig := config.Read(cfgFile, cfgFile == "")
			if errConfig != nil {
				return errConfig
			}

			closeLog := log.MustCreateLogger(ctx, conf.Log.File, conf.Log.Level, false, BuildVersion)
			defer closeLog()

			action := database.MigrateUp
			if downAll {
				action = database.MigrateDn
			}

			db := database.New(conf.DB.DSN, false, conf.DB.LogQueries)
			if errConnect := db.Connect(ctx); errConnect != nil {
				return errConnect
			}

			defer log.Closer(db)

			if errMigrate := db.Migrate(action); errMigrate != nil {
				return errMigrate
			}

			slog.Info("Migration completed", slog.Bool("down", downAll))

			return nil
		},
	}

	cmd.Flags().BoolVarP(&downAll, "down", "d", false, "Fully reverts all migrations")

	return cmd
}
