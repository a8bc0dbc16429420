package main

import (
	"github.com/spf13/cobra"

	garden "github.com/goliatone/go-garden"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, logger, err := loadConfig()
		if err != nil {
			return err
		}

		repo, closeDB, err := openRepo(opts)
		if err != nil {
			return err
		}
		defer closeDB()

		if err := repo.Migrate(cmd.Context()); err != nil {
			return err
		}
		logger.Info("database migrated", "dsn", opts.Database.DSN)
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the plant and tour catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, logger, err := loadConfig()
		if err != nil {
			return err
		}

		repo, closeDB, err := openRepo(opts)
		if err != nil {
			return err
		}
		defer closeDB()

		if err := repo.Migrate(cmd.Context()); err != nil {
			return err
		}
		if err := garden.SeedCatalog(cmd.Context(), repo.DB()); err != nil {
			return err
		}
		logger.Info("catalog seeded", "fixture", garden.CatalogFixture)
		return nil
	},
}
