package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/aihub/pkg/database"
)

func newMigrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	migrateCmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := database.OpenSQL(cfg.Database.ConnectionString())
				if err != nil {
					return err
				}
				defer db.Close()
				return database.RunMigrations(db, logger)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := database.OpenSQL(cfg.Database.ConnectionString())
				if err != nil {
					return err
				}
				defer db.Close()
				return database.RollbackMigration(db, logger)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := database.OpenSQL(cfg.Database.ConnectionString())
				if err != nil {
					return err
				}
				defer db.Close()
				version, dirty, err := database.MigrationVersion(db, logger)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d", version)
				if dirty {
					fmt.Fprint(cmd.OutOrStdout(), " (dirty)")
				}
				fmt.Fprintln(cmd.OutOrStdout())
				return nil
			},
		},
	)
	return migrateCmd
}
