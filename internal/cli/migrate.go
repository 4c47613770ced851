package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deanwagman/peregrine/internal/db"
)

func newMigrateCmd(rt *runtime) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tool",
		Long:  `Database migration tool for the bootstrap schema. Use with 'up' or 'down' subcommands.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Usage()
		},
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.migrate(cmd, (*db.Migrator).Up, "Migrations applied")
		},
	})
	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Revert all database migrations",
		Long: `Revert all database migrations. Tables created for stored models are left in place
and replaced the next time their model is loaded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.migrate(cmd, (*db.Migrator).Down, "Migrations reverted")
		},
	})
	return migrateCmd
}

func (rt *runtime) migrate(cmd *cobra.Command, step func(*db.Migrator) error, done string) error {
	m, err := db.NewMigrator(cmd.Context(), rt.cfg.Database, rt.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			rt.logger.Warnw("Failed to close migrator", "error", err)
		}
	}()

	if err := step(m); err != nil {
		return err
	}
	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	rt.logger.Infow(done, "version", version, "dirty", dirty)
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
	return err
}
