package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solatis/gatekeeper/internal/core/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().Bool("status", false, "print migration status without applying")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	database, err := db.Open(cmd.Context(), cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	if statusOnly, _ := cmd.Flags().GetBool("status"); !statusOnly {
		if err := db.MigrateUp(database, logger); err != nil {
			return err
		}
	}

	statuses, err := db.MigrateStatus(database)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, s := range statuses {
		state := "pending"
		if s.Applied {
			state = "applied " + s.AppliedAt
		}
		fmt.Fprintf(out, "%s\t%s\n", s.ID, state)
	}
	return nil
}
