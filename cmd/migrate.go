package cmd

import (
	"context"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-lms-payments/migrations"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate <up|down|status|version>",
	Short:     "Apply the embedded MySQL schema migrations",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"up", "down", "status", "version"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := mustLoadConfig()
		db := mustOpenDB(cfg)
		defer func() {
			if err := db.Close(); err != nil {
				logrus.WithError(err).Warn("Failed to close database")
			}
		}()

		goose.SetBaseFS(migrations.FS)
		if err := goose.SetDialect("mysql"); err != nil {
			return fmt.Errorf("set goose dialect: %w", err)
		}
		if err := goose.RunContext(context.Background(), args[0], db, "."); err != nil {
			return fmt.Errorf("goose %s: %w", args[0], err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
