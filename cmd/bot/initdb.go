package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/your-denys/meal-fit-ai/internal/app"
)

var initdbCmd = &cobra.Command{
	Use:   "initdb",
	Short: "Create the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		repo, err := app.OpenRepo(context.Background(), cfg, log)
		if err != nil {
			return err
		}
		log.Info("schema ready")
		return repo.Close()
	},
}

func init() {
	rootCmd.AddCommand(initdbCmd)
}
