package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/your-denys/meal-fit-ai/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the tick loop until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		a, err := app.New(cfg, log)
		if err != nil {
			return err
		}
		return a.Run(context.Background())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
