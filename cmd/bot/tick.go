package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/your-denys/meal-fit-ai/internal/app"
)

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Run exactly one evaluation pass and exit",
	Long: "Runs a single evaluation pass over all eligible users, with the same\n" +
		"dedup and cooldown guarantees as the loop. Useful for debugging and for\n" +
		"cron-style deployments.",
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
		return a.RunOnce(context.Background())
	},
}

func init() {
	rootCmd.AddCommand(tickCmd)
}
