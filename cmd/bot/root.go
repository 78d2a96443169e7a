package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/your-denys/meal-fit-ai/internal/config"
	"github.com/your-denys/meal-fit-ai/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "meal-fit-ai",
	Short: "Proactive engagement scheduler for the meal tracking bot",
	Long: "meal-fit-ai periodically evaluates every active user and decides whether a\n" +
		"meal reminder, goal congratulation, streak coaching message, re-engagement\n" +
		"nudge or weekly status report should be sent right now.",
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and builds the logger; shared by all commands.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, fmt.Errorf("config: %w", err)
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return cfg, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, log, nil
}
