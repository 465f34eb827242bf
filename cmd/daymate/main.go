package main

import (
	"fmt"
	"os"

	"github.com/hession/daymate/internal/cli"
	"github.com/hession/daymate/internal/config"
	"github.com/hession/daymate/internal/logger"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "daymate",
		Short: "DayMate - Your Reflective Journaling Companion",
		Long: `DayMate is an AI journaling companion that guides you through a short
daily reflection and turns your answers into a diary entry.

It can:
  • Walk you through six gentle reflection questions each day
  • Remember durable facts about you across sessions
  • Notice when new facts contradict old ones and ask for clarification
  • Compose a first-person diary entry from what you shared`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if err := logger.Init(logger.Config{
				Level:  logger.INFO,
				LogDir: config.LogDir(),
			}); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
			}
			defer logger.Close()

			return cli.Run(cfg)
		},
	}

	// config subcommand
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show or manage configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			fmt.Println(cfg.String())

			path, _ := config.ConfigPath()
			fmt.Printf("\nConfig file path: %s\n", path)
			return nil
		},
	}

	// version subcommand
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("DayMate v%s\n", version)
		},
	}

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
