package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"filedrop/server/config"
	"filedrop/server/internal/server"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "filedrop",
		Short: "Owner-partitioned file drop server with live upload notifications",
		Long: `filedrop stores uploaded files in per-user partitions on disk and
pushes a new_file event to every connected WebSocket listener
whenever an upload completes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/settings.yaml", "Path to configuration file")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if cfg.Logging.File != "" {
		logFile, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer logFile.Close()
		log.SetOutput(io.MultiWriter(os.Stderr, logFile))
	}

	sm, err := server.NewServerManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return sm.Start()
}
