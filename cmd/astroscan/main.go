package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shreya24m/IITBBSRHACKATHON-2026/internal/config"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "astroscan",
		Short:   "AstroScan asteroid feed proxy for the dashboard",
		Version: version,
	}
	root.PersistentFlags().StringP("config", "c", "", "path to a YAML or TOML config file")

	root.AddCommand(
		newServeCmd(),
		newFetchCmd(),
		newAuditCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// loadConfig reads the optional config file, then applies environment overrides.
func loadConfig(cmd *cobra.Command, logger *slog.Logger) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv("ASTROSCAN_CONFIG")
	}

	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.ApplyEnv(logger)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
