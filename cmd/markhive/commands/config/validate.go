package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/markhive/markhive/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate a markhive configuration file.

Loads the configuration, applies defaults and environment overrides, and
runs the full validation pass. Exits non-zero if the configuration is
invalid.

Examples:
  # Validate the default config
  markhive config validate

  # Validate a specific file
  markhive config validate --config /etc/markhive/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	fmt.Println("Configuration is valid.")
	fmt.Printf("  API port:       %d\n", cfg.API.Port)
	fmt.Printf("  Database:       %s\n", cfg.Database.Type)
	fmt.Printf("  Log level:      %s\n", cfg.Logging.Level)
	fmt.Printf("  Worker pool:    %d\n", cfg.Ingest.WorkerPoolSize)
	if cfg.Metrics.Enabled {
		fmt.Printf("  Metrics port:   %d\n", cfg.Metrics.Port)
	} else {
		fmt.Println("  Metrics:        disabled")
	}
	return nil
}
