package config

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/markhive/markhive/internal/cli/output"
	"github.com/markhive/markhive/pkg/config"
)

var showOutput string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long: `Display the current markhive configuration.

By default outputs YAML format. Use --output to change format.

Examples:
  # Show default config as YAML
  markhive config show

  # Show as JSON
  markhive config show --output json

  # Show specific config file
  markhive config show --config /etc/markhive/config.yaml`,
	RunE: runConfigShow,
}

func init() {
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "yaml", "Output format (yaml|json)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	// Get config path from parent's persistent flag
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(showOutput)
	if err != nil {
		return err
	}

	// Config is a plain struct; table format makes no sense here.
	if format != output.FormatJSON {
		format = output.FormatYAML
	}
	return output.Print(os.Stdout, format, cfg)
}
