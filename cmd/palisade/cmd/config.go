package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/palisade-http/palisade/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the effective configuration as YAML after applying the config
file, environment variables, and defaults.

Key hashes in metrics.keys are printed as-is; they are not secrets.

Examples:
  # Show what the server would run with
  palisade config

  # Check an environment override took effect
  PALISADE_SERVER_LISTEN_ADDR=:9090 palisade config`,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigRaw()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.SetDefaults()

	if file := config.ConfigFileUsed(); file != "" {
		fmt.Fprintf(os.Stderr, "# config file: %s\n", file)
	} else {
		fmt.Fprintln(os.Stderr, "# no config file found, showing defaults")
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	fmt.Print(string(out))
	return nil
}
