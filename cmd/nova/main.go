// Command nova is a natural-language calendar and task assistant.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vthunder/nova/internal/app"
	"github.com/vthunder/nova/internal/config"
	"github.com/vthunder/nova/internal/logging"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "nova",
	Short:         "Calendar and task assistant driven by plain English",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "path to a YAML config file (default nova.yaml if present)")
	rootCmd.PersistentFlags().Bool("debug", false, "log debug output")
	rootCmd.AddCommand(chatCmd, serveCmd, discordCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setup loads and validates configuration for a surface and wires the app
func setup(cmd *cobra.Command, surface config.Surface) (*app.App, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	debug, err := cmd.Flags().GetBool("debug")
	if err != nil {
		return nil, err
	}
	if debug {
		logging.SetDebug(true)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(surface); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return app.New(cfg)
}
