// Package cmd provides the CLI commands for Palisade.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/palisade-http/palisade/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "palisade",
	Short: "Palisade - hardened HTTP response server",
	Long: `Palisade is an HTTP server built around a response finalization core:
every response leaves the process with an accounted Content-Length, a
correlation id, and a fixed set of browser protection headers.

Quick start:
  1. Create a config file: palisade.yaml (optional, defaults work)
  2. Run: palisade serve

Configuration:
  Config is loaded from palisade.yaml in the current directory,
  $HOME/.palisade/, or /etc/palisade/.

  Environment variables can override config values with the PALISADE_ prefix.
  Example: PALISADE_SERVER_LISTEN_ADDR=:9090

Commands:
  serve       Start the HTTP server
  stop        Stop the running server
  hash-key    Generate a hash for an API key
  config      Print the effective configuration
  version     Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./palisade.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
