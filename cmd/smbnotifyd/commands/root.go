// Package commands implements the smbnotifyd CLI.
package commands

import (
	"github.com/spf13/cobra"

	// Registers the Prometheus constructors with pkg/metrics via init().
	_ "github.com/gocifsd/smbnotifyd/pkg/metrics/prometheus"
)

var (
	// Version is injected at build time via -ldflags.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "smbnotifyd",
	Short: "SMB change-notification core daemon",
	Long: `smbnotifyd wires the change-notification dispatcher, the file-state
cache, the thread-request pool, and the DB connection pool into a runnable
daemon, watching a directory via fsnotify and emitting CHANGE_NOTIFY-style
events over a demo session layer.

Use "smbnotifyd [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/smbnotifyd/config.yaml)")
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}
