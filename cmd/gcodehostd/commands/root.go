// Package commands implements gcodehostd's CLI, following the same
// cobra root/subcommand layout as dittofs/cmd/dittofs/commands, scaled
// down to a single-binary daemon.
package commands

import (
	"github.com/spf13/cobra"
)

// cfgFile is bound to the persistent --config flag.
var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "gcodehostd",
	Short: "gcodehost - a host-side controller for G-code-speaking printers",
	Long: `gcodehostd drives a session with a single 3D printer over serial,
TCP, or MQTT: it encodes commands, tracks device acknowledgements and
resend requests, and runs a small line-oriented DSL for sending gcode,
printing files, logging labeled device telemetry to CSV, and defining
macros.

Use "gcodehostd [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/gcodehost/config.yaml)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}
