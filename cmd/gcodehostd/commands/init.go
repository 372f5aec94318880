package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gcodehost/gcodehost/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write gcodehost's default configuration as YAML.

By default the file is written to $XDG_CONFIG_HOME/gcodehost/config.yaml.
Use --config to choose a different path.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := GetConfigFile()
	if path == "" {
		path = filepath.Join(config.DefaultDir(), "config.yaml")
	}
	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}
	cfg := config.Default()
	if err := config.Save(&cfg, path); err != nil {
		return err
	}
	fmt.Println("wrote default configuration to " + path)
	return nil
}
