package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gcodehost/gcodehost/engine"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("gcodehostd " + engine.Version)
		return nil
	},
}
