// Command gcodehostd is gcodehost's daemon: it loads configuration,
// builds a Command Engine, and drives it from stdin (or a single -e
// command) until input ends or a quit command arrives. SIGINT/SIGTERM
// cancel the command in flight and stop the loop before it dispatches
// another input line.
package main

import (
	"fmt"
	"os"

	"github.com/gcodehost/gcodehost/cmd/gcodehostd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
