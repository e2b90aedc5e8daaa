// strobe reconciles a sample clock against true time and raises triggers
// at requested instants.
package main

import (
	"fmt"
	"os"

	"github.com/strobelab/strobe/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
