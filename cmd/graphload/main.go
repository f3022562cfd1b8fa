// Command graphload uploads batches of interlinked records to a graph-data
// service.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/graphload/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
