// Command coltab serves columnar tables to SQLite as virtual tables.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/coltab/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
