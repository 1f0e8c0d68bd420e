// Command tokensender runs the spending-limit ledger from the command line
// or as an HTTP gateway.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/tokensender/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
