// Command logicrun verifies and runs task units selected by a boolean expression.
package main

import (
	"os"

	"github.com/roach88/logicrun/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
