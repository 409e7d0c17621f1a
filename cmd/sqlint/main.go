// Package main is the entry point of the sqlint CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/sqlint/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
