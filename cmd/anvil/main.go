// Package main provides the entry point for the Anvil CLI.
package main

import (
	"fmt"
	"os"

	"github.com/eibrahimli/anvil/cmd/anvil/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
