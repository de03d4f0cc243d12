// Command sum-mcp is a standalone MCP stdio server fixture used by
// internal/mcp's integration tests.
package main

import (
	"os"

	"github.com/eibrahimli/anvil/pkg/mcpserver/sumserver"
)

func main() {
	if err := sumserver.Run(os.Stdin, os.Stdout); err != nil {
		os.Exit(1)
	}
}
