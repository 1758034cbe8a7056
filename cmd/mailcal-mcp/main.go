// ABOUTME: Entry point for the mailcal MCP server
// ABOUTME: Delegates to the cobra command tree in root.go

package main

import "os"

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := newRootCmd(version).Execute(); err != nil {
		os.Exit(1)
	}
}
