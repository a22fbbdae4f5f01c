// Command cloak stores files with envelope encryption and gates protected folders
// behind short-lived access tokens.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/idelchi/cloak/internal/commands"
	"github.com/idelchi/cloak/internal/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "unknown"

func main() {
	var cfg config.Config

	root := commands.NewRootCommand(&cfg, version)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)

		os.Exit(1)
	}
}
