// featureplan keeps a feature plan: projects, features sorted into
// essential, nice-to-have and future columns, their order, and the
// dependencies between them.
//
// Usage:
//
//	featureplan project create "Checkout" --purpose "Let users pay"
//	featureplan feature list <project-id>
//	featureplan serve    # MCP server (stdio transport)
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/featureplan/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
