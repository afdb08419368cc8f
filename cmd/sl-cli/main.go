// Package main provides the entry point for sl-cli.
//
// sl-cli is the command-line client for the SAP Business One Service
// Layer, supporting both single-command mode and an interactive shell.
package main

import (
	"context"
	"os"

	"github.com/yndnr/servicelayer-go/internal/cli/command"
	"github.com/yndnr/servicelayer-go/internal/infra/shutdown"
)

func main() {
	ctx, stop := shutdown.WithSignals(context.Background())
	defer stop()

	app := command.App()
	if err := app.RunContext(ctx, os.Args); err != nil {
		if !command.IsReported(err) {
			command.PrintError(os.Stderr, err)
		}
		stop()
		os.Exit(1)
	}
}
