package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"yeetbank/internal/cli"
	"yeetbank/internal/cli/prompt"
	"yeetbank/pkg/shutdown"
)

// set via ldflags during release
var version = "dev"

func main() {
	_ = godotenv.Load(".env")

	ctx, cancel := shutdown.SetupSignalHandler(context.Background())
	err := cli.Execute(ctx, cli.Options{Version: version}, os.Args[1:])
	cancel()
	switch {
	case err == nil:
	case errors.Is(err, prompt.ErrAborted), errors.Is(err, context.Canceled):
		fmt.Fprintln(os.Stderr)
		os.Exit(130)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
