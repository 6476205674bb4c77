package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"fichecode/cmd"
)

func main() {
	logger, err := cmd.NewLogger(os.Getenv(cmd.LogLevelEnv), os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = cmd.Execute(ctx, os.Args[1:])
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		slog.Info("interrupted, exiting")
	default:
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
