package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/AntoineDao/queenbee/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.ExecuteContext(ctx)
	stop()
	os.Exit(cli.ExitCode(err))
}
