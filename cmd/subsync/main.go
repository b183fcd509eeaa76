package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/danieljhkim/subsync/internal/cli"
	"github.com/danieljhkim/subsync/internal/logging"
)

var version = "dev"

func main() {
	cli.SetVersion(version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx)
	stop()
	_ = logging.Close()

	if err != nil {
		os.Exit(1)
	}
}
