package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/kocahmet1/ultrasat-progress/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, cli.NewRootCommand(), os.Stderr)
	stop()
	os.Exit(code)
}
