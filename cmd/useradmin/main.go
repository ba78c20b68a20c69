package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/daap14/useradmin/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, cli.NewRootCommand(cli.Options{}), os.Stderr)
	stop()
	os.Exit(code)
}
