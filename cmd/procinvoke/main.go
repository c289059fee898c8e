package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/kbukum/procinvoke/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	root := cli.NewRootCommand()
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		cli.PrintError(os.Stderr, err, cli.JSONRequested(root))
		os.Exit(cli.ExitCode(err))
	}
}
