// Command migrator applies and reverts versioned database migrations.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/getpup/pupsourcing-migrator/internal/cli"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		cancel()
	}()

	cmd := cli.NewRootCommand(cli.StdStreams(), os.Args[1:])
	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
