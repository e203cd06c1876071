package main

import (
	"context"
	"fmt"
	"fsblock/internal/app"
	"fsblock/internal/cli"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-signalChan
		// A second interrupt falls through to the default handler and kills
		// the process, e.g. while a command is still running.
		signal.Stop(signalChan)
		cancel()
	}()

	err := cli.NewCLI(app.Streams{Stdout: os.Stdout, Stderr: os.Stderr}).Run(ctx, os.Args[1:])

	code := app.ExitCode(err)
	if code == app.ExitConfig {
		fmt.Fprintln(os.Stderr, err)
	}
	return code
}
