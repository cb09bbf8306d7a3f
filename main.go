// pmq - a command-driven stdin/stdout bridge to POSIX message queues.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pmq/cmd"
	pmqerrors "pmq/internal/errors"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// The first signal asks the session to wind down; restoring the
	// default handlers lets a second one end a read stuck on stdin.
	go func() {
		<-ctx.Done()
		cancel()
	}()

	err := cmd.Execute(ctx, os.Args[1:])
	if err != nil {
		var ce *pmqerrors.CommandError
		if !pmqerrors.As(err, &ce) {
			fmt.Fprintf(os.Stderr, "pmq: %v\n", err)
		}
	}
	return pmqerrors.ExitCode(err)
}
