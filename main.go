// gknock - a TCP port knocking client with SSH gateway support.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gknock/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "gknock: %v\n", err)
		os.Exit(1)
	}
}
