package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/CeeBeeEh/bvr-chirp/internal/app"
)

func main() {
	configPath := "config.yaml"
	if len(os.Args) > 1 {
		if os.Args[1] == "-h" || os.Args[1] == "--help" {
			fmt.Fprintf(os.Stderr, "usage: %s [config-file]\n", os.Args[0])
			os.Exit(2)
		}
		configPath = os.Args[1]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, configPath); err != nil {
		fmt.Fprintln(os.Stderr, "bvr-chirp:", err)
		os.Exit(1)
	}
}
