// Command scanstationd runs the scanstation daemon in the foreground using the
// default configuration search path. It is meant for service managers; use
// `scanstation start` for an interactive launch.
package main

import (
	"context"
	"errors"
	"log"

	"github.com/tebeka/atexit"

	"scanstation/internal/config"
	"scanstation/internal/daemonrun"
)

func main() {
	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{}); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("daemon exited: %v", err)
		atexit.Exit(1)
	}
	atexit.Exit(0)
}
