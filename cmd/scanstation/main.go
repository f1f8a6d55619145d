package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/tebeka/atexit"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		atexit.Exit(1)
	}
	atexit.Exit(0)
}
