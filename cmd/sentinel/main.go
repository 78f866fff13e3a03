// Command sentinel is the CLI and watcher entry point: run with no
// arguments to start the watch-and-dispatch loop, or invoke a "pro"
// subcommand for a one-shot agent task.
package main

import (
	"fmt"
	"os"

	"github.com/sergiogswv/sentinel/internal/errors"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if se, ok := err.(*errors.SentinelError); ok {
			errors.Fatal(se, jsonOutputFlag)
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(errors.ExitOperational)
	}
}
