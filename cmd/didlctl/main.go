// didlctl formats DIDL-Lite documents and merges container update snapshots
package main

import (
	"fmt"
	"os"
	"runtime/debug"
)

func main() {
	// Recover from panics to ensure graceful exits with stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n%s\n", r, debug.Stack())
			os.Exit(ExitPanic)
		}
	}()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(exitCodeForError(err))
	}
}
