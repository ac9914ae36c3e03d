// File: cmd/agentd/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/xkilldash9x/agent-backend/cmd"
	"github.com/xkilldash9x/agent-backend/internal/observability"
)

const panicLogFile = "panic.log"

// Function variables for dependency injection in tests.
var (
	osWriteFile = os.WriteFile
	osExit      = os.Exit
)

func main() {
	defer handlePanic()

	// Listen for interrupt signals (SIGINT, SIGTERM) for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		observability.Sync()
		// Ctrl+C during a running serve command surfaces as context.Canceled;
		// that is a clean shutdown, not a failure.
		if errors.Is(err, context.Canceled) {
			osExit(0)
			return
		}
		osExit(1)
		return
	}
	observability.Sync()
}

// handlePanic writes crash details to a dedicated log file so they survive a
// terminal scrollback, then exits non-zero.
func handlePanic() {
	r := recover()
	if r == nil {
		return
	}

	// Ensure buffered logs are flushed before reporting the crash.
	observability.Sync()

	panicMessage := fmt.Sprintf("panic: %v\n\n%s", r, debug.Stack())

	if err := osWriteFile(panicLogFile, []byte(panicMessage), 0o644); err != nil {
		// If logging fails, print to stderr as a fallback.
		fmt.Fprintf(os.Stderr, "CRITICAL: Failed to write panic log: %v\n", err)
		fmt.Fprintf(os.Stderr, "Panic details:\n%s\n", panicMessage)
		osExit(1)
		return
	}

	fmt.Fprintf(os.Stderr, "\nCRASH DETECTED. Details logged to %s\n", panicLogFile)
	osExit(1)
}
