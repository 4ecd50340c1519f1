// Package main provides the uidgen binary. Without a subcommand it starts the
// HTTP service that hands out unique, never reused uids to authenticated
// provisioning clients.
//
// The serve flow:
//  1. Load defaults and apply environment variables, then validate.
//  2. Ensure the data directory and load the cipher key.
//  3. Decrypt the credentials file into the bearer token resolver.
//  4. Open the service database (metrics) and the directory source.
//  5. Seed the ID space from the directory; refuse to start when that fails.
//  6. Serve HTTP until SIGINT/SIGTERM, then shut down gracefully.
//
// Startup failures exit with distinct codes: configuration 2, data directory 3,
// database 4, credentials or cipher key 5, initial directory sync 6.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// Exit codes for startup failures.
const (
	exitFailure     = 1
	exitConfig      = 2
	exitDataDir     = 3
	exitDatabase    = 4
	exitCredentials = 5
	exitInitialSync = 6
)

// exitError carries the process exit code for a failure.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withExit(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

// exitCode maps err to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitFailure
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		slog.Error("uidgen failed", "err", err)
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(exitCode(err))
	}
}
