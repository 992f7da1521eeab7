// Package main is the entry point for the pkgbridge CLI.
//
// pkgbridge installs .deb and .rpm packages into Distrobox containers and
// exports their binaries and desktop entries to the host. All behaviour
// lives in internal/cli; main only injects build information and wires
// signal handling.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/shinji-kodama/pkgbridge/internal/cli"
)

// version, commit, and date are set at build time via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	// Ctrl-C cancels the context; running subprocesses receive the signal
	// from the terminal themselves.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, cli.NewRootCommand())
	stop()
	os.Exit(code)
}
