package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bnema/ledgerctl/internal/adapters/in/cli"
	"github.com/bnema/ledgerctl/internal/app"
)

var (
	version string
	commit  string
	date    string
)

func main() {
	if version != "" {
		cli.SetVersionInfo(version, commit, date)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, app.Build, os.Args[1:], cli.Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr})
	stop()
	os.Exit(code)
}
