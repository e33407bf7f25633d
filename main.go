package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tphakala/birdnet-census/cmd"
	"github.com/tphakala/birdnet-census/internal/buildinfo"
	"github.com/tphakala/birdnet-census/internal/runtime"
)

// Set at build time with -ldflags "-X main.version=... -X main.buildDate=...".
var (
	version   string
	buildDate string
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt := runtime.NewContext(buildinfo.NewContext(version, buildDate, ""))
	defer rt.Shutdown()

	rootCmd := cmd.RootCommand(rt)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}
