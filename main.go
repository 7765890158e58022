package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/DarienLibrary/covercache-public/internal/cli"
	"github.com/DarienLibrary/covercache-public/internal/config"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := cli.NewApp(config.NewConfig, cli.BuildInfo{Version: Version, Commit: Commit})
	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Error().Err(err).Msg("covercache failed")
		stop()
		os.Exit(1)
	}
}
