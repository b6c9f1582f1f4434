// Package main archives auction events from NATS JetStream into SQL.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	archivercmd "github.com/danwhitston/auction-api/internal/cmd/archiver"
	"github.com/danwhitston/auction-api/internal/config"
	"github.com/danwhitston/auction-api/internal/logging"
)

func main() {
	cfg, err := archivercmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log := logging.New("archival-worker", cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := archivercmd.Run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("archival worker stopped")
		stop()
		os.Exit(1)
	}
}
