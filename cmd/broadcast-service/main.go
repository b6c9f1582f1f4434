// Package main relays live auction events to WebSocket watchers.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	broadcastcmd "github.com/danwhitston/auction-api/internal/cmd/broadcast"
	"github.com/danwhitston/auction-api/internal/config"
	"github.com/danwhitston/auction-api/internal/logging"
)

func main() {
	cfg, err := broadcastcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log := logging.New("broadcast-service", cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := broadcastcmd.Run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("failed to serve")
		stop()
		os.Exit(1)
	}
}
