// Package main starts the auction HTTP API and handles termination.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	gatewaycmd "github.com/danwhitston/auction-api/internal/cmd/gateway"
	"github.com/danwhitston/auction-api/internal/config"
	"github.com/danwhitston/auction-api/internal/logging"
)

func main() {
	cfg, err := gatewaycmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log := logging.New("api-gateway", cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := gatewaycmd.Run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("failed to serve")
		stop()
		os.Exit(1)
	}
}
