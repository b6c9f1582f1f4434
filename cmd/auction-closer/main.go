// Package main closes overdue auctions, once or on a fixed interval.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	closercmd "github.com/danwhitston/auction-api/internal/cmd/closer"
	"github.com/danwhitston/auction-api/internal/config"
	"github.com/danwhitston/auction-api/internal/logging"
)

func main() {
	cfg, err := closercmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log := logging.New("auction-closer", cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := closercmd.Run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("closer stopped")
		stop()
		os.Exit(1)
	}
}
