// Package main starts the web server process.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	servercmd "github.com/doosr/doosr/internal/cmd/server"
	entrypoint "github.com/doosr/doosr/internal/platform/cmd"
	"github.com/doosr/doosr/internal/platform/config"
)

func main() {
	cfg, err := servercmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log.SetPrefix(entrypoint.LogPrefix(entrypoint.ServiceServer))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := servercmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
