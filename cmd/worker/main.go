// Package main starts the worker service process lifecycle.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	workercmd "github.com/doosr/doosr/internal/cmd/worker"
	entrypoint "github.com/doosr/doosr/internal/platform/cmd"
	"github.com/doosr/doosr/internal/platform/config"
)

func main() {
	cfg, err := workercmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log.SetPrefix(entrypoint.LogPrefix(entrypoint.ServiceWorker))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := workercmd.Run(ctx, cfg); err != nil {
		if cfg.Healthcheck {
			config.Exitf("worker unhealthy: %v", err)
		}
		log.Fatalf("failed to serve: %v", err)
	}
}
