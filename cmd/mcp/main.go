// Package main serves the planner tools over MCP on stdio.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	mcpcmd "github.com/doosr/doosr/internal/cmd/mcp"
	entrypoint "github.com/doosr/doosr/internal/platform/cmd"
	"github.com/doosr/doosr/internal/platform/config"
)

func main() {
	cfg, err := mcpcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	// Stdout carries the protocol, so logs stay on stderr.
	log.SetOutput(os.Stderr)
	log.SetPrefix(entrypoint.LogPrefix(entrypoint.ServiceMCP))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := mcpcmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve MCP: %v", err)
	}
}
