// Package main prints fresh journal recovery material.
package main

import (
	"flag"
	"os"

	"github.com/doosr/doosr/internal/platform/config"
	"github.com/doosr/doosr/internal/tools/journalkey"
)

func main() {
	cfg, err := journalkey.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	if err := journalkey.Run(cfg, os.Stdout, nil); err != nil {
		config.Exitf("generate journal key: %v", err)
	}
}
