package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	combatd "github.com/louisbranch/emberclash/internal/cmd/combatd"
)

func main() {
	cfg, err := combatd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[COMBATD] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := combatd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
