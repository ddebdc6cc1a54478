package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ibreez3/ai-chat/config"
	"github.com/ibreez3/ai-chat/observability"
	"github.com/ibreez3/ai-chat/service"
)

func main() {
	path := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	if err := run(*path); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run returns errors to main so its deferred shutdowns still run.
func run(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	log, err := service.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	if cfg.Telemetry.Endpoint != "" {
		tp, err := observability.Setup(context.Background(), cfg.Telemetry.Endpoint, "ai-chat")
		if err != nil {
			return fmt.Errorf("telemetry setup: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				log.WithError(err).Warn("flushing spans")
			}
		}()
	}

	gen, err := service.NewGenerator(cfg, log)
	if err != nil {
		return fmt.Errorf("building generator: %w", err)
	}
	mgr := service.NewManager(gen, log)
	r := service.NewRouter(mgr, log, time.Duration(cfg.Server.RequestTimeoutSec)*time.Second)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.WithField("addr", addr).Info("listening")
	return r.Run(addr)
}
