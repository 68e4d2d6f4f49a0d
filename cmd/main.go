// Command taxfolio runs the crypto trade ledger with UK capital-gains
// reporting over HTTP.
//
// Usage:
//
//	taxfolio --config config.yaml
//	taxfolio --listen :8080 --datadir ./taxfolio-data
//	taxfolio setup        (interactive config wizard)
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"taxfolio/config"
	"taxfolio/internal/services/fx"
	"taxfolio/internal/services/valuation"
	"taxfolio/internal/setup"
	"taxfolio/internal/storage/ledger"
	"taxfolio/internal/web"
)

func main() {
	args := os.Args[1:]
	if len(args) > 0 && args[0] == "setup" {
		if err := setup.RunTUI(); err != nil {
			log.Fatal(err)
		}
		return
	}

	cfg, err := config.Get(args)
	if err != nil {
		log.Fatal(err)
	}

	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = level
	logger, err := zapCfg.Build()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	store, err := ledger.Open(cfg.DataDir)
	if err != nil {
		logger.Fatal("open ledger", zap.Error(err))
	}
	defer store.Close()

	resolver := valuation.New(fx.NewCache(fx.NewClient(cfg.FXBaseURL)))
	server := web.NewServer(cfg.Listen, cfg.Token, store, resolver, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("http server", zap.Error(err))
	}
}
