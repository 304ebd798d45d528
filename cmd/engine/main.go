package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/tradewatch/trading-assistant/internal/adapters"
	"github.com/tradewatch/trading-assistant/internal/config"
	"github.com/tradewatch/trading-assistant/internal/engine"
	"github.com/tradewatch/trading-assistant/internal/hub"
	"github.com/tradewatch/trading-assistant/internal/observ"
	"github.com/tradewatch/trading-assistant/internal/portfolio"
	"github.com/tradewatch/trading-assistant/internal/publisher"
	"github.com/tradewatch/trading-assistant/internal/risk"
	"github.com/tradewatch/trading-assistant/internal/server"
	sig "github.com/tradewatch/trading-assistant/internal/signal"
)

func main() {
	configPath := flag.String("config", "config/engine.yaml", "path to config file")
	flag.Parse()

	// Optional .env for local development; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("load config: " + err.Error())
	}

	log, err := observ.NewLogger(cfg.Server.Development)
	if err != nil {
		panic("init logger: " + err.Error())
	}
	defer log.Sync()

	ledger := portfolio.NewLedger(cfg.Trading.InitialCash)
	gate := risk.NewGate(cfg.Risk)
	signals := sig.NewGenerator(cfg.Signal)
	market := adapters.NewSimMarketData()
	model := adapters.StaticModel{PumpProb: 0.5, ExitProb: 0.5}

	h := hub.New(log)
	svc := engine.New(ledger, gate, signals, market, model, nil, engine.Options{
		PositionCostUSD: cfg.Trading.PositionCostUSD,
		BuyConfidence:   cfg.Trading.BuyConfidence,
		Symbols:         cfg.Publisher.Symbols,
	}, log)

	pub := publisher.New(publisher.Config{
		Symbols:          cfg.Publisher.Symbols,
		Interval:         cfg.Publisher.Interval(),
		BackoffInterval:  cfg.Publisher.BackoffInterval(),
		FetchesPerSecond: cfg.Publisher.FetchesPerSecond,
	}, market, h, ledger, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pubDone := make(chan struct{})
	go func() {
		defer close(pubDone)
		pub.Run(ctx)
	}()

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: server.New(svc, h, log).Routes(),
	}

	go func() {
		log.Info("engine listening",
			zap.String("addr", cfg.Server.Addr),
			zap.Strings("symbols", cfg.Publisher.Symbols))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown incomplete", zap.Error(err))
	}

	select {
	case <-pubDone:
	case <-shutdownCtx.Done():
		log.Warn("publisher did not stop in time")
	}

	log.Info("engine stopped")
	os.Exit(0)
}
