package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/doubtdesk/doubtdesk-backend/api/routes"
	"github.com/doubtdesk/doubtdesk-backend/internal/broadcast"
	"github.com/doubtdesk/doubtdesk-backend/internal/catalog"
	"github.com/doubtdesk/doubtdesk-backend/internal/debits"
	"github.com/doubtdesk/doubtdesk-backend/internal/ledger"
	"github.com/doubtdesk/doubtdesk-backend/internal/purchases"
	"github.com/doubtdesk/doubtdesk-backend/internal/wallet"
	"github.com/doubtdesk/doubtdesk-backend/internal/withdrawals"
	"github.com/doubtdesk/doubtdesk-backend/pkg/config"
	"github.com/doubtdesk/doubtdesk-backend/pkg/db"
	"github.com/doubtdesk/doubtdesk-backend/pkg/logger"
	"github.com/doubtdesk/doubtdesk-backend/pkg/metrics"
	"github.com/doubtdesk/doubtdesk-backend/pkg/migrate"
	"github.com/doubtdesk/doubtdesk-backend/pkg/outbox"
	"github.com/doubtdesk/doubtdesk-backend/pkg/razorpay"
	"github.com/doubtdesk/doubtdesk-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gateway, err := razorpay.NewClient(context.Background(), cfg.Razorpay, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap razorpay client", err)
		os.Exit(1)
	}

	bus := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	stats := metrics.NewEventMetrics(prometheus.DefaultRegisterer)
	hub := broadcast.NewHub(cfg.Broadcast.SendBuffer, stats)
	defer hub.Close()

	ledgerService := ledger.NewService(ledger.NewRepository(dbClient), bus, logg)
	catalogService := catalog.NewService(catalog.NewRepository(dbClient), logg)
	purchaseService := purchases.NewService(
		purchases.NewRepository(dbClient),
		catalogService,
		ledgerService,
		dbClient,
		gateway,
		gateway,
		logg,
	)
	debitService := debits.NewService(debits.NewRepository(dbClient), ledgerService, dbClient, logg)
	walletService := wallet.NewService(wallet.NewRepository(dbClient), bus, logg)
	earningsService := wallet.NewEarnings(walletService, dbClient, logg)
	withdrawalService := withdrawals.NewService(withdrawals.NewRepository(dbClient), walletService, dbClient, logg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	bridge := broadcast.NewBridge(redisClient, hub, cfg.Broadcast.Channel, logg)
	go func() {
		if err := bridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "broadcast bridge stopped unexpectedly", err)
		}
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			hub,
			ledgerService,
			catalogService,
			purchaseService,
			debitService,
			walletService,
			earningsService,
			withdrawalService,
		),
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(logCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(logCtx, "api server shutdown failed", err)
		}
	}

	logg.Info(logCtx, "api server shutting down gracefully")
}
